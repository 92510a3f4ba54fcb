package dolarhoy_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chaintracker/chain-tracker/internal/puller"
	"github.com/chaintracker/chain-tracker/internal/puller/dolarhoy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	oficialCard = `<div class="tile"><a class="title">Dólar Oficial</a>
		<div class="compra"><div class="label">Compra</div><div class="val">$1.050,00</div></div>
		<div class="venta"><div class="label">Venta</div><div class="val">$1.100,00</div></div></div>`
	blueCard = `<div class="tile"><a class="title">Dólar Blue</a>
		<div class="compra"><div class="label">Compra</div><div class="val">$1.280</div></div>
		<div class="venta"><div class="label">Venta</div><div class="val">$1.300</div></div></div>`
	mepCard    = `<div class="tile"><a class="title">Dólar MEP</a><p>Compra $1.180,50</p><p>Venta $1.195,50</p></div>`
	cclCard    = `<div class="tile"><a class="title">Contado con liquidación</a><p>Venta $1.210</p></div>`
	cryptoCard = `<div class="tile"><a class="title">Dólar Cripto</a><p>Venta $1.250</p></div>`
)

func TestPull(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		body   string
		status int

		wantStatus puller.Status
		want       dolarhoy.Data
		wantErrs   []string
	}{
		"Every card found": {
			body:       page(oficialCard, blueCard, mepCard, cclCard, cryptoCard),
			wantStatus: puller.StatusOK,
			want: dolarhoy.Data{
				OficialCompra: ptr(1050.0), OficialVenta: ptr(1100.0),
				BlueCompra: ptr(1280.0), BlueVenta: ptr(1300.0),
				MEP: ptr(1195.5), CCL: ptr(1210.0), Crypto: ptr(1250.0),
				BrechaPct: ptr(18.18),
			},
			wantErrs: []string{},
		},
		"Unlabelled values fall back to card order": {
			body:       page(`<li>Oficial $1.050 $1.100</li>`, `<li>Blue $1.280 $1.320</li>`),
			wantStatus: puller.StatusOK,
			want: dolarhoy.Data{
				OficialCompra: ptr(1050.0), OficialVenta: ptr(1100.0),
				BlueCompra: ptr(1280.0), BlueVenta: ptr(1320.0),
				BrechaPct: ptr(20.0),
			},
			wantErrs: []string{
				"dolar_mep not found on page",
				"dolar_ccl not found on page",
				"dolar_crypto not found on page",
			},
		},
		"Missing official rate is partial": {
			body:       page(blueCard),
			wantStatus: puller.StatusPartial,
			want:       dolarhoy.Data{BlueCompra: ptr(1280.0), BlueVenta: ptr(1300.0)},
			wantErrs: []string{
				"dolar_oficial_compra not found on page",
				"dolar_oficial_venta not found on page",
				"dolar_mep not found on page",
				"dolar_ccl not found on page",
				"dolar_crypto not found on page",
				"Cannot calculate brecha_blue_vs_oficial_pct due to missing official/blue venta",
			},
		},
		"No cards is an error": {
			body:       page(`<p>Sitio en mantenimiento</p>`),
			wantStatus: puller.StatusError,
			wantErrs: []string{
				"dolar_oficial_compra not found on page",
				"dolar_oficial_venta not found on page",
				"dolar_blue_compra not found on page",
				"dolar_blue_venta not found on page",
				"dolar_mep not found on page",
				"dolar_ccl not found on page",
				"dolar_crypto not found on page",
				"Cannot calculate brecha_blue_vs_oficial_pct due to missing official/blue venta",
			},
		},
		"Server error": {
			status:     http.StatusForbidden,
			wantStatus: puller.StatusError,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				if tc.status != 0 {
					w.WriteHeader(tc.status)
				}
				fmt.Fprint(w, tc.body)
			}))
			t.Cleanup(srv.Close)

			now := func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
			got := dolarhoy.New(puller.Config{Now: now}, dolarhoy.WithURL(srv.URL+"/")).Pull(context.Background())

			assert.Equal(t, dolarhoy.SourceID, got.SourceID)
			assert.Equal(t, dolarhoy.SourceName, got.SourceName)
			assert.Equal(t, tc.wantStatus, got.Status, "Unexpected status")

			data, ok := got.Data.(dolarhoy.Data)
			require.True(t, ok, "Data should be a dolarhoy.Data")
			assert.Equal(t, tc.want, data, "Unexpected data")

			if tc.status != 0 {
				require.Len(t, got.Errors, 1)
				assert.Contains(t, got.Errors[0], "Request failed: ")
				return
			}
			assert.Equal(t, tc.wantErrs, got.Errors, "Unexpected errors")
			assert.NotEmpty(t, got.RawResponseSnippet)
		})
	}
}

func page(cards ...string) string {
	body := ""
	for _, c := range cards {
		body += c + "\n"
	}
	return "<html><head><title>DolarHoy</title></head><body>" + body + "</body></html>"
}

func ptr[T any](v T) *T {
	return &v
}
