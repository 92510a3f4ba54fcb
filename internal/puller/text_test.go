package puller_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/chaintracker/chain-tracker/internal/puller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSpace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Reservas Internacionales del BCRA", puller.NormalizeSpace("  Reservas\n\tInternacionales   del BCRA "))
	assert.Empty(t, puller.NormalizeSpace(" \n "))
}

func TestFold(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dolar oficial", puller.Fold("Dólar Oficial"))
	assert.Equal(t, "cotizacion", puller.Fold("COTIZACIÓN"))
	assert.Equal(t, "contado con liquidacion", puller.Fold("Contado con Liquidación"))
}

func TestNodeText(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body>
		<div id="card"><h3>Dólar   Blue</h3><script>var x = 1;</script>
			<div>Compra<span>$1.250</span></div><!-- hidden --><div>Venta <b>$1.280</b></div>
		</div></body></html>`))
	require.NoError(t, err, "Setup: could not parse document")

	assert.Equal(t, "Dólar Blue Compra $1.250 Venta $1.280", puller.NodeText(doc.Find("#card")))
	assert.Empty(t, puller.NodeText(doc.Find("#missing")))
}
