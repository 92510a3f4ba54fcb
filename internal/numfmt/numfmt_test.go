package numfmt_test

import (
	"testing"

	"github.com/chaintracker/chain-tracker/internal/numfmt"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		raw string

		want   float64
		wantOK bool
	}{
		"Plain integer":                 {raw: "1250", want: 1250, wantOK: true},
		"Dollar sign and spaces":        {raw: "$ 1250", want: 1250, wantOK: true},
		"Non-breaking space":            {raw: "$ 1.250", want: 1250, wantOK: true},
		"Argentine thousands and comma": {raw: "1.250,50", want: 1250.5, wantOK: true},
		"Comma decimal only":            {raw: "17,43", want: 17.43, wantOK: true},
		"Dot thousands only":            {raw: "27.500", want: 27500, wantOK: true},
		"Several dot thousands":         {raw: "12.800.000", want: 12800000, wantOK: true},
		"Dot decimal":                   {raw: "4.25", want: 4.25, wantOK: true},
		"Percent sign":                  {raw: "17,5%", want: 17.5, wantOK: true},
		"Negative":                      {raw: "-1.234,5", want: -1234.5, wantOK: true},
		"Explicit plus":                 {raw: "+12", want: 12, wantOK: true},

		"Empty":                 {raw: ""},
		"Only a currency sign":  {raw: "$"},
		"Ambiguous dots":        {raw: "1.2.3"},
		"Trailing dot":          {raw: "1.250."},
		"Words are not numbers": {raw: "Inf"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, ok := numfmt.Parse(tc.raw)
			assert.Equal(t, tc.wantOK, ok, "Unexpected parse result")
			if tc.wantOK {
				assert.InDelta(t, tc.want, got, 1e-9, "Unexpected parsed value")
			}
		})
	}
}

func TestExtract(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []float64{1250, 1280}, numfmt.Extract("Dólar Blue Compra $1.250 Venta $1.280"))
	assert.Equal(t, []float64{1060.5}, numfmt.Extract("Oficial $ 1.060,50"))
	assert.Empty(t, numfmt.Extract("sin cotización"))

	assert.Equal(t, []float64{-12.5, 27500}, numfmt.ExtractSigned("Variación -12,5 | 27.500"))
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		v        float64
		decimals int

		want string
	}{
		"Thousands with decimals":  {v: 1234.56, decimals: 2, want: "1.234,56"},
		"Millions no decimals":     {v: 12800000, decimals: 0, want: "12.800.000"},
		"Rounds half values":       {v: 27499.6, decimals: 0, want: "27.500"},
		"Small value":              {v: 4.5, decimals: 2, want: "4,50"},
		"Negative":                 {v: -1234.5, decimals: 1, want: "-1.234,5"},
		"Three digits not grouped": {v: 999, decimals: 0, want: "999"},
		"Exactly four digits":      {v: 1000, decimals: 0, want: "1.000"},
		"Zero":                     {v: 0, decimals: 1, want: "0,0"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, numfmt.Format(tc.v, tc.decimals))
		})
	}
}

func TestFormatSigned(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "+2,5", numfmt.FormatSigned(2.5, 1))
	assert.Equal(t, "-120", numfmt.FormatSigned(-120, 0))
	assert.Equal(t, "0", numfmt.FormatSigned(0, 0))
}

func TestDisplay(t *testing.T) {
	t.Parallel()

	v := 1280.9
	pct := 17.43

	assert.Equal(t, "—", numfmt.Display(nil, 2), "Nil renders as a dash")
	assert.Equal(t, "1.280", numfmt.Display(&v, 0), "Integers are truncated")
	assert.Equal(t, "1.280,90", numfmt.Display(&v, 2))
	assert.Equal(t, "17,4%", numfmt.DisplayPct(&pct, 1))
	assert.Equal(t, "—", numfmt.DisplayPct(nil, 1))
}

func TestRound(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 17.43, numfmt.Round(17.4311, 2), 1e-9)
	assert.InDelta(t, -3.0, numfmt.Round(-2.5, 0), 1e-9)
	assert.InDelta(t, 0.1, numfmt.Round(0.06, 1), 1e-9)
}
