// Package dolarhoy scrapes the ARS exchange rates published on dolarhoy.com and derives
// the gap between the blue and the official rate.
package dolarhoy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/chaintracker/chain-tracker/internal/numfmt"
	"github.com/chaintracker/chain-tracker/internal/puller"
)

const (
	// Module is the name under which this puller is registered.
	Module = "dolarhoy"
	// SourceID is the identifier of the snapshots produced by this puller.
	SourceID = "fx_rates_dolarhoy"
	// SourceName is the human readable name of the source.
	SourceName = "DolarHoy FX Rates"

	defaultURL = "https://dolarhoy.com/"

	cardSelector  = "div, section, article, li, tr"
	valueSelector = "div, span, p, td, strong"
)

// Keywords identifying each card, already folded.
var (
	oficialKeywords = []string{"dolar oficial", "oficial"}
	blueKeywords    = []string{"dolar blue", "blue"}
	mepKeywords     = []string{"mep", "bolsa"}
	cclKeywords     = []string{"ccl", "contado con liqui", "contado con liquidacion"}
	cryptoKeywords  = []string{"crypto", "cripto"}
)

// Data is the payload of a DolarHoy snapshot. Rates are in ARS per USD.
type Data struct {
	OficialCompra *float64 `json:"dolar_oficial_compra"`
	OficialVenta  *float64 `json:"dolar_oficial_venta"`
	BlueCompra    *float64 `json:"dolar_blue_compra"`
	BlueVenta     *float64 `json:"dolar_blue_venta"`
	MEP           *float64 `json:"dolar_mep"`
	CCL           *float64 `json:"dolar_ccl"`
	Crypto        *float64 `json:"dolar_crypto"`
	// BrechaPct is the blue selling rate premium over the official one, in percent.
	BrechaPct *float64 `json:"brecha_blue_vs_oficial_pct"`
}

// Puller scrapes the dolarhoy.com home page.
type Puller struct {
	url     string
	timeout time.Duration
	now     func() time.Time
}

type options struct {
	url string
}

// Options represents an optional function to override Puller default values.
type Options func(*options)

func init() {
	puller.Register(Module, func(cfg puller.Config) puller.Puller {
		return New(cfg)
	})
}

// New returns a DolarHoy puller.
func New(cfg puller.Config, args ...Options) *Puller {
	opts := options{
		url: defaultURL,
	}
	for _, opt := range args {
		opt(&opts)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultPullTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Puller{
		url:     opts.url,
		timeout: timeout,
		now:     now,
	}
}

// ID returns the source identifier.
func (p Puller) ID() string { return SourceID }

// Name returns the source name.
func (p Puller) Name() string { return SourceName }

// Pull scrapes the rate cards of the page.
func (p Puller) Pull(ctx context.Context) puller.Result {
	pulledAt := puller.Timestamp(p.now())

	page, err := puller.Scrape(ctx, p.url, p.timeout)
	if err != nil {
		return puller.Failed(p, pulledAt, Data{}, err)
	}

	var data Data
	data.OficialCompra, data.OficialVenta = compraVenta(findCard(page.Doc, oficialKeywords))
	data.BlueCompra, data.BlueVenta = compraVenta(findCard(page.Doc, blueKeywords))
	data.MEP = single(findCard(page.Doc, mepKeywords))
	data.CCL = single(findCard(page.Doc, cclKeywords))
	data.Crypto = single(findCard(page.Doc, cryptoKeywords))

	errs := []string{}
	for _, f := range []struct {
		name  string
		value *float64
	}{
		{"dolar_oficial_compra", data.OficialCompra},
		{"dolar_oficial_venta", data.OficialVenta},
		{"dolar_blue_compra", data.BlueCompra},
		{"dolar_blue_venta", data.BlueVenta},
		{"dolar_mep", data.MEP},
		{"dolar_ccl", data.CCL},
		{"dolar_crypto", data.Crypto},
	} {
		if f.value == nil {
			errs = append(errs, fmt.Sprintf("%s not found on page", f.name))
		}
	}

	if data.BlueVenta != nil && data.OficialVenta != nil && *data.OficialVenta != 0 {
		brecha := numfmt.Round((*data.BlueVenta / *data.OficialVenta - 1)*100, 2)
		data.BrechaPct = &brecha
	} else {
		errs = append(errs, "Cannot calculate brecha_blue_vs_oficial_pct due to missing official/blue venta")
	}

	found := 0
	for _, v := range []*float64{data.OficialCompra, data.OficialVenta, data.BlueCompra, data.BlueVenta} {
		if v != nil {
			found++
		}
	}

	return puller.Result{
		SourceID:           SourceID,
		SourceName:         SourceName,
		PulledAt:           pulledAt,
		Status:             puller.StatusFromCount(found, 4),
		Data:               data,
		Errors:             errs,
		RawResponseSnippet: puller.Snippet(page.Body),
	}
}

// findCard returns the first element, in document order, whose text mentions one of keywords.
func findCard(doc *goquery.Selection, keywords []string) *goquery.Selection {
	var card *goquery.Selection
	doc.Find(cardSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := puller.Fold(puller.NodeText(s))
		if text == "" {
			return true
		}
		for _, k := range keywords {
			if strings.Contains(text, k) {
				card = s
				return false
			}
		}
		return true
	})
	return card
}

// compraVenta reads the buying and selling rates of a card.
// Labelled values win, the first two numbers of the card are used otherwise.
func compraVenta(card *goquery.Selection) (compra, venta *float64) {
	if card == nil {
		return nil, nil
	}

	card.Find(valueSelector).Each(func(_ int, s *goquery.Selection) {
		text := strings.ToLower(puller.NodeText(s))
		numbers := numfmt.Extract(text)
		if len(numbers) == 0 {
			return
		}
		if strings.Contains(text, "compra") {
			compra = &numbers[0]
		}
		if strings.Contains(text, "venta") {
			venta = &numbers[0]
		}
	})
	if compra != nil && venta != nil {
		return compra, venta
	}

	numbers := numfmt.Extract(puller.NodeText(card))
	if compra == nil && len(numbers) >= 1 {
		compra = &numbers[0]
	}
	if venta == nil && len(numbers) >= 2 {
		venta = &numbers[1]
	}
	return compra, venta
}

// single reads the representative rate of a card: the last number when there are several.
func single(card *goquery.Selection) *float64 {
	if card == nil {
		return nil
	}
	numbers := numfmt.Extract(puller.NodeText(card))
	if len(numbers) == 0 {
		return nil
	}
	return &numbers[len(numbers)-1]
}
