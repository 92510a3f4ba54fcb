// Package bcra scrapes the international reserves and the monetary base from the
// central bank "Principales variables" table.
package bcra

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/chaintracker/chain-tracker/internal/numfmt"
	"github.com/chaintracker/chain-tracker/internal/puller"
)

const (
	// Module is the name under which this puller is registered.
	Module = "bcra"
	// SourceID is the identifier of the snapshots produced by this puller.
	SourceID = "bcra_reserves"
	// SourceName is the human readable name of the source.
	SourceName = "BCRA International Reserves"

	defaultURL = "https://www.bcra.gob.ar/PublicacionesEstadisticas/Principales_variables_datos.asp"
)

var datePattern = regexp.MustCompile(`\d{2}/\d{2}/\d{4}|\d{4}-\d{2}-\d{2}`)

// Data is the payload of a BCRA snapshot. Amounts are in millions.
type Data struct {
	ReservesUSDMM     *float64 `json:"reservas_internacionales_usd_mm"`
	MonetaryBaseARSMM *float64 `json:"base_monetaria_ars_mm"`
	DataDate          *string  `json:"data_date"`
}

// Puller scrapes the BCRA principal variables page.
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

// New returns a BCRA puller.
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

// Pull scrapes the page and reads the reserves and monetary base rows.
func (p Puller) Pull(ctx context.Context) puller.Result {
	pulledAt := puller.Timestamp(p.now())

	page, err := puller.Scrape(ctx, p.url, p.timeout)
	if err != nil {
		return puller.Failed(p, pulledAt, Data{}, err)
	}

	r := puller.Result{
		SourceID:           SourceID,
		SourceName:         SourceName,
		PulledAt:           pulledAt,
		RawResponseSnippet: puller.Snippet(page.Body),
	}

	rows := page.Doc.Find("tr")
	if rows.Length() == 0 {
		r.Status = puller.StatusError
		r.Data = Data{}
		r.Errors = []string{"No table rows found. Page structure may have changed or requires JS rendering."}
		return r
	}

	data := parseRows(rows)

	errs := []string{}
	found := 0
	if data.ReservesUSDMM == nil {
		errs = append(errs, "Reservas Internacionales row not found or unparseable.")
	} else {
		found++
	}
	if data.MonetaryBaseARSMM == nil {
		errs = append(errs, "Base Monetaria row not found or unparseable.")
	} else {
		found++
	}
	if data.DataDate == nil {
		errs = append(errs, "Data date not found in parsed rows.")
	}

	r.Status = puller.StatusFromCount(found, 2)
	if found == 2 && len(errs) > 1 {
		r.Status = puller.StatusPartial
	}
	r.Data = data
	r.Errors = errs
	return r
}

// parseRows reads the first row mentioning each variable.
func parseRows(rows *goquery.Selection) Data {
	var data Data
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		var cells []string
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, puller.NodeText(cell))
		})
		if len(cells) == 0 {
			return true
		}

		rowText := strings.Join(cells, " | ")
		folded := puller.Fold(rowText)

		if data.ReservesUSDMM == nil && strings.Contains(folded, "reservas internacionales") {
			data.ReservesUSDMM = firstNumber(valueCells(cells))
			if data.DataDate == nil {
				data.DataDate = findDate(rowText)
			}
		}
		if data.MonetaryBaseARSMM == nil && strings.Contains(folded, "base monetaria") {
			data.MonetaryBaseARSMM = firstNumber(valueCells(cells))
			if data.DataDate == nil {
				data.DataDate = findDate(rowText)
			}
		}

		return data.ReservesUSDMM == nil || data.MonetaryBaseARSMM == nil
	})
	return data
}

// valueCells skips the label cell of a row, unless it is the only one.
func valueCells(cells []string) []string {
	if len(cells) > 1 {
		return cells[1:]
	}
	return cells
}

// firstNumber returns the first number found in cells. Dates are not numbers.
func firstNumber(cells []string) *float64 {
	for _, cell := range cells {
		if values := numfmt.ExtractSigned(datePattern.ReplaceAllString(cell, " ")); len(values) > 0 {
			return &values[0]
		}
	}
	return nil
}

// findDate returns the first valid date of text as YYYY-MM-DD.
func findDate(text string) *string {
	for _, m := range datePattern.FindAllString(text, -1) {
		for _, layout := range []string{"02/01/2006", constants.DateLayout} {
			d, err := time.Parse(layout, m)
			if err != nil {
				continue
			}
			s := d.Format(constants.DateLayout)
			return &s
		}
	}
	return nil
}
