package dashboard

import (
	"bytes"
	"fmt"
	"html"
	"html/template"

	"github.com/chaintracker/chain-tracker/internal/analysis"
	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/chaintracker/chain-tracker/internal/numfmt"
	"github.com/chaintracker/chain-tracker/internal/puller"
	"github.com/yuin/goldmark"
)

// FX are the exchange rates of the latest day.
type FX struct {
	Oficial      *float64 `json:"oficial"`
	Blue         *float64 `json:"blue"`
	BlueChange   *float64 `json:"blue_change"`
	MEP          *float64 `json:"mep"`
	MEPChange    *float64 `json:"mep_change"`
	CCL          *float64 `json:"ccl"`
	CCLChange    *float64 `json:"ccl_change"`
	Brecha       *float64 `json:"brecha"`
	BrechaChange *float64 `json:"brecha_change"`
	Status       string   `json:"status"`
}

// Reserves are the central bank reserves of the latest day.
type Reserves struct {
	Value     *float64  `json:"value"`
	Change    *float64  `json:"change"`
	Sparkline []float64 `json:"sparkline"`
	Status    string    `json:"status"`
}

// Yields are the US Treasury yields of the latest day. Changes and spreads are in basis points.
type Yields struct {
	Y2           *float64  `json:"y2"`
	Y2Change     *float64  `json:"y2_change"`
	Y10          *float64  `json:"y10"`
	Y10Change    *float64  `json:"y10_change"`
	Y30          *float64  `json:"y30"`
	Y30Change    *float64  `json:"y30_change"`
	Spread       *float64  `json:"spread"`
	SpreadChange *float64  `json:"spread_change"`
	Sparkline    []float64 `json:"sparkline"`
	Status       string    `json:"status"`
}

// Overview is everything shown on the home page.
type Overview struct {
	HasData         bool                  `json:"has_data"`
	Date            string                `json:"date"`
	FX              FX                    `json:"fx"`
	Reserves        Reserves              `json:"reserves"`
	Yields          Yields                `json:"yields"`
	Chain           []analysis.LayerState `json:"chain"`
	Changes         []analysis.ChangeRow  `json:"changes"`
	Brief           template.HTML         `json:"brief"`
	BrechaSparkline []float64             `json:"brecha_sparkline"`
	Pipeline        Pipeline              `json:"pipeline"`
	Updated         string                `json:"updated"`
	UpdatedRel      string                `json:"updated_rel"`
}

// Overview builds the home page from the latest day.
// Day over day changes are computed against the previous day recorded in the chain analysis.
func (d Dashboard) Overview() Overview {
	o := Overview{
		Pipeline:        d.PipelineStatus(),
		Chain:           []analysis.LayerState{},
		Changes:         []analysis.ChangeRow{},
		BrechaSparkline: []float64{},
	}

	date := d.latestDate()
	if date == "" {
		return o
	}
	o.HasData = true
	o.Date = date

	s := analysis.ReadSnapshots(d.store, date)
	var chain analysis.ChainAnalysis
	if err := d.store.ReadJSON(date, constants.ChainAnalysisFileName, &chain); err != nil {
		d.log.Debug("No chain analysis for latest day", "date", date, "error", err)
	}
	prev := chain.PreviousDay
	fx, res, yld := s.FXData, s.ReservesData, s.YieldsData

	o.FX = FX{
		Oficial:      fx.OficialVenta,
		Blue:         fx.BlueVenta,
		BlueChange:   pctChange(fx.BlueVenta, prev.BlueVenta),
		MEP:          fx.MEP,
		MEPChange:    pctChange(fx.MEP, prev.MEP),
		CCL:          fx.CCL,
		CCLChange:    pctChange(fx.CCL, prev.CCL),
		Brecha:       fx.BrechaPct,
		BrechaChange: round(analysis.Delta(fx.BrechaPct, prev.BrechaPct), 1, 1),
		Status:       statusOr(s.FX, HealthError),
	}

	o.Reserves = Reserves{
		Value:     res.ReservesUSDMM,
		Change:    round(analysis.Delta(res.ReservesUSDMM, prev.ReservesUSDMM), 1, 0),
		Sparkline: orEmpty(chain.Sparklines.Reserves30d),
		Status:    statusOr(s.Reserves, HealthError),
	}

	o.Yields = Yields{
		Y2:        yld.US2Y,
		Y2Change:  round(analysis.Delta(yld.US2Y, prev.US2Y), 100, 0),
		Y10:       yld.US10Y,
		Y10Change: round(analysis.Delta(yld.US10Y, prev.US10Y), 100, 0),
		Y30:       yld.US30Y,
		Y30Change: round(analysis.Delta(yld.US30Y, prev.US30Y), 100, 0),
		Spread:    round(analysis.Delta(yld.US10Y, yld.US2Y), 100, 0),
		Sparkline: orEmpty(chain.Sparklines.Yields10y30d),
		Status:    statusOr(s.Yields, HealthError),
	}
	if prevSpread := round(analysis.Delta(prev.US10Y, prev.US2Y), 100, 0); o.Yields.Spread != nil && prevSpread != nil {
		change := *o.Yields.Spread - *prevSpread
		o.Yields.SpreadChange = &change
	}

	if chain.ChainState != nil {
		o.Chain = chain.ChainState
	}
	if chain.DailyChanges != nil {
		o.Changes = chain.DailyChanges
	}
	o.BrechaSparkline = orEmpty(chain.Sparklines.Brecha90d)
	o.Brief = d.renderBrief(date)
	o.Updated, o.UpdatedRel = d.updated(latestPull(s))
	return o
}

// updated formats the time of the latest pull and its age.
func (d Dashboard) updated(pulledAt string) (display, rel string) {
	if pulledAt == "" {
		return "", ""
	}
	t, err := puller.ParseTimestamp(pulledAt)
	if err != nil {
		return pulledAt, ""
	}

	display = t.In(ART).Format("02 Jan 2006 · 15:04 ART")
	mins := max(int(d.now().Sub(t).Minutes()), 0)
	switch {
	case mins < 60:
		rel = fmt.Sprintf("hace %dm", mins)
	case mins < 24*60:
		rel = fmt.Sprintf("hace %dh", mins/60)
	default:
		rel = fmt.Sprintf("hace %dd", mins/(24*60))
	}
	return display, rel
}

// Brief returns the daily brief of the latest day as HTML.
func (d Dashboard) Brief() template.HTML {
	date := d.latestDate()
	if date == "" {
		return ""
	}
	return d.renderBrief(date)
}

// renderBrief renders the Markdown brief of a date. Raw HTML in the brief is escaped, not interpreted.
func (d Dashboard) renderBrief(date string) template.HTML {
	src, err := d.store.ReadFile(date, constants.DailyBriefFileName)
	if err != nil {
		return ""
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(html.EscapeString(string(src))), &buf); err != nil {
		d.log.Warn("Could not render daily brief", "date", date, "error", err)
		return ""
	}
	// #nosec:G203 The Markdown source is escaped before rendering.
	return template.HTML(buf.String())
}

// pctChange is the percent change of current over previous, rounded to one decimal.
// Missing or zero values have no change.
func pctChange(current, previous *float64) *float64 {
	if current == nil || *current == 0 {
		return nil
	}
	return round(analysis.PctChange(current, previous), 1, 1)
}

// round scales v then rounds it to decimals places.
func round(v *float64, scale float64, decimals int) *float64 {
	if v == nil {
		return nil
	}
	r := numfmt.Round(*v*scale, decimals)
	return &r
}

func orEmpty(points []float64) []float64 {
	if points == nil {
		return []float64{}
	}
	return points
}
