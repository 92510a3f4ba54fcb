// Package analysis builds the daily package of a date: the chain analysis consumed by the dashboard
// and a short Markdown brief.
package analysis

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/chaintracker/chain-tracker/internal/fileutils"
	"github.com/chaintracker/chain-tracker/internal/puller"
	"github.com/chaintracker/chain-tracker/internal/store"
	"github.com/ubuntu/decorate"
)

// Sparkline lengths, in number of dated snapshots.
const (
	reservesSparkline = 30
	brechaSparkline   = 90
	yieldsSparkline   = 30
)

// Sparklines are the recent series of the headline figures, oldest first.
type Sparklines struct {
	Reserves30d  []float64 `json:"reserves_30d"`
	Brecha90d    []float64 `json:"brecha_90d"`
	Yields10y30d []float64 `json:"yields_10y_30d"`
}

// ChainAnalysis is the content of the chain analysis file of a date.
type ChainAnalysis struct {
	Date         string       `json:"date"`
	GeneratedAt  string       `json:"generated_at_utc"`
	ChainState   []LayerState `json:"chain_state"`
	DailyChanges []ChangeRow  `json:"daily_changes"`
	PreviousDay  Metrics      `json:"previous_day"`
	Sparklines   Sparklines   `json:"sparklines"`
}

// Result summarizes a package generation.
type Result struct {
	Status         string   `json:"status"`
	Date           string   `json:"date"`
	GeneratedFiles []string `json:"generated_files"`
	Warnings       []string `json:"warnings"`
}

// Generator writes daily packages into a store.
type Generator struct {
	store store.Store
	now   func() time.Time
	log   *slog.Logger
}

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

// Options represents an optional function to override Generator default values.
type Options func(*options)

// WithClock sets the clock used for the default date and the generation timestamp.
func WithClock(now func() time.Time) Options {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the logger of the generator.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.logger = l
	}
}

// New returns a Generator writing into st.
func New(st store.Store, args ...Options) Generator {
	opts := options{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}
	return Generator{store: st, now: opts.now, log: opts.logger}
}

// Generate writes the chain analysis and the brief of date, today in UTC when empty.
// Days are compared with the newest earlier date folder.
func (g Generator) Generate(date string) (res Result, err error) {
	defer decorate.OnError(&err, "could not generate daily package")

	if date == "" {
		date = g.now().UTC().Format(constants.DateLayout)
	}
	if !fileutils.IsDateName(date) {
		return Result{}, fmt.Errorf("%w: %q", store.ErrInvalidDate, date)
	}

	previousDate, err := g.store.Previous(date)
	if err != nil {
		return Result{}, err
	}

	current := ReadMetrics(g.store, date)
	var previous Metrics
	if previousDate != "" {
		previous = ReadMetrics(g.store, previousDate)
	}
	g.log.Debug("Generating daily package", "date", date, "previous", previousDate)

	changes := ComputeChanges(current, previous)
	chain := ChainState(current, previous, changes)

	sparklines, err := g.sparklines()
	if err != nil {
		return Result{}, err
	}

	analysis := ChainAnalysis{
		Date:         date,
		GeneratedAt:  puller.Timestamp(g.now()),
		ChainState:   chain,
		DailyChanges: DailyChanges(current, previous, changes),
		PreviousDay:  previous,
		Sparklines:   sparklines,
	}

	if err := g.store.WriteJSON(date, constants.ChainAnalysisFileName, analysis); err != nil {
		return Result{}, err
	}
	if err := g.store.WriteFile(date, constants.DailyBriefFileName, []byte(Brief(current, changes, chain))); err != nil {
		return Result{}, err
	}

	warnings := []string{}
	if previousDate == "" {
		warnings = append(warnings, "No previous date snapshot found; day-over-day changes may be incomplete.")
	}
	if current.BlueVenta == nil && current.ReservesUSDMM == nil && current.US10Y == nil {
		warnings = append(warnings, "No core source metrics were found in today's files.")
	}

	return Result{
		Status:         "ok",
		Date:           date,
		GeneratedFiles: []string{constants.ChainAnalysisFileName, constants.DailyBriefFileName},
		Warnings:       warnings,
	}, nil
}

// sparklines collects the headline series across every date folder.
func (g Generator) sparklines() (Sparklines, error) {
	dates, err := g.store.Dates()
	if err != nil {
		return Sparklines{}, err
	}

	s := Sparklines{Reserves30d: []float64{}, Brecha90d: []float64{}, Yields10y30d: []float64{}}
	for _, d := range dates {
		m := ReadMetrics(g.store, d)
		if m.ReservesUSDMM != nil {
			s.Reserves30d = append(s.Reserves30d, *m.ReservesUSDMM)
		}
		if m.BrechaPct != nil {
			s.Brecha90d = append(s.Brecha90d, *m.BrechaPct)
		}
		if m.US10Y != nil {
			s.Yields10y30d = append(s.Yields10y30d, *m.US10Y)
		}
	}

	s.Reserves30d = last(s.Reserves30d, reservesSparkline)
	s.Brecha90d = last(s.Brecha90d, brechaSparkline)
	s.Yields10y30d = last(s.Yields10y30d, yieldsSparkline)
	return s, nil
}

func last(points []float64, n int) []float64 {
	if len(points) > n {
		return points[len(points)-n:]
	}
	return points
}
