// Package dashboard builds the read models of the web dashboard from the snapshots, the pull log and the registries.
// Every read degrades gracefully: missing or corrupt files show up as missing values, never as errors.
package dashboard

import (
	"log/slog"
	"time"

	"github.com/chaintracker/chain-tracker/internal/pulllog"
	"github.com/chaintracker/chain-tracker/internal/registry"
	"github.com/chaintracker/chain-tracker/internal/store"
)

// ART is the Argentina time zone. Argentina does not observe daylight saving time.
var ART = time.FixedZone("ART", -3*60*60)

// Registry gives access to the current registry entries.
type Registry interface {
	Sources() []registry.Source
	Analysts() []registry.Analyst
	Research() registry.Research
}

// Dashboard reads the data directory for the dashboard pages.
type Dashboard struct {
	store    store.Store
	pullLog  *pulllog.Log
	registry Registry

	now func() time.Time
	log *slog.Logger
}

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

// Options represents an optional function to override Dashboard default values.
type Options func(*options)

// WithClock sets the clock used to compute the age of the data.
func WithClock(now func() time.Time) Options {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the logger of the dashboard.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.logger = l
	}
}

// New returns a Dashboard.
func New(st store.Store, pl *pulllog.Log, reg Registry, args ...Options) Dashboard {
	opts := options{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	return Dashboard{
		store:    st,
		pullLog:  pl,
		registry: reg,
		now:      opts.now,
		log:      opts.logger,
	}
}

// latestDate returns the newest date folder, or an empty string.
func (d Dashboard) latestDate() string {
	date, err := d.store.Latest()
	if err != nil {
		d.log.Warn("Could not find latest data folder", "error", err)
		return ""
	}
	return date
}

// Analysts returns the analyst registry entries.
func (d Dashboard) Analysts() []registry.Analyst {
	analysts := d.registry.Analysts()
	if analysts == nil {
		return []registry.Analyst{}
	}
	return analysts
}
