// Package runner runs the daily pull: every puller in turn, each result appended to the pull log
// and saved as the snapshot of the day.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chaintracker/chain-tracker/internal/analysis"
	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/chaintracker/chain-tracker/internal/puller"
	"github.com/chaintracker/chain-tracker/internal/pulllog"
	"github.com/chaintracker/chain-tracker/internal/store"
	"github.com/chaintracker/chain-tracker/internal/validator"
	"github.com/google/uuid"
	"github.com/ubuntu/decorate"
)

var (
	// ErrValidationFailed is returned when the validation gate refuses the run.
	ErrValidationFailed = errors.New("validation failed")
	// ErrUnknownSource is returned when a requested source has no puller.
	ErrUnknownSource = errors.New("unknown source")
)

// Validator checks the configuration and the data directory before pulling.
type Validator interface {
	Run() validator.Report
}

// Packager builds the daily package once the snapshots of the day are written.
type Packager interface {
	Generate(date string) (analysis.Result, error)
}

// Summary is the outcome of a run.
type Summary struct {
	RunID   string
	Date    string
	Results []puller.Result
	OK      int
	Issues  int
}

// Runner pulls every source sequentially.
type Runner struct {
	pullers []puller.Puller
	store   store.Store
	pullLog *pulllog.Log

	out       io.Writer
	now       func() time.Time
	log       *slog.Logger
	newRunID  func() string
	validator Validator
	packager  Packager
}

type options struct {
	out       io.Writer
	now       func() time.Time
	logger    *slog.Logger
	validator Validator
	packager  Packager

	// Private members exported for tests.
	newRunID func() string
}

// Options represents an optional function to override Runner default values.
type Options func(*options)

// WithOutput sets where the run progress is printed.
func WithOutput(w io.Writer) Options {
	return func(o *options) {
		o.out = w
	}
}

// WithClock sets the clock deciding the date of the run and the pull timestamps.
func WithClock(now func() time.Time) Options {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the logger of the runner.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.logger = l
	}
}

// WithValidator runs v before pulling and aborts the run when it fails.
func WithValidator(v Validator) Options {
	return func(o *options) {
		o.validator = v
	}
}

// WithPackager generates the daily package after pulling.
func WithPackager(p Packager) Options {
	return func(o *options) {
		o.packager = p
	}
}

// New returns a Runner for the given pullers, in order.
func New(pullers []puller.Puller, st store.Store, pl *pulllog.Log, args ...Options) Runner {
	opts := options{
		out:      os.Stdout,
		now:      time.Now,
		logger:   slog.Default(),
		newRunID: uuid.NewString,
	}
	for _, opt := range args {
		opt(&opts)
	}

	return Runner{
		pullers:   pullers,
		store:     st,
		pullLog:   pl,
		out:       opts.out,
		now:       opts.now,
		log:       opts.logger,
		newRunID:  opts.newRunID,
		validator: opts.validator,
		packager:  opts.packager,
	}
}

// Run pulls every source and prints the progress.
// A source that cannot be logged or saved is counted as an issue and the run goes on.
func (r Runner) Run(ctx context.Context) (s Summary, err error) {
	defer decorate.OnError(&err, "pull run failed")

	if r.validator != nil {
		report := r.validator.Run()
		report.Print(r.out)
		if !report.OK() {
			fmt.Fprintln(r.out, "Validation failed. Pull run aborted.")
			return Summary{}, ErrValidationFailed
		}
	}

	s = Summary{
		RunID: r.newRunID(),
		Date:  r.now().UTC().Format(constants.DateLayout),
	}
	log := r.log.With("run_id", s.RunID)
	fmt.Fprintf(r.out, "=== Argentina Chain Tracker - %s ===\n", s.Date)

	for _, p := range r.pullers {
		if err := ctx.Err(); err != nil {
			return s, err
		}

		fmt.Fprintf(r.out, "Pulling: %s...\n", p.Name())
		log.Debug("Pulling source", "source", p.ID())
		res := puller.Run(ctx, log, p, r.now)

		if err := r.persist(s, res); err != nil {
			log.Error("Could not persist pull result", "source", p.ID(), "error", err)
			fmt.Fprintf(r.out, "  FATAL ERROR: %v\n", err)
			res = puller.Result{
				SourceID:   p.ID(),
				SourceName: p.Name(),
				PulledAt:   puller.Timestamp(r.now()),
				Status:     puller.StatusFatal,
				Errors:     []string{err.Error()},
			}
		} else {
			fmt.Fprintf(r.out, "  Status: %s\n", res.Status)
			for _, e := range res.Errors {
				fmt.Fprintf(r.out, "  Warning: %s\n", e)
			}
		}

		s.Results = append(s.Results, res)
		if res.OK() {
			s.OK++
		} else {
			s.Issues++
		}
	}

	fmt.Fprintf(r.out, "\n=== Complete: %d ok, %d issues ===\n", s.OK, s.Issues)
	log.Info("Pull run complete", "ok", s.OK, "issues", s.Issues)

	if r.packager == nil {
		return s, nil
	}
	pkg, err := r.packager.Generate(s.Date)
	if err != nil {
		return s, err
	}
	fmt.Fprintf(r.out, "Daily package %s: %s\n", pkg.Date, strings.Join(pkg.GeneratedFiles, ", "))
	for _, w := range pkg.Warnings {
		fmt.Fprintf(r.out, "  Warning: %s\n", w)
	}
	return s, nil
}

// persist appends the result to the pull log, then writes the snapshot of the day.
func (r Runner) persist(s Summary, res puller.Result) error {
	if err := r.pullLog.Append(pulllog.NewEntry(s.RunID, res)); err != nil {
		return err
	}
	return r.store.Save(s.Date, res)
}
