// Package puller defines the shape of a snapshot and the contract every data source implements.
//
// A puller never fails: transport, parsing and even unexpected panics are folded into the
// returned Result so that one broken source cannot stop the daily run.
package puller

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/chaintracker/chain-tracker/internal/constants"
)

// Status is the outcome of a pull.
type Status string

const (
	// StatusOK means every expected field was found.
	StatusOK Status = "ok"
	// StatusPartial means some, but not all, expected fields were found.
	StatusPartial Status = "partial"
	// StatusError means no usable field was found.
	StatusError Status = "error"
	// StatusFatal is reserved for pulls that could not even produce a result.
	StatusFatal Status = "fatal_error"
)

// Result is a normalized snapshot of one source, written once per source per day.
type Result struct {
	SourceID           string   `json:"source_id"`
	SourceName         string   `json:"source_name,omitempty"`
	PulledAt           string   `json:"pulled_at_utc"`
	Status             Status   `json:"status"`
	Data               any      `json:"data"`
	Errors             []string `json:"errors"`
	RawResponseSnippet string   `json:"raw_response_snippet"`
}

// OK reports whether every expected field of the result was found.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Puller fetches and normalizes one data source.
type Puller interface {
	// ID is the stable snake_case identifier of the source, also used as the snapshot file name.
	ID() string
	// Name is the human readable name of the source.
	Name() string
	// Pull fetches the source. Failures are reported in the returned Result.
	Pull(ctx context.Context) Result
}

// Run pulls p, converting a panic into an error Result.
func Run(ctx context.Context, l *slog.Logger, p Puller, now func() time.Time) (r Result) {
	defer func() {
		if rec := recover(); rec != nil {
			l.Error("Puller panicked", "source", p.ID(), "panic", rec)
			r = Result{
				SourceID:   p.ID(),
				SourceName: p.Name(),
				PulledAt:   Timestamp(now()),
				Status:     StatusError,
				Data:       map[string]any{},
				Errors:     []string{fmt.Sprintf("Unhandled pull error: %v", rec)},
			}
		}
	}()

	r = p.Pull(ctx)
	if r.SourceID == "" {
		r.SourceID = p.ID()
	}
	if r.SourceName == "" {
		r.SourceName = p.Name()
	}
	if r.Errors == nil {
		r.Errors = []string{}
	}
	return r
}

// Failed returns an error Result for a pull that could not reach its source.
func Failed(p Puller, pulledAt string, data any, err error) Result {
	return Result{
		SourceID:   p.ID(),
		SourceName: p.Name(),
		PulledAt:   pulledAt,
		Status:     StatusError,
		Data:       data,
		Errors:     []string{fmt.Sprintf("Request failed: %v", err)},
	}
}

// StatusFromCount maps the number of found fields out of want to a Status.
func StatusFromCount(found, want int) Status {
	switch {
	case found >= want:
		return StatusOK
	case found > 0:
		return StatusPartial
	default:
		return StatusError
	}
}

// Timestamp formats t as a second precision UTC timestamp ending with Z.
func Timestamp(t time.Time) string {
	return t.UTC().Format(constants.TimestampLayout)
}

// ParseTimestamp parses a timestamp written by Timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// Snippet returns the first characters of a raw response, as kept in a snapshot.
func Snippet(raw string) string {
	if utf8.RuneCountInString(raw) <= constants.SnippetLength {
		return raw
	}
	runes := []rune(raw)
	return string(runes[:constants.SnippetLength])
}

// Config carries the settings shared by every puller built from the registry.
type Config struct {
	FREDAPIKey string
	Timeout    time.Duration
	Now        func() time.Time
}

// Constructor builds a puller from the shared configuration.
type Constructor func(Config) Puller

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register adds a puller constructor under the given module name.
func Register(module string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[module] = ctor
}

// Get returns the puller constructor for the given module name.
func Get(module string) (Constructor, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ctor, ok := registry[module]
	if !ok {
		return nil, fmt.Errorf("unknown puller module: %s", module)
	}
	return ctor, nil
}

// Modules returns the sorted names of all registered puller modules.
func Modules() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
