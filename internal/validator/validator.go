// Package validator checks the registries and the health of the collected data before a run.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/chaintracker/chain-tracker/internal/pulllog"
	"github.com/chaintracker/chain-tracker/internal/registry"
	"github.com/chaintracker/chain-tracker/internal/store"
)

// maxShownErrors is the number of errors detailed per category.
const maxShownErrors = 3

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Category is the outcome of one group of checks.
type Category struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Report is the outcome of a validation run.
type Report struct {
	Categories []Category `json:"categories"`
}

// Passed returns the number of passing categories.
func (r Report) Passed() int {
	n := 0
	for _, c := range r.Categories {
		if c.OK {
			n++
		}
	}
	return n
}

// OK reports whether every category passed.
func (r Report) OK() bool {
	return r.Passed() == len(r.Categories)
}

// Print writes the human readable report to w.
func (r Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Config Validator ===")
	for _, c := range r.Categories {
		status := "PASS"
		if !c.OK {
			status = "FAIL"
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", status, c.Name, c.Message)
	}

	passed, total := r.Passed(), len(r.Categories)
	if passed == total {
		fmt.Fprintf(w, "=== %d/%d PASSED ===\n", passed, total)
		return
	}
	fmt.Fprintf(w, "=== %d/%d PASSED - %d FAILURES ===\n", passed, total, total-passed)
}

// Validator checks a configuration directory against the compiled-in pullers and the data on disk.
type Validator struct {
	configDir string
	store     store.Store
	pullLog   *pulllog.Log
	modules   []string
	now       func() time.Time
}

type options struct {
	now func() time.Time
}

// Options represents an optional function to override Validator default values.
type Options func(*options)

// WithClock sets the clock used to find today's data folder.
func WithClock(now func() time.Time) Options {
	return func(o *options) {
		o.now = now
	}
}

// New returns a Validator. modules lists the names of the compiled-in pullers.
func New(configDir string, st store.Store, pl *pulllog.Log, modules []string, args ...Options) Validator {
	opts := options{
		now: time.Now,
	}
	for _, opt := range args {
		opt(&opts)
	}

	return Validator{
		configDir: configDir,
		store:     st,
		pullLog:   pl,
		modules:   modules,
		now:       opts.now,
	}
}

// Run runs every category of checks.
func (v Validator) Run() Report {
	src := v.sourceRegistry()
	if !src.OK {
		src.meta = sourceMeta{}
	}

	return Report{Categories: []Category{
		src.Category,
		v.analystRegistry(),
		v.competitiveBenchmark(),
		v.crossFile(src.meta),
		v.dataHealth(),
	}}
}

type sourceMeta struct {
	path        string
	sources     []any
	activeCount int
}

type sourceResult struct {
	Category
	meta sourceMeta
}

func (v Validator) sourceRegistry() sourceResult {
	const name = "source_registry"
	res := sourceResult{Category: Category{Name: name}}

	path, raw, err := v.load(constants.SourceRegistryName, "array")
	if err != nil {
		res.Message = err.Error()
		return res
	}
	sources := raw.([]any)
	res.meta = sourceMeta{path: path, sources: sources}

	var errs []string
	seenIDs := map[string]int{}
	seenURLs := map[string]string{}

	for i, item := range sources {
		loc := fmt.Sprintf("%s[%d]", path, i)
		source, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: entry must be object, got %s", loc, registry.TypeName(item)))
			continue
		}
		if missing := missingFields(source, sourceRequiredFields); len(missing) > 0 {
			errs = append(errs, fmt.Sprintf("%s: missing required fields %s", loc, list(missing)))
			continue
		}

		if id, ok := source["source_id"].(string); !ok {
			errs = append(errs, fmt.Sprintf("%s: field source_id must be string, got %s", loc, registry.TypeName(source["source_id"])))
		} else {
			if !idPattern.MatchString(id) {
				errs = append(errs, fmt.Sprintf("%s: source_id '%s' fails snake_case regex %s", loc, id, idPattern))
			}
			if at, dup := seenIDs[id]; dup {
				errs = append(errs, fmt.Sprintf("%s: duplicate source_id '%s' also present at index %d", loc, id, at))
			} else {
				seenIDs[id] = i
			}
		}

		if layer, ok := source["layer"].(int64); !ok || layer < 1 || layer > 5 {
			errs = append(errs, fmt.Sprintf("%s: layer must be integer 1-5, got %s", loc, repr(source["layer"])))
		}
		if tier := source["credibility_tier"]; !oneOf(tier, sourceTiers) {
			errs = append(errs, fmt.Sprintf("%s: credibility_tier must be one of %s, got %s", loc, list(sourceTiers), repr(tier)))
		}
		if freq := source["frequency"]; !oneOf(freq, sourceFrequencies) {
			errs = append(errs, fmt.Sprintf("%s: frequency must be one of %s, got %s", loc, list(sourceFrequencies), repr(freq)))
		}

		if url, ok := source["url"].(string); !ok || !strings.HasPrefix(url, "https://") {
			errs = append(errs, fmt.Sprintf("%s: url must start with https://, got %s", loc, repr(source["url"])))
		} else {
			normalized := strings.ToLower(strings.TrimRight(url, "/"))
			if other, dup := seenURLs[normalized]; dup {
				errs = append(errs, fmt.Sprintf("%s: duplicate URL '%s' conflicts with source_id '%s'", loc, url, other))
			} else {
				id, ok := source["source_id"].(string)
				if !ok {
					id = fmt.Sprintf("idx_%d", i)
				}
				seenURLs[normalized] = id
			}
		}

		if points, ok := source["data_points"].([]any); !ok || len(points) == 0 {
			errs = append(errs, fmt.Sprintf("%s: data_points must be non-empty array", loc))
		}

		active, ok := source["active"].(bool)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: active must be boolean, got %s", loc, registry.TypeName(source["active"])))
		}

		module := source["puller_module"]
		if active {
			res.meta.activeCount++
			if module == nil {
				errs = append(errs, fmt.Sprintf("%s: active=true requires puller_module, got null", loc))
			} else if s, ok := module.(string); !ok || strings.TrimSpace(s) == "" {
				errs = append(errs, fmt.Sprintf("%s: active=true requires non-empty puller_module string, got %s", loc, repr(module)))
			}
		} else if module != nil && !truthy(source["inactive_reason"]) && !truthy(source["inactive_note"]) {
			errs = append(errs, fmt.Sprintf("%s: active=false with puller_module=%s requires inactive_note/inactive_reason", loc, repr(module)))
		}
	}

	if len(errs) > 0 {
		res.Message = formatErrors(errs)
		return res
	}
	res.OK = true
	res.Message = fmt.Sprintf("%d sources, %d active", len(sources), res.meta.activeCount)
	return res
}

func (v Validator) analystRegistry() Category {
	c := Category{Name: "analyst_registry"}

	path, raw, err := v.load(constants.AnalystRegistryName, "array")
	if err != nil {
		c.Message = err.Error()
		return c
	}
	analysts := raw.([]any)

	var errs []string
	seenIDs := map[string]int{}
	for i, item := range analysts {
		loc := fmt.Sprintf("%s[%d]", path, i)
		analyst, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: entry must be object, got %s", loc, registry.TypeName(item)))
			continue
		}
		if missing := missingFields(analyst, analystRequiredFields); len(missing) > 0 {
			errs = append(errs, fmt.Sprintf("%s: missing required fields %s", loc, list(missing)))
			continue
		}

		if id, ok := analyst["analyst_id"].(string); !ok {
			errs = append(errs, fmt.Sprintf("%s: analyst_id must be string, got %s", loc, registry.TypeName(analyst["analyst_id"])))
		} else {
			if !idPattern.MatchString(id) {
				errs = append(errs, fmt.Sprintf("%s: analyst_id '%s' fails snake_case regex %s", loc, id, idPattern))
			}
			if at, dup := seenIDs[id]; dup {
				errs = append(errs, fmt.Sprintf("%s: duplicate analyst_id '%s', also at index %d", loc, id, at))
			} else {
				seenIDs[id] = i
			}
		}

		if vis := analyst["methodology_visibility"]; !oneOf(vis, analystVisibilities) {
			errs = append(errs, fmt.Sprintf("%s: methodology_visibility must be one of %s, got %s", loc, list(analystVisibilities), repr(vis)))
		}
		if specialty, ok := analyst["specialty"].([]any); !ok || len(specialty) == 0 {
			errs = append(errs, fmt.Sprintf("%s: specialty must be non-empty array", loc))
		}
		if _, ok := analyst["accuracy_log"].([]any); !ok {
			errs = append(errs, fmt.Sprintf("%s: accuracy_log must be array, got %s", loc, registry.TypeName(analyst["accuracy_log"])))
		}
	}

	if len(errs) > 0 {
		c.Message = formatErrors(errs)
		return c
	}
	c.OK = true
	c.Message = fmt.Sprintf("%d analysts", len(analysts))
	return c
}

func (v Validator) competitiveBenchmark() Category {
	c := Category{Name: "competitive_benchmark"}

	path, raw, err := v.load(constants.CompetitiveBenchmarkName, "object")
	if err != nil {
		c.Message = err.Error()
		return c
	}
	benchmark := raw.(map[string]any)

	var errs []string
	for _, f := range benchmarkRootFields {
		if _, ok := benchmark[f]; !ok {
			errs = append(errs, fmt.Sprintf("%s: missing required field '%s'", path, f))
		}
	}
	if primary, ok := benchmark["primary_benchmark"].(map[string]any); ok {
		for _, f := range benchmarkPrimaryFields {
			if _, ok := primary[f]; !ok {
				errs = append(errs, fmt.Sprintf("%s: primary_benchmark missing field '%s'", path, f))
			}
		}
	} else {
		errs = append(errs, fmt.Sprintf("%s: primary_benchmark must be object", path))
	}
	if competitors, ok := benchmark["competitors"].([]any); !ok || len(competitors) == 0 {
		errs = append(errs, fmt.Sprintf("%s: competitors must be non-empty array", path))
	}

	if len(errs) > 0 {
		c.Message = formatErrors(errs)
		return c
	}
	c.OK = true
	c.Message = "valid"
	return c
}

func (v Validator) crossFile(meta sourceMeta) Category {
	c := Category{Name: "cross-file"}

	var errs []string
	if meta.activeCount != len(v.modules) {
		errs = append(errs, fmt.Sprintf("active source count (%d) != compiled-in puller count (%d)", meta.activeCount, len(v.modules)))
	}

	referenced := map[string]bool{}
	for i, item := range meta.sources {
		source, ok := item.(map[string]any)
		if !ok || source["puller_module"] == nil {
			continue
		}
		loc := fmt.Sprintf("%s[%d]", meta.path, i)
		module, ok := source["puller_module"].(string)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: puller_module must be string or null, got %s", loc, registry.TypeName(source["puller_module"])))
			continue
		}
		module = strings.TrimSpace(module)
		if !slices.Contains(v.modules, module) {
			errs = append(errs, fmt.Sprintf("%s: puller_module '%s' is not a compiled-in puller %s", loc, module, list(v.modules)))
			continue
		}
		referenced[module] = true
	}

	for _, m := range v.modules {
		if !referenced[m] {
			errs = append(errs, fmt.Sprintf("puller %s: orphan puller not referenced by any source_registry entry", m))
		}
	}

	if len(errs) > 0 {
		c.Message = formatErrors(errs)
		return c
	}
	c.OK = true
	c.Message = fmt.Sprintf("%d active sources = %d pullers", meta.activeCount, len(v.modules))
	return c
}

func (v Validator) dataHealth() Category {
	c := Category{Name: "data health"}

	var errs []string
	if !v.pullLog.Exists() {
		errs = append(errs, fmt.Sprintf("%s: missing file", v.pullLog.Path()))
	}
	if fi, err := os.Stat(v.store.Dir()); err != nil || !fi.IsDir() {
		errs = append(errs, fmt.Sprintf("%s: missing directory", v.store.Dir()))
	}

	today := v.now().UTC().Format(constants.DateLayout)
	files, err := v.store.Files(today)
	todayExists := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		errs = append(errs, err.Error())
	}
	for _, name := range files {
		path := filepath.Join(v.store.Dir(), today, name)
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: read error (%v)", path, err))
			continue
		}
		var payload any
		if err := json.Unmarshal(data, &payload); err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid JSON (%v)", path, err))
		}
	}

	if len(errs) > 0 {
		c.Message = formatErrors(errs)
		return c
	}
	c.OK = true
	if todayExists {
		c.Message = fmt.Sprintf("logs exist, today's data has %d files", len(files))
	} else {
		c.Message = "logs exist, no data directory for today yet"
	}
	return c
}

// load reads the registry name, checking that its top level value is of kind "array" or "object".
func (v Validator) load(name, kind string) (path string, raw any, err error) {
	path, err = registry.Find(v.configDir, name)
	if err != nil {
		return "", nil, fmt.Errorf("%s: file missing at %s", name, filepath.Join(v.configDir, name+registry.Extensions[0]))
	}
	raw, err = registry.LoadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("%s: could not parse %s (%v)", name, path, err)
	}
	if got := registry.TypeName(raw); got != kind {
		return "", nil, fmt.Errorf("%s: expected %s at %s, got %s", name, kind, path, got)
	}
	return path, raw, nil
}

// formatErrors joins the first errors of a category, counting the remaining ones.
func formatErrors(errs []string) string {
	if len(errs) <= maxShownErrors {
		return strings.Join(errs, " | ")
	}
	return fmt.Sprintf("%s | ... +%d more", strings.Join(errs[:maxShownErrors], " | "), len(errs)-maxShownErrors)
}

func missingFields(entry map[string]any, required []string) []string {
	var missing []string
	for _, f := range required {
		if _, ok := entry[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

func oneOf(v any, allowed []string) bool {
	s, ok := v.(string)
	return ok && slices.Contains(allowed, s)
}

func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	}
	return true
}

// repr renders a registry value in error messages.
func repr(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + v + "'"
	}
	return fmt.Sprint(v)
}

func list(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}
