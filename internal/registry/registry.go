package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/go-viper/mapstructure/v2"
)

// Source is an entry of the source registry.
type Source struct {
	SourceID        string   `json:"source_id"`
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Layer           int      `json:"layer"`
	DataPoints      []string `json:"data_points"`
	Frequency       string   `json:"frequency"`
	Format          string   `json:"format"`
	CredibilityTier string   `json:"credibility_tier"`
	APIAvailable    bool     `json:"api_available"`
	ScrapeRequired  bool     `json:"scrape_required"`
	KnownBias       string   `json:"known_bias"`
	Active          bool     `json:"active"`
	// PullerModule names the compiled-in puller fetching this source.
	PullerModule   string `json:"puller_module"`
	LastVerified   string `json:"last_verified"`
	InactiveNote   string `json:"inactive_note,omitempty"`
	InactiveReason string `json:"inactive_reason,omitempty"`
}

// Analyst is an entry of the analyst registry.
type Analyst struct {
	AnalystID             string   `json:"analyst_id"`
	Name                  string   `json:"name"`
	Specialty             []string `json:"specialty"`
	Background            string   `json:"background"`
	MethodologyVisibility string   `json:"methodology_visibility"`
	KnownBias             string   `json:"known_bias"`
	Platforms             []string `json:"platforms"`
	Affiliation           string   `json:"affiliation"`
	AccuracyLog           []any    `json:"accuracy_log"`
}

// LoadSources reads and decodes the source registry of dir.
func LoadSources(dir string, l *slog.Logger) ([]Source, error) {
	return load[Source](dir, constants.SourceRegistryName, l)
}

// LoadAnalysts reads and decodes the analyst registry of dir.
func LoadAnalysts(dir string, l *slog.Logger) ([]Analyst, error) {
	return load[Analyst](dir, constants.AnalystRegistryName, l)
}

func load[T any](dir, name string, l *slog.Logger) ([]T, error) {
	path, err := Find(dir, name)
	if err != nil {
		return nil, err
	}
	raw, err := LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not load %s: %v", path, err)
	}
	return decodeList[T](raw, name, l)
}

// decodeList decodes every entry of a generic list. Entries that do not fit T are skipped.
func decodeList[T any](raw any, name string, l *slog.Logger) ([]T, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected array, got %s", name, TypeName(raw))
	}

	out := make([]T, 0, len(list))
	for i, item := range list {
		if _, ok := item.(map[string]any); !ok {
			l.Warn("Skipping registry entry", "registry", name, "index", i, "error", "entry is not an object")
			continue
		}
		var v T
		if err := decode(item, &v); err != nil {
			l.Warn("Skipping registry entry", "registry", name, "index", i, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func decode(input any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           target,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %v", err)
	}
	if err := dec.Decode(input); err != nil {
		return errors.Join(errors.New("entry does not match expected model structure"), err)
	}
	return nil
}
