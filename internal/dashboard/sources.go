package dashboard

import (
	"errors"
	"slices"
	"strings"

	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/chaintracker/chain-tracker/internal/puller"
	"github.com/chaintracker/chain-tracker/internal/puller/dolarhoy"
	"github.com/chaintracker/chain-tracker/internal/store"
)

// Health statuses of a source on the latest day.
const (
	HealthOK      = "ok"
	HealthMissing = "missing"
	HealthError   = "error"
)

// snapshotAliases maps registry ids to the source id of their snapshot when they differ.
var snapshotAliases = map[string]string{
	"dolarhoy_fx": dolarhoy.SourceID,
}

// SourceRow is the health of one registry source on the latest day.
type SourceRow struct {
	SourceID     string   `json:"source_id"`
	Name         string   `json:"name"`
	Layer        int      `json:"layer"`
	Tier         string   `json:"tier"`
	Active       bool     `json:"active"`
	Status       string   `json:"status"`
	LastVerified string   `json:"last_verified"`
	PulledAt     string   `json:"pulled_at_utc"`
	URL          string   `json:"url"`
	KnownBias    string   `json:"known_bias"`
	DataPoints   []string `json:"data_points"`
}

// HealthSummary counts the active sources per status.
type HealthSummary struct {
	ActiveTotal int `json:"active_total"`
	OK          int `json:"ok"`
	Missing     int `json:"missing"`
	Error       int `json:"error"`
}

// SourceHealth is the health of every registry source on the latest day.
type SourceHealth struct {
	Summary    HealthSummary `json:"summary"`
	Rows       []SourceRow   `json:"rows"`
	LatestDate string        `json:"latest_date"`
}

// SourceHealth checks every registry source against the latest snapshots.
// Active sources come first, then sources are ordered by layer and name.
func (d Dashboard) SourceHealth() SourceHealth {
	date := d.latestDate()
	h := SourceHealth{Rows: []SourceRow{}, LatestDate: date}

	for _, src := range d.registry.Sources() {
		row := SourceRow{
			SourceID:     src.SourceID,
			Name:         src.Name,
			Layer:        src.Layer,
			Tier:         src.CredibilityTier,
			Active:       src.Active,
			Status:       HealthMissing,
			LastVerified: src.LastVerified,
			URL:          src.URL,
			KnownBias:    src.KnownBias,
			DataPoints:   src.DataPoints,
		}
		if row.Name == "" {
			row.Name = src.SourceID
		}
		if row.Tier == "" {
			row.Tier = constants.Missing
		}
		if row.DataPoints == nil {
			row.DataPoints = []string{}
		}

		if r, ok := d.snapshot(date, src.SourceID); ok {
			row.PulledAt = r.PulledAt
			row.Status = HealthError
			if r.Status == puller.StatusOK || r.Status == puller.StatusError {
				row.Status = string(r.Status)
			}
		}

		if row.Active {
			h.Summary.ActiveTotal++
			switch row.Status {
			case HealthOK:
				h.Summary.OK++
			case HealthMissing:
				h.Summary.Missing++
			default:
				h.Summary.Error++
			}
		}
		h.Rows = append(h.Rows, row)
	}

	slices.SortStableFunc(h.Rows, func(a, b SourceRow) int {
		if a.Active != b.Active {
			if a.Active {
				return -1
			}
			return 1
		}
		if la, lb := sortLayer(a.Layer), sortLayer(b.Layer); la != lb {
			return la - lb
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return h
}

// snapshot loads the snapshot of a registry source, if any.
func (d Dashboard) snapshot(date, sourceID string) (puller.Result, bool) {
	if date == "" || sourceID == "" {
		return puller.Result{}, false
	}
	if alias, ok := snapshotAliases[sourceID]; ok {
		sourceID = alias
	}

	r, err := d.store.Load(date, sourceID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			d.log.Debug("Could not load snapshot", "source", sourceID, "error", err)
		}
		return puller.Result{}, false
	}
	return r, true
}

func sortLayer(layer int) int {
	if layer == 0 {
		return 99
	}
	return layer
}

// LayerCoverage is the coverage of the sources of one layer.
type LayerCoverage struct {
	Layer          int `json:"layer"`
	Total          int `json:"total"`
	Active         int `json:"active"`
	OK             int `json:"ok"`
	MissingOrError int `json:"missing_or_error"`
}

// LayerRollup summarizes the source health per layer, in layer order.
// Sources without a layer are grouped under layer 0.
func (d Dashboard) LayerRollup() []LayerCoverage {
	byLayer := map[int]*LayerCoverage{}
	for _, row := range d.SourceHealth().Rows {
		c, ok := byLayer[row.Layer]
		if !ok {
			c = &LayerCoverage{Layer: row.Layer}
			byLayer[row.Layer] = c
		}
		c.Total++
		if !row.Active {
			continue
		}
		c.Active++
		if row.Status == HealthOK {
			c.OK++
		} else {
			c.MissingOrError++
		}
	}

	rollup := make([]LayerCoverage, 0, len(byLayer))
	for _, c := range byLayer {
		rollup = append(rollup, *c)
	}
	slices.SortFunc(rollup, func(a, b LayerCoverage) int { return a.Layer - b.Layer })
	return rollup
}
