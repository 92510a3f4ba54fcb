package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/chaintracker/chain-tracker/internal/analysis"
	"github.com/chaintracker/chain-tracker/internal/dashboard"
)

// API serves the dashboard read models as JSON.
type API struct {
	dash         Dashboard
	historyLimit int
	log          *slog.Logger
}

// ChainResponse is the body of the chain endpoint.
type ChainResponse struct {
	Chain        []analysis.LayerState     `json:"chain"`
	Changes      []analysis.ChangeRow      `json:"changes"`
	SourceRollup []dashboard.LayerCoverage `json:"source_rollup"`
}

// NewAPI creates the JSON API handlers.
func NewAPI(d Dashboard, historyLimit int, l *slog.Logger) *API {
	return &API{dash: d, historyLimit: historyLimit, log: l}
}

// Overview serves the home page data.
func (a *API) Overview(w http.ResponseWriter, r *http.Request) {
	a.write(w, r, a.dash.Overview())
}

// Sources serves the source health.
func (a *API) Sources(w http.ResponseWriter, r *http.Request) {
	a.write(w, r, a.dash.SourceHealth())
}

// History serves the history rows. The optional limit query parameter caps the number of days.
func (a *API) History(w http.ResponseWriter, r *http.Request) {
	limit := a.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			a.log.Debug("Invalid history limit", "req_id", RequestID(r.Context()), "limit", raw)
			return
		}
		limit = n
	}
	a.write(w, r, a.dash.History(limit))
}

// Chain serves the chain state, the daily changes and the per layer coverage.
func (a *API) Chain(w http.ResponseWriter, r *http.Request) {
	o := a.dash.Overview()
	a.write(w, r, ChainResponse{Chain: o.Chain, Changes: o.Changes, SourceRollup: a.dash.LayerRollup()})
}

// Pipeline serves the pipeline status.
func (a *API) Pipeline(w http.ResponseWriter, r *http.Request) {
	a.write(w, r, a.dash.PipelineStatus())
}

// Feed serves the community feed.
func (a *API) Feed(w http.ResponseWriter, r *http.Request) {
	a.write(w, r, a.dash.Feed())
}

func (a *API) write(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Error encoding response", http.StatusInternalServerError)
		a.log.Error("Error encoding response", "req_id", RequestID(r.Context()), "err", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		a.log.Debug("Could not write response", "req_id", RequestID(r.Context()), "err", err)
	}
}
