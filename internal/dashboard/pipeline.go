package dashboard

import (
	"github.com/chaintracker/chain-tracker/internal/analysis"
	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/chaintracker/chain-tracker/internal/puller"
)

// Pipeline is the status line of the pipeline.
type Pipeline struct {
	Active  int    `json:"active"`
	Total   int    `json:"total"`
	LastRun string `json:"last_run"`
}

// PipelineStatus counts the active sources and finds the time of the last pull.
// The last pull comes from the pull log, or from the latest snapshots when there is no log.
func (d Dashboard) PipelineStatus() Pipeline {
	sources := d.registry.Sources()
	p := Pipeline{Total: len(sources), LastRun: constants.Missing}
	for _, s := range sources {
		if s.Active {
			p.Active++
		}
	}

	var lastRun string
	if d.pullLog.Exists() {
		e, ok, err := d.pullLog.Last()
		if err != nil {
			d.log.Warn("Could not read pull log", "error", err)
		}
		if ok {
			lastRun = e.PulledAt
		}
	} else if date := d.latestDate(); date != "" {
		lastRun = latestPull(analysis.ReadSnapshots(d.store, date))
	}

	if lastRun == "" {
		return p
	}
	t, err := puller.ParseTimestamp(lastRun)
	if err != nil {
		d.log.Debug("Unreadable last run time", "value", lastRun, "error", err)
		return p
	}
	p.LastRun = t.In(ART).Format("15:04")
	return p
}

// latestPull returns the newest pull time of the snapshots of a day.
func latestPull(s analysis.Snapshots) string {
	var latest string
	for _, r := range []puller.Result{s.FX, s.Reserves, s.Yields} {
		latest = max(latest, r.PulledAt)
	}
	return latest
}
