package runner

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/chaintracker/chain-tracker/internal/puller"
	"github.com/chaintracker/chain-tracker/internal/puller/bcra"
	"github.com/chaintracker/chain-tracker/internal/puller/dolarhoy"
	"github.com/chaintracker/chain-tracker/internal/puller/fred"
	"github.com/chaintracker/chain-tracker/internal/registry"
)

// DefaultModules is the pull order used when the source registry names no active puller.
var DefaultModules = []string{fred.Module, bcra.Module, dolarhoy.Module}

// Pullers builds the pullers of the active sources, in registry order.
// Sources naming an unknown module are skipped with a warning.
func Pullers(sources []registry.Source, cfg puller.Config, l *slog.Logger) []puller.Puller {
	var modules []string
	for _, src := range sources {
		if !src.Active || src.PullerModule == "" || slices.Contains(modules, src.PullerModule) {
			continue
		}
		if _, err := puller.Get(src.PullerModule); err != nil {
			l.Warn("Skipping source", "source", src.SourceID, "error", err)
			continue
		}
		modules = append(modules, src.PullerModule)
	}
	if len(modules) == 0 {
		l.Info("No active source in the registry, using the default pullers")
		modules = DefaultModules
	}

	var pullers []puller.Puller
	for _, m := range modules {
		ctor, err := puller.Get(m)
		if err != nil {
			l.Warn("Skipping puller", "module", m, "error", err)
			continue
		}
		pullers = append(pullers, ctor(cfg))
	}
	return pullers
}

// Select keeps the pullers whose source id is listed in only, in their original order.
// An empty list keeps every puller.
func Select(pullers []puller.Puller, only []string) ([]puller.Puller, error) {
	if len(only) == 0 {
		return pullers, nil
	}

	var selected []puller.Puller
	for _, id := range only {
		i := slices.IndexFunc(pullers, func(p puller.Puller) bool { return p.ID() == id })
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSource, id)
		}
	}
	for _, p := range pullers {
		if slices.Contains(only, p.ID()) {
			selected = append(selected, p)
		}
	}
	return selected, nil
}
