package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/fsnotify/fsnotify"
)

// Manager holds the registries of a configuration directory and reloads them when they change.
type Manager struct {
	dir string

	lock     sync.RWMutex
	sources  []Source
	analysts []Analyst
	research Research

	log *slog.Logger
}

type options struct {
	logger *slog.Logger
}

// Options represents an optional function to override Manager default values.
type Options func(*options)

// WithLogger sets the logger of the manager.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.logger = l
	}
}

// NewManager creates a registry manager for the configuration directory dir.
func NewManager(dir string, args ...Options) *Manager {
	opts := options{
		logger: slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &Manager{
		dir: dir,
		log: opts.logger,
	}
}

// Dir returns the configuration directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Load reads both registries and the research digest. A registry that cannot be read is left empty and its error is returned.
// The research digest is optional: only a malformed digest is reported.
func (m *Manager) Load() error {
	sources, srcErr := LoadSources(m.dir, m.log)
	analysts, anErr := LoadAnalysts(m.dir, m.log)
	research, resErr := LoadResearch(m.dir)
	if errors.Is(resErr, ErrNotFound) {
		resErr = nil
	}

	m.lock.Lock()
	m.sources = sources
	m.analysts = analysts
	m.research = research
	m.lock.Unlock()

	m.log.Info("Registries loaded", "dir", m.dir, "sources", len(sources), "analysts", len(analysts), "research", !research.Empty())
	return errors.Join(srcErr, anErr, resErr)
}

// Watch starts watching the configuration directory for registry changes.
//
// It returns two channels: one for registry changes, sent after each reload, and another for unrecoverable watcher errors.
// A missing directory is not watched: the registries stay empty and both channels are closed once ctx is done.
func (m *Manager) Watch(ctx context.Context) (changes <-chan struct{}, errs <-chan error, err error) {
	if _, err := os.Stat(m.dir); errors.Is(err, fs.ErrNotExist) {
		m.log.Warn("Registry directory does not exist, registries will not be reloaded", "dir", m.dir)
		if err := m.Load(); err != nil {
			m.log.Warn("Error loading initial registries", "err", err)
		}

		changesCh := make(chan struct{})
		errorsCh := make(chan error)
		go func() {
			<-ctx.Done()
			close(changesCh)
			close(errorsCh)
		}()
		return changesCh, errorsCh, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create watcher: %v", err)
	}

	if err := watcher.Add(m.dir); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("failed to add directory %s to watcher: %v", m.dir, err)
	}

	m.log.Info("Watching registry directory", "dir", m.dir)
	changesCh := make(chan struct{}, 1)
	errorsCh := make(chan error, 1)

	if err := m.Load(); err != nil {
		m.log.Warn("Error loading initial registries", "err", err)
	}

	go func() {
		defer close(changesCh)
		defer close(errorsCh)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				m.log.Info("Registry watcher stopped")
				return
			case event, ok := <-watcher.Events:
				if !ok {
					errorsCh <- fmt.Errorf("watcher events channel closed unexpectedly")
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if !isWatched(event.Name) {
					continue
				}

				m.log.Debug("Registry file changed. Reloading...", "file", event.Name)
				if err := m.Load(); err != nil {
					m.log.Warn("Error reloading registries", "err", err)
				}

				select {
				case changesCh <- struct{}{}:
				default:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					errorsCh <- fmt.Errorf("watcher errors channel closed unexpectedly")
					return
				}
				m.log.Warn("Watcher error", "err", err)
			}
		}
	}()

	return changesCh, errorsCh, nil
}

func isWatched(path string) bool {
	if !IsRegistryFile(path) {
		return false
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return base == constants.SourceRegistryName || base == constants.AnalystRegistryName || base == constants.ResearchDigestName
}

// Sources returns a copy of the source registry.
func (m *Manager) Sources() []Source {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return append([]Source(nil), m.sources...)
}

// Analysts returns a copy of the analyst registry.
func (m *Manager) Analysts() []Analyst {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return append([]Analyst(nil), m.analysts...)
}

// Research returns the research digest, empty when the configuration directory has none.
func (m *Manager) Research() Research {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.research
}
