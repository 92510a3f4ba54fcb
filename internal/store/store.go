// Package store persists daily snapshots in one folder per UTC date:
//
//	<dir>/<YYYY-MM-DD>/<source_id>.json
//
// Readers degrade gracefully: a missing or corrupt file is reported as ErrNotFound.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/chaintracker/chain-tracker/internal/fileutils"
	"github.com/chaintracker/chain-tracker/internal/puller"
	"github.com/ubuntu/decorate"
)

var (
	// ErrNotFound is returned when a snapshot or a file is missing or unreadable.
	ErrNotFound = errors.New("not found")
	// ErrInvalidDate is returned when a date is not formatted as YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	// ErrInvalidName is returned when a file name would escape its date folder.
	ErrInvalidName = errors.New("invalid file name")
)

// Store is a dated directory of snapshots.
type Store struct {
	dir string
	log *slog.Logger
}

// New returns a Store rooted at dir. The directory is created on first write.
func New(dir string, l *slog.Logger) Store {
	if l == nil {
		l = slog.Default()
	}
	return Store{dir: dir, log: l}
}

// Dir returns the root directory of the store.
func (s Store) Dir() string {
	return s.dir
}

// Path returns the path of a file in a date folder.
func (s Store) Path(date, name string) (string, error) {
	if !fileutils.IsDateName(date) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, date, name), nil
}

// Save writes the snapshot of a source for the given date, replacing any earlier one.
func (s Store) Save(date string, r puller.Result) (err error) {
	defer decorate.OnError(&err, "could not save %s snapshot", r.SourceID)

	path, err := s.Path(date, r.SourceID+constants.SnapshotExt)
	if err != nil {
		return err
	}
	return fileutils.WriteJSON(path, r)
}

// Load reads the snapshot of a source for the given date.
// The payload is left generic; use puller.DecodeData to get a typed view.
func (s Store) Load(date, sourceID string) (puller.Result, error) {
	var r puller.Result
	if err := s.ReadJSON(date, sourceID+constants.SnapshotExt, &r); err != nil {
		return puller.Result{}, err
	}
	return r, nil
}

// WriteFile atomically writes a file in a date folder.
func (s Store) WriteFile(date, name string, data []byte) (err error) {
	defer decorate.OnError(&err, "could not write %s for %s", name, date)

	path, err := s.Path(date, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("could not create directory: %v", err)
	}
	return fileutils.AtomicWrite(path, data)
}

// WriteJSON writes v as indented JSON in a date folder.
func (s Store) WriteJSON(date, name string, v any) error {
	data, err := fileutils.MarshalIndent(v)
	if err != nil {
		return err
	}
	return s.WriteFile(date, name, data)
}

// ReadFile reads a file of a date folder.
func (s Store) ReadFile(date, name string) ([]byte, error) {
	path, err := s.Path(date, name)
	if err != nil {
		return nil, err
	}
	return s.readFile(path, date+"/"+name)
}

// ReadJSON decodes a JSON file of a date folder into v. Corrupt files are reported as ErrNotFound.
func (s Store) ReadJSON(date, name string, v any) error {
	path, err := s.Path(date, name)
	if err != nil {
		return err
	}
	return s.readJSON(path, date+"/"+name, v)
}

// ReadCommunityJSON decodes a JSON file of the community folder, next to the date folders, into v.
// Missing and corrupt files are reported as ErrNotFound.
func (s Store) ReadCommunityJSON(name string, v any) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return s.readJSON(filepath.Join(s.dir, constants.CommunityDir, name), constants.CommunityDir+"/"+name, v)
}

func (s Store) readFile(path, rel string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		s.log.Warn("Could not read file", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return data, nil
}

func (s Store) readJSON(path, rel string, v any) error {
	data, err := s.readFile(path, rel)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.log.Warn("Skipping corrupt file", "file", rel, "error", err)
		return fmt.Errorf("%w: %s is not valid JSON: %v", ErrNotFound, rel, err)
	}
	return nil
}

// Files returns the sorted names of the JSON files of a date folder.
func (s Store) Files(date string) ([]string, error) {
	if !fileutils.IsDateName(date) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	entries, err := os.ReadDir(filepath.Join(s.dir, date))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, date)
	}
	if err != nil {
		return nil, fmt.Errorf("could not list %s: %v", date, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != constants.SnapshotExt {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Dates returns every date folder in ascending order.
// Entries that are not YYYY-MM-DD folders are ignored, and a missing root is empty.
func (s Store) Dates() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not list data directory: %v", err)
	}

	var dates []string
	for _, e := range entries {
		if !e.IsDir() || !fileutils.IsDateName(e.Name()) {
			s.log.Debug("Skipping non date entry", "name", e.Name())
			continue
		}
		dates = append(dates, e.Name())
	}
	// ReadDir sorts by name, which is chronological for YYYY-MM-DD.
	return dates, nil
}

// Latest returns the newest date folder, or an empty string when there is none.
func (s Store) Latest() (string, error) {
	dates, err := s.Dates()
	if err != nil || len(dates) == 0 {
		return "", err
	}
	return dates[len(dates)-1], nil
}

// Previous returns the newest date folder strictly before date, or an empty string when there is none.
func (s Store) Previous(date string) (string, error) {
	dates, err := s.Dates()
	if err != nil {
		return "", err
	}
	i, _ := slices.BinarySearch(dates, date)
	if i == 0 {
		return "", nil
	}
	return dates[i-1], nil
}

// Trim removes every date folder but the keep newest ones and returns the removed dates.
// At least one folder is always kept.
func (s Store) Trim(keep int) (removed []string, err error) {
	defer decorate.OnError(&err, "could not trim data history")

	keep = max(keep, 1)
	dates, err := s.Dates()
	if err != nil {
		return nil, err
	}
	if len(dates) <= keep {
		return nil, nil
	}

	for _, d := range dates[:len(dates)-keep] {
		if err := os.RemoveAll(filepath.Join(s.dir, d)); err != nil {
			return removed, fmt.Errorf("could not remove %s: %v", d, err)
		}
		s.log.Info("Removed date folder", "date", d)
		removed = append(removed, d)
	}
	return removed, nil
}
