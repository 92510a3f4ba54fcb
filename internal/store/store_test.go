package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chaintracker/chain-tracker/internal/puller"
	"github.com/chaintracker/chain-tracker/internal/store"
	"github.com/chaintracker/chain-tracker/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	s := store.New(t.TempDir(), testutils.DiscardLogger())
	r := puller.Result{
		SourceID:   "bcra_reserves",
		SourceName: "BCRA International Reserves",
		PulledAt:   "2025-03-14T10:00:00Z",
		Status:     puller.StatusOK,
		Data:       map[string]any{"reservas_internacionales_usd_mm": 26250.0, "data_date": nil},
		Errors:     []string{},
	}

	require.NoError(t, s.Save("2025-03-14", r), "Save should not fail")
	require.FileExists(t, filepath.Join(s.Dir(), "2025-03-14", "bcra_reserves.json"))

	got, err := s.Load("2025-03-14", "bcra_reserves")
	require.NoError(t, err, "Load should not fail")
	assert.Equal(t, r, got, "Load should return what Save wrote")

	_, err = s.Load("2025-03-13", "bcra_reserves")
	require.ErrorIs(t, err, store.ErrNotFound, "Missing snapshots are not found")

	require.ErrorIs(t, s.Save("14-03-2025", r), store.ErrInvalidDate)
}

func TestLoadCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutils.WriteFile(t, filepath.Join(dir, "2025-03-14"), "fred_us_yields.json", `{"source_id": `)

	_, err := store.New(dir, testutils.DiscardLogger()).Load("2025-03-14", "fred_us_yields")
	require.ErrorIs(t, err, store.ErrNotFound, "Corrupt snapshots load as missing")
}

func TestReadCommunityJSON(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		content string
		name    string

		want    []map[string]any
		wantErr error
	}{
		"Regular file":  {content: `[{"id": 1}]`, want: []map[string]any{{"id": 1.0}}},
		"Missing file":  {wantErr: store.ErrNotFound},
		"Corrupt file":  {content: `[{"id": `, wantErr: store.ErrNotFound},
		"Escaping name": {name: "../feed.json", wantErr: store.ErrInvalidName},
		"Hidden name":   {name: ".feed.json", wantErr: store.ErrInvalidName},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if tc.content != "" {
				testutils.WriteFile(t, filepath.Join(dir, "community"), "feed.json", tc.content)
			}
			if tc.name == "" {
				tc.name = "feed.json"
			}
			s := store.New(dir, testutils.DiscardLogger())

			var got []map[string]any
			err := s.ReadCommunityJSON(tc.name, &got)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			dates, err := s.Dates()
			require.NoError(t, err)
			assert.Empty(t, dates, "The community folder is not a date folder")
		})
	}
}

func TestReadWriteFile(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		date string
		name string

		wantErr error
	}{
		"Regular file":       {date: "2025-03-14", name: "daily_brief.md"},
		"Invalid date":       {date: "latest", name: "daily_brief.md", wantErr: store.ErrInvalidDate},
		"Name with a folder": {date: "2025-03-14", name: "../escape.md", wantErr: store.ErrInvalidName},
		"Hidden name":        {date: "2025-03-14", name: ".hidden", wantErr: store.ErrInvalidName},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := store.New(t.TempDir(), testutils.DiscardLogger())
			err := s.WriteFile(tc.date, tc.name, []byte("# Brief\n"))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)

			got, err := s.ReadFile(tc.date, tc.name)
			require.NoError(t, err)
			assert.Equal(t, "# Brief\n", string(got))
		})
	}
}

func TestDates(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		dirs  []string
		files []string

		wantDates    []string
		wantLatest   string
		wantPrevious string
	}{
		"Dates are sorted and other entries ignored": {
			dirs:         []string{"2025-03-14", "2025-02-28", "2025-03-01", "samples", "2025-3-2"},
			files:        []string{"2025-03-15", "README.md"},
			wantDates:    []string{"2025-02-28", "2025-03-01", "2025-03-14"},
			wantLatest:   "2025-03-14",
			wantPrevious: "2025-03-01",
		},
		"Single date has no previous": {
			dirs:       []string{"2025-03-14"},
			wantDates:  []string{"2025-03-14"},
			wantLatest: "2025-03-14",
		},
		"Empty store": {},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			for _, d := range tc.dirs {
				require.NoError(t, os.MkdirAll(filepath.Join(dir, d), 0750), "Setup: could not create folder")
			}
			for _, f := range tc.files {
				testutils.WriteFile(t, dir, f, "x")
			}
			s := store.New(dir, testutils.DiscardLogger())

			dates, err := s.Dates()
			require.NoError(t, err)
			assert.Equal(t, tc.wantDates, dates)

			latest, err := s.Latest()
			require.NoError(t, err)
			assert.Equal(t, tc.wantLatest, latest)

			prev, err := s.Previous(latest)
			require.NoError(t, err)
			assert.Equal(t, tc.wantPrevious, prev)
		})
	}
}

func TestPreviousOfMissingDate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, d := range []string{"2025-03-10", "2025-03-12"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, d), 0750), "Setup: could not create folder")
	}

	prev, err := store.New(dir, testutils.DiscardLogger()).Previous("2025-03-11")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", prev, "Previous returns the newest date before a date without folder")
}

func TestDatesMissingRoot(t *testing.T) {
	t.Parallel()

	s := store.New(filepath.Join(t.TempDir(), "missing"), testutils.DiscardLogger())
	dates, err := s.Dates()
	require.NoError(t, err, "A missing data directory is an empty store")
	assert.Empty(t, dates)
}

func TestFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	day := filepath.Join(dir, "2025-03-14")
	testutils.WriteFile(t, day, "fred_us_yields.json", "{}")
	testutils.WriteFile(t, day, "bcra_reserves.json", "{}")
	testutils.WriteFile(t, day, "daily_brief.md", "# Brief")

	s := store.New(dir, testutils.DiscardLogger())
	got, err := s.Files("2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, []string{"bcra_reserves.json", "fred_us_yields.json"}, got)

	_, err = s.Files("2025-03-15")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTrim(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		dates int
		keep  int

		wantRemoved []string
		wantLeft    int
	}{
		"Removes oldest folders":        {dates: 5, keep: 2, wantRemoved: []string{"2025-03-01", "2025-03-02", "2025-03-03"}, wantLeft: 2},
		"Nothing to remove":             {dates: 3, keep: 21, wantLeft: 3},
		"Keep below one keeps the last": {dates: 3, keep: 0, wantRemoved: []string{"2025-03-01", "2025-03-02"}, wantLeft: 1},
		"Empty store":                   {keep: 1},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			for i := range tc.dates {
				testutils.WriteFile(t, filepath.Join(dir, "2025-03-0"+string(rune('1'+i))), "x.json", "{}")
			}
			testutils.WriteFile(t, dir, "keep-me.txt", "x")

			s := store.New(dir, testutils.DiscardLogger())
			removed, err := s.Trim(tc.keep)
			require.NoError(t, err)
			assert.Equal(t, tc.wantRemoved, removed)

			dates, err := s.Dates()
			require.NoError(t, err)
			assert.Len(t, dates, tc.wantLeft)
			assert.FileExists(t, filepath.Join(dir, "keep-me.txt"), "Trim only removes date folders")
		})
	}
}
