package registry_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chaintracker/chain-tracker/internal/registry"
	"github.com/chaintracker/chain-tracker/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sourcesJSON = `[
  {"source_id": "fred_us_yields", "name": "FRED U.S. Treasury Yields", "url": "https://fred.stlouisfed.org/",
   "layer": 1, "data_points": ["DGS2", "DGS10", "DGS30"], "frequency": "daily", "format": "json",
   "credibility_tier": "T1", "api_available": true, "scrape_required": false, "known_bias": null,
   "active": true, "puller_module": "fred", "last_verified": "2025-03-01"},
  "not an object",
  {"source_id": "indec_ipc", "name": "INDEC IPC", "layer": "three"},
  {"source_id": "rofex", "name": "Matba Rofex", "url": "https://www.matbarofex.com.ar/", "layer": 4,
   "data_points": ["futuros"], "active": false, "puller_module": null, "inactive_note": "no API"}
]`

const analystsYAML = `- analyst_id: jane_doe
  name: Jane Doe
  specialty: [fx, reserves]
  background: Economist
  methodology_visibility: high
  known_bias: none
  platforms: [x, substack]
  affiliation: Independent
  accuracy_log:
    - {date: 2025-01-10, call: "brecha < 20%", hit: true}
`

func TestLoadSources(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutils.WriteFile(t, dir, "source_registry.json", sourcesJSON)

	l, h := testutils.NewMockLogger(slog.LevelWarn)
	got, err := registry.LoadSources(dir, l)
	require.NoError(t, err)

	require.Len(t, got, 2, "Entries that are not sources are skipped")
	assert.Equal(t, registry.Source{
		SourceID: "fred_us_yields", Name: "FRED U.S. Treasury Yields", URL: "https://fred.stlouisfed.org/",
		Layer: 1, DataPoints: []string{"DGS2", "DGS10", "DGS30"}, Frequency: "daily", Format: "json",
		CredibilityTier: "T1", APIAvailable: true, Active: true, PullerModule: "fred", LastVerified: "2025-03-01",
	}, got[0])
	assert.Equal(t, "rofex", got[1].SourceID)
	assert.False(t, got[1].Active)
	assert.Empty(t, got[1].PullerModule)
	assert.Equal(t, "no API", got[1].InactiveNote)

	assert.True(t, h.HasMessage("Skipping registry entry"), "Skipped entries are logged")
}

func TestLoadAnalysts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutils.WriteFile(t, dir, "analyst_registry.yaml", analystsYAML)

	got, err := registry.LoadAnalysts(dir, testutils.DiscardLogger())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "jane_doe", got[0].AnalystID)
	assert.Equal(t, []string{"fx", "reserves"}, got[0].Specialty)
	assert.Equal(t, []string{"x", "substack"}, got[0].Platforms)
	assert.Len(t, got[0].AccuracyLog, 1)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		file    string
		content string

		wantNotFound bool
	}{
		"Missing registry":    {wantNotFound: true},
		"Registry not a list": {file: "source_registry.json", content: `{"sources": []}`},
		"Unreadable registry": {file: "source_registry.json", content: `[`},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if tc.file != "" {
				testutils.WriteFile(t, dir, tc.file, tc.content)
			}

			_, err := registry.LoadSources(dir, testutils.DiscardLogger())
			require.Error(t, err)
			if tc.wantNotFound {
				require.ErrorIs(t, err, registry.ErrNotFound)
			}
		})
	}
}

const researchJSON = `{
  "generated_at_utc": "2025-03-01T10:00:00Z",
  "locale": "es-AR",
  "title": "Research Integrado Argentina + Crypto",
  "documents": [
    {"id": "deepresearch_pdf", "display_name": "DeepResearch (PDF)", "source_file": "deep.pdf", "type": "pdf",
     "stats": {"lineas_extraidas": 120}}
  ],
  "resumen_es": {
    "contexto": ["Programa de estabilizacion"],
    "tesis_argentina_top5": ["Vista Energy (VIST)"],
    "tesis_crypto_top5": ["Bitcoin (BTC)"],
    "drivers_clave": ["Brecha"],
    "senal_de_alerta": ["Perdida de reservas"]
  },
  "notas_metodologicas": {"secciones_detectadas": {"red_team": 7}, "criterio": "Sintesis"}
}`

func TestLoadResearch(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		file    string
		content string

		want         registry.Research
		wantNotFound bool
		wantErr      bool
	}{
		"JSON digest": {
			file: "research_digest.json", content: researchJSON,
			want: registry.Research{
				GeneratedAt: "2025-03-01T10:00:00Z",
				Locale:      "es-AR",
				Title:       "Research Integrado Argentina + Crypto",
				Documents: []registry.ResearchDocument{{
					ID: "deepresearch_pdf", DisplayName: "DeepResearch (PDF)", SourceFile: "deep.pdf", Type: "pdf",
					Stats: map[string]int{"lineas_extraidas": 120},
				}},
				Summary: registry.ResearchSummary{
					Context:        []string{"Programa de estabilizacion"},
					ArgentinaPicks: []string{"Vista Energy (VIST)"},
					CryptoPicks:    []string{"Bitcoin (BTC)"},
					KeyDrivers:     []string{"Brecha"},
					WarningSigns:   []string{"Perdida de reservas"},
				},
				Notes: registry.ResearchNotes{Sections: map[string]int{"red_team": 7}, Criteria: "Sintesis"},
			},
		},
		"YAML digest": {
			file: "research_digest.yaml", content: "title: Research\nresumen_es:\n  contexto: [Uno]\n",
			want: registry.Research{Title: "Research", Summary: registry.ResearchSummary{Context: []string{"Uno"}}},
		},
		"Missing digest":       {wantNotFound: true},
		"Digest is not object": {file: "research_digest.json", content: `[]`, wantErr: true},
		"Malformed digest":     {file: "research_digest.json", content: `{"title": `, wantErr: true},
		"Mismatched digest":    {file: "research_digest.json", content: `{"documents": "none"}`, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if tc.file != "" {
				testutils.WriteFile(t, dir, tc.file, tc.content)
			}

			got, err := registry.LoadResearch(dir)
			if tc.wantNotFound {
				require.ErrorIs(t, err, registry.ErrNotFound)
				return
			}
			if tc.wantErr {
				require.Error(t, err)
				require.NotErrorIs(t, err, registry.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.False(t, got.Empty())
		})
	}
}

func TestManagerLoadResearch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutils.WriteFile(t, dir, "source_registry.json", `[]`)
	testutils.WriteFile(t, dir, "analyst_registry.json", `[]`)

	m := registry.NewManager(dir, registry.WithLogger(testutils.DiscardLogger()))
	require.NoError(t, m.Load(), "A missing research digest is not an error")
	assert.True(t, m.Research().Empty())

	path := testutils.WriteFile(t, dir, "research_digest.json", researchJSON)
	require.NoError(t, m.Load())
	assert.Equal(t, "Research Integrado Argentina + Crypto", m.Research().Title)

	require.NoError(t, os.WriteFile(path, []byte(`{"title": `), 0600), "Setup: could not corrupt digest")
	require.Error(t, m.Load(), "A malformed research digest is reported")
	assert.True(t, m.Research().Empty())
}

func TestManagerLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutils.WriteFile(t, dir, "source_registry.json", sourcesJSON)

	m := registry.NewManager(dir, registry.WithLogger(testutils.DiscardLogger()))
	err := m.Load()
	require.ErrorIs(t, err, registry.ErrNotFound, "Missing analyst registry should be reported")

	assert.Len(t, m.Sources(), 2, "Sources are loaded even when analysts are missing")
	assert.Empty(t, m.Analysts())
}

func TestManagerWatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutils.WriteFile(t, dir, "source_registry.json", `[]`)

	m := registry.NewManager(dir, registry.WithLogger(testutils.DiscardLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, _, err := m.Watch(ctx)
	require.NoError(t, err)
	assert.Empty(t, m.Sources(), "Initial registry should be loaded")

	require.NoError(t, os.WriteFile(path, []byte(sourcesJSON), 0600), "Setup: could not update registry")

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		require.Fail(t, "Registry change was not notified")
	}
	require.Eventually(t, func() bool { return len(m.Sources()) == 2 }, 5*time.Second, 10*time.Millisecond,
		"Sources should be reloaded")

	// Unrelated files do not trigger a reload.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-changes
		return !ok
	}, 5*time.Second, 10*time.Millisecond, "Changes channel should be closed once the context is done")
}

func TestManagerWatchMissingDir(t *testing.T) {
	t.Parallel()

	l, h := testutils.NewMockLogger(slog.LevelWarn)
	m := registry.NewManager(filepath.Join(t.TempDir(), "missing"), registry.WithLogger(l))
	ctx, cancel := context.WithCancel(context.Background())

	changes, errs, err := m.Watch(ctx)
	require.NoError(t, err, "A missing directory should not prevent watching")
	assert.True(t, h.HasMessage("Registry directory does not exist"), "A warning should be logged")
	assert.Empty(t, m.Sources())

	select {
	case <-changes:
		require.Fail(t, "No change should be notified before the context is done")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case _, ok := <-changes:
		assert.False(t, ok, "Changes channel should be closed once the context is done")
	case <-time.After(5 * time.Second):
		require.Fail(t, "Changes channel was not closed")
	}
	_, ok := <-errs
	assert.False(t, ok, "Errors channel should be closed once the context is done")
}
