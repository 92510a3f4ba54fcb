package registry

import (
	"fmt"

	"github.com/chaintracker/chain-tracker/internal/constants"
)

// Research is the research digest shown on the dashboard. It is generated offline and optional.
type Research struct {
	GeneratedAt string             `json:"generated_at_utc"`
	Locale      string             `json:"locale"`
	Title       string             `json:"title"`
	Documents   []ResearchDocument `json:"documents"`
	Summary     ResearchSummary    `json:"resumen_es"`
	Notes       ResearchNotes      `json:"notas_metodologicas"`
}

// ResearchDocument describes a document the digest was built from.
type ResearchDocument struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	SourceFile  string         `json:"source_file"`
	Type        string         `json:"type"`
	Stats       map[string]int `json:"stats"`
}

// ResearchSummary holds the Spanish synthesis of the digest.
type ResearchSummary struct {
	Context        []string `json:"contexto"`
	ArgentinaPicks []string `json:"tesis_argentina_top5"`
	CryptoPicks    []string `json:"tesis_crypto_top5"`
	KeyDrivers     []string `json:"drivers_clave"`
	WarningSigns   []string `json:"senal_de_alerta"`
}

// ResearchNotes are the methodology notes of the digest.
type ResearchNotes struct {
	Sections map[string]int `json:"secciones_detectadas"`
	Criteria string         `json:"criterio"`
}

// Empty reports whether no digest was loaded.
func (r Research) Empty() bool {
	return r.Title == "" && len(r.Documents) == 0 && len(r.Summary.Context) == 0
}

// LoadResearch reads and decodes the research digest of dir.
// ErrNotFound is returned when dir has no digest.
func LoadResearch(dir string) (Research, error) {
	path, err := Find(dir, constants.ResearchDigestName)
	if err != nil {
		return Research{}, err
	}
	raw, err := LoadFile(path)
	if err != nil {
		return Research{}, fmt.Errorf("could not load %s: %v", path, err)
	}
	if _, ok := raw.(map[string]any); !ok {
		return Research{}, fmt.Errorf("%s: expected object, got %s", constants.ResearchDigestName, TypeName(raw))
	}

	var r Research
	if err := decode(raw, &r); err != nil {
		return Research{}, fmt.Errorf("%s: %v", constants.ResearchDigestName, err)
	}
	return r, nil
}
