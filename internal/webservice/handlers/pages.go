package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/chaintracker/chain-tracker/internal/analysis"
	"github.com/chaintracker/chain-tracker/internal/dashboard"
	"github.com/chaintracker/chain-tracker/internal/registry"
)

//go:embed templates/*.html
var templatesFS embed.FS

// page describes one HTML page of the dashboard.
type page struct {
	id    string
	title string
}

var (
	overviewPage = page{id: "overview", title: "Panel"}
	chainPage    = page{id: "chain", title: "Cadena"}
	sourcesPage  = page{id: "sources", title: "Fuentes"}
	analystsPage = page{id: "analysts", title: "Analistas"}
	historyPage  = page{id: "history", title: "Historia"}
	briefPage    = page{id: "brief", title: "Resumen"}
	researchPage = page{id: "research", title: "Investigación"}
	feedPage     = page{id: "feed", title: "Comunidad"}
)

// pageData is the context of every page template. Pages only fill what they show.
type pageData struct {
	PageID     string
	PageTitle  string
	Date       string
	Pipeline   dashboard.Pipeline
	Updated    string
	UpdatedRel string

	Overview     dashboard.Overview
	SourceHealth dashboard.SourceHealth
	Rollup       []dashboard.LayerCoverage
	Chain        []analysis.LayerState
	Changes      []analysis.ChangeRow
	Analysts     []registry.Analyst
	History      []dashboard.HistoryRow
	Brief        template.HTML
	Research     registry.Research
	Feed         []dashboard.FeedPost
}

// Pages renders the HTML pages of the dashboard.
type Pages struct {
	dash         Dashboard
	templates    map[string]*template.Template
	historyLimit int
	log          *slog.Logger
}

// NewPages parses the page templates.
func NewPages(d Dashboard, historyLimit int, l *slog.Logger) (*Pages, error) {
	p := &Pages{
		dash:         d,
		templates:    make(map[string]*template.Template),
		historyLimit: historyLimit,
		log:          l,
	}

	for _, pg := range []page{overviewPage, chainPage, sourcesPage, analystsPage, historyPage, briefPage, researchPage, feedPage} {
		t, err := template.New(pg.id).Funcs(Funcs).ParseFS(templatesFS, "templates/base.html", "templates/"+pg.id+".html")
		if err != nil {
			return nil, fmt.Errorf("could not parse %s page template: %v", pg.id, err)
		}
		p.templates[pg.id] = t
	}
	return p, nil
}

// newPageData fills the header shared by every page from the overview.
func newPageData(pg page, o dashboard.Overview) pageData {
	return pageData{
		PageID:     pg.id,
		PageTitle:  pg.title,
		Date:       o.Date,
		Pipeline:   o.Pipeline,
		Updated:    o.Updated,
		UpdatedRel: o.UpdatedRel,
		Overview:   o,
	}
}

// Overview serves the home page.
func (p *Pages) Overview(w http.ResponseWriter, r *http.Request) {
	data := newPageData(overviewPage, p.dash.Overview())
	data.SourceHealth = p.dash.SourceHealth()
	p.render(w, r, overviewPage, data)
}

// Chain serves the transmission chain page.
func (p *Pages) Chain(w http.ResponseWriter, r *http.Request) {
	o := p.dash.Overview()
	data := newPageData(chainPage, o)
	data.Chain = o.Chain
	data.Changes = o.Changes
	data.Rollup = p.dash.LayerRollup()
	p.render(w, r, chainPage, data)
}

// Sources serves the source health page.
func (p *Pages) Sources(w http.ResponseWriter, r *http.Request) {
	data := newPageData(sourcesPage, p.dash.Overview())
	data.SourceHealth = p.dash.SourceHealth()
	p.render(w, r, sourcesPage, data)
}

// Analysts serves the analyst registry page.
func (p *Pages) Analysts(w http.ResponseWriter, r *http.Request) {
	data := newPageData(analystsPage, p.dash.Overview())
	data.Analysts = p.dash.Analysts()
	p.render(w, r, analystsPage, data)
}

// History serves the history table.
func (p *Pages) History(w http.ResponseWriter, r *http.Request) {
	data := newPageData(historyPage, p.dash.Overview())
	data.History = p.dash.History(p.historyLimit)
	p.render(w, r, historyPage, data)
}

// Brief serves the daily brief page.
func (p *Pages) Brief(w http.ResponseWriter, r *http.Request) {
	o := p.dash.Overview()
	data := newPageData(briefPage, o)
	data.Brief = p.dash.Brief()
	data.Rollup = p.dash.LayerRollup()
	p.render(w, r, briefPage, data)
}

// Research serves the research digest page.
func (p *Pages) Research(w http.ResponseWriter, r *http.Request) {
	data := newPageData(researchPage, p.dash.Overview())
	data.Research = p.dash.Research()
	data.Rollup = p.dash.LayerRollup()
	p.render(w, r, researchPage, data)
}

// Feed serves the community feed page.
func (p *Pages) Feed(w http.ResponseWriter, r *http.Request) {
	data := newPageData(feedPage, p.dash.Overview())
	data.Feed = p.dash.Feed()
	p.render(w, r, feedPage, data)
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, pg page, data pageData) {
	var buf bytes.Buffer
	if err := p.templates[pg.id].ExecuteTemplate(&buf, "base", data); err != nil {
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		p.log.Error("Error rendering page", "req_id", RequestID(r.Context()), "page", pg.id, "err", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		p.log.Debug("Could not write page", "req_id", RequestID(r.Context()), "page", pg.id, "err", err)
	}
}
