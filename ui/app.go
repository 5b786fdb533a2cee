package ui

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"trialtab/app"
	"trialtab/internal"
	"trialtab/internal/errors"
	"trialtab/internal/extract"
	"trialtab/internal/presets"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// App is the HTML dashboard over the study service
type App struct {
	router    *chi.Mux
	studies   *app.StudyService
	templates *template.Template
	logger    *internal.Logger
}

// NewApp parses the templates and wires the dashboard routes
func NewApp(studies *app.StudyService, logger *internal.Logger) (*App, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	funcMap := template.FuncMap{
		"cell": cellText,
		"add":  func(a, b int) int { return a + b },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	a := &App{
		router:    chi.NewRouter(),
		studies:   studies,
		templates: templates,
		logger:    logger,
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a, nil
}

// Router exposes the chi router so the API can be mounted beside the pages
func (a *App) Router() *chi.Mux {
	return a.router
}

// ServeHTTP implements http.Handler
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/studies/{id}", a.handleStudy)
	a.router.Get("/studies/{id}/tables/{preset}", a.handleTable)
}

type indexPage struct {
	Studies []*app.StudySummary
	Failed  []string
}

type studyPage struct {
	Study     *app.StudySummary
	Criteria  template.HTML
	Sex       string
	AgeRange  string
	Primary   *extract.Table
	Secondary *extract.Table
	Presets   []*presets.Preset
}

type tablePage struct {
	Study  string
	Preset *presets.Preset
	Table  *extract.Table
	Absent map[string]int
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	ids, err := a.studies.ListStudies(r.Context())
	if err != nil {
		a.renderError(w, err)
		return
	}
	page := indexPage{}
	for _, id := range ids {
		card, err := a.studies.Overview(r.Context(), id)
		if err != nil {
			a.logger.Warn("skipping study %s on index: %v", id, err)
			page.Failed = append(page.Failed, id)
			continue
		}
		page.Studies = append(page.Studies, card)
	}
	a.renderTemplate(w, "index.html", page)
}

func (a *App) handleStudy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	card, err := a.studies.Overview(r.Context(), id)
	if err != nil {
		a.renderError(w, err)
		return
	}
	elig, _, err := a.studies.Table(r.Context(), id, presets.Eligibility.Name)
	if err != nil {
		a.renderError(w, err)
		return
	}
	page := studyPage{Study: card, Presets: presets.All()}
	if elig.Len() > 0 {
		row := elig.Records[0].Map()
		criteria, _ := row["Criteria"].(string)
		page.Criteria = RenderMarkdown(criteria)
		page.Sex = cellText(row["Sex"])
		page.AgeRange = cellText(row["Minimum Age"]) + " to " + cellText(row["Maximum Age"])
	}
	if page.Primary, _, err = a.studies.Table(r.Context(), id, presets.PrimaryOutcomes.Name); err != nil {
		a.renderError(w, err)
		return
	}
	if page.Secondary, _, err = a.studies.Table(r.Context(), id, presets.SecondaryOutcomes.Name); err != nil {
		a.renderError(w, err)
		return
	}
	a.renderTemplate(w, "study.html", page)
}

func (a *App) handleTable(w http.ResponseWriter, r *http.Request) {
	id, name := chi.URLParam(r, "id"), chi.URLParam(r, "preset")
	table, diag, err := a.studies.Table(r.Context(), id, name)
	if err != nil {
		a.renderError(w, err)
		return
	}
	p, _ := presets.Lookup(name)
	a.renderTemplate(w, "table.html", tablePage{Study: id, Preset: p, Table: table, Absent: diag.Absent})
}

func (a *App) renderTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, templateName, data); err != nil {
		a.logger.Error("template %s: %v", templateName, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func (a *App) renderError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeInvalidInput, errors.CodeSpecInvalid:
		status = http.StatusBadRequest
	default:
		a.logger.Error("page failed: %v", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if execErr := a.templates.ExecuteTemplate(w, "error.html", map[string]any{
		"Status":  status,
		"Message": err.Error(),
	}); execErr != nil {
		a.logger.Error("template error.html: %v", execErr)
	}
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return fmt.Sprintf("%g", x)
	}
	return fmt.Sprint(v)
}
