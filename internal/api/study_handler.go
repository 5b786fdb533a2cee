package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"trialtab/adapters/export"
	"trialtab/app"
	"trialtab/internal"
	"trialtab/internal/errors"
	"trialtab/internal/extract"
	"trialtab/internal/presets"
)

const defaultSnapshotLimit = 20

// StudyHandler serves study tables and analyses as JSON
type StudyHandler struct {
	studies   *app.StudyService
	analysis  *app.AnalysisService
	sheetName string
	logger    *internal.Logger
}

// TableResponse is the JSON shape of an extracted table
type TableResponse struct {
	Study       string               `json:"study,omitempty"`
	Preset      string               `json:"preset,omitempty"`
	Columns     []string             `json:"columns"`
	Rows        *extract.Table       `json:"rows"`
	RowCount    int                  `json:"row_count"`
	Diagnostics *extract.Diagnostics `json:"diagnostics,omitempty"`
}

// ExtractRequest carries ad-hoc column definitions
type ExtractRequest struct {
	Columns  []extract.Definition `json:"columns" binding:"required"`
	PadEmpty bool                 `json:"pad_empty"`
	Format   string               `json:"format"`
}

// NewStudyHandler creates a new study handler
func NewStudyHandler(
	studies *app.StudyService,
	analysis *app.AnalysisService,
	sheetName string,
	logger *internal.Logger,
) *StudyHandler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	return &StudyHandler{
		studies:   studies,
		analysis:  analysis,
		sheetName: sheetName,
		logger:    logger,
	}
}

// ListStudies returns the ids of every known study
func (h *StudyHandler) ListStudies(c *gin.Context) {
	ids, err := h.studies.ListStudies(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"studies": ids, "count": len(ids)})
}

// ListPresets returns the registered presets and their columns
func (h *StudyHandler) ListPresets(c *gin.Context) {
	out := make([]gin.H, 0, len(presets.Names()))
	for _, p := range presets.All() {
		out = append(out, gin.H{
			"name":        p.Name,
			"title":       p.Title,
			"description": p.Description,
			"columns":     p.Spec.Columns(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"presets": out})
}

// GetOverview returns the overview card of a study
func (h *StudyHandler) GetOverview(c *gin.Context) {
	card, err := h.studies.Overview(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// GetTable assembles a preset, encoded per ?format=
func (h *StudyHandler) GetTable(c *gin.Context) {
	id, preset := c.Param("id"), c.Param("preset")
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	table, diag, err := h.studies.Table(c.Request.Context(), id, preset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.writeTable(c, format, id+"-"+preset, TableResponse{
		Study: id, Preset: preset, Diagnostics: diag,
	}, table)
}

// Extract assembles ad-hoc column definitions posted in the body
func (h *StudyHandler) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		h.respondError(c, errors.InvalidInput(err.Error()))
		return
	}

	id := c.Param("id")
	table, diag, err := h.studies.Extract(c.Request.Context(), id, req.Columns, req.PadEmpty)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.writeTable(c, format, id+"-extract", TableResponse{Study: id, Diagnostics: diag}, table)
}

// GetAdverseEvents lists serious, other or all adverse events with group titles
func (h *StudyHandler) GetAdverseEvents(c *gin.Context) {
	id, kind := c.Param("id"), c.Param("kind")
	table, err := h.studies.AdverseEvents(c.Request.Context(), id, kind)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondTable(c, id+"-"+kind+"-events", TableResponse{Study: id}, table)
}

// GetEventDiversity scores how adverse events spread across organ systems
func (h *StudyHandler) GetEventDiversity(c *gin.Context) {
	div, err := h.analysis.EventDiversity(c.Request.Context(), c.Param("id"), c.Param("kind"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, div)
}

// GetEnrollment returns the STARTED counts per group of the first period
func (h *StudyHandler) GetEnrollment(c *gin.Context) {
	id := c.Param("id")
	table, err := h.studies.Enrollment(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondTable(c, id+"-enrollment", TableResponse{Study: id}, table)
}

// GetLocations returns the geocoded sites of a study
func (h *StudyHandler) GetLocations(c *gin.Context) {
	id := c.Param("id")
	table, err := h.studies.Locations(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondTable(c, id+"-locations", TableResponse{Study: id}, table)
}

// GetDescribe summarizes one numeric column of a preset table
func (h *StudyHandler) GetDescribe(c *gin.Context) {
	column := c.Query("column")
	if column == "" {
		h.respondError(c, errors.InvalidInput("column query parameter is required"))
		return
	}
	summary, err := h.analysis.Describe(c.Request.Context(), c.Param("id"), c.Param("preset"), column)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Compare stacks one preset across the studies named by repeated ?study=
// parameters (or a comma separated list)
func (h *StudyHandler) Compare(c *gin.Context) {
	preset := c.Param("preset")
	ids := studyParams(c.QueryArray("study"))
	table, err := h.studies.Compare(c.Request.Context(), ids, preset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondTable(c, "compare-"+preset, TableResponse{Preset: preset}, table)
}

// TTest runs a two-sample t-test between two groups of a preset table
func (h *StudyHandler) TTest(c *gin.Context) {
	var req app.TTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	res, err := h.analysis.TTest(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ChiSquare tests independence of two categorical columns
func (h *StudyHandler) ChiSquare(c *gin.Context) {
	var req app.ChiSquareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	res, err := h.analysis.ChiSquare(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Landscape pivots one preset across studies with correlations and clusters
func (h *StudyHandler) Landscape(c *gin.Context) {
	var req app.LandscapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	res, err := h.analysis.Landscape(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SaveSnapshot persists the current state of a preset table
func (h *StudyHandler) SaveSnapshot(c *gin.Context) {
	snap, err := h.studies.SaveSnapshot(c.Request.Context(), c.Param("id"), c.Param("preset"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// ListSnapshots returns the saved snapshots of a study, newest first
func (h *StudyHandler) ListSnapshots(c *gin.Context) {
	limit := defaultSnapshotLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.respondError(c, errors.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = n
	}
	snaps, err := h.studies.ListSnapshots(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps, "count": len(snaps)})
}

// Inspect summarizes the top-level keys of a study document
func (h *StudyHandler) Inspect(c *gin.Context) {
	keys, err := h.studies.Inspect(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"study": c.Param("id"), "keys": keys})
}

// Invalidate drops a study from the document cache
func (h *StudyHandler) Invalidate(c *gin.Context) {
	id := c.Param("id")
	c.JSON(http.StatusOK, gin.H{"study": id, "invalidated": h.studies.Invalidate(id)})
}

// Refresh empties the document cache
func (h *StudyHandler) Refresh(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"invalidated": h.studies.Refresh()})
}

// respondTable writes a table honoring ?format=
func (h *StudyHandler) respondTable(c *gin.Context, name string, meta TableResponse, table *extract.Table) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	h.writeTable(c, format, name, meta, table)
}

func (h *StudyHandler) writeTable(c *gin.Context, format export.Format, name string, meta TableResponse, table *extract.Table) {
	switch format {
	case export.FormatCSV, export.FormatXLSX:
		c.Header("Content-Type", format.ContentType())
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+string(format)))
		c.Status(http.StatusOK)
		var err error
		if format == export.FormatCSV {
			err = export.WriteCSV(c.Writer, table)
		} else {
			err = export.WriteXLSX(c.Writer, table, h.sheetName)
		}
		if err != nil {
			h.logger.Error("failed to write %s export %s: %v", format, name, err)
		}
	default:
		meta.Columns = table.Columns
		meta.Rows = table
		meta.RowCount = table.Len()
		c.JSON(http.StatusOK, meta)
	}
}

// studyParams accepts both ?study=a&study=b and ?study=a,b
func studyParams(values []string) []string {
	var ids []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
