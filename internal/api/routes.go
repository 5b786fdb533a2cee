package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trialtab/internal/errors"
)

// RegisterRoutes mounts the study API on r
func RegisterRoutes(r gin.IRouter, h *StudyHandler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/presets", h.ListPresets)

	studies := r.Group("/studies")
	studies.GET("", h.ListStudies)
	studies.GET("/:id/overview", h.GetOverview)
	studies.GET("/:id/tables/:preset", h.GetTable)
	studies.GET("/:id/tables/:preset/describe", h.GetDescribe)
	studies.POST("/:id/extract", h.Extract)
	studies.GET("/:id/adverse-events/:kind", h.GetAdverseEvents)
	studies.GET("/:id/adverse-events/:kind/diversity", h.GetEventDiversity)
	studies.GET("/:id/enrollment", h.GetEnrollment)
	studies.GET("/:id/locations", h.GetLocations)
	studies.POST("/:id/snapshots/:preset", h.SaveSnapshot)
	studies.GET("/:id/snapshots", h.ListSnapshots)

	r.GET("/compare/:preset", h.Compare)
	r.GET("/inspect/:id", h.Inspect)
	r.DELETE("/cache/:id", h.Invalidate)
	r.DELETE("/cache", h.Refresh)

	stats := r.Group("/stats")
	stats.POST("/ttest", h.TTest)
	stats.POST("/chisquare", h.ChiSquare)
	stats.POST("/landscape", h.Landscape)
}

// NewRouter builds a gin engine serving the API under /api
func NewRouter(h *StudyHandler, mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h))
	RegisterRoutes(r.Group("/api"), h)
	return r
}

func requestLogger(h *StudyHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.logger.Debug("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}

// statusFor maps an application error code to an HTTP status
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeSpecInvalid, errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeConfigInvalid:
		return http.StatusServiceUnavailable
	case errors.CodeDocumentUnavailable, errors.CodeExternalService:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *StudyHandler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": errors.GetCode(err)})
}
