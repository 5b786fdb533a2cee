package ui

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialtab/adapters/docstore"
	"trialtab/app"
	"trialtab/internal"
	"trialtab/internal/testkit"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	logger := internal.NewLoggerWithWriter(internal.LogLevelError, io.Discard)
	cache := docstore.NewCache(docstore.NewFileSource(testkit.WriteStudies(t), nil), logger)
	a, err := NewApp(app.NewStudyService(cache, nil, logger), logger)
	require.NoError(t, err)
	return a
}

func get(t *testing.T, a *App, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestIndexListsStudies(t *testing.T) {
	a := newTestApp(t)

	w := get(t, a, "/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `href="/studies/`+testkit.StudyCF+`"`)
	assert.Contains(t, body, testkit.StudyNonF508)
}

func TestStudyPage(t *testing.T) {
	a := newTestApp(t)

	w := get(t, a, "/studies/"+testkit.StudyCF)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<li>Confirmed diagnosis of cystic fibrosis</li>")
	assert.Contains(t, body, "Primary outcomes")
	assert.Contains(t, body, "/studies/"+testkit.StudyCF+"/tables/serious-events")
}

func TestStudyPageNotFound(t *testing.T) {
	a := newTestApp(t)

	w := get(t, a, "/studies/NCT404")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not found")
}

func TestTablePage(t *testing.T) {
	a := newTestApp(t)

	w := get(t, a, "/studies/"+testkit.StudyCF+"/tables/other-events")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<th>Term</th>")
	assert.Contains(t, body, "<td>Headache</td>")

	w = get(t, a, "/studies/"+testkit.StudyCF+"/tables/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRenderMarkdown(t *testing.T) {
	out := string(RenderMarkdown("Inclusion Criteria:\n\n* one\n* two\n\n<script>alert(1)</script>"))
	assert.Contains(t, out, "<li>one</li>")
	assert.NotContains(t, out, "<script>")
	assert.Empty(t, RenderMarkdown("  "))
}
