package testkit

import (
	"embed"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

//go:embed testdata/*.json
var fixtures embed.FS

// Fixture study ids shipped with the kit
const (
	StudyCF      = "NCT01000001" // two-arm CF trial with full results
	StudyNonF508 = "NCT01000002" // single-arm study, empty serious events
)

// StudyJSON returns the raw bytes of a fixture study
func StudyJSON(t testing.TB, id string) []byte {
	t.Helper()
	data, err := fixtures.ReadFile("testdata/" + id + ".json")
	if err != nil {
		t.Fatalf("fixture %s: %v", id, err)
	}
	return data
}

// StudyIDs lists the fixture study ids, sorted
func StudyIDs() []string {
	entries, _ := fixtures.ReadDir("testdata")
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids
}

// WriteStudies copies the named fixtures (all of them when none are named)
// into a fresh temp dir laid out as <dir>/<id>.json and returns the dir
func WriteStudies(t testing.TB, ids ...string) string {
	t.Helper()
	if len(ids) == 0 {
		ids = StudyIDs()
	}
	dir := t.TempDir()
	for _, id := range ids {
		WriteStudy(t, dir, id, StudyJSON(t, id))
	}
	return dir
}

// WriteStudy writes raw study bytes as <dir>/<id>.json
func WriteStudy(t testing.TB, dir, id string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, id+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
