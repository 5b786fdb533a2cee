package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialtab/internal/testkit"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "ERROR"))
	err := cmd.Execute()
	return out.String(), err
}

func studyFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(testkit.WriteStudies(t, testkit.StudyCF), testkit.StudyCF+".json")
}

func TestExtractPresetCSV(t *testing.T) {
	out, err := run(t, "extract", studyFile(t), "--preset", "serious-events", "--format", "csv")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, []string{"Term", "Organ System", "Assessment", "Group ID", "Affected", "At Risk", "Events"}, records[0])
}

func TestExtractSpecFile(t *testing.T) {
	dir := t.TempDir()
	spec := filepath.Join(dir, "spec.json")
	require.NoError(t, os.WriteFile(spec, []byte(`[
		{"name": "Site", "path": "protocolSection.contactsLocationsModule.locations[*].facility"},
		{"name": "Lat", "path": "protocolSection.contactsLocationsModule.locations[*].geoPoint.lat", "type": "number"}
	]`), 0o644))

	out, err := run(t, "extract", studyFile(t), "--spec", spec)
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 3)
	assert.Contains(t, rows[0], "Site")
}

func TestExtractXLSXNeedsOut(t *testing.T) {
	_, err := run(t, "extract", studyFile(t), "--preset", "locations", "--format", "xlsx")
	assert.ErrorContains(t, err, "--out")

	target := filepath.Join(t.TempDir(), "sites.xlsx")
	_, err = run(t, "extract", studyFile(t), "--preset", "locations", "--format", "xlsx", "--out", target)
	require.NoError(t, err)
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestExtractFlagValidation(t *testing.T) {
	_, err := run(t, "extract", studyFile(t))
	assert.ErrorContains(t, err, "exactly one of")

	_, err = run(t, "extract", studyFile(t), "--preset", "nope")
	assert.ErrorContains(t, err, "unknown preset")
}

func TestPresetsCmd(t *testing.T) {
	out, err := run(t, "presets")
	require.NoError(t, err)
	assert.Contains(t, out, "serious-events")
	assert.Contains(t, out, "Organ System")
}

func TestInspectCmd(t *testing.T) {
	out, err := run(t, "inspect", studyFile(t))
	require.NoError(t, err)
	assert.Contains(t, out, "protocolSection (object)")
}

func TestResolveCmd(t *testing.T) {
	out, err := run(t, "resolve", studyFile(t), "protocolSection.outcomesModule.primaryOutcomes[*].measure")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"indices":[1]`)

	_, err = run(t, "resolve", studyFile(t), "a[*")
	assert.Error(t, err)
}

func TestTTestCmd(t *testing.T) {
	out, err := run(t, "ttest", studyFile(t),
		"--preset", "other-events", "--value", "Affected", "--group", "Group ID", "--a", "EG000", "--b", "EG001")
	require.NoError(t, err)
	assert.Contains(t, out, "EG000: mean 25 (n=3)")
	assert.Contains(t, out, "student t = ")
	assert.Contains(t, out, "df = 4.00")

	out, err = run(t, "ttest", studyFile(t),
		"--preset", "other-events", "--value", "Affected", "--group", "Group ID", "--a", "EG000", "--b", "EG001", "--welch")
	require.NoError(t, err)
	assert.Contains(t, out, "welch t = ")
}

func TestDescribeCmd(t *testing.T) {
	out, err := run(t, "describe", studyFile(t), "--preset", "other-events", "--column", "Affected")
	require.NoError(t, err)
	assert.Contains(t, out, `"count": 6`)
}

func TestGenerateCmd(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "studies")
	out, err := run(t, "generate", dir, "--count", "3", "--arms", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 3 studies")

	out, err = run(t, "extract", filepath.Join(dir, "NCT90000002.json"), "--preset", "event-groups")
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 3)

	_, err = run(t, "generate", dir, "--count", "0")
	assert.Error(t, err)
}
