package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"trialtab/adapters/docstore"
	"trialtab/adapters/postgres"
	"trialtab/internal"
	"trialtab/internal/errors"
	"trialtab/internal/extract"
	"trialtab/internal/migration"
	"trialtab/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, withDB bool) *StudyService {
	t.Helper()
	logger := internal.NewLoggerWithWriter(internal.LogLevelError, os.Stderr)
	cache := docstore.NewCache(docstore.NewFileSource(testkit.WriteStudies(t), nil), logger)
	if !withDB {
		return NewStudyService(cache, nil, logger)
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migration.NewRunner().Run(ctx, db))
	return NewStudyService(cache, postgres.NewSnapshotRepository(db), logger)
}

func TestStudyService_ListAndOverview(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	ids, err := svc.ListStudies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{testkit.StudyCF, testkit.StudyNonF508}, ids)

	card, err := svc.Overview(ctx, testkit.StudyCF)
	require.NoError(t, err)
	assert.Equal(t, "NCT01000001", card.NCTID)
	assert.Equal(t, "COMPLETED", card.Status)
	assert.Equal(t, int64(140), card.Enrollment)
	assert.Equal(t, 2, card.PrimaryOutcomes)
	assert.Equal(t, 3, card.SecondaryOutcomes)
	assert.Equal(t, 3, card.Locations)

	_, err = svc.Overview(ctx, "NCT404")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestStudyService_Table(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	table, diag, err := svc.Table(ctx, testkit.StudyCF, "secondary-outcomes")
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 1, diag.Absent["Description"])

	_, _, err = svc.Table(ctx, testkit.StudyCF, "nope")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestStudyService_Extract(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	table, diag, err := svc.Extract(ctx, testkit.StudyCF, []extract.Definition{
		{Name: "Site", Path: "protocolSection.contactsLocationsModule.locations[*].facility"},
		{Name: "Lat", Path: "protocolSection.contactsLocationsModule.locations[*].geoPoint.lat", Type: extract.TypeNumber, Default: -1},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []any{42.3601, 37.7749, -1.0}, table.Column("Lat"))
	assert.Equal(t, 1, diag.Absent["Lat"])

	_, _, err = svc.Extract(ctx, testkit.StudyCF, []extract.Definition{{Name: "Bad", Path: "a[*"}}, false)
	require.Error(t, err)
	assert.Equal(t, errors.CodeSpecInvalid, errors.GetCode(err))

	var specErr *extract.SpecError
	assert.ErrorAs(t, err, &specErr)
	assert.Equal(t, "Bad", specErr.Column)
}

func TestStudyService_ExtractPadEmpty(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()
	defs := []extract.Definition{
		{Name: "Term", Path: "resultsSection.adverseEventsModule.seriousEvents[*].term", Default: "none"},
	}

	table, _, err := svc.Extract(ctx, testkit.StudyNonF508, defs, false)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())

	table, _, err = svc.Extract(ctx, testkit.StudyNonF508, defs, true)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, []any{"none"}, table.Column("Term"))
}

func TestStudyService_AdverseEvents(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	serious, err := svc.AdverseEvents(ctx, testkit.StudyCF, EventsSerious)
	require.NoError(t, err)
	require.Equal(t, 4, serious.Len())
	assert.Equal(t, "Event Type", serious.Columns[0])
	assert.Equal(t, "Group", serious.Columns[len(serious.Columns)-1])
	assert.Equal(t, []string{"Ivacaftor", "Placebo", "Ivacaftor", "N/A"}, serious.Strings("Group"))

	all, err := svc.AdverseEvents(ctx, testkit.StudyCF, EventsAll)
	require.NoError(t, err)
	assert.Equal(t, 10, all.Len())
	assert.Equal(t, 6, all.Filter(extract.Equals("Event Type", "Other")).Len())

	none, err := svc.AdverseEvents(ctx, testkit.StudyNonF508, EventsSerious)
	require.NoError(t, err)
	assert.Equal(t, 0, none.Len())

	_, err = svc.AdverseEvents(ctx, testkit.StudyCF, "fatal")
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestStudyService_Enrollment(t *testing.T) {
	svc := newTestService(t, false)

	table, err := svc.Enrollment(context.Background(), testkit.StudyCF)
	require.NoError(t, err)
	assert.Equal(t, []string{"Milestone", "Group ID", "Subjects", "Group"}, table.Columns)
	assert.Equal(t, []any{int64(112), int64(28)}, table.Column("Subjects"))
	assert.Equal(t, []string{"Ivacaftor", "Placebo"}, table.Strings("Group"))
}

func TestStudyService_CompareAndLocations(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	table, err := svc.Compare(ctx, []string{testkit.StudyNonF508, testkit.StudyCF}, "primary-outcomes")
	require.NoError(t, err)
	assert.Equal(t, "Study", table.Columns[0])
	assert.Equal(t, []string{testkit.StudyNonF508, testkit.StudyCF, testkit.StudyCF}, table.Strings("Study"))

	_, err = svc.Compare(ctx, nil, "overview")
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	_, err = svc.Compare(ctx, []string{testkit.StudyCF}, "nope")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	sites, err := svc.Locations(ctx, testkit.StudyCF)
	require.NoError(t, err)
	assert.Equal(t, []string{"Boston", "San Francisco"}, sites.Strings("City"))
}

func TestStudyService_InspectAndCache(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	keys, err := svc.Inspect(ctx, testkit.StudyCF)
	require.NoError(t, err)
	assert.Equal(t, "protocolSection", keys[0].Key)

	assert.True(t, svc.Invalidate(testkit.StudyCF))
	assert.False(t, svc.Invalidate(testkit.StudyCF))
	_, err = svc.Overview(ctx, testkit.StudyNonF508)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Refresh())
}

func TestStudyService_Snapshots(t *testing.T) {
	ctx := context.Background()

	disabled := newTestService(t, false)
	_, err := disabled.SaveSnapshot(ctx, testkit.StudyCF, "overview")
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	svc := newTestService(t, true)
	snap, err := svc.SaveSnapshot(ctx, testkit.StudyCF, "locations")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.RowCount)
	assert.Equal(t, []string{"Facility", "City", "Country", "Latitude", "Longitude"}, snap.Columns)
	assert.Contains(t, string(snap.Rows), `"City":"London"`)

	list, err := svc.ListSnapshots(ctx, testkit.StudyCF, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, snap.ID, list[0].ID)

	_, err = svc.SaveSnapshot(ctx, testkit.StudyCF, "nope")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}
