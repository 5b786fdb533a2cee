package presets

import (
	"testing"

	"trialtab/adapters/docstore"
	"trialtab/internal/extract"
	"trialtab/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadStudy(t *testing.T, id string) any {
	t.Helper()
	doc, err := docstore.Decode(id, testkit.StudyJSON(t, id))
	require.NoError(t, err)
	return doc.Root
}

func TestNamesAndLookup(t *testing.T) {
	names := Names()
	for _, want := range []string{
		"overview", "primary-outcomes", "secondary-outcomes", "eligibility",
		"locations", "event-groups", "serious-events", "other-events",
		"participant-flow", "flow-groups", "baseline-measures",
		"outcome-measures", "arm-groups", "first-period-milestones",
	} {
		p, ok := Lookup(want)
		require.True(t, ok, want)
		assert.Equal(t, want, p.Name)
		assert.NotEmpty(t, p.Title)
		assert.Contains(t, names, want)
	}
	assert.IsIncreasing(t, names)
	assert.Len(t, All(), len(names))

	_, ok := Lookup("nope")
	assert.False(t, ok)
}

func TestOverview(t *testing.T) {
	table := extract.Assemble(loadStudy(t, testkit.StudyCF), Overview.Spec)
	require.Equal(t, 1, table.Len())

	row := table.Records[0].Map()
	assert.Equal(t, "NCT01000001", row["NCT ID"])
	assert.Equal(t, "COMPLETED", row["Status"])
	assert.Equal(t, "Vertex Pharmaceuticals Incorporated", row["Sponsor"])
	assert.Equal(t, int64(140), row["Enrollment"])

	table = extract.Assemble(loadStudy(t, testkit.StudyNonF508), Overview.Spec)
	row = table.Records[0].Map()
	assert.Equal(t, NotAvailable, row["Start Date"])
	assert.Equal(t, int64(0), row["Enrollment"])
}

func TestOutcomes(t *testing.T) {
	doc := loadStudy(t, testkit.StudyCF)

	primary := extract.Assemble(doc, PrimaryOutcomes.Spec)
	assert.Equal(t, []string{"Measure", "Description", "Time Frame"}, primary.Columns)
	assert.Equal(t, 2, primary.Len())

	secondary := extract.Assemble(doc, SecondaryOutcomes.Spec)
	require.Equal(t, 3, secondary.Len())
	assert.Equal(t, NotAvailable, secondary.Strings("Description")[1])
	assert.Equal(t, 2, secondary.Filter(extract.NotEquals("Description", NotAvailable)).Len())
}

func TestEligibility(t *testing.T) {
	row := extract.Assemble(loadStudy(t, testkit.StudyCF), Eligibility.Spec).Records[0].Map()
	assert.Equal(t, "12 Years", row["Minimum Age"])
	assert.Equal(t, NotAvailable, row["Maximum Age"])
	assert.Equal(t, false, row["Healthy Volunteers"])
	assert.Contains(t, row["Criteria"], "Homozygous for the F508del-CFTR mutation")
}

func TestLocations(t *testing.T) {
	table := extract.Assemble(loadStudy(t, testkit.StudyCF), Locations.Spec)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, []any{42.3601, 37.7749, nil}, table.Column("Latitude"))
	assert.Equal(t, []string{"Boston", "San Francisco", "London"}, table.Strings("City"))
}

func TestAdverseEventPresets(t *testing.T) {
	doc := loadStudy(t, testkit.StudyCF)

	groups := extract.Assemble(doc, EventGroups.Spec)
	require.Equal(t, 2, groups.Len())
	assert.Equal(t, []any{int64(5), int64(2)}, groups.Column("Serious Affected"))

	serious, diag := extract.AssembleWithDiagnostics(doc, SeriousEvents.Spec)
	require.Equal(t, 4, serious.Len())
	assert.Equal(t, []string{"EG000", "EG001", "EG000", "EG009"}, serious.Strings("Group ID"))
	assert.Equal(t, []string{"Pulmonary exacerbation", "Pulmonary exacerbation", "Haemoptysis", "Haemoptysis"}, serious.Strings("Term"))
	// the EG009 stat reports no event count
	assert.Equal(t, int64(0), serious.Records[3].Map()["Events"])
	assert.Equal(t, 1, diag.Absent["Events"])

	other := extract.Assemble(doc, OtherEvents.Spec)
	assert.Equal(t, 6, other.Len())

	none := extract.Assemble(loadStudy(t, testkit.StudyNonF508), SeriousEvents.Spec)
	assert.Equal(t, 0, none.Len())
	assert.Equal(t, SeriousEvents.Spec.Columns(), none.Columns)
}

func TestParticipantFlow(t *testing.T) {
	doc := loadStudy(t, testkit.StudyCF)

	all := extract.Assemble(doc, ParticipantFlow.Spec)
	assert.Equal(t, 7, all.Len())
	assert.Equal(t, "Open-label Extension", all.Records[6].Map()["Period"])

	first := extract.Assemble(doc, FirstPeriodMilestones.Spec)
	require.Equal(t, 6, first.Len())
	started := first.Filter(extract.Equals("Milestone", "STARTED"))
	assert.Equal(t, []any{int64(112), int64(28)}, started.Column("Subjects"))

	groups := extract.Assemble(doc, FlowGroups.Spec)
	assert.Equal(t, []string{"Ivacaftor", "Placebo"}, groups.Strings("Group"))
}

func TestMeasurements(t *testing.T) {
	doc := loadStudy(t, testkit.StudyCF)

	baseline := extract.Assemble(doc, BaselineMeasures.Spec)
	require.Equal(t, 9, baseline.Len())
	first := baseline.Records[0].Map()
	assert.Equal(t, "Age, Continuous", first["Measure"])
	assert.Equal(t, "years", first["Unit"])
	assert.Equal(t, 22.8, first["Value"])
	assert.Equal(t, 10.1, first["Spread"])
	last := baseline.Records[8].Map()
	assert.Equal(t, "Male", last["Category"])
	assert.Equal(t, 73.0, last["Value"])
	assert.Nil(t, last["Spread"])

	outcomes := extract.Assemble(doc, OutcomeMeasures.Spec)
	require.Equal(t, 6, outcomes.Len())
	chloride := outcomes.Filter(extract.Equals("Unit", "mmol/L"))
	require.Equal(t, 2, chloride.Len())
	assert.Equal(t, -4.9, chloride.Records[0].Map()["Lower"])
	assert.Equal(t, "95% Confidence Interval", chloride.Records[0].Map()["Dispersion"])
}

func TestArmGroups_PadsArmsWithoutInterventions(t *testing.T) {
	doc := map[string]any{
		"protocolSection": map[string]any{
			"armsInterventionsModule": map[string]any{
				"armGroups": []any{
					map[string]any{"label": "Observation", "type": "NO_INTERVENTION"},
					map[string]any{"label": "Drug", "interventionNames": []any{"Drug: A", "Drug: B"}},
				},
			},
		},
	}
	table := extract.Assemble(doc, ArmGroups.Spec)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"Observation", "Drug", "Drug"}, table.Strings("Arm"))
	assert.Equal(t, []string{"", "Drug: A", "Drug: B"}, table.Strings("Intervention"))

	fixture := extract.Assemble(loadStudy(t, testkit.StudyNonF508), ArmGroups.Spec)
	assert.Equal(t, 2, fixture.Len())
}
