// Package presets holds the named extraction specs behind every study view:
// overview card, outcome lists, eligibility, sites, adverse events, participant
// flow, baseline and outcome measurements, and arms.
package presets

import (
	"sort"

	"trialtab/internal/extract"
)

// Preset is a named, pre-compiled spec
type Preset struct {
	Name        string
	Title       string
	Description string
	Spec        *extract.Spec
}

const (
	protocol = "protocolSection."
	results  = "resultsSection."
	flow     = results + "participantFlowModule."
	ae       = results + "adverseEventsModule."
)

// NotAvailable is the placeholder the views use for text a study leaves out
const NotAvailable = "N/A"

var registry = map[string]*Preset{}

func register(name, title, description string, spec *extract.Spec) *Preset {
	p := &Preset{Name: name, Title: title, Description: description, Spec: spec}
	registry[name] = p
	return p
}

func col(name, path string, def any, typ extract.ColumnType) extract.Definition {
	return extract.Definition{Name: name, Path: path, Default: def, Type: typ}
}

func outcomes(key string) *extract.Spec {
	base := protocol + "outcomesModule." + key + "[*]."
	return extract.MustCompile(
		col("Measure", base+"measure", NotAvailable, extract.TypeString),
		col("Description", base+"description", NotAvailable, extract.TypeString),
		col("Time Frame", base+"timeFrame", NotAvailable, extract.TypeString),
	)
}

func events(key string) *extract.Spec {
	base := ae + key + "[*]."
	return extract.MustCompile(
		col("Term", base+"term", NotAvailable, extract.TypeString),
		col("Organ System", base+"organSystem", NotAvailable, extract.TypeString),
		col("Assessment", base+"assessmentType", NotAvailable, extract.TypeString),
		col("Group ID", base+"stats[*].groupId", NotAvailable, extract.TypeString),
		col("Affected", base+"stats[*].numAffected", 0, extract.TypeInteger),
		col("At Risk", base+"stats[*].numAtRisk", 0, extract.TypeInteger),
		col("Events", base+"stats[*].numEvents", 0, extract.TypeInteger),
	)
}

var (
	Overview = register("overview", "Study overview",
		"Identification, status, sponsor and summary of one study",
		extract.MustCompile(
			col("NCT ID", protocol+"identificationModule.nctId", NotAvailable, extract.TypeString),
			col("Title", protocol+"identificationModule.briefTitle", NotAvailable, extract.TypeString),
			col("Status", protocol+"statusModule.overallStatus", NotAvailable, extract.TypeString),
			col("Start Date", protocol+"statusModule.startDateStruct.date", NotAvailable, extract.TypeString),
			col("Sponsor", protocol+"sponsorCollaboratorsModule.leadSponsor.name", NotAvailable, extract.TypeString),
			col("Enrollment", protocol+"designModule.enrollmentInfo.count", 0, extract.TypeInteger),
			col("Summary", protocol+"descriptionModule.briefSummary", NotAvailable, extract.TypeString),
		))

	PrimaryOutcomes = register("primary-outcomes", "Primary outcomes",
		"Declared primary outcome measures", outcomes("primaryOutcomes"))

	SecondaryOutcomes = register("secondary-outcomes", "Secondary outcomes",
		"Declared secondary outcome measures", outcomes("secondaryOutcomes"))

	Eligibility = register("eligibility", "Eligibility",
		"Sex, age bounds and free-text criteria",
		extract.MustCompile(
			col("Sex", protocol+"eligibilityModule.sex", NotAvailable, extract.TypeString),
			col("Minimum Age", protocol+"eligibilityModule.minimumAge", NotAvailable, extract.TypeString),
			col("Maximum Age", protocol+"eligibilityModule.maximumAge", NotAvailable, extract.TypeString),
			col("Healthy Volunteers", protocol+"eligibilityModule.healthyVolunteers", false, extract.TypeBool),
			col("Criteria", protocol+"eligibilityModule.eligibilityCriteria", "", extract.TypeString),
		))

	Locations = register("locations", "Locations",
		"Study sites with coordinates when geocoded",
		extract.MustCompile(
			col("Facility", protocol+"contactsLocationsModule.locations[*].facility", NotAvailable, extract.TypeString),
			col("City", protocol+"contactsLocationsModule.locations[*].city", NotAvailable, extract.TypeString),
			col("Country", protocol+"contactsLocationsModule.locations[*].country", NotAvailable, extract.TypeString),
			col("Latitude", protocol+"contactsLocationsModule.locations[*].geoPoint.lat", nil, extract.TypeNumber),
			col("Longitude", protocol+"contactsLocationsModule.locations[*].geoPoint.lon", nil, extract.TypeNumber),
		))

	EventGroups = register("event-groups", "Adverse event groups",
		"Per-group totals of affected and at-risk participants",
		extract.MustCompile(
			col("Group ID", ae+"eventGroups[*].id", NotAvailable, extract.TypeString),
			col("Group", ae+"eventGroups[*].title", NotAvailable, extract.TypeString),
			col("Description", ae+"eventGroups[*].description", "", extract.TypeString),
			col("Serious Affected", ae+"eventGroups[*].seriousNumAffected", 0, extract.TypeInteger),
			col("Serious At Risk", ae+"eventGroups[*].seriousNumAtRisk", 0, extract.TypeInteger),
			col("Other Affected", ae+"eventGroups[*].otherNumAffected", 0, extract.TypeInteger),
			col("Other At Risk", ae+"eventGroups[*].otherNumAtRisk", 0, extract.TypeInteger),
		))

	SeriousEvents = register("serious-events", "Serious adverse events",
		"One row per serious event term and group", events("seriousEvents"))

	OtherEvents = register("other-events", "Other adverse events",
		"One row per non-serious event term and group", events("otherEvents"))

	ParticipantFlow = register("participant-flow", "Participant flow",
		"Milestone counts per period and group",
		extract.MustCompile(
			col("Period", flow+"periods[*].title", NotAvailable, extract.TypeString),
			col("Milestone", flow+"periods[*].milestones[*].type", NotAvailable, extract.TypeString),
			col("Group ID", flow+"periods[*].milestones[*].achievements[*].groupId", NotAvailable, extract.TypeString),
			col("Subjects", flow+"periods[*].milestones[*].achievements[*].numSubjects", 0, extract.TypeInteger),
		))

	// FirstPeriodMilestones reads only the first flow period, where enrollment
	// (the STARTED milestone) is reported
	FirstPeriodMilestones = register("first-period-milestones", "First period milestones",
		"Milestone counts of the first flow period",
		extract.MustCompile(
			col("Milestone", flow+"periods[0].milestones[*].type", NotAvailable, extract.TypeString),
			col("Group ID", flow+"periods[0].milestones[*].achievements[*].groupId", NotAvailable, extract.TypeString),
			col("Subjects", flow+"periods[0].milestones[*].achievements[*].numSubjects", 0, extract.TypeInteger),
		))

	FlowGroups = register("flow-groups", "Flow groups",
		"Participant flow group ids and titles",
		extract.MustCompile(
			col("Group ID", flow+"groups[*].id", NotAvailable, extract.TypeString),
			col("Group", flow+"groups[*].title", NotAvailable, extract.TypeString),
			col("Description", flow+"groups[*].description", "", extract.TypeString),
		))

	BaselineMeasures = register("baseline-measures", "Baseline characteristics",
		"Baseline measurements with their measure metadata",
		extract.MustCompile(
			col("Measure", results+"baselineCharacteristicsModule.measures[*].title", NotAvailable, extract.TypeString),
			col("Param Type", results+"baselineCharacteristicsModule.measures[*].paramType", NotAvailable, extract.TypeString),
			col("Dispersion", results+"baselineCharacteristicsModule.measures[*].dispersionType", NotAvailable, extract.TypeString),
			col("Unit", results+"baselineCharacteristicsModule.measures[*].unitOfMeasure", NotAvailable, extract.TypeString),
			col("Category", results+"baselineCharacteristicsModule.measures[*].classes[*].categories[*].title", "", extract.TypeString),
			col("Group ID", results+"baselineCharacteristicsModule.measures[*].classes[*].categories[*].measurements[*].groupId", NotAvailable, extract.TypeString),
			col("Value", results+"baselineCharacteristicsModule.measures[*].classes[*].categories[*].measurements[*].value", nil, extract.TypeNumber),
			col("Spread", results+"baselineCharacteristicsModule.measures[*].classes[*].categories[*].measurements[*].spread", nil, extract.TypeNumber),
		))

	OutcomeMeasures = register("outcome-measures", "Outcome measurements",
		"Reported outcome values with unit, parameter and dispersion",
		extract.MustCompile(
			col("Type", results+"outcomeMeasuresModule.outcomeMeasures[*].type", NotAvailable, extract.TypeString),
			col("Measure", results+"outcomeMeasuresModule.outcomeMeasures[*].title", NotAvailable, extract.TypeString),
			col("Param Type", results+"outcomeMeasuresModule.outcomeMeasures[*].paramType", NotAvailable, extract.TypeString),
			col("Dispersion", results+"outcomeMeasuresModule.outcomeMeasures[*].dispersionType", NotAvailable, extract.TypeString),
			col("Unit", results+"outcomeMeasuresModule.outcomeMeasures[*].unitOfMeasure", NotAvailable, extract.TypeString),
			col("Group ID", results+"outcomeMeasuresModule.outcomeMeasures[*].classes[*].categories[*].measurements[*].groupId", NotAvailable, extract.TypeString),
			col("Value", results+"outcomeMeasuresModule.outcomeMeasures[*].classes[*].categories[*].measurements[*].value", nil, extract.TypeNumber),
			col("Spread", results+"outcomeMeasuresModule.outcomeMeasures[*].classes[*].categories[*].measurements[*].spread", nil, extract.TypeNumber),
			col("Lower", results+"outcomeMeasuresModule.outcomeMeasures[*].classes[*].categories[*].measurements[*].lowerLimit", nil, extract.TypeNumber),
			col("Upper", results+"outcomeMeasuresModule.outcomeMeasures[*].classes[*].categories[*].measurements[*].upperLimit", nil, extract.TypeNumber),
		))

	// ArmGroups pads arms that list no interventions so every arm shows up
	ArmGroups = register("arm-groups", "Arms",
		"Arm groups with one row per intervention",
		extract.MustCompile(
			col("Arm", protocol+"armsInterventionsModule.armGroups[*].label", NotAvailable, extract.TypeString),
			col("Type", protocol+"armsInterventionsModule.armGroups[*].type", NotAvailable, extract.TypeString),
			col("Description", protocol+"armsInterventionsModule.armGroups[*].description", "", extract.TypeString),
			col("Intervention", protocol+"armsInterventionsModule.armGroups[*].interventionNames[*]", "", extract.TypeString),
		).WithEmptyScopes(extract.EmptyScopePad))
)

// Lookup returns a preset by name
func Lookup(name string) (*Preset, bool) {
	p, ok := registry[name]
	return p, ok
}

// Names lists every preset name, sorted
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every preset ordered by name
func All() []*Preset {
	names := Names()
	out := make([]*Preset, len(names))
	for i, name := range names {
		out[i] = registry[name]
	}
	return out
}
