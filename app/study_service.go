package app

import (
	"context"
	"encoding/json"
	"fmt"

	"trialtab/adapters/docstore"
	"trialtab/internal"
	"trialtab/internal/errors"
	"trialtab/internal/extract"
	"trialtab/internal/presets"
	"trialtab/ports"
)

// Adverse event kinds accepted by AdverseEvents
const (
	EventsSerious = "serious"
	EventsOther   = "other"
	EventsAll     = "all"
)

// StudyService answers table questions about study documents
type StudyService struct {
	cache     *docstore.Cache
	snapshots ports.SnapshotRepository
	logger    *internal.Logger
}

// StudySummary is the overview card of one study
type StudySummary struct {
	ID                string `json:"id"`
	NCTID             string `json:"nct_id"`
	Title             string `json:"title"`
	Status            string `json:"status"`
	StartDate         string `json:"start_date"`
	Sponsor           string `json:"sponsor"`
	Summary           string `json:"summary"`
	Enrollment        int64  `json:"enrollment"`
	PrimaryOutcomes   int    `json:"primary_outcomes"`
	SecondaryOutcomes int    `json:"secondary_outcomes"`
	Locations         int    `json:"locations"`
}

// NewStudyService creates a study service. snapshots may be nil when no
// database is configured.
func NewStudyService(cache *docstore.Cache, snapshots ports.SnapshotRepository, logger *internal.Logger) *StudyService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &StudyService{cache: cache, snapshots: snapshots, logger: logger}
}

// ListStudies returns every study id the source knows about
func (s *StudyService) ListStudies(ctx context.Context) ([]string, error) {
	ids, err := s.cache.Source().List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list studies")
	}
	return ids, nil
}

// Overview builds the overview card of a study
func (s *StudyService) Overview(ctx context.Context, id string) (*StudySummary, error) {
	doc, err := s.cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	card := extract.Assemble(doc.Root, presets.Overview.Spec)
	out := &StudySummary{ID: id}
	if card.Len() > 0 {
		row := card.Records[0].Map()
		out.NCTID, _ = row["NCT ID"].(string)
		out.Title, _ = row["Title"].(string)
		out.Status, _ = row["Status"].(string)
		out.StartDate, _ = row["Start Date"].(string)
		out.Sponsor, _ = row["Sponsor"].(string)
		out.Summary, _ = row["Summary"].(string)
		out.Enrollment, _ = row["Enrollment"].(int64)
	}
	out.PrimaryOutcomes = extract.Assemble(doc.Root, presets.PrimaryOutcomes.Spec).Len()
	out.SecondaryOutcomes = extract.Assemble(doc.Root, presets.SecondaryOutcomes.Spec).Len()
	out.Locations = extract.Assemble(doc.Root, presets.Locations.Spec).Len()
	return out, nil
}

// Table assembles a named preset against a study
func (s *StudyService) Table(ctx context.Context, id, preset string) (*extract.Table, *extract.Diagnostics, error) {
	p, ok := presets.Lookup(preset)
	if !ok {
		return nil, nil, errors.NotFound("preset " + preset)
	}
	doc, err := s.cache.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	table, diag := extract.AssembleWithDiagnostics(doc.Root, p.Spec)
	s.logDiagnostics(id, preset, diag)
	return table, diag, nil
}

// Extract compiles ad-hoc column definitions and assembles them against a
// study. With padEmpty an empty wildcard sequence yields one row of defaults
// instead of none.
func (s *StudyService) Extract(ctx context.Context, id string, defs []extract.Definition, padEmpty bool) (*extract.Table, *extract.Diagnostics, error) {
	spec, err := extract.Compile(defs...)
	if err != nil {
		return nil, nil, errors.SpecInvalid(err)
	}
	if padEmpty {
		spec = spec.WithEmptyScopes(extract.EmptyScopePad)
	}
	doc, err := s.cache.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	table, diag := extract.AssembleWithDiagnostics(doc.Root, spec)
	s.logDiagnostics(id, "ad-hoc", diag)
	return table, diag, nil
}

// AdverseEvents lists event rows of the given kind with an Event Type column
// and the title of each row's event group. Rows whose group id matches no
// event group get "N/A".
func (s *StudyService) AdverseEvents(ctx context.Context, id, kind string) (*extract.Table, error) {
	var keys []string
	var specs []*presets.Preset
	switch kind {
	case EventsSerious:
		keys, specs = []string{"Serious"}, []*presets.Preset{presets.SeriousEvents}
	case EventsOther:
		keys, specs = []string{"Other"}, []*presets.Preset{presets.OtherEvents}
	case EventsAll:
		keys, specs = []string{"Serious", "Other"}, []*presets.Preset{presets.SeriousEvents, presets.OtherEvents}
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unknown adverse event kind %q, want serious, other or all", kind))
	}

	doc, err := s.cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tables := make([]*extract.Table, len(specs))
	for i, p := range specs {
		tables[i] = extract.Assemble(doc.Root, p.Spec)
	}
	events := extract.Stack("Event Type", keys, tables)
	groups := extract.Assemble(doc.Root, presets.EventGroups.Spec)

	return extract.LeftJoin(events, groups, "Group ID", "Group ID",
		[][2]string{{"Group", "Group"}}, presets.NotAvailable), nil
}

// Enrollment lists the STARTED milestone of the first flow period per group,
// titled from the flow groups
func (s *StudyService) Enrollment(ctx context.Context, id string) (*extract.Table, error) {
	doc, err := s.cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	started := extract.Assemble(doc.Root, presets.FirstPeriodMilestones.Spec).
		Filter(extract.Equals("Milestone", "STARTED"))
	groups := extract.Assemble(doc.Root, presets.FlowGroups.Spec)

	return extract.LeftJoin(started, groups, "Group ID", "Group ID",
		[][2]string{{"Group", "Group"}}, presets.NotAvailable), nil
}

// Compare assembles one preset for several studies and stacks the results
// under a Study column, in the order given
func (s *StudyService) Compare(ctx context.Context, ids []string, preset string) (*extract.Table, error) {
	if len(ids) == 0 {
		return nil, errors.InvalidInput("compare needs at least one study")
	}
	p, ok := presets.Lookup(preset)
	if !ok {
		return nil, errors.NotFound("preset " + preset)
	}
	docs, err := s.cache.LoadAll(ctx, ids)
	if err != nil {
		return nil, err
	}
	tables := make([]*extract.Table, len(ids))
	for i, id := range ids {
		tables[i] = extract.Assemble(docs[id].Root, p.Spec)
	}
	return extract.Stack("Study", ids, tables), nil
}

// Locations lists the sites that carry both coordinates
func (s *StudyService) Locations(ctx context.Context, id string) (*extract.Table, error) {
	doc, err := s.cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sites := extract.Assemble(doc.Root, presets.Locations.Spec)
	return sites.Filter(func(r extract.Record) bool {
		lat, _ := r.Get("Latitude")
		lon, _ := r.Get("Longitude")
		return lat != nil && lon != nil
	}), nil
}

// Inspect summarizes the top-level keys of a study document
func (s *StudyService) Inspect(ctx context.Context, id string) ([]docstore.KeySummary, error) {
	doc, err := s.cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return docstore.Inspect(doc.Raw)
}

// Invalidate drops a study from the cache
func (s *StudyService) Invalidate(id string) bool {
	return s.cache.Invalidate(id)
}

// Refresh drops every cached study
func (s *StudyService) Refresh() int {
	return s.cache.InvalidateAll()
}

// SaveSnapshot assembles a preset and persists the result
func (s *StudyService) SaveSnapshot(ctx context.Context, id, preset string) (*ports.Snapshot, error) {
	if s.snapshots == nil {
		return nil, errors.New(errors.CodeConfigInvalid, "snapshot storage is not configured")
	}
	table, _, err := s.Table(ctx, id, preset)
	if err != nil {
		return nil, err
	}
	rows, err := json.Marshal(table)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode table")
	}
	snap := &ports.Snapshot{
		StudyID:  id,
		Preset:   preset,
		Columns:  table.Columns,
		Rows:     rows,
		RowCount: table.Len(),
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		return nil, err
	}
	s.logger.Info("saved snapshot %s of %s/%s (%d rows)", snap.ID, id, preset, snap.RowCount)
	return snap, nil
}

// ListSnapshots returns a study's snapshots, newest first
func (s *StudyService) ListSnapshots(ctx context.Context, id string, limit int) ([]*ports.Snapshot, error) {
	if s.snapshots == nil {
		return nil, errors.New(errors.CodeConfigInvalid, "snapshot storage is not configured")
	}
	return s.snapshots.ListByStudy(ctx, id, limit)
}

func (s *StudyService) logDiagnostics(id, preset string, diag *extract.Diagnostics) {
	if len(diag.Coercions) == 0 {
		return
	}
	s.logger.Debug("%s/%s: %d values fell back to defaults", id, preset, len(diag.Coercions))
	for _, w := range diag.Coercions {
		s.logger.Trace("%s/%s row %d column %q: %s", id, preset, w.Row, w.Column, w.Reason)
	}
}
