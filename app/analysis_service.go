package app

import (
	"context"

	"trialtab/adapters/stats"
	"trialtab/internal/errors"
	"trialtab/internal/extract"
)

// TTestRequest compares one numeric column between two groups of a preset table
type TTestRequest struct {
	Study       string `json:"study" binding:"required"`
	Preset      string `json:"preset" binding:"required"`
	ValueColumn string `json:"value_column" binding:"required"`
	GroupColumn string `json:"group_column" binding:"required"`
	GroupA      string `json:"group_a" binding:"required"`
	GroupB      string `json:"group_b" binding:"required"`

	// Welch drops the equal-variance assumption of the default pooled test
	Welch bool `json:"welch"`
}

// ChiSquareRequest cross-tabulates two columns of a preset table
type ChiSquareRequest struct {
	Study        string `json:"study" binding:"required"`
	Preset       string `json:"preset" binding:"required"`
	RowColumn    string `json:"row_column" binding:"required"`
	ColumnColumn string `json:"column_column" binding:"required"`
	CountColumn  string `json:"count_column"`
}

// LandscapeRequest pivots a preset across studies
type LandscapeRequest struct {
	Studies  []string `json:"studies" binding:"required"`
	Preset   string   `json:"preset" binding:"required"`
	Index    string   `json:"index"`
	Columns  string   `json:"columns" binding:"required"`
	Value    string   `json:"value" binding:"required"`
	Clusters int      `json:"clusters"`
	Linkage  string   `json:"linkage"`
}

// Landscape is a pivot of several studies with the correlation between its
// columns and an optional clustering of its rows
type Landscape struct {
	Pivot       *stats.Matrix `json:"pivot"`
	Correlation *stats.Matrix `json:"correlation"`
	Clusters    []int         `json:"clusters,omitempty"`
}

// Diversity describes how events spread across organ systems
type Diversity struct {
	Categories []string  `json:"categories"`
	Counts     []float64 `json:"counts"`
	Shannon    float64   `json:"shannon"`
	Gini       float64   `json:"gini"`
}

// AnalysisService runs statistics over study tables
type AnalysisService struct {
	studies *StudyService
}

// NewAnalysisService creates an analysis service
func NewAnalysisService(studies *StudyService) *AnalysisService {
	return &AnalysisService{studies: studies}
}

// Describe summarizes one numeric column of a preset table
func (a *AnalysisService) Describe(ctx context.Context, id, preset, column string) (stats.Summary, error) {
	table, _, err := a.studies.Table(ctx, id, preset)
	if err != nil {
		return stats.Summary{}, err
	}
	s, err := stats.DescribeColumn(table, column)
	if err != nil {
		return stats.Summary{}, errors.WithCode(errors.CodeInvalidInput, err)
	}
	return s, nil
}

// TTest runs a two-sample t-test between two groups, pooled unless req.Welch is set
func (a *AnalysisService) TTest(ctx context.Context, req TTestRequest) (stats.TTestResult, error) {
	table, _, err := a.studies.Table(ctx, req.Study, req.Preset)
	if err != nil {
		return stats.TTestResult{}, err
	}
	res, err := stats.GroupTTest(table, req.ValueColumn, req.GroupColumn, req.GroupA, req.GroupB, req.Welch)
	if err != nil {
		return stats.TTestResult{}, errors.WithCode(errors.CodeInvalidInput, err)
	}
	return res, nil
}

// ChiSquare tests independence of two columns
func (a *AnalysisService) ChiSquare(ctx context.Context, req ChiSquareRequest) (stats.ChiSquareResult, error) {
	table, _, err := a.studies.Table(ctx, req.Study, req.Preset)
	if err != nil {
		return stats.ChiSquareResult{}, err
	}
	res, err := stats.ChiSquare(table, req.RowColumn, req.ColumnColumn, req.CountColumn)
	if err != nil {
		return stats.ChiSquareResult{}, errors.WithCode(errors.CodeInvalidInput, err)
	}
	return res, nil
}

// EventDiversity counts adverse event rows per organ system and scores the spread
func (a *AnalysisService) EventDiversity(ctx context.Context, id, kind string) (*Diversity, error) {
	events, err := a.studies.AdverseEvents(ctx, id, kind)
	if err != nil {
		return nil, err
	}
	events = events.Filter(extract.NotEquals("Organ System", "N/A"))
	names, counts := stats.CategoryCounts(events, "Organ System")
	if len(counts) == 0 {
		return nil, errors.InvalidInput("study reports no adverse events of kind " + kind)
	}

	out := &Diversity{Categories: names, Counts: counts}
	if out.Shannon, err = stats.Shannon(counts); err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	if out.Gini, err = stats.Gini(counts); err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	return out, nil
}

// Landscape compares studies through a pivot of one preset. Index defaults to
// the Study column the comparison adds and clustering to Ward linkage.
func (a *AnalysisService) Landscape(ctx context.Context, req LandscapeRequest) (*Landscape, error) {
	table, err := a.studies.Compare(ctx, req.Studies, req.Preset)
	if err != nil {
		return nil, err
	}
	index := req.Index
	if index == "" {
		index = "Study"
	}
	pivot, err := stats.Pivot(table, index, req.Columns, req.Value)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}

	out := &Landscape{Pivot: pivot, Correlation: stats.CorrelationMatrix(pivot)}
	if req.Clusters > 0 {
		linkage, err := stats.ParseLinkage(req.Linkage)
		if err != nil {
			return nil, errors.WithCode(errors.CodeInvalidInput, err)
		}
		if out.Clusters, err = stats.Agglomerative(pivot, req.Clusters, linkage); err != nil {
			return nil, errors.WithCode(errors.CodeInvalidInput, err)
		}
	}
	return out, nil
}
