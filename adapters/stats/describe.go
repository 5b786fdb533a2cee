// Package stats runs descriptive and inferential statistics over extracted
// tables: summaries, two-group and contingency tests, diversity indices,
// pivots, correlation matrices and clustering.
package stats

import (
	"encoding/json"
	"fmt"
	"math"

	mfstats "github.com/montanaflynn/stats"

	"trialtab/internal/extract"
)

// Summary holds descriptive statistics of one numeric column
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// MarshalJSON writes an undefined standard deviation as null
func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	return json.Marshal(struct {
		plain
		StdDev any `json:"std"`
	}{plain(s), nullable(s.StdDev)})
}

// Describe summarizes values, ignoring NaN. StdDev is the sample standard
// deviation and is NaN for a single value.
func Describe(values []float64) (Summary, error) {
	data := finite(values)
	if len(data) == 0 {
		return Summary{}, fmt.Errorf("describe: no numeric values")
	}

	s := Summary{Count: len(data), StdDev: math.NaN()}
	var err error
	if s.Mean, err = mfstats.Mean(data); err != nil {
		return Summary{}, err
	}
	if len(data) > 1 {
		if s.StdDev, err = mfstats.StandardDeviationSample(data); err != nil {
			return Summary{}, err
		}
	}
	if s.Min, err = mfstats.Min(data); err != nil {
		return Summary{}, err
	}
	if s.Max, err = mfstats.Max(data); err != nil {
		return Summary{}, err
	}
	if s.Median, err = mfstats.Median(data); err != nil {
		return Summary{}, err
	}
	if s.Q1, err = mfstats.Percentile(data, 25); err != nil {
		// too few values for the lower quartile
		s.Q1 = s.Min
	}
	if s.Q3, err = mfstats.Percentile(data, 75); err != nil {
		s.Q3 = s.Max
	}
	return s, nil
}

// DescribeColumn summarizes the numeric values of a table column
func DescribeColumn(t *extract.Table, column string) (Summary, error) {
	if !t.HasColumn(column) {
		return Summary{}, fmt.Errorf("describe: unknown column %q", column)
	}
	return Describe(t.Floats(column))
}

// finite copies values without NaN
func finite(values []float64) mfstats.Float64Data {
	out := make(mfstats.Float64Data, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
