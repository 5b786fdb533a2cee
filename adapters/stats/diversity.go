package stats

import (
	"fmt"
	"math"

	mfstats "github.com/montanaflynn/stats"

	"trialtab/internal/extract"
)

// Shannon returns the Shannon diversity index (natural log) of category counts
func Shannon(counts []float64) (float64, error) {
	data, err := proportions(counts)
	if err != nil {
		return math.NaN(), err
	}
	return mfstats.Entropy(data)
}

// Gini returns the Gini-Simpson index 1 - sum(p^2) of category counts
func Gini(counts []float64) (float64, error) {
	data, err := proportions(counts)
	if err != nil {
		return math.NaN(), err
	}
	var sum float64
	for _, p := range data {
		sum += p * p
	}
	return 1 - sum, nil
}

// CategoryCounts tallies the non-nil values of a column in order of first appearance
func CategoryCounts(t *extract.Table, column string) ([]string, []float64) {
	labels := newLabels()
	var counts []float64
	for _, v := range t.Column(column) {
		if v == nil {
			continue
		}
		i := labels.index(label(v))
		if i == len(counts) {
			counts = append(counts, 0)
		}
		counts[i]++
	}
	return labels.names, counts
}

func proportions(counts []float64) (mfstats.Float64Data, error) {
	var total float64
	data := make(mfstats.Float64Data, 0, len(counts))
	for _, c := range counts {
		if c < 0 || math.IsNaN(c) {
			return nil, fmt.Errorf("diversity: invalid count %v", c)
		}
		total += c
		data = append(data, c)
	}
	if total == 0 {
		return nil, fmt.Errorf("diversity: no observations")
	}
	for i := range data {
		data[i] /= total
	}
	return data, nil
}
