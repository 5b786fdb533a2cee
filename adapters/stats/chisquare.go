package stats

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"trialtab/internal/extract"
)

// ChiSquareResult is the outcome of Pearson's chi-square test of independence
type ChiSquareResult struct {
	Statistic float64     `json:"statistic"`
	DF        int         `json:"df"`
	P         float64     `json:"p"`
	Rows      []string    `json:"rows"`
	Columns   []string    `json:"columns"`
	Observed  [][]float64 `json:"observed"`
}

// ChiSquare builds a contingency table of rowColumn by colColumn and tests it.
// With an empty countColumn every record counts once; otherwise the numeric
// value of countColumn is summed.
func ChiSquare(t *extract.Table, rowColumn, colColumn, countColumn string) (ChiSquareResult, error) {
	for _, c := range []string{rowColumn, colColumn, countColumn} {
		if c != "" && !t.HasColumn(c) {
			return ChiSquareResult{}, fmt.Errorf("chi-square: unknown column %q", c)
		}
	}

	rows, cols := newLabels(), newLabels()
	cells := map[[2]int]float64{}
	for _, r := range t.Records {
		rv, _ := r.Get(rowColumn)
		cv, _ := r.Get(colColumn)
		if rv == nil || cv == nil {
			continue
		}
		w := 1.0
		if countColumn != "" {
			v, _ := r.Get(countColumn)
			f, ok := number(v)
			if !ok {
				continue
			}
			w = f
		}
		cells[[2]int{rows.index(label(rv)), cols.index(label(cv))}] += w
	}

	observed := make([][]float64, len(rows.names))
	for i := range observed {
		observed[i] = make([]float64, len(cols.names))
		for j := range observed[i] {
			observed[i][j] = cells[[2]int{i, j}]
		}
	}

	stat, df, p, err := ChiSquareTable(observed)
	if err != nil {
		return ChiSquareResult{}, err
	}
	return ChiSquareResult{
		Statistic: stat,
		DF:        df,
		P:         p,
		Rows:      rows.names,
		Columns:   cols.names,
		Observed:  observed,
	}, nil
}

// ChiSquareTable tests an observed contingency table
func ChiSquareTable(observed [][]float64) (statistic float64, df int, p float64, err error) {
	if len(observed) < 2 || len(observed[0]) < 2 {
		return 0, 0, 0, fmt.Errorf("chi-square: need at least a 2x2 table")
	}
	rowSums := make([]float64, len(observed))
	colSums := make([]float64, len(observed[0]))
	var total float64
	for i, row := range observed {
		if len(row) != len(colSums) {
			return 0, 0, 0, fmt.Errorf("chi-square: ragged table")
		}
		for j, v := range row {
			if v < 0 {
				return 0, 0, 0, fmt.Errorf("chi-square: negative count %v", v)
			}
			rowSums[i] += v
			colSums[j] += v
			total += v
		}
	}
	for _, s := range append(append([]float64(nil), rowSums...), colSums...) {
		if s == 0 {
			return 0, 0, 0, fmt.Errorf("chi-square: a row or column has no observations")
		}
	}

	for i, row := range observed {
		for j, v := range row {
			expected := rowSums[i] * colSums[j] / total
			d := v - expected
			statistic += d * d / expected
		}
	}
	df = (len(rowSums) - 1) * (len(colSums) - 1)
	p = distuv.ChiSquared{K: float64(df)}.Survival(statistic)
	return statistic, df, p, nil
}
