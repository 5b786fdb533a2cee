package stats

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"trialtab/internal/extract"
)

// Matrix is a labelled numeric grid. Missing cells hold NaN.
type Matrix struct {
	Rows    []string    `json:"rows"`
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// Column returns one column of the matrix
func (m *Matrix) Column(j int) []float64 {
	out := make([]float64, len(m.Rows))
	for i := range m.Rows {
		out[i] = m.Values[i][j]
	}
	return out
}

// Pivot spreads valueColumn into a matrix indexed by indexColumn with one
// column per distinct columnsColumn value, averaging duplicates
func Pivot(t *extract.Table, indexColumn, columnsColumn, valueColumn string) (*Matrix, error) {
	for _, c := range []string{indexColumn, columnsColumn, valueColumn} {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("pivot: unknown column %q", c)
		}
	}

	rows, cols := newLabels(), newLabels()
	sums := map[[2]int]float64{}
	counts := map[[2]int]int{}
	for _, r := range t.Records {
		iv, _ := r.Get(indexColumn)
		cv, _ := r.Get(columnsColumn)
		vv, _ := r.Get(valueColumn)
		f, ok := number(vv)
		if iv == nil || cv == nil || !ok {
			continue
		}
		k := [2]int{rows.index(label(iv)), cols.index(label(cv))}
		sums[k] += f
		counts[k]++
	}

	m := &Matrix{Rows: rows.names, Columns: cols.names, Values: make([][]float64, len(rows.names))}
	for i := range m.Values {
		m.Values[i] = make([]float64, len(cols.names))
		for j := range m.Values[i] {
			k := [2]int{i, j}
			if counts[k] == 0 {
				m.Values[i][j] = math.NaN()
				continue
			}
			m.Values[i][j] = sums[k] / float64(counts[k])
		}
	}
	return m, nil
}

// CorrelationMatrix returns Pearson correlations between the columns of m,
// each pair computed over the rows where both are present. Pairs with fewer
// than two shared rows or no variance are NaN.
func CorrelationMatrix(m *Matrix) *Matrix {
	n := len(m.Columns)
	out := &Matrix{
		Rows:    append([]string(nil), m.Columns...),
		Columns: append([]string(nil), m.Columns...),
		Values:  make([][]float64, n),
	}
	for i := range out.Values {
		out.Values[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			x, y := pairwiseComplete(m.Column(i), m.Column(j))
			r := math.NaN()
			if len(x) >= 2 {
				r = stat.Correlation(x, y, nil)
			}
			out.Values[i][j], out.Values[j][i] = r, r
		}
	}
	return out
}

func pairwiseComplete(a, b []float64) ([]float64, []float64) {
	var x, y []float64
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	return x, y
}

// MarshalJSON writes missing cells as null
func (m *Matrix) MarshalJSON() ([]byte, error) {
	values := make([][]any, len(m.Values))
	for i, row := range m.Values {
		values[i] = make([]any, len(row))
		for j, v := range row {
			values[i][j] = nullable(v)
		}
	}
	return json.Marshal(struct {
		Rows    []string `json:"rows"`
		Columns []string `json:"columns"`
		Values  [][]any  `json:"values"`
	}{m.Rows, m.Columns, values})
}

func nullable(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
