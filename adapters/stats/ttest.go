package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"trialtab/internal/extract"
)

// TTestMethod names the variance assumption of a two-sample t-test
type TTestMethod string

const (
	// TTestStudent pools the two variances (equal variance assumed)
	TTestStudent TTestMethod = "student"
	// TTestWelch keeps the variances apart
	TTestWelch TTestMethod = "welch"
)

// TTestResult is the outcome of a two-sample t-test
type TTestResult struct {
	Method TTestMethod `json:"method"`
	T      float64     `json:"t"`
	DF     float64     `json:"df"`
	P      float64     `json:"p"`
	MeanA  float64     `json:"mean_a"`
	MeanB  float64     `json:"mean_b"`
	NA     int         `json:"n_a"`
	NB     int         `json:"n_b"`
}

// TTest compares the means of two samples, omitting NaN. Welch's test is used
// when welch is set, the pooled-variance Student test otherwise. The p-value
// is two-sided.
func TTest(a, b []float64, welch bool) (TTestResult, error) {
	if welch {
		return WelchTTest(a, b)
	}
	return StudentTTest(a, b)
}

// StudentTTest is the pooled-variance two-sample t-test with n1+n2-2 degrees
// of freedom
func StudentTTest(a, b []float64) (TTestResult, error) {
	x, y, err := tTestSamples(a, b)
	if err != nil {
		return TTestResult{}, err
	}

	n1, n2 := float64(len(x)), float64(len(y))
	m1, v1 := stat.MeanVariance(x, nil)
	m2, v2 := stat.MeanVariance(y, nil)
	df := n1 + n2 - 2
	pooled := ((n1-1)*v1 + (n2-1)*v2) / df
	if pooled == 0 {
		return TTestResult{}, fmt.Errorf("t-test: both groups have zero variance")
	}

	t := (m1 - m2) / math.Sqrt(pooled*(1/n1+1/n2))
	return TTestResult{
		Method: TTestStudent, T: t, DF: df, P: twoSided(t, df),
		MeanA: m1, MeanB: m2, NA: len(x), NB: len(y),
	}, nil
}

// WelchTTest is the unequal-variance two-sample t-test with
// Welch-Satterthwaite degrees of freedom
func WelchTTest(a, b []float64) (TTestResult, error) {
	x, y, err := tTestSamples(a, b)
	if err != nil {
		return TTestResult{}, err
	}

	n1, n2 := float64(len(x)), float64(len(y))
	m1, v1 := stat.MeanVariance(x, nil)
	m2, v2 := stat.MeanVariance(y, nil)
	se2 := v1/n1 + v2/n2
	if se2 == 0 {
		return TTestResult{}, fmt.Errorf("t-test: both groups have zero variance")
	}

	t := (m1 - m2) / math.Sqrt(se2)
	df := se2 * se2 / ((v1/n1)*(v1/n1)/(n1-1) + (v2/n2)*(v2/n2)/(n2-1))
	return TTestResult{
		Method: TTestWelch, T: t, DF: df, P: twoSided(t, df),
		MeanA: m1, MeanB: m2, NA: len(x), NB: len(y),
	}, nil
}

func tTestSamples(a, b []float64) ([]float64, []float64, error) {
	x, y := finite(a), finite(b)
	if len(x) < 2 || len(y) < 2 {
		return nil, nil, fmt.Errorf("t-test: each group needs at least 2 values, got %d and %d", len(x), len(y))
	}
	return x, y, nil
}

func twoSided(t, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(t))
}

// GroupTTest splits a table on groupColumn and compares valueColumn between
// the records of groupA and groupB
func GroupTTest(t *extract.Table, valueColumn, groupColumn, groupA, groupB string, welch bool) (TTestResult, error) {
	for _, c := range []string{valueColumn, groupColumn} {
		if !t.HasColumn(c) {
			return TTestResult{}, fmt.Errorf("t-test: unknown column %q", c)
		}
	}
	a := t.Filter(extract.Equals(groupColumn, groupA)).Floats(valueColumn)
	b := t.Filter(extract.Equals(groupColumn, groupB)).Floats(valueColumn)
	return TTest(a, b, welch)
}
