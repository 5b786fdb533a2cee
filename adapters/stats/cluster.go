package stats

import (
	"fmt"
	"math"
	"strings"

	mfstats "github.com/montanaflynn/stats"
)

// Linkage selects how the distance between merged clusters is updated
type Linkage string

const (
	// LinkageWard merges the pair with the smallest increase in within-cluster variance
	LinkageWard Linkage = "ward"
	// LinkageAverage merges the pair with the smallest mean pairwise distance
	LinkageAverage Linkage = "average"
)

// ParseLinkage maps a linkage name to a Linkage. The empty string means Ward.
func ParseLinkage(s string) (Linkage, error) {
	switch Linkage(strings.ToLower(strings.TrimSpace(s))) {
	case "", LinkageWard:
		return LinkageWard, nil
	case LinkageAverage:
		return LinkageAverage, nil
	}
	return "", fmt.Errorf("cluster: unknown linkage %q", s)
}

// Agglomerative clusters the rows of m into k groups on Euclidean distance.
// Missing cells count as 0. Cluster distances follow the Lance-Williams update
// of the chosen linkage; Ward works on squared distances. Ties merge the
// earliest pair. Labels are numbered in order of first appearance.
func Agglomerative(m *Matrix, k int, linkage Linkage) ([]int, error) {
	n := len(m.Rows)
	if k < 1 || k > n {
		return nil, fmt.Errorf("cluster: k must be between 1 and %d, got %d", n, k)
	}
	if linkage != LinkageWard && linkage != LinkageAverage {
		return nil, fmt.Errorf("cluster: unknown linkage %q", linkage)
	}

	dist, err := distances(m, linkage == LinkageWard)
	if err != nil {
		return nil, err
	}

	size := make([]float64, n)
	members := make([][]int, n)
	active := make([]int, n)
	for i := range active {
		size[i] = 1
		members[i] = []int{i}
		active[i] = i
	}

	for len(active) > k {
		bx, by, best := 0, 1, math.Inf(1)
		for x := 0; x < len(active); x++ {
			for y := x + 1; y < len(active); y++ {
				if d := dist[active[x]][active[y]]; d < best {
					bx, by, best = x, y, d
				}
			}
		}

		i, j := active[bx], active[by]
		for _, o := range active {
			if o == i || o == j {
				continue
			}
			var d float64
			switch linkage {
			case LinkageWard:
				d = ((size[i]+size[o])*dist[o][i] + (size[j]+size[o])*dist[o][j] - size[o]*dist[i][j]) /
					(size[i] + size[j] + size[o])
			case LinkageAverage:
				d = (size[i]*dist[o][i] + size[j]*dist[o][j]) / (size[i] + size[j])
			}
			dist[o][i], dist[i][o] = d, d
		}
		size[i] += size[j]
		members[i] = append(members[i], members[j]...)
		active = append(active[:by], active[by+1:]...)
	}

	member := make([]int, n)
	for c, id := range active {
		for _, r := range members[id] {
			member[r] = c
		}
	}
	labels := make([]int, n)
	renumber := map[int]int{}
	for i, c := range member {
		if _, ok := renumber[c]; !ok {
			renumber[c] = len(renumber)
		}
		labels[i] = renumber[c]
	}
	return labels, nil
}

// distances returns the pairwise Euclidean distance matrix, squared when asked
func distances(m *Matrix, squared bool) ([][]float64, error) {
	n := len(m.Rows)
	points := make([]mfstats.Float64Data, n)
	for i, row := range m.Values {
		p := make(mfstats.Float64Data, len(row))
		for j, v := range row {
			if !math.IsNaN(v) {
				p[j] = v
			}
		}
		points[i] = p
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	if len(m.Columns) == 0 {
		return dist, nil
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, err := mfstats.EuclideanDistance(points[i], points[j])
			if err != nil {
				return nil, fmt.Errorf("cluster: %w", err)
			}
			if squared {
				d *= d
			}
			dist[i][j], dist[j][i] = d, d
		}
	}
	return dist, nil
}
