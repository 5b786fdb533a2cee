package stats

import (
	"fmt"
	"strconv"
)

// labels assigns dense indices to category names in order of first appearance
type labels struct {
	names []string
	pos   map[string]int
}

func newLabels() *labels {
	return &labels{pos: map[string]int{}}
}

func (l *labels) index(name string) int {
	if i, ok := l.pos[name]; ok {
		return i
	}
	l.pos[name] = len(l.names)
	l.names = append(l.names, name)
	return len(l.names) - 1
}

func label(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}
