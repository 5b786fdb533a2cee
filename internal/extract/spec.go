package extract

import (
	"strings"
)

// Definition declares one output column in textual form. It is the unit the
// spec builder, the CLI spec files and the HTTP API all share.
type Definition struct {
	Name    string     `json:"name"`
	Path    string     `json:"path"`
	Default any        `json:"default,omitempty"`
	Type    ColumnType `json:"type,omitempty"`
}

// Column is a compiled output column
type Column struct {
	Name    string
	Path    FieldPath
	Default any
	Type    ColumnType
}

// EmptyScopePolicy decides what a wildcard scope contributes when its sequence
// is missing, not a sequence, or empty.
type EmptyScopePolicy int

const (
	// EmptyScopeDrop contributes no rows, like a nested loop over nothing
	EmptyScopeDrop EmptyScopePolicy = iota
	// EmptyScopePad contributes one row holding the defaults of every column in
	// the scope and the scopes nested under it
	EmptyScopePad
)

// Spec is a compiled, immutable extraction spec. It is safe for concurrent use.
type Spec struct {
	columns []Column
	names   []string
	root    *scope
	empty   EmptyScopePolicy
}

// scope is a wildcard prefix shared by one or more columns. Columns in the same
// scope are read from the same sequence element.
type scope struct {
	path     FieldPath
	rel      FieldPath
	columns  []boundColumn
	children []*scope
}

type boundColumn struct {
	index int
	tail  FieldPath
}

// Compile parses textual definitions into a Spec
func Compile(defs ...Definition) (*Spec, error) {
	cols := make([]Column, 0, len(defs))
	for _, d := range defs {
		if strings.TrimSpace(d.Name) == "" {
			return nil, &SpecError{Path: d.Path, Reason: "column name is empty"}
		}
		p, err := ParsePath(d.Path)
		if err != nil {
			return nil, withColumn(err, d.Name)
		}
		cols = append(cols, Column{Name: d.Name, Path: p, Default: d.Default, Type: d.Type})
	}
	return NewSpec(cols...)
}

// MustCompile is like Compile but panics on error. Use it for specs fixed at
// build time.
func MustCompile(defs ...Definition) *Spec {
	s, err := Compile(defs...)
	if err != nil {
		panic(err)
	}
	return s
}

// NewSpec validates columns and builds their scope plan
func NewSpec(columns ...Column) (*Spec, error) {
	if len(columns) == 0 {
		return nil, &SpecError{Reason: "spec declares no columns"}
	}

	s := &Spec{
		columns: make([]Column, len(columns)),
		names:   make([]string, len(columns)),
		root:    &scope{},
	}
	seen := make(map[string]bool, len(columns))
	for i, c := range columns {
		if strings.TrimSpace(c.Name) == "" {
			return nil, &SpecError{Path: c.Path.String(), Reason: "column name is empty"}
		}
		if seen[c.Name] {
			return nil, &SpecError{Column: c.Name, Reason: "duplicate column name"}
		}
		seen[c.Name] = true

		if err := c.Path.validate(); err != nil {
			return nil, withColumn(err, c.Name)
		}
		typ, err := ParseColumnType(string(c.Type))
		if err != nil {
			return nil, &SpecError{Column: c.Name, Reason: err.Error()}
		}
		c.Type = typ
		if c.Default != nil {
			def, err := coerce(c.Default, c.Type)
			if err != nil {
				return nil, &SpecError{Column: c.Name, Reason: "default does not fit column type: " + err.Error()}
			}
			c.Default = def
		}
		c.Path = append(FieldPath(nil), c.Path...)

		s.columns[i] = c
		s.names[i] = c.Name
		s.root.attach(i, c.Path)
	}
	return s, nil
}

// attach places a column in the scope of its longest wildcard prefix, creating
// intermediate scopes on the way.
func (sc *scope) attach(index int, path FieldPath) {
	cur := sc
	start := 0
	for i, seg := range path {
		if seg.Kind != SegmentWildcard {
			continue
		}
		prefix := path[:i+1]
		cur = cur.child(prefix, path[start:i])
		start = i + 1
	}
	cur.columns = append(cur.columns, boundColumn{index: index, tail: path[start:]})
}

func (sc *scope) child(prefix, rel FieldPath) *scope {
	for _, c := range sc.children {
		if c.path.Equal(prefix) {
			return c
		}
	}
	c := &scope{path: prefix, rel: rel}
	sc.children = append(sc.children, c)
	return c
}

// Columns returns the output column names in declaration order
func (s *Spec) Columns() []string {
	return append([]string(nil), s.names...)
}

// Definitions returns the compiled columns
func (s *Spec) Definitions() []Column {
	return append([]Column(nil), s.columns...)
}

// WithEmptyScopes returns a copy of the spec using the given empty scope policy
func (s *Spec) WithEmptyScopes(p EmptyScopePolicy) *Spec {
	cp := *s
	cp.empty = p
	return &cp
}

// EmptyScopes reports the spec's empty scope policy
func (s *Spec) EmptyScopes() EmptyScopePolicy {
	return s.empty
}

// ScopeInfo describes one co-iteration group of a spec
type ScopeInfo struct {
	Path    string
	Depth   int
	Columns []string
}

// Scopes lists the spec's co-iteration groups depth first. The root scope holds
// wildcard-free columns and has an empty Path.
func (s *Spec) Scopes() []ScopeInfo {
	var out []ScopeInfo
	var walk func(sc *scope, depth int)
	walk = func(sc *scope, depth int) {
		info := ScopeInfo{Path: sc.path.String(), Depth: depth}
		for _, bc := range sc.columns {
			info.Columns = append(info.Columns, s.names[bc.index])
		}
		out = append(out, info)
		for _, c := range sc.children {
			walk(c, depth+1)
		}
	}
	walk(s.root, 0)
	return out
}

// Cartesian reports whether any two scopes are independent siblings, in which
// case their rows combine as a Cartesian product.
func (s *Spec) Cartesian() bool {
	var walk func(sc *scope) bool
	walk = func(sc *scope) bool {
		if len(sc.children) > 1 {
			return true
		}
		for _, c := range sc.children {
			if walk(c) {
				return true
			}
		}
		return false
	}
	return walk(s.root)
}
