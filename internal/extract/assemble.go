package extract

import (
	"iter"
)

// CoercionWarning records a present value that did not fit its column type
// and was replaced by the column default.
type CoercionWarning struct {
	Row    int        `json:"row"`
	Column string     `json:"column"`
	Value  any        `json:"value"`
	Type   ColumnType `json:"type"`
	Reason string     `json:"reason"`
}

// Diagnostics collects non-fatal findings of one extraction
type Diagnostics struct {
	Coercions []CoercionWarning `json:"coercions,omitempty"`
	// Absent counts, per column, the bindings in which the column fell back to
	// its default because the value was missing. A value of an outer scope is
	// read once per element, not once per row beneath it.
	Absent map[string]int `json:"absent,omitempty"`
}

// Coerced reports whether a given row had at least one coercion warning
func (d *Diagnostics) Coerced(row int) bool {
	for _, w := range d.Coercions {
		if w.Row == row {
			return true
		}
	}
	return false
}

// Assemble flattens doc into a table according to spec
func Assemble(doc any, spec *Spec) *Table {
	t, _ := assemble(doc, spec, nil)
	return t
}

// AssembleWithDiagnostics is Assemble that also reports coercions and absences
func AssembleWithDiagnostics(doc any, spec *Spec) (*Table, *Diagnostics) {
	diag := &Diagnostics{}
	return assemble(doc, spec, diag)
}

func assemble(doc any, spec *Spec, diag *Diagnostics) (*Table, *Diagnostics) {
	t := NewTable(spec.names...)
	for r := range Stream(doc, spec, diag) {
		t.Records = append(t.Records, Record{columns: t.Columns, values: r.values})
	}
	if t.Records == nil {
		t.Records = []Record{}
	}
	return t, diag
}

// Stream yields the rows of an extraction lazily, in document order. Each
// iteration restarts the traversal. diag may be nil.
func Stream(doc any, spec *Spec, diag *Diagnostics) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		a := &assembler{spec: spec, diag: diag}
		row := make([]any, len(spec.columns))
		a.bind(spec.root, doc, true, row, func(vals []any) bool {
			out := make([]any, len(vals))
			copy(out, vals)
			a.flushPending()
			a.rows++
			return yield(Record{columns: spec.names, values: out})
		})
	}
}

type assembler struct {
	spec    *Spec
	diag    *Diagnostics
	rows    int
	pending []CoercionWarning
	absent  []int
}

// bind assigns the columns of sc from elem and then expands sc's children.
// present is false when sc is being padded for an empty sequence.
func (a *assembler) bind(sc *scope, elem any, present bool, row []any, next func([]any) bool) bool {
	markPending, markAbsent, before := len(a.pending), len(a.absent), a.rows
	for _, bc := range sc.columns {
		row[bc.index] = a.cell(bc, elem, present)
	}
	ok := a.expand(sc.children, 0, elem, present, row, next)
	if a.rows == before {
		// nothing from this binding reached the output
		a.pending = a.pending[:markPending]
		a.absent = a.absent[:markAbsent]
	}
	return ok
}

// expand produces the Cartesian product of the child scopes, in order.
func (a *assembler) expand(children []*scope, i int, elem any, present bool, row []any, next func([]any) bool) bool {
	if i == len(children) {
		return next(row)
	}
	child := children[i]
	rest := func(r []any) bool {
		return a.expand(children, i+1, elem, present, r, next)
	}

	var seq []any
	if present {
		if v, ok := lookup(elem, child.rel); ok {
			seq, _ = v.([]any)
		}
	}
	if len(seq) == 0 {
		if a.spec.empty == EmptyScopePad {
			return a.bind(child, nil, false, row, rest)
		}
		return true
	}
	for _, el := range seq {
		if !a.bind(child, el, true, row, rest) {
			return false
		}
	}
	return true
}

func (a *assembler) cell(bc boundColumn, elem any, present bool) any {
	col := &a.spec.columns[bc.index]
	if !present {
		a.markAbsent(bc.index)
		return col.Default
	}
	v, ok := lookup(elem, bc.tail)
	if !ok {
		a.markAbsent(bc.index)
		return col.Default
	}
	out, err := coerce(v, col.Type)
	if err != nil {
		if a.diag != nil {
			a.pending = append(a.pending, CoercionWarning{
				Column: col.Name,
				Value:  v,
				Type:   col.Type,
				Reason: err.Error(),
			})
		}
		return col.Default
	}
	return out
}

func (a *assembler) markAbsent(index int) {
	if a.diag != nil {
		a.absent = append(a.absent, index)
	}
}

// flushPending attributes the findings gathered since the last emitted row to
// the row about to be emitted. Outer scope cells are computed once and shared
// by the rows beneath them, so findings are charged to the first such row.
func (a *assembler) flushPending() {
	if a.diag == nil {
		return
	}
	for _, w := range a.pending {
		w.Row = a.rows
		a.diag.Coercions = append(a.diag.Coercions, w)
	}
	a.pending = a.pending[:0]
	if len(a.absent) > 0 && a.diag.Absent == nil {
		a.diag.Absent = make(map[string]int)
	}
	for _, idx := range a.absent {
		a.diag.Absent[a.spec.names[idx]]++
	}
	a.absent = a.absent[:0]
}
