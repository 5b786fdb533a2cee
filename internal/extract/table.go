package extract

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
)

// Record is one output row. Its columns are shared with the Table it belongs to.
type Record struct {
	columns []string
	values  []any
}

// NewRecord pairs column names with values. Missing trailing values are nil.
func NewRecord(columns []string, values []any) Record {
	v := make([]any, len(columns))
	copy(v, values)
	return Record{columns: columns, values: v}
}

// Columns returns the record's column names in order
func (r Record) Columns() []string { return r.columns }

// Values returns the record's values in column order
func (r Record) Values() []any { return r.values }

// Get returns the value of a column and whether the column exists
func (r Record) Get(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

// Map returns the record as a plain map
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

// MarshalJSON writes the record as an object with keys in column order
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v := r.values[i]
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			v = nil
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Table is an ordered list of uniformly shaped records
type Table struct {
	Columns []string
	Records []Record
}

// NewTable returns an empty table with the given columns
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Append adds a row given as values in column order
func (t *Table) Append(values ...any) {
	t.Records = append(t.Records, NewRecord(t.Columns, values))
}

// Len returns the number of records
func (t *Table) Len() int { return len(t.Records) }

// HasColumn reports whether the table declares a column
func (t *Table) HasColumn(name string) bool {
	return t.columnIndex(name) >= 0
}

func (t *Table) columnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns every value of a column, or nil when the column is unknown
func (t *Table) Column(name string) []any {
	idx := t.columnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]any, len(t.Records))
	for i, r := range t.Records {
		out[i] = r.values[idx]
	}
	return out
}

// Floats returns the numeric values of a column, skipping values that are not
// numbers or numeric strings
func (t *Table) Floats(name string) []float64 {
	var out []float64
	for _, v := range t.Column(name) {
		if f, err := coerce(v, TypeNumber); err == nil {
			out = append(out, f.(float64))
		}
	}
	return out
}

// Strings returns the string form of every non-nil value of a column
func (t *Table) Strings(name string) []string {
	var out []string
	for _, v := range t.Column(name) {
		if v == nil {
			continue
		}
		if s, err := toString(v); err == nil {
			out = append(out, s.(string))
		}
	}
	return out
}

// Filter returns a table holding the records keep accepts
func (t *Table) Filter(keep func(Record) bool) *Table {
	out := NewTable(t.Columns...)
	for _, r := range t.Records {
		if keep(r) {
			out.Records = append(out.Records, NewRecord(out.Columns, r.values))
		}
	}
	return out
}

// Equals returns a predicate matching records whose column equals value
func Equals(column string, value any) func(Record) bool {
	return func(r Record) bool {
		v, ok := r.Get(column)
		return ok && v == value
	}
}

// NotEquals returns a predicate matching records whose column differs from value
func NotEquals(column string, value any) func(Record) bool {
	eq := Equals(column, value)
	return func(r Record) bool { return !eq(r) }
}

// MarshalJSON writes the table as an array of ordered objects
func (t *Table) MarshalJSON() ([]byte, error) {
	if t.Records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.Records)
}

// Stack concatenates tables that share a column layout, prefixing each row
// with a key column naming the table it came from. Tables whose columns differ
// from the first one contribute their values by column name.
func Stack(keyColumn string, keys []string, tables []*Table) *Table {
	var base []string
	for _, t := range tables {
		if t != nil {
			base = t.Columns
			break
		}
	}
	out := NewTable(append([]string{keyColumn}, base...)...)
	for i, t := range tables {
		if t == nil || i >= len(keys) {
			continue
		}
		for _, r := range t.Records {
			vals := make([]any, 0, len(out.Columns))
			vals = append(vals, keys[i])
			for _, c := range base {
				v, _ := r.Get(c)
				vals = append(vals, v)
			}
			out.Append(vals...)
		}
	}
	return out
}

// LeftJoin adds columns from right to every record of left whose leftKey equals
// a record's rightKey in right. take maps right column names to output column
// names; unmatched records get missing for every taken column. The first
// matching right record wins. Keys that are null or not comparable, such as
// mappings and sequences, never match.
func LeftJoin(left, right *Table, leftKey, rightKey string, take [][2]string, missing any) *Table {
	index := make(map[any]Record, right.Len())
	for _, r := range right.Records {
		k, _ := r.Get(rightKey)
		if !joinable(k) {
			continue
		}
		if _, dup := index[k]; !dup {
			index[k] = r
		}
	}

	cols := append([]string(nil), left.Columns...)
	for _, tk := range take {
		cols = append(cols, tk[1])
	}
	out := NewTable(cols...)
	for _, l := range left.Records {
		vals := append(make([]any, 0, len(cols)), l.values...)
		var match Record
		ok := false
		if k, _ := l.Get(leftKey); joinable(k) {
			match, ok = index[k]
		}
		for _, tk := range take {
			if !ok {
				vals = append(vals, missing)
				continue
			}
			v, _ := match.Get(tk[0])
			vals = append(vals, v)
		}
		out.Append(vals...)
	}
	return out
}

func joinable(k any) bool {
	return k != nil && reflect.ValueOf(k).Comparable()
}
