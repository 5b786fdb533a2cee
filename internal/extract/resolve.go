package extract

// Binding is one traversal branch of a path through a document. Indices and
// Elements hold one entry per wildcard crossed, so two paths sharing a wildcard
// prefix can be paired element by element.
type Binding struct {
	Indices  []int
	Elements []any
	Value    any
	Present  bool
}

// Resolve walks path through doc and returns every branch it reaches.
//
// A path without wildcards always yields exactly one binding. A wildcard that
// lands on anything but a sequence ends its branch without a binding. Missing
// keys, scalars where a mapping was expected and out-of-range indices produce an
// absent binding; none of these are errors.
func Resolve(doc any, path FieldPath) []Binding {
	var out []Binding
	resolveFrom(doc, true, path, nil, nil, &out)
	return out
}

func resolveFrom(cur any, present bool, path FieldPath, indices []int, elems []any, out *[]Binding) {
	for i, seg := range path {
		if seg.Kind == SegmentWildcard {
			if !present {
				return
			}
			seq, ok := cur.([]any)
			if !ok {
				return
			}
			rest := path[i+1:]
			for idx, el := range seq {
				resolveFrom(el, true, rest, append(clip(indices), idx), append(clipAny(elems), el), out)
			}
			return
		}
		if present {
			cur, present = step(cur, seg)
		}
	}
	if present && cur == nil {
		present = false
	}
	*out = append(*out, Binding{Indices: indices, Elements: elems, Value: cur, Present: present})
}

// step applies a single key or index segment.
func step(cur any, seg Segment) (any, bool) {
	switch seg.Kind {
	case SegmentKey:
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg.Key]
		return v, ok
	case SegmentIndex:
		seq, ok := cur.([]any)
		if !ok || seg.Index >= len(seq) {
			return nil, false
		}
		return seq[seg.Index], true
	}
	return nil, false
}

// lookup follows a wildcard-free path. A JSON null counts as absent.
func lookup(cur any, path FieldPath) (any, bool) {
	for _, seg := range path {
		var ok bool
		if cur, ok = step(cur, seg); !ok {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

func clip(s []int) []int     { return s[:len(s):len(s)] }
func clipAny(s []any) []any { return s[:len(s):len(s)] }
