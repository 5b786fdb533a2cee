package extract

import (
	"strconv"
	"strings"
)

// SegmentKind identifies how a path segment moves through a document
type SegmentKind int

const (
	// SegmentKey descends into a mapping by key name
	SegmentKey SegmentKind = iota
	// SegmentWildcard iterates every element of a sequence
	SegmentWildcard
	// SegmentIndex selects a single element of a sequence
	SegmentIndex
)

// Segment is one step of a FieldPath
type Segment struct {
	Kind  SegmentKind
	Key   string
	Index int
}

// Key returns a key segment
func Key(name string) Segment {
	return Segment{Kind: SegmentKey, Key: name}
}

// Wildcard returns a wildcard-over-sequence segment
func Wildcard() Segment {
	return Segment{Kind: SegmentWildcard}
}

// Index returns a single-element segment
func Index(i int) Segment {
	return Segment{Kind: SegmentIndex, Index: i}
}

// FieldPath is an ordered sequence of segments describing where a value lives
type FieldPath []Segment

// NewPath validates segments and returns them as a FieldPath
func NewPath(segments ...Segment) (FieldPath, error) {
	p := FieldPath(segments)
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p FieldPath) validate() error {
	if len(p) == 0 {
		return &SpecError{Reason: "path has no segments"}
	}
	for i, seg := range p {
		switch seg.Kind {
		case SegmentKey:
			if seg.Key == "" {
				return &SpecError{Path: p.String(), Reason: "empty key segment"}
			}
		case SegmentWildcard:
			if i > 0 && p[i-1].Kind == SegmentWildcard {
				return &SpecError{Path: p.String(), Reason: "adjacent wildcards without an intervening key"}
			}
		case SegmentIndex:
			if seg.Index < 0 {
				return &SpecError{Path: p.String(), Reason: "negative index"}
			}
		default:
			return &SpecError{Path: p.String(), Reason: "unknown segment kind"}
		}
	}
	return nil
}

// Wildcards returns the number of wildcard segments in the path
func (p FieldPath) Wildcards() int {
	n := 0
	for _, seg := range p {
		if seg.Kind == SegmentWildcard {
			n++
		}
	}
	return n
}

// Equal reports whether both paths have the same segments. Keys holding
// '.' or brackets render ambiguously, so String is not a safe comparison.
func (p FieldPath) Equal(q FieldPath) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// String renders the path in dotted bracket form, e.g. a.b[*].c[0]
func (p FieldPath) String() string {
	var b strings.Builder
	for i, seg := range p {
		switch seg.Kind {
		case SegmentKey:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(seg.Key)
		case SegmentWildcard:
			b.WriteString("[*]")
		case SegmentIndex:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
		}
	}
	return b.String()
}

// ParsePath parses dotted bracket syntax into a FieldPath.
//
//	outcomes.primary[*].measure
//	resultsSection.participantFlowModule.periods[0].milestones[*].type
//	[*].name
//
// Keys may contain any character except '.', '[' and ']'.
func ParsePath(s string) (FieldPath, error) {
	if strings.TrimSpace(s) == "" {
		return nil, &SpecError{Path: s, Reason: "path is empty"}
	}

	var path FieldPath
	i := 0
	expectKey := true
	for i < len(s) {
		switch c := s[i]; {
		case c == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, &SpecError{Path: s, Pos: i, Reason: "unterminated '['"}
			}
			inner := s[i+1 : i+end]
			if strings.ContainsAny(inner, "[.") {
				return nil, &SpecError{Path: s, Pos: i, Reason: "unmatched '['"}
			}
			seg, err := parseBracket(inner)
			if err != nil {
				return nil, &SpecError{Path: s, Pos: i, Reason: err.Error()}
			}
			if seg.Kind == SegmentWildcard && len(path) > 0 && path[len(path)-1].Kind == SegmentWildcard {
				return nil, &SpecError{Path: s, Pos: i, Reason: "adjacent wildcards without an intervening key"}
			}
			path = append(path, seg)
			i += end + 1
			expectKey = false
		case c == ']':
			return nil, &SpecError{Path: s, Pos: i, Reason: "unmatched ']'"}
		case c == '.':
			if expectKey {
				return nil, &SpecError{Path: s, Pos: i, Reason: "empty key segment"}
			}
			i++
			if i == len(s) {
				return nil, &SpecError{Path: s, Pos: i, Reason: "path ends with '.'"}
			}
			expectKey = true
		default:
			if !expectKey {
				return nil, &SpecError{Path: s, Pos: i, Reason: "expected '.' or '[' after ']'"}
			}
			end := strings.IndexAny(s[i:], ".[]")
			if end < 0 {
				end = len(s) - i
			}
			path = append(path, Key(s[i:i+end]))
			i += end
			expectKey = false
		}
	}
	return path, nil
}

func parseBracket(inner string) (Segment, error) {
	if inner == "*" {
		return Wildcard(), nil
	}
	n, err := strconv.Atoi(inner)
	if err != nil || n < 0 || inner == "" || strings.HasPrefix(inner, "+") {
		return Segment{}, errBracket(inner)
	}
	return Index(n), nil
}

type bracketError string

func (e bracketError) Error() string {
	return "bracket must hold '*' or a non-negative index, got [" + string(e) + "]"
}

func errBracket(inner string) error { return bracketError(inner) }

// MustParsePath is like ParsePath but panics on error
func MustParsePath(s string) FieldPath {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}
