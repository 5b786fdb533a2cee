package extract

import (
	"fmt"
	"strings"
)

// SpecError reports a malformed extraction spec. It is only ever returned while
// a spec is being built, never while a document is being extracted.
type SpecError struct {
	Column string
	Path   string
	Pos    int
	Reason string
}

func (e *SpecError) Error() string {
	var b strings.Builder
	b.WriteString("invalid extraction spec")
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %q", e.Column)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, ": path %q", e.Path)
		if e.Pos > 0 {
			fmt.Fprintf(&b, " at offset %d", e.Pos)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

func withColumn(err error, column string) error {
	if se, ok := err.(*SpecError); ok {
		cp := *se
		cp.Column = column
		return &cp
	}
	return err
}
