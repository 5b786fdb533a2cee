package docstore

import (
	"fmt"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const (
	previewKeys  = 5
	previewChars = 300
)

// KeySummary describes one top-level key of a study document
type KeySummary struct {
	Key      string   `json:"key"`
	Kind     string   `json:"kind"`
	Children []string `json:"children,omitempty"`
	Length   int      `json:"length,omitempty"`
	Preview  string   `json:"preview,omitempty"`
}

// Inspect summarizes the top-level structure of a raw JSON document without
// decoding it fully: child key preview for objects, element count for arrays,
// truncated value for scalars.
func Inspect(raw []byte) ([]KeySummary, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("document is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, fmt.Errorf("document root is %s, want object", kindOfResult(root))
	}

	var out []KeySummary
	root.ForEach(func(key, value gjson.Result) bool {
		s := KeySummary{Key: key.String(), Kind: kindOfResult(value)}
		switch {
		case value.IsObject():
			value.ForEach(func(k, _ gjson.Result) bool {
				s.Children = append(s.Children, k.String())
				return len(s.Children) < previewKeys
			})
		case value.IsArray():
			s.Length = len(value.Array())
			if s.Length > 0 {
				s.Preview = truncate(value.Array()[0].Raw, previewChars)
			}
		default:
			s.Preview = truncate(value.String(), previewChars)
		}
		out = append(out, s)
		return true
	})
	return out, nil
}

func kindOfResult(r gjson.Result) string {
	switch r.Type {
	case gjson.Null:
		return "null"
	case gjson.False, gjson.True:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	}
	if r.IsArray() {
		return "array"
	}
	return "object"
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
