package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Document is one loaded study record
type Document struct {
	ID       string
	Root     any
	Raw      []byte
	LoadedAt time.Time
}

// Decode parses a JSON study export into the mapping/sequence/scalar model the
// extractor walks. Numbers stay json.Number so large identifiers keep their digits.
func Decode(id string, raw []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode %s: trailing data after JSON value", id)
	}

	return &Document{
		ID:       id,
		Root:     root,
		Raw:      raw,
		LoadedAt: time.Now(),
	}, nil
}
