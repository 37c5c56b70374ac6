// Package requirements turns user input into dataset.Requirements, either from a
// structured YAML/JSON document or from free text through a Parser.
package requirements

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shpitdev/synthdata/pkg/dataset"
	"gopkg.in/yaml.v3"
)

// DefaultNumEntries is used when a document or parser omits num_entries.
const DefaultNumEntries = 1000

// ErrUnparseable marks input that could not be turned into valid requirements.
var ErrUnparseable = errors.New("requirements could not be parsed")

// Parser extracts requirements from a free-text description.
type Parser interface {
	Parse(ctx context.Context, text string) (dataset.Requirements, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(ctx context.Context, text string) (dataset.Requirements, error)

func (f ParserFunc) Parse(ctx context.Context, text string) (dataset.Requirements, error) {
	return f(ctx, text)
}

// Document is the on-disk and on-wire shape of a requirements file. NumEntries is a
// pointer so an explicit zero can be told apart from an omitted count.
type Document struct {
	Domain     string              `json:"domain" yaml:"domain"`
	NumEntries *int                `json:"num_entries,omitempty" yaml:"num_entries,omitempty"`
	Fields     []dataset.FieldSpec `json:"fields" yaml:"fields"`
}

// Requirements applies defaults, normalizes and validates the document.
func (d Document) Requirements() (dataset.Requirements, error) {
	n := DefaultNumEntries
	if d.NumEntries != nil {
		n = *d.NumEntries
	}
	reqs := dataset.Requirements{
		Domain:     d.Domain,
		NumEntries: n,
		Fields:     d.Fields,
	}.Normalize()
	if err := reqs.Validate(); err != nil {
		return dataset.Requirements{}, fmt.Errorf("%w: %w", ErrUnparseable, err)
	}
	return reqs, nil
}

// Decode reads a YAML or JSON requirements document. Unknown keys are rejected.
func Decode(r io.Reader) (dataset.Requirements, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return dataset.Requirements{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return dataset.Requirements{}, fmt.Errorf("%w: empty document", ErrUnparseable)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return dataset.Requirements{}, fmt.Errorf("%w: %w", ErrUnparseable, err)
	}
	return doc.Requirements()
}

// LoadFile reads a requirements document from path.
func LoadFile(path string) (dataset.Requirements, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return dataset.Requirements{}, fmt.Errorf("requirements path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return dataset.Requirements{}, err
	}
	defer func() {
		_ = f.Close()
	}()
	reqs, err := Decode(f)
	if err != nil {
		return dataset.Requirements{}, fmt.Errorf("%s: %w", path, err)
	}
	return reqs, nil
}

// Marshal renders requirements as a YAML document that Decode accepts.
func Marshal(reqs dataset.Requirements) ([]byte, error) {
	n := reqs.NumEntries
	doc := Document{Domain: reqs.Domain, NumEntries: &n, Fields: reqs.Fields}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
