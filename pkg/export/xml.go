package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/shpitdev/synthdata/pkg/dataset"
)

const (
	xmlRoot = "root"
	xmlRow  = "row"
)

// writeXML emits <root><row><Field>value</Field>...</row>...</root>.
func writeXML(w io.Writer, ds *dataset.Dataset) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	names := make([]xml.Name, len(ds.Columns))
	for j, local := range XMLNames(ds.Header()) {
		names[j] = xml.Name{Local: local}
	}

	root := xml.StartElement{Name: xml.Name{Local: xmlRoot}}
	row := xml.StartElement{Name: xml.Name{Local: xmlRow}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	for i := 0; i < ds.Len(); i++ {
		if err := enc.EncodeToken(row); err != nil {
			return err
		}
		for j, c := range ds.Columns {
			el := xml.StartElement{Name: names[j]}
			if err := enc.EncodeToken(el); err != nil {
				return err
			}
			if err := enc.EncodeToken(xml.CharData(FormatValue(c.Values[i], c.Type))); err != nil {
				return err
			}
			if err := enc.EncodeToken(el.End()); err != nil {
				return err
			}
		}
		if err := enc.EncodeToken(row.End()); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	return enc.Flush()
}

// XMLName turns a field name into a valid XML element name. Invalid characters become
// underscores and a leading non-letter gets an underscore prefix.
func XMLName(name string) string {
	var b strings.Builder
	for i, r := range name {
		valid := unicode.IsLetter(r) || r == '_' ||
			(i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.'))
		if valid {
			b.WriteRune(r)
			continue
		}
		if i == 0 && (unicode.IsDigit(r) || r == '-' || r == '.') {
			b.WriteRune('_')
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if out == "" {
		return "_"
	}
	if strings.HasPrefix(strings.ToLower(out), "xml") {
		out = "_" + out
	}
	return out
}

// XMLNames applies XMLName to every field and suffixes repeats ("_2", "_3", ...) so each
// element name in a row is unique.
func XMLNames(fields []string) []string {
	out := make([]string, len(fields))
	taken := make(map[string]bool, len(fields))
	for i, f := range fields {
		out[i] = XMLName(f)
		taken[out[i]] = true
	}
	seen := make(map[string]bool, len(fields))
	for i, name := range out {
		if !seen[name] {
			seen[name] = true
			continue
		}
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s_%d", name, n)
			if !taken[candidate] {
				taken[candidate] = true
				seen[candidate] = true
				out[i] = candidate
				break
			}
		}
	}
	return out
}

func readXML(r io.Reader) (*Table, error) {
	dec := xml.NewDecoder(r)
	t := &Table{}
	depth := 0
	var (
		keys, vals []string
		text       strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				if el.Name.Local != xmlRoot {
					return nil, fmt.Errorf("unexpected root element %q", el.Name.Local)
				}
			case 2:
				keys, vals = nil, nil
			case 3:
				keys = append(keys, el.Name.Local)
				text.Reset()
			default:
				return nil, fmt.Errorf("unexpected nested element %q", el.Name.Local)
			}
		case xml.CharData:
			if depth == 3 {
				text.Write(el)
			}
		case xml.EndElement:
			switch depth {
			case 3:
				vals = append(vals, text.String())
			case 2:
				if t.Header == nil {
					t.Header = keys
				} else if len(keys) != len(t.Header) {
					return nil, fmt.Errorf("row %d has %d fields, want %d", len(t.Rows)+1, len(keys), len(t.Header))
				}
				t.Rows = append(t.Rows, vals)
			}
			depth--
		}
	}
	return t, nil
}
