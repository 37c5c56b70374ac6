package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shpitdev/synthdata/pkg/dataset"
)

// writeJSON emits an array of records. Keys follow column order, which encoding/json
// maps cannot guarantee, so objects are assembled by hand.
func writeJSON(w io.Writer, ds *dataset.Dataset) error {
	bw := bufio.NewWriter(w)
	keys := make([][]byte, len(ds.Columns))
	for j, c := range ds.Columns {
		k, err := json.Marshal(c.Name)
		if err != nil {
			return err
		}
		keys[j] = k
	}

	_ = bw.WriteByte('[')
	for i := 0; i < ds.Len(); i++ {
		if i > 0 {
			_ = bw.WriteByte(',')
		}
		_ = bw.WriteByte('{')
		for j, c := range ds.Columns {
			if j > 0 {
				_ = bw.WriteByte(',')
			}
			_, _ = bw.Write(keys[j])
			_ = bw.WriteByte(':')
			v, err := json.Marshal(jsonValue(c.Values[i], c.Type))
			if err != nil {
				return fmt.Errorf("column %q row %d: %w", c.Name, i, err)
			}
			_, _ = bw.Write(v)
		}
		_ = bw.WriteByte('}')
	}
	_ = bw.WriteByte(']')
	return bw.Flush()
}

func jsonValue(v any, kind dataset.FieldType) any {
	if t, ok := v.(time.Time); ok {
		return FormatValue(t, kind)
	}
	return v
}

func readJSON(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}
	t := &Table{}
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		var keys, vals []string
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := tok.(string)
			if !ok {
				return nil, fmt.Errorf("expected object key, got %v", tok)
			}
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("value for %q: %w", key, err)
			}
			keys = append(keys, key)
			vals = append(vals, rawText(raw))
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		if t.Header == nil {
			t.Header = keys
		} else if len(keys) != len(t.Header) {
			return nil, fmt.Errorf("record %d has %d keys, want %d", len(t.Rows)+1, len(keys), len(t.Header))
		}
		t.Rows = append(t.Rows, vals)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return t, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func rawText(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "null" {
		return ""
	}
	if strings.HasPrefix(s, `"`) {
		var out string
		if err := json.Unmarshal(raw, &out); err == nil {
			return out
		}
	}
	return s
}
