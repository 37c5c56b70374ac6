package export

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/shpitdev/synthdata/pkg/dataset"
	"github.com/vmihailenco/msgpack/v5"
)

// writeMsgpack emits an array of maps, one per row, with keys in column order.
func writeMsgpack(w io.Writer, ds *dataset.Dataset) error {
	bw := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(bw)
	if err := enc.EncodeArrayLen(ds.Len()); err != nil {
		return err
	}
	for i := 0; i < ds.Len(); i++ {
		if err := enc.EncodeMapLen(len(ds.Columns)); err != nil {
			return err
		}
		for _, c := range ds.Columns {
			if err := enc.EncodeString(c.Name); err != nil {
				return err
			}
			v := c.Values[i]
			if t, ok := v.(time.Time); ok {
				v = FormatValue(t, c.Type)
			}
			if err := enc.Encode(v); err != nil {
				return fmt.Errorf("column %q row %d: %w", c.Name, i, err)
			}
		}
	}
	return bw.Flush()
}

func readMsgpack(r io.Reader) (*Table, error) {
	dec := msgpack.NewDecoder(bufio.NewReader(r))
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	t := &Table{}
	for i := 0; i < n; i++ {
		m, err := dec.DecodeMapLen()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		keys := make([]string, 0, m)
		vals := make([]string, 0, m)
		for j := 0; j < m; j++ {
			k, err := dec.DecodeString()
			if err != nil {
				return nil, fmt.Errorf("row %d key %d: %w", i+1, j, err)
			}
			v, err := dec.DecodeInterface()
			if err != nil {
				return nil, fmt.Errorf("row %d %q: %w", i+1, k, err)
			}
			keys = append(keys, k)
			vals = append(vals, FormatValue(v, dataset.TypeString))
		}
		if t.Header == nil {
			t.Header = keys
		} else if len(keys) != len(t.Header) {
			return nil, fmt.Errorf("row %d has %d keys, want %d", i+1, len(keys), len(t.Header))
		}
		t.Rows = append(t.Rows, vals)
	}
	return t, nil
}
