package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shpitdev/synthdata/pkg/dataset"
)

func writeCSV(w io.Writer, ds *dataset.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Header()); err != nil {
		return err
	}
	rec := make([]string, len(ds.Columns))
	for i := 0; i < ds.Len(); i++ {
		for j, c := range ds.Columns {
			rec[j] = FormatValue(c.Values[i], c.Type)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &Table{Header: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("row %d has %d columns, want %d", len(t.Rows)+1, len(rec), len(header))
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}
