package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shpitdev/synthdata/pkg/dataset"
	"github.com/xuri/excelize/v2"
)

const excelSheet = "Sheet1"

func writeExcel(w io.Writer, ds *dataset.Dataset) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	sw, err := f.NewStreamWriter(excelSheet)
	if err != nil {
		return err
	}

	header := make([]any, len(ds.Columns))
	for j, c := range ds.Columns {
		header[j] = c.Name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	row := make([]any, len(ds.Columns))
	for i := 0; i < ds.Len(); i++ {
		for j, c := range ds.Columns {
			row[j] = excelValue(c.Values[i], c.Type)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// Numbers and booleans stay typed; dates are written as ISO text so they read the same
// in every spreadsheet locale.
func excelValue(v any, kind dataset.FieldType) any {
	if t, ok := v.(time.Time); ok {
		return FormatValue(t, kind)
	}
	return v
}

func readExcel(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}
	t := &Table{Header: rows[0]}
	for _, rec := range rows[1:] {
		// GetRows trims trailing empty cells.
		for len(rec) < len(t.Header) {
			rec = append(rec, "")
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}
