package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shpitdev/synthdata/pkg/dataset"
)

const parquetRowBuffer = 256

func parquetNode(kind dataset.FieldType) parquet.Node {
	switch kind {
	case dataset.TypeInteger:
		return parquet.Leaf(parquet.Int64Type)
	case dataset.TypeFloat:
		return parquet.Leaf(parquet.DoubleType)
	case dataset.TypeBoolean:
		return parquet.Leaf(parquet.BooleanType)
	case dataset.TypeDate:
		return parquet.Date()
	case dataset.TypeDateTime:
		return parquet.Timestamp(parquet.Millisecond)
	default:
		return parquet.String()
	}
}

func parquetSchema(ds *dataset.Dataset) *parquet.Schema {
	group := parquet.Group{}
	for _, c := range ds.Columns {
		group[c.Name] = parquetNode(c.Type)
	}
	return parquet.NewSchema("synthdata", group)
}

// writeParquet writes one required leaf per column. Parquet groups order their fields
// by name, so leaf indexes are resolved from the schema rather than column position.
func writeParquet(w io.Writer, ds *dataset.Dataset) error {
	schema := parquetSchema(ds)
	fields := schema.Fields()
	order := make([]int, len(fields))
	for leaf, field := range fields {
		idx := -1
		for j, c := range ds.Columns {
			if c.Name == field.Name() {
				idx = j
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("schema field %q has no column", field.Name())
		}
		order[leaf] = idx
	}

	pw := parquet.NewWriter(w, schema)
	batch := make([]parquet.Row, 0, parquetRowBuffer)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := pw.WriteRows(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for i := 0; i < ds.Len(); i++ {
		row := make(parquet.Row, len(order))
		for leaf, idx := range order {
			c := ds.Columns[idx]
			v, err := parquetValue(c.Values[i], c.Type)
			if err != nil {
				return fmt.Errorf("column %q row %d: %w", c.Name, i, err)
			}
			row[leaf] = v.Level(0, 0, leaf)
		}
		batch = append(batch, row)
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	return pw.Close()
}

func parquetValue(v any, kind dataset.FieldType) (parquet.Value, error) {
	switch x := v.(type) {
	case int64:
		return parquet.Int64Value(x), nil
	case float64:
		return parquet.DoubleValue(x), nil
	case bool:
		return parquet.BooleanValue(x), nil
	case string:
		return parquet.ByteArrayValue([]byte(x)), nil
	case time.Time:
		if kind == dataset.TypeDate {
			days := x.UTC().Truncate(24*time.Hour).Unix() / 86400
			return parquet.Int32Value(int32(days)), nil
		}
		return parquet.Int64Value(x.UnixMilli()), nil
	default:
		return parquet.Value{}, fmt.Errorf("unsupported value %T", v)
	}
}

func readParquet(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	pr := parquet.NewReader(f)
	defer func() {
		_ = pr.Close()
	}()
	t := &Table{}
	for _, field := range pr.Schema().Fields() {
		t.Header = append(t.Header, field.Name())
	}
	buf := make([]parquet.Row, parquetRowBuffer)
	for {
		n, err := pr.ReadRows(buf)
		for _, row := range buf[:n] {
			rec := make([]string, len(row))
			for i, v := range row {
				rec[i] = parquetText(v)
			}
			t.Rows = append(t.Rows, rec)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
	}
	return t, nil
}

func parquetText(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	default:
		return string(v.ByteArray())
	}
}
