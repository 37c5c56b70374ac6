package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shpitdev/synthdata/pkg/dataset"
	"golang.org/x/sync/errgroup"
)

// Table is a decoded export: a header and stringified rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Encode writes ds to w in format f.
func Encode(w io.Writer, ds *dataset.Dataset, f Format) error {
	if ds == nil {
		return fmt.Errorf("export %s: nil dataset", f.Name())
	}
	var err error
	switch f {
	case CSV:
		err = writeCSV(w, ds)
	case Excel:
		err = writeExcel(w, ds)
	case JSON:
		err = writeJSON(w, ds)
	case XML:
		err = writeXML(w, ds)
	case Parquet:
		err = writeParquet(w, ds)
	case MessagePack:
		err = writeMsgpack(w, ds)
	default:
		return fmt.Errorf("unsupported format %q", f)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", f.Name(), err)
	}
	return nil
}

// Bytes encodes ds into memory.
func Bytes(ds *dataset.Dataset, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, ds, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads an export in format f back into a Table. Values are returned as text.
func Decode(r io.Reader, f Format) (*Table, error) {
	var (
		t   *Table
		err error
	)
	switch f {
	case CSV:
		t, err = readCSV(r)
	case Excel:
		t, err = readExcel(r)
	case JSON:
		t, err = readJSON(r)
	case XML:
		t, err = readXML(r)
	case Parquet:
		t, err = readParquet(r)
	case MessagePack:
		t, err = readMsgpack(r)
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Name(), err)
	}
	return t, nil
}

const maxConcurrentWrites = 4

// File is one written export.
type File struct {
	Format Format
	Path   string
	Size   int64
}

// EncodeAll writes ds once per format into dir as <base>.<ext>, concurrently. Files are
// returned in the order of formats.
func EncodeAll(ctx context.Context, dir, base string, ds *dataset.Dataset, formats []Format) ([]File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	out := make([]File, len(formats))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentWrites)
	for i, f := range formats {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, base+"."+f.Extension())
			size, err := writeFile(path, ds, f)
			if err != nil {
				return err
			}
			out[i] = File{Format: f, Path: path, Size: size}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func writeFile(path string, ds *dataset.Dataset, f Format) (int64, error) {
	fh, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = fh.Close()
	}()
	cw := &countingWriter{w: fh}
	if err := Encode(cw, ds, f); err != nil {
		return 0, err
	}
	return cw.n, fh.Close()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
