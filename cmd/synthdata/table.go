package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shpitdev/synthdata/pkg/dataset"
	"github.com/shpitdev/synthdata/pkg/export"
)

const maxCellWidth = 40

func writeTable(w io.Writer, ds *dataset.Dataset) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(ds.Header(), "\t"))
	cells := make([]string, len(ds.Columns))
	for i := 0; i < ds.Len(); i++ {
		for j, c := range ds.Columns {
			cells[j] = truncate(export.FormatValue(c.Values[i], c.Type))
		}
		_, _ = fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "(%d rows)\n", ds.Len())
	return err
}

func truncate(s string) string {
	s = strings.NewReplacer("\t", " ", "\n", " ").Replace(s)
	r := []rune(s)
	if len(r) <= maxCellWidth {
		return s
	}
	return string(r[:maxCellWidth-3]) + "..."
}
