package dataset_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/shpitdev/synthdata/pkg/dataset"
)

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		in   string
		want dataset.FieldType
	}{
		{in: "", want: dataset.TypeString},
		{in: "String", want: dataset.TypeString},
		{in: "INTEGER", want: dataset.TypeInteger},
		{in: " float ", want: dataset.TypeFloat},
		{in: "date", want: dataset.TypeDate},
		{in: "DateTime", want: dataset.TypeDateTime},
		{in: "categorical", want: dataset.TypeCategorical},
		{in: "Boolean", want: dataset.TypeBoolean},
		{in: "uuid", want: dataset.TypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := dataset.ParseFieldType(tt.in); got != tt.want {
				t.Fatalf("ParseFieldType(%q)=%s want=%s", tt.in, got, tt.want)
			}
		})
	}
}

func TestRequirementsValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r := dataset.Requirements{
			Domain:     "retail",
			NumEntries: 10,
			Fields: []dataset.FieldSpec{
				{Name: "age", Type: "integer"},
				{Name: "name"},
			},
		}
		if err := r.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("no fields", func(t *testing.T) {
		err := dataset.Requirements{NumEntries: 1}.Validate()
		var verr *dataset.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("duplicate names", func(t *testing.T) {
		r := dataset.Requirements{Fields: []dataset.FieldSpec{{Name: "a"}, {Name: "a"}}}
		err := r.Validate()
		if err == nil || !strings.Contains(err.Error(), "unique") {
			t.Fatalf("expected unique error, got %v", err)
		}
	})

	t.Run("unnamed field", func(t *testing.T) {
		r := dataset.Requirements{Fields: []dataset.FieldSpec{{Type: "integer"}}}
		if err := r.Validate(); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("negative count", func(t *testing.T) {
		r := dataset.Requirements{NumEntries: -1, Fields: []dataset.FieldSpec{{Name: "a"}}}
		if err := r.Validate(); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestRequirementsNormalize(t *testing.T) {
	r := dataset.Requirements{
		Domain: " hr ",
		Fields: []dataset.FieldSpec{{Name: " age ", Type: "", Constraints: " between 1 and 2 "}},
	}.Normalize()
	if r.Domain != "hr" {
		t.Fatalf("domain=%q", r.Domain)
	}
	f := r.Fields[0]
	if f.Name != "age" || f.Type != "string" || f.Constraints != "between 1 and 2" {
		t.Fatalf("unexpected field: %#v", f)
	}
}

func TestAssembler(t *testing.T) {
	fields := []dataset.FieldSpec{{Name: "id", Type: "integer"}, {Name: "ok", Type: "boolean"}}

	t.Run("zero rows keeps headers", func(t *testing.T) {
		ds := dataset.NewAssembler(fields, 0).Dataset()
		if ds.Len() != 0 {
			t.Fatalf("expected 0 rows, got %d", ds.Len())
		}
		if h := ds.Header(); len(h) != 2 || h[0] != "id" || h[1] != "ok" {
			t.Fatalf("unexpected header: %v", h)
		}
	})

	t.Run("appends preserve order", func(t *testing.T) {
		a := dataset.NewAssembler(fields, 3)
		if err := a.Append(
			dataset.NewEntry(fields, []any{int64(1), true}),
			dataset.NewEntry(fields, []any{int64(2), false}),
		); err != nil {
			t.Fatalf("append: %v", err)
		}
		if err := a.Append(dataset.NewEntry(fields, []any{int64(3), true})); err != nil {
			t.Fatalf("append: %v", err)
		}
		ds := a.Dataset()
		if ds.Len() != 3 {
			t.Fatalf("expected 3 rows, got %d", ds.Len())
		}
		col, ok := ds.Column("id")
		if !ok || col.Type != dataset.TypeInteger {
			t.Fatalf("unexpected id column: %#v", col)
		}
		for i, want := range []int64{1, 2, 3} {
			if col.Values[i] != want {
				t.Fatalf("row %d: got %v want %d", i, col.Values[i], want)
			}
		}
		if row := ds.Row(1); row[1] != false {
			t.Fatalf("unexpected row 1: %v", row)
		}
	})

	t.Run("rejects short entries", func(t *testing.T) {
		a := dataset.NewAssembler(fields, 0)
		if err := a.Append(dataset.NewEntry(fields, []any{int64(1)})); err == nil {
			t.Fatalf("expected error")
		}
		if a.Len() != 0 {
			t.Fatalf("partial append leaked %d rows", a.Len())
		}
	})
}

func TestEntryGet(t *testing.T) {
	fields := []dataset.FieldSpec{{Name: "color"}}
	e := dataset.NewEntry(fields, []any{"red"})
	if v, ok := e.Get("color"); !ok || v != "red" {
		t.Fatalf("Get(color)=%v,%t", v, ok)
	}
	if _, ok := e.Get("missing"); ok {
		t.Fatalf("expected missing field")
	}
}
