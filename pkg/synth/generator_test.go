package synth_test

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/shpitdev/synthdata/pkg/dataset"
	"github.com/shpitdev/synthdata/pkg/synth"
)

func retailRequirements(n int) dataset.Requirements {
	return dataset.Requirements{
		Domain:     "retail",
		NumEntries: n,
		Fields: []dataset.FieldSpec{
			{Name: "customer_age", Type: "integer", Constraints: "between 18 and 65"},
			{Name: "total_spent", Type: "float", Constraints: "between 0 and 1000"},
			{Name: "category", Type: "categorical", Constraints: "categories: Electronics, Toys, Books"},
			{Name: "color", Type: "string", Constraints: "options: red, green, blue"},
			{Name: "purchase_date", Type: "date", Constraints: "between 2023-01-01 and 2023-12-31"},
			{Name: "member", Type: "boolean"},
		},
	}
}

func TestGenerate_BatchesAndProgress(t *testing.T) {
	t.Parallel()

	g := synth.NewGenerator(synth.Options{BatchSize: 1000, Seed: 9, Now: fixedNow})
	var fractions []float64
	var rows []int
	ds, err := g.Generate(context.Background(), retailRequirements(0), 2500, func(p synth.Progress) {
		fractions = append(fractions, p.Fraction)
		rows = append(rows, p.Rows)
		if p.Batches != 3 {
			t.Errorf("expected 3 batches, got %d", p.Batches)
		}
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ds.Len() != 2500 {
		t.Fatalf("expected 2500 rows, got %d", ds.Len())
	}
	want := []float64{0.33, 0.67, 1.0}
	if len(fractions) != len(want) {
		t.Fatalf("expected %d progress reports, got %v", len(want), fractions)
	}
	for i := range want {
		if math.Round(fractions[i]*100)/100 != want[i] {
			t.Fatalf("progress[%d]=%g want~%g", i, fractions[i], want[i])
		}
	}
	if fractions[2] != 1.0 {
		t.Fatalf("final progress must be exactly 1.0, got %v", fractions[2])
	}
	if !slices.Equal(rows, []int{1000, 2000, 2500}) {
		t.Fatalf("unexpected row counts: %v", rows)
	}
}

func TestGenerate_ShapeAndConstraints(t *testing.T) {
	t.Parallel()

	reqs := retailRequirements(750)
	ds, err := synth.NewGenerator(synth.Options{BatchSize: 100, Workers: 4, Now: fixedNow}).GenerateAll(context.Background(), reqs, nil)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if !slices.Equal(ds.Header(), reqs.FieldNames()) {
		t.Fatalf("header %v does not match declaration order %v", ds.Header(), reqs.FieldNames())
	}
	for _, col := range ds.Columns {
		if len(col.Values) != 750 {
			t.Fatalf("column %s has %d values", col.Name, len(col.Values))
		}
	}

	ages, _ := ds.Column("customer_age")
	for _, v := range ages.Values {
		if n := v.(int64); n < 18 || n > 65 {
			t.Fatalf("age %d out of range", n)
		}
	}
	colors, _ := ds.Column("color")
	for _, v := range colors.Values {
		if !slices.Contains([]string{"red", "green", "blue"}, v.(string)) {
			t.Fatalf("unexpected color %q", v)
		}
	}
}

func TestGenerate_ZeroEntries(t *testing.T) {
	t.Parallel()

	called := false
	reqs := retailRequirements(0)
	ds, err := synth.NewGenerator(synth.Options{}).Generate(context.Background(), reqs, 0, func(synth.Progress) {
		called = true
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ds.Len() != 0 {
		t.Fatalf("expected 0 rows, got %d", ds.Len())
	}
	if !slices.Equal(ds.Header(), reqs.FieldNames()) {
		t.Fatalf("unexpected header %v", ds.Header())
	}
	if called {
		t.Fatalf("progress must not be reported for an empty run")
	}
}

func TestGenerate_SingleBatchWhenBatchSizeExceedsCount(t *testing.T) {
	t.Parallel()

	var reports int
	ds, err := synth.NewGenerator(synth.Options{BatchSize: 50}).Generate(context.Background(), retailRequirements(0), 50, func(p synth.Progress) {
		reports++
		if p.Fraction != 1.0 {
			t.Errorf("unexpected fraction %g", p.Fraction)
		}
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reports != 1 || ds.Len() != 50 {
		t.Fatalf("reports=%d rows=%d", reports, ds.Len())
	}
}

func TestGenerate_SeedIsDeterministicAcrossWorkerCounts(t *testing.T) {
	t.Parallel()

	reqs := retailRequirements(300)
	a, err := synth.NewGenerator(synth.Options{BatchSize: 64, Workers: 1, Seed: 1234, Now: fixedNow}).GenerateAll(context.Background(), reqs, nil)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	b, err := synth.NewGenerator(synth.Options{BatchSize: 64, Workers: 8, Seed: 1234, Now: fixedNow}).GenerateAll(context.Background(), reqs, nil)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	for i := range a.Columns {
		if !slices.Equal(a.Columns[i].Values, b.Columns[i].Values) {
			t.Fatalf("column %s differs between worker counts", a.Columns[i].Name)
		}
	}
}

func TestGenerate_CancelBetweenBatches(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reports int
	_, err := synth.NewGenerator(synth.Options{BatchSize: 10}).Generate(ctx, retailRequirements(0), 100, func(p synth.Progress) {
		reports++
		if p.Batch == 2 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if reports != 2 {
		t.Fatalf("expected generation to stop after 2 batches, got %d reports", reports)
	}
}

func TestGenerate_SourceFailureNamesFieldAndBatch(t *testing.T) {
	t.Parallel()

	reqs := dataset.Requirements{Fields: []dataset.FieldSpec{
		{Name: "fixed", Type: "integer", Constraints: "between 3 and 3"},
		{Name: "flag", Type: "boolean"},
	}}
	g := synth.NewGenerator(synth.Options{
		BatchSize: 5,
		NewSource: func(uint64, uint64) rand.Source { return brokenSource{} },
	})
	_, err := g.Generate(context.Background(), reqs, 12, nil)
	var gerr *synth.GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if gerr.Field != "flag" || gerr.Batch != 0 {
		t.Fatalf("unexpected error context: %+v", gerr)
	}
}

func TestGenerate_RejectsInvalidRequirements(t *testing.T) {
	t.Parallel()

	g := synth.NewGenerator(synth.Options{})
	if _, err := g.Generate(context.Background(), dataset.Requirements{}, 10, nil); err == nil {
		t.Fatalf("expected error for requirements without fields")
	}
	if _, err := g.Generate(context.Background(), retailRequirements(0), -1, nil); err == nil {
		t.Fatalf("expected error for negative count")
	}
}

func TestPreviewDefaultsToFiveRows(t *testing.T) {
	t.Parallel()

	ds, err := synth.NewGenerator(synth.Options{}).Preview(context.Background(), retailRequirements(1000), 0)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if ds.Len() != synth.DefaultPreviewRows {
		t.Fatalf("expected %d rows, got %d", synth.DefaultPreviewRows, ds.Len())
	}
}

func TestBatches(t *testing.T) {
	tests := []struct{ count, size, want int }{
		{0, 1000, 0},
		{1, 1000, 1},
		{1000, 1000, 1},
		{1001, 1000, 2},
		{2500, 1000, 3},
	}
	for _, tt := range tests {
		if got := synth.Batches(tt.count, tt.size); got != tt.want {
			t.Fatalf("Batches(%d,%d)=%d want=%d", tt.count, tt.size, got, tt.want)
		}
	}
}
