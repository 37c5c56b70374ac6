package synth_test

import (
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/shpitdev/synthdata/pkg/dataset"
	"github.com/shpitdev/synthdata/pkg/synth"
)

var fixedNow = func() time.Time { return time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC) }

type brokenSource struct{}

func (brokenSource) Uint64() uint64 { panic("entropy unavailable") }

func draw(t *testing.T, s *synth.Synthesizer, f dataset.FieldSpec, n int) []any {
	t.Helper()
	out := make([]any, n)
	for i := range out {
		v, err := s.Field(f)
		if err != nil {
			t.Fatalf("Field(%+v): %v", f, err)
		}
		out[i] = v
	}
	return out
}

func TestFieldInteger(t *testing.T) {
	s := synth.NewSeeded(1, fixedNow)

	t.Run("between 18 and 65", func(t *testing.T) {
		seen := map[int64]bool{}
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "age", Type: "integer", Constraints: "between 18 and 65"}, 2000) {
			n, ok := v.(int64)
			if !ok {
				t.Fatalf("expected int64, got %T", v)
			}
			if n < 18 || n > 65 {
				t.Fatalf("value %d out of range", n)
			}
			seen[n] = true
		}
		if !seen[18] || !seen[65] {
			t.Fatalf("bounds never drawn: 18=%t 65=%t", seen[18], seen[65])
		}
	})

	t.Run("decimal bounds truncate", func(t *testing.T) {
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "n", Type: "Integer", Constraints: "between 1.9 and 3.9"}, 500) {
			if n := v.(int64); n < 1 || n > 3 {
				t.Fatalf("value %d out of [1,3]", n)
			}
		}
	})

	t.Run("inverted range is swapped", func(t *testing.T) {
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "n", Type: "integer", Constraints: "between 10 and 5"}, 500) {
			if n := v.(int64); n < 5 || n > 10 {
				t.Fatalf("value %d out of [5,10]", n)
			}
		}
	})

	t.Run("defaults", func(t *testing.T) {
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "n", Type: "integer"}, 500) {
			if n := v.(int64); n < 0 || n > 100 {
				t.Fatalf("value %d out of [0,100]", n)
			}
		}
	})
	t.Run("range wider than int64", func(t *testing.T) {
		const bound = 6_000_000_000_000_000_000
		var low, high int
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "n", Type: "integer", Constraints: "between -6000000000000000000 and 6000000000000000000"}, 1000) {
			n := v.(int64)
			if n < -bound || n > bound {
				t.Fatalf("value %d out of range", n)
			}
			if n < -bound/2 {
				low++
			}
			if n > bound/2 {
				high++
			}
		}
		if low == 0 || high == 0 {
			t.Fatalf("draws do not cover the range: low=%d high=%d", low, high)
		}
	})

	t.Run("bounds beyond int64 saturate", func(t *testing.T) {
		var neg, pos bool
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "n", Type: "integer", Constraints: "between -99999999999999999999 and 99999999999999999999"}, 200) {
			n := v.(int64)
			if n < 0 {
				neg = true
			}
			if n > 100 {
				pos = true
			}
		}
		if !neg || !pos {
			t.Fatalf("expected draws across the full int64 range: neg=%t pos=%t", neg, pos)
		}
	})

	t.Run("single point at the int64 limits", func(t *testing.T) {
		got := draw(t, s, dataset.FieldSpec{Name: "n", Type: "integer", Constraints: "between 99999999999999999999 and 99999999999999999999"}, 5)
		for _, v := range got {
			if n := v.(int64); n != math.MaxInt64 {
				t.Fatalf("value %d, want MaxInt64", n)
			}
		}
	})
}

func TestFieldFloat(t *testing.T) {
	s := synth.NewSeeded(2, fixedNow)

	t.Run("range", func(t *testing.T) {
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "price", Type: "float", Constraints: "between 0.5 and 2.5"}, 1000) {
			f, ok := v.(float64)
			if !ok {
				t.Fatalf("expected float64, got %T", v)
			}
			if f < 0.5 || f > 2.5 {
				t.Fatalf("value %g out of range", f)
			}
		}
	})

	t.Run("malformed falls back to default range", func(t *testing.T) {
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "x", Type: "float", Constraints: "between five and ten"}, 1000) {
			if f := v.(float64); f < 0 || f > 100 {
				t.Fatalf("value %g out of [0,100]", f)
			}
		}
	})
}

func TestFieldStringAndCategorical(t *testing.T) {
	s := synth.NewSeeded(3, fixedNow)

	t.Run("options", func(t *testing.T) {
		allowed := []string{"red", "green", "blue"}
		seen := map[string]bool{}
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "color", Type: "string", Constraints: "options: red, green, blue"}, 300) {
			str := v.(string)
			if !slices.Contains(allowed, str) {
				t.Fatalf("unexpected option %q", str)
			}
			seen[str] = true
		}
		if len(seen) != 3 {
			t.Fatalf("expected every option drawn, saw %v", seen)
		}
	})

	t.Run("word without options", func(t *testing.T) {
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "w", Type: "string"}, 50) {
			if str, ok := v.(string); !ok || str == "" {
				t.Fatalf("expected non-empty word, got %#v", v)
			}
		}
	})

	t.Run("unknown type behaves like string", func(t *testing.T) {
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "id", Type: "uuid", Constraints: "options: a, b"}, 100) {
			if str := v.(string); str != "a" && str != "b" {
				t.Fatalf("unexpected value %q", str)
			}
		}
	})

	t.Run("categories", func(t *testing.T) {
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "tier", Type: "categorical", Constraints: "categories: gold, silver"}, 100) {
			if str := v.(string); str != "gold" && str != "silver" {
				t.Fatalf("unexpected category %q", str)
			}
		}
	})

	t.Run("default categories", func(t *testing.T) {
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "tier", Type: "categorical"}, 100) {
			if !slices.Contains(synth.DefaultCategories, v.(string)) {
				t.Fatalf("unexpected category %q", v)
			}
		}
	})

	t.Run("categorical ignores options keyword", func(t *testing.T) {
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "tier", Type: "categorical", Constraints: "options: x, y"}, 50) {
			if !slices.Contains(synth.DefaultCategories, v.(string)) {
				t.Fatalf("unexpected category %q", v)
			}
		}
	})
}

func TestFieldDates(t *testing.T) {
	s := synth.NewSeeded(4, fixedNow)

	t.Run("date range inclusive", func(t *testing.T) {
		seen := map[int]bool{}
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "d", Type: "date", Constraints: "between 2020-01-01 and 2020-01-03"}, 300) {
			d, ok := v.(time.Time)
			if !ok {
				t.Fatalf("expected time.Time, got %T", v)
			}
			if d.Year() != 2020 || d.Month() != time.January || d.Day() < 1 || d.Day() > 3 {
				t.Fatalf("date %s out of range", d)
			}
			if d.Hour() != 0 || d.Minute() != 0 {
				t.Fatalf("date %s has a time component", d)
			}
			seen[d.Day()] = true
		}
		if len(seen) != 3 {
			t.Fatalf("expected all three days drawn, saw %v", seen)
		}
	})

	t.Run("datetime range", func(t *testing.T) {
		start := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2021, 3, 2, 0, 0, 0, 0, time.UTC)
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "ts", Type: "datetime", Constraints: "between 2021-03-01 and 2021-03-02"}, 500) {
			ts := v.(time.Time)
			if ts.Before(start) || ts.After(end) {
				t.Fatalf("timestamp %s out of range", ts)
			}
		}
	})

	t.Run("ranges longer than a Duration", func(t *testing.T) {
		start := time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		for _, typ := range []string{"date", "datetime"} {
			var latest, earliest time.Time
			for i, v := range draw(t, s, dataset.FieldSpec{Name: "d", Type: typ, Constraints: "between 1500-01-01 and 2020-01-01"}, 20000) {
				d := v.(time.Time)
				if d.Before(start) || d.After(end) {
					t.Fatalf("%s %s out of range", typ, d)
				}
				if i == 0 || d.After(latest) {
					latest = d
				}
				if i == 0 || d.Before(earliest) {
					earliest = d
				}
			}
			if latest.Year() < 2000 || earliest.Year() > 1520 {
				t.Fatalf("%s draws span %s..%s, want close to both ends", typ, earliest, latest)
			}
		}
	})

	t.Run("default range is last five years", func(t *testing.T) {
		now := fixedNow()
		for _, v := range draw(t, s, dataset.FieldSpec{Name: "ts", Type: "datetime"}, 500) {
			ts := v.(time.Time)
			if ts.After(now) || ts.Before(now.AddDate(-5, 0, -2)) {
				t.Fatalf("timestamp %s outside default range", ts)
			}
		}
	})
}

func TestFieldBoolean(t *testing.T) {
	s := synth.NewSeeded(5, fixedNow)
	seen := map[bool]bool{}
	for _, v := range draw(t, s, dataset.FieldSpec{Name: "ok", Type: "BOOLEAN"}, 100) {
		seen[v.(bool)] = true
	}
	if !seen[true] || !seen[false] {
		t.Fatalf("expected both values, saw %v", seen)
	}
}

func TestSeededSynthesizerIsDeterministic(t *testing.T) {
	f := dataset.FieldSpec{Name: "w", Type: "string"}
	a := draw(t, synth.NewSeeded(42, fixedNow), f, 20)
	b := draw(t, synth.NewSeeded(42, fixedNow), f, 20)
	if !slices.Equal(a, b) {
		t.Fatalf("same seed produced different values:\n%v\n%v", a, b)
	}
}

func TestFieldBrokenSourceReportsField(t *testing.T) {
	s := synth.NewSynthesizer(brokenSource{}, fixedNow)
	_, err := s.Field(dataset.FieldSpec{Name: "age", Type: "integer"})
	var gerr *synth.GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if gerr.Field != "age" || gerr.Batch != -1 {
		t.Fatalf("unexpected error context: %+v", gerr)
	}
}

func TestEntry(t *testing.T) {
	reqs := dataset.Requirements{Fields: []dataset.FieldSpec{
		{Name: "id", Type: "integer", Constraints: "between 1 and 1"},
		{Name: "color", Constraints: "options: red"},
		{Name: "active", Type: "boolean"},
	}}
	e, err := synth.NewSeeded(7, fixedNow).Entry(reqs)
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if e.Len() != 3 {
		t.Fatalf("expected 3 values, got %d", e.Len())
	}
	if e.Value(0) != int64(1) || e.Value(1) != "red" {
		t.Fatalf("unexpected entry values: %v %v", e.Value(0), e.Value(1))
	}
	if _, ok := e.Value(2).(bool); !ok {
		t.Fatalf("expected bool, got %T", e.Value(2))
	}
}
