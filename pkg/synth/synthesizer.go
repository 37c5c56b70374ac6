// Package synth produces synthetic values, entries and whole datasets from
// dataset.Requirements.
package synth

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shpitdev/synthdata/pkg/dataset"
	"github.com/shpitdev/synthdata/pkg/synth/constraint"
)

// DefaultCategories are drawn from when a categorical field declares no categories.
var DefaultCategories = []string{"Category A", "Category B", "Category C"}

const (
	defaultIntMin   = 0
	defaultIntMax   = 100
	defaultFloatMin = 0.0
	defaultFloatMax = 100.0
)

// GenerationError reports a value that could not be produced, even by the fallback path.
type GenerationError struct {
	// Batch is the zero-based batch index, or -1 outside batch generation.
	Batch int
	Field string
	Err   error
}

func (e *GenerationError) Error() string {
	if e == nil {
		return "generation failed"
	}
	if e.Batch >= 0 {
		return fmt.Sprintf("generate field %q (batch %d): %v", e.Field, e.Batch, e.Err)
	}
	return fmt.Sprintf("generate field %q: %v", e.Field, e.Err)
}

func (e *GenerationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Synthesizer draws field values from a single random source. It is not safe for
// concurrent use; the Generator gives every entry its own Synthesizer.
type Synthesizer struct {
	rng   *rand.Rand
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewSynthesizer returns a Synthesizer drawing from src. now supplies the reference
// time for default date ranges; nil means time.Now.
func NewSynthesizer(src rand.Source, now func() time.Time) *Synthesizer {
	if now == nil {
		now = time.Now
	}
	return &Synthesizer{
		rng:   rand.New(src),
		faker: gofakeit.NewFaker(src, false),
		now:   now,
	}
}

// NewSeeded returns a Synthesizer with a deterministic PCG source.
func NewSeeded(seed uint64, now func() time.Time) *Synthesizer {
	return NewSynthesizer(rand.NewPCG(seed, seed^pcgStream), now)
}

const (
	pcgStream     = 0x9e3779b97f4a7c15
	secondsPerDay = 24 * 60 * 60
)

// Field synthesizes one value for f. A failing draw is replaced by the fallback value
// for f's type; an error is returned only if the fallback fails as well.
func (s *Synthesizer) Field(f dataset.FieldSpec) (any, error) {
	kind := f.Kind()
	v, err := s.guard(func() (any, error) { return s.value(kind, f.Constraints) })
	if err == nil {
		return v, nil
	}
	v, ferr := s.guard(func() (any, error) { return s.Fallback(kind) })
	if ferr != nil {
		return nil, &GenerationError{Batch: -1, Field: f.Name, Err: errors.Join(err, ferr)}
	}
	return v, nil
}

// Entry synthesizes one value per field of reqs, in declaration order.
func (s *Synthesizer) Entry(reqs dataset.Requirements) (dataset.Entry, error) {
	values := make([]any, len(reqs.Fields))
	for i, f := range reqs.Fields {
		v, err := s.Field(f)
		if err != nil {
			return dataset.Entry{}, err
		}
		values[i] = v
	}
	return dataset.NewEntry(reqs.Fields, values), nil
}

func (s *Synthesizer) value(kind dataset.FieldType, constraints string) (any, error) {
	switch kind {
	case dataset.TypeInteger:
		return s.integer(constraints), nil
	case dataset.TypeFloat:
		return s.float(constraints), nil
	case dataset.TypeString, dataset.TypeUnknown:
		return s.str(constraints), nil
	case dataset.TypeCategorical:
		return s.categorical(constraints), nil
	case dataset.TypeDate:
		return s.date(constraints), nil
	case dataset.TypeDateTime:
		return s.datetime(constraints), nil
	case dataset.TypeBoolean:
		return s.faker.Bool(), nil
	default:
		return nil, fmt.Errorf("unhandled field type %d", kind)
	}
}

// Fallback returns a value of kind drawn with no constraints applied.
func (s *Synthesizer) Fallback(kind dataset.FieldType) (any, error) {
	return s.value(kind, "")
}

func (s *Synthesizer) integer(constraints string) int64 {
	lo, hi := constraint.NumericRange(constraints, defaultIntMin, defaultIntMax)
	min, max := ordered(clampInt64(lo), clampInt64(hi))
	// Unsigned arithmetic keeps spans wider than MaxInt64 exact.
	span := uint64(max) - uint64(min)
	var off uint64
	if span == math.MaxUint64 {
		off = s.rng.Uint64()
	} else {
		off = s.rng.Uint64N(span + 1)
	}
	return int64(uint64(min) + off)
}

// clampInt64 truncates f toward zero, saturating outside the int64 range.
func clampInt64(f float64) int64 {
	switch {
	case f >= 0x1p63:
		return math.MaxInt64
	case f <= -0x1p63:
		return math.MinInt64
	}
	return int64(f)
}

func (s *Synthesizer) float(constraints string) float64 {
	lo, hi := constraint.NumericRange(constraints, defaultFloatMin, defaultFloatMax)
	min, max := ordered(lo, hi)
	return s.faker.Float64Range(min, max)
}

func (s *Synthesizer) str(constraints string) string {
	if constraint.HasOptions(constraints) {
		if opts := constraint.Options(constraints); len(opts) > 0 {
			return s.faker.RandomString(opts)
		}
	}
	return s.faker.Word()
}

func (s *Synthesizer) categorical(constraints string) string {
	if constraint.HasCategories(constraints) {
		if cats := constraint.Options(constraints); len(cats) > 0 {
			return s.faker.RandomString(cats)
		}
	}
	return s.faker.RandomString(DefaultCategories)
}

func (s *Synthesizer) date(constraints string) time.Time {
	start, end := s.dateRange(constraints)
	first := midnightUTC(start)
	// Unix seconds, not Time.Sub: a Duration saturates at about 292 years.
	days := (midnightUTC(end).Unix() - first.Unix()) / secondsPerDay
	if days <= 0 {
		return first
	}
	return first.AddDate(0, 0, int(s.rng.Int64N(days+1)))
}

func (s *Synthesizer) datetime(constraints string) time.Time {
	start, end := s.dateRange(constraints)
	from, to := start.Unix(), end.Unix()
	span := to - from
	if span <= 0 {
		return time.Unix(from, 0).UTC()
	}
	return time.Unix(from+s.rng.Int64N(span+1), 0).UTC()
}

func (s *Synthesizer) dateRange(constraints string) (time.Time, time.Time) {
	start, end := constraint.DateRange(constraints, s.now())
	if end.Before(start) {
		start, end = end, start
	}
	return start, end
}

func (s *Synthesizer) guard(fn func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func ordered[T int64 | float64](a, b T) (T, T) {
	if a > b {
		return b, a
	}
	return a, b
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
