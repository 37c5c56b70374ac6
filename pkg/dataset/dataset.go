package dataset

import "fmt"

// Entry is one synthesized record. Values are indexed by field position.
type Entry struct {
	fields []FieldSpec
	values []any
}

// NewEntry returns an Entry for fields with values in field order.
func NewEntry(fields []FieldSpec, values []any) Entry {
	return Entry{fields: fields, values: values}
}

// Len returns the number of values in the entry.
func (e Entry) Len() int { return len(e.values) }

// Value returns the value at field position i.
func (e Entry) Value(i int) any { return e.values[i] }

// Get returns the value for the named field.
func (e Entry) Get(name string) (any, bool) {
	for i, f := range e.fields {
		if f.Name == name && i < len(e.values) {
			return e.values[i], true
		}
	}
	return nil, false
}

// Column holds every value of one field, in generation order.
type Column struct {
	Name   string
	Type   FieldType
	Values []any
}

// Dataset is a column-oriented table. All columns have the same length.
type Dataset struct {
	Columns []Column
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil || len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

// Header returns the column names in declaration order.
func (d *Dataset) Header() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Row returns the values of row i in column order.
func (d *Dataset) Row(i int) []any {
	out := make([]any, len(d.Columns))
	for j, c := range d.Columns {
		out[j] = c.Values[i]
	}
	return out
}

// Column returns the named column.
func (d *Dataset) Column(name string) (Column, bool) {
	if d == nil {
		return Column{}, false
	}
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Assembler accumulates entries column-wise. It is not safe for concurrent use; a single
// coordinator appends each batch after the batch completes.
type Assembler struct {
	fields  []FieldSpec
	columns []Column
}

// NewAssembler prepares one empty column per field. capacity pre-sizes each column.
func NewAssembler(fields []FieldSpec, capacity int) *Assembler {
	if capacity < 0 {
		capacity = 0
	}
	cols := make([]Column, len(fields))
	for i, f := range fields {
		cols[i] = Column{
			Name:   f.Name,
			Type:   f.Kind(),
			Values: make([]any, 0, capacity),
		}
	}
	return &Assembler{fields: fields, columns: cols}
}

// Append adds entries in the order given.
func (a *Assembler) Append(entries ...Entry) error {
	for n, e := range entries {
		if e.Len() != len(a.columns) {
			return fmt.Errorf("entry %d has %d values, want %d", n, e.Len(), len(a.columns))
		}
	}
	for _, e := range entries {
		for i := range a.columns {
			a.columns[i].Values = append(a.columns[i].Values, e.values[i])
		}
	}
	return nil
}

// Len returns the number of rows appended so far.
func (a *Assembler) Len() int {
	if len(a.columns) == 0 {
		return 0
	}
	return len(a.columns[0].Values)
}

// Dataset returns the assembled table. The assembler must not be used afterwards.
func (a *Assembler) Dataset() *Dataset {
	return &Dataset{Columns: a.columns}
}
