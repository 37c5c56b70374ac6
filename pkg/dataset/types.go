package dataset

import (
	"strings"
)

// FieldType is the declared type of a field. The zero value is TypeString.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInteger
	TypeFloat
	TypeDate
	TypeDateTime
	TypeCategorical
	TypeBoolean
	// TypeUnknown is any type string not listed above. It synthesizes like TypeString.
	TypeUnknown
)

var fieldTypeNames = map[FieldType]string{
	TypeString:      "string",
	TypeInteger:     "integer",
	TypeFloat:       "float",
	TypeDate:        "date",
	TypeDateTime:    "datetime",
	TypeCategorical: "categorical",
	TypeBoolean:     "boolean",
	TypeUnknown:     "unknown",
}

func (t FieldType) String() string {
	if s, ok := fieldTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// ParseFieldType maps a declared type name onto a FieldType. Matching is case-insensitive.
// An empty name is a string field; anything unrecognised is TypeUnknown.
func ParseFieldType(raw string) FieldType {
	s := strings.TrimSpace(strings.ToLower(raw))
	switch s {
	case "", "string":
		return TypeString
	case "integer":
		return TypeInteger
	case "float":
		return TypeFloat
	case "date":
		return TypeDate
	case "datetime":
		return TypeDateTime
	case "categorical":
		return TypeCategorical
	case "boolean":
		return TypeBoolean
	default:
		return TypeUnknown
	}
}

// FieldSpec declares one column of the dataset.
type FieldSpec struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Constraints string `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// Kind returns the parsed FieldType of the spec.
func (f FieldSpec) Kind() FieldType {
	return ParseFieldType(f.Type)
}

// Requirements is the structured description of a dataset to synthesize.
type Requirements struct {
	Domain     string      `json:"domain" yaml:"domain"`
	NumEntries int         `json:"num_entries" yaml:"num_entries" validate:"gte=0"`
	Fields     []FieldSpec `json:"fields" yaml:"fields" validate:"required,min=1,unique=Name,dive"`
}

// Normalize trims whitespace from names, types and constraints and fills in the
// implicit "string" type.
func (r Requirements) Normalize() Requirements {
	out := Requirements{
		Domain:     strings.TrimSpace(r.Domain),
		NumEntries: r.NumEntries,
		Fields:     make([]FieldSpec, 0, len(r.Fields)),
	}
	for _, f := range r.Fields {
		typ := strings.TrimSpace(f.Type)
		if typ == "" {
			typ = TypeString.String()
		}
		out.Fields = append(out.Fields, FieldSpec{
			Name:        strings.TrimSpace(f.Name),
			Type:        typ,
			Constraints: strings.TrimSpace(f.Constraints),
		})
	}
	return out
}

// FieldNames returns the declared field names in order.
func (r Requirements) FieldNames() []string {
	out := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		out[i] = f.Name
	}
	return out
}
