// Package validation checks raw prediction requests against the model's
// feature schema.
package validation

import "strings"

// Kind is the semantic type of a parameter value.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

const (
	EnvelopeKey = "model_params"

	// StudioKey is present in the raw dataset but the model never saw it.
	StudioKey = "studio"

	FieldBuildYear       = "build_year"
	FieldBuildingTypeInt = "building_type_int"
	FieldBuildingAge     = "building_age"

	MinBuildYear       = 1900
	MinBuildingTypeInt = 0
	MaxBuildingTypeInt = 6
)

// Field is one required model feature and the kinds it accepts.
type Field struct {
	Name  string
	Kinds []Kind
}

func (f Field) accepts(kind Kind) bool {
	for _, k := range f.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (f Field) isBool() bool {
	return len(f.Kinds) == 1 && f.Kinds[0] == KindBool
}

func (f Field) kindNames() string {
	names := make([]string, len(f.Kinds))
	for i, k := range f.Kinds {
		names[i] = k.String()
	}
	return strings.Join(names, "|")
}

// Schema is an ordered, immutable set of required fields.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema copies fields; later changes to the argument do not leak in.
func NewSchema(fields ...Field) *Schema {
	s := &Schema{
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		s.fields[i] = Field{Name: f.Name, Kinds: append([]Kind(nil), f.Kinds...)}
		s.index[f.Name] = i
	}
	return s
}

var defaultSchema = NewSchema(
	Field{Name: "floor", Kinds: []Kind{KindInt}},
	Field{Name: "kitchen_area", Kinds: []Kind{KindFloat, KindInt}},
	Field{Name: "living_area", Kinds: []Kind{KindFloat, KindInt}},
	Field{Name: "rooms", Kinds: []Kind{KindInt}},
	Field{Name: "is_apartment", Kinds: []Kind{KindBool}},
	Field{Name: "total_area", Kinds: []Kind{KindFloat, KindInt}},
	Field{Name: FieldBuildYear, Kinds: []Kind{KindInt}},
	Field{Name: FieldBuildingTypeInt, Kinds: []Kind{KindInt}},
	Field{Name: "latitude", Kinds: []Kind{KindFloat, KindInt}},
	Field{Name: "longitude", Kinds: []Kind{KindFloat, KindInt}},
	Field{Name: "ceiling_height", Kinds: []Kind{KindFloat, KindInt}},
	Field{Name: "flats_count", Kinds: []Kind{KindInt}},
	Field{Name: "floors_total", Kinds: []Kind{KindInt}},
	Field{Name: "has_elevator", Kinds: []Kind{KindBool}},
)

// DefaultSchema returns the 14 features the price model was trained on
// (with build_year in place of the derived building_age).
func DefaultSchema() *Schema {
	return defaultSchema
}

func (s *Schema) Len() int {
	return len(s.fields)
}

// Names returns the field names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	f := s.fields[i]
	return Field{Name: f.Name, Kinds: append([]Kind(nil), f.Kinds...)}, true
}
