package validation

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"
)

// Parameters is a request that passed validation, with every value
// converted to float64 (booleans become 0 or 1).
type Parameters map[string]float64

// Validator checks raw requests against a Schema. It holds no mutable state
// and is safe for concurrent use.
type Validator struct {
	schema *Schema
	now    func() time.Time
}

type Option func(*Validator)

// WithClock overrides the source of the current year.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

func New(opts ...Option) *Validator {
	v := &Validator{
		schema: DefaultSchema(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs the envelope, schema, type and range checks in that order
// and stops at the first failure.
func (v *Validator) Validate(raw map[string]any) (Parameters, error) {
	params, err := v.CheckEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if err := v.CheckSchema(params); err != nil {
		return nil, err
	}
	if err := v.CheckTypes(params); err != nil {
		return nil, err
	}
	if err := v.CheckRanges(params); err != nil {
		return nil, err
	}
	return v.normalize(params), nil
}

// CheckEnvelope returns the model_params mapping nested in raw.
func (v *Validator) CheckEnvelope(raw map[string]any) (map[string]any, error) {
	params, ok := raw[EnvelopeKey].(map[string]any)
	if !ok || params == nil {
		return nil, errMissingEnvelope()
	}
	return params, nil
}

// CheckSchema requires the keys of params to be exactly the schema's fields.
// The studio key is ignored.
func (v *Validator) CheckSchema(params map[string]any) error {
	var missing, extra []string
	for _, f := range v.schema.fields {
		if _, ok := params[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	for key := range params {
		if key == StudioKey {
			continue
		}
		if _, ok := v.schema.index[key]; !ok {
			extra = append(extra, key)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	return errSchemaMismatch(missing, extra)
}

// CheckTypes requires every schema field to hold a value of an accepted kind.
// Boolean fields also take the integers 0 and 1.
func (v *Validator) CheckTypes(params map[string]any) error {
	for _, f := range v.schema.fields {
		kind, num, ok := classify(params[f.Name])
		if !ok {
			return errTypeMismatch(f)
		}
		if f.accepts(kind) {
			continue
		}
		if f.isBool() && kind == KindInt && (num == 0 || num == 1) {
			continue
		}
		return errTypeMismatch(f)
	}
	return nil
}

// CheckRanges expects params to have passed CheckTypes.
func (v *Validator) CheckRanges(params map[string]any) error {
	for _, f := range v.schema.fields {
		if f.Name == FieldBuildingTypeInt {
			continue
		}
		if _, num, ok := classify(params[f.Name]); ok && num < 0 {
			return errNegative(f.Name)
		}
	}

	year := v.now().Year()
	if _, ok := v.schema.index[FieldBuildYear]; ok {
		if _, num, _ := classify(params[FieldBuildYear]); num < MinBuildYear || num > float64(year) {
			return errOutOfRange(FieldBuildYear, MinBuildYear, year)
		}
	}
	if _, ok := v.schema.index[FieldBuildingTypeInt]; ok {
		if _, num, _ := classify(params[FieldBuildingTypeInt]); num < MinBuildingTypeInt || num > MaxBuildingTypeInt {
			return errOutOfRange(FieldBuildingTypeInt, MinBuildingTypeInt, MaxBuildingTypeInt)
		}
	}
	return nil
}

func (v *Validator) normalize(params map[string]any) Parameters {
	out := make(Parameters, len(v.schema.fields))
	for _, f := range v.schema.fields {
		_, num, _ := classify(params[f.Name])
		out[f.Name] = num
	}
	return out
}

// classify reports the kind and numeric value of a decoded value. Values
// decoded with json.Decoder.UseNumber keep the int/float distinction.
func classify(value any) (Kind, float64, bool) {
	switch x := value.(type) {
	case bool:
		if x {
			return KindBool, 1, true
		}
		return KindBool, 0, true
	case int:
		return KindInt, float64(x), true
	case int8:
		return KindInt, float64(x), true
	case int16:
		return KindInt, float64(x), true
	case int32:
		return KindInt, float64(x), true
	case int64:
		return KindInt, float64(x), true
	case uint:
		return KindInt, float64(x), true
	case uint8:
		return KindInt, float64(x), true
	case uint16:
		return KindInt, float64(x), true
	case uint32:
		return KindInt, float64(x), true
	case uint64:
		return KindInt, float64(x), true
	case float32:
		return finiteFloat(float64(x))
	case float64:
		return finiteFloat(x)
	case json.Number:
		return classifyNumber(x)
	default:
		return 0, 0, false
	}
}

func classifyNumber(n json.Number) (Kind, float64, bool) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return KindInt, float64(i), true
		}
		// Integer literal outside int64.
		if f, err := n.Float64(); err == nil {
			return KindInt, f, true
		}
		return 0, 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, 0, false
	}
	return finiteFloat(f)
}

func finiteFloat(f float64) (Kind, float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, 0, false
	}
	return KindFloat, f, true
}
