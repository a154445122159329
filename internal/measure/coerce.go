package measure

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coercion accepts the loose shapes that arrive from JSON bodies, CSV cells
// and form fields: numbers, numeric strings, comma decimals, and values with
// a trailing unit word. Imperial units are converted to metric on the way in.

type unit struct {
	suffix string
	factor float64
}

// Longest suffix listed first so "cm" wins over "m".
var lengthUnits = []unit{
	{"centimetres", 1}, {"centimeters", 1}, {"centimetre", 1}, {"centimeter", 1},
	{"inches", 2.54}, {"metres", 100}, {"meters", 100},
	{"metre", 100}, {"meter", 100}, {"inch", 2.54},
	{"cm", 1}, {"in", 2.54}, {"\"", 2.54}, {"m", 100},
}

var weightUnits = []unit{
	{"kilograms", 1}, {"kilogram", 1}, {"pounds", 0.45359237}, {"pound", 0.45359237},
	{"lbs", 0.45359237}, {"kgs", 1}, {"kg", 1}, {"lb", 0.45359237},
}

// CoerceSex normalizes free-form sex labels ("M", "Female", " f ").
func CoerceSex(v any) (Sex, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("sex must be a string, got %T", v)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male", "man":
		return SexMale, nil
	case "f", "female", "woman":
		return SexFemale, nil
	default:
		return "", fmt.Errorf("sex %q is not recognized", s)
	}
}

// CoerceAge accepts ints, integral floats, and numeric strings.
func CoerceAge(v any) (int, error) {
	f, err := coerceNumber("age", v, nil)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("age %v must be a whole number", f)
	}
	return int(f), nil
}

// CoerceLength accepts a length value and returns centimetres.
func CoerceLength(field string, v any) (float64, error) {
	return coerceNumber(field, v, lengthUnits)
}

// CoerceWeight accepts a weight value and returns kilograms.
func CoerceWeight(field string, v any) (float64, error) {
	return coerceNumber(field, v, weightUnits)
}

// coerceNumber turns v into a float64. Strings may use a comma decimal
// separator and may end with a unit suffix from units, which scales the
// result. JSON decoders hand numbers over as float64; CSV hands strings.
func coerceNumber(field string, v any, units []unit) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, fmt.Errorf("%s is required", field)
	case float64:
		return checkFinite(field, n)
	case float32:
		return checkFinite(field, float64(n))
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return parseNumberString(field, n, units)
	default:
		return 0, fmt.Errorf("%s must be a number or numeric string, got %T", field, v)
	}
}

func parseNumberString(field, s string, units []unit) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%s is required", field)
	}

	factor := 1.0
	lower := strings.ToLower(s)
	for _, u := range units {
		if !strings.HasSuffix(lower, u.suffix) {
			continue
		}
		head := strings.TrimSpace(lower[:len(lower)-len(u.suffix)])
		if head == "" {
			break // a bare unit with no number
		}
		s = head
		factor = u.factor
		break
	}

	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: cannot parse %q as a number", field, s)
	}
	return checkFinite(field, f*factor)
}

func checkFinite(field string, f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s is not a finite number", field)
	}
	return f, nil
}

// FromFields builds a validated Measurement from loosely typed field values,
// as decoded from a JSON body or a CSV row. waist may be nil or empty.
func FromFields(age, sex, height, weight, waist any) (Measurement, error) {
	var m Measurement
	var err error

	if m.Age, err = CoerceAge(age); err != nil {
		return m, err
	}
	if m.Sex, err = CoerceSex(sex); err != nil {
		return m, err
	}
	if m.HeightCM, err = CoerceLength("height_cm", height); err != nil {
		return m, err
	}
	if m.WeightKG, err = CoerceWeight("weight_kg", weight); err != nil {
		return m, err
	}
	if waist != nil {
		if s, ok := waist.(string); !ok || strings.TrimSpace(s) != "" {
			if m.WaistCM, err = CoerceLength("waist_cm", waist); err != nil {
				return m, err
			}
		}
	}

	if err := m.Validate(); err != nil {
		return m, err
	}
	return m, nil
}
