// Package measure defines the anthropometric measurement set the generator
// consumes and the validation rules applied before a prompt is built.
package measure

import (
	"fmt"
	"math"
)

// Sex is the normalized biological sex label used in prompts.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Measurement is one subject's set of anthropometric values. Lengths are
// centimetres, weight is kilograms. WaistCM is optional; zero means absent.
type Measurement struct {
	Age      int     `json:"age"`
	Sex      Sex     `json:"sex"`
	HeightCM float64 `json:"height_cm"`
	WeightKG float64 `json:"weight_kg"`
	WaistCM  float64 `json:"waist_cm,omitempty"`
}

// Accepted input ranges. Values outside these bounds are rejected rather
// than clamped so a transposed field (height in the weight column) fails
// loudly instead of producing a plausible-looking summary.
const (
	MinAge      = 1
	MaxAge      = 120
	MinHeightCM = 50
	MaxHeightCM = 250
	MinWeightKG = 10
	MaxWeightKG = 400
	MinWaistCM  = 20
	MaxWaistCM  = 250
)

// Validate checks every field against its accepted range.
func (m Measurement) Validate() error {
	if m.Age < MinAge || m.Age > MaxAge {
		return fmt.Errorf("age %d out of range [%d, %d]", m.Age, MinAge, MaxAge)
	}
	if m.Sex != SexMale && m.Sex != SexFemale {
		return fmt.Errorf("sex %q is not recognized", string(m.Sex))
	}
	if err := checkRange("height_cm", m.HeightCM, MinHeightCM, MaxHeightCM); err != nil {
		return err
	}
	if err := checkRange("weight_kg", m.WeightKG, MinWeightKG, MaxWeightKG); err != nil {
		return err
	}
	if m.WaistCM != 0 {
		if err := checkRange("waist_cm", m.WaistCM, MinWaistCM, MaxWaistCM); err != nil {
			return err
		}
	}
	return nil
}

// BMI returns weight divided by squared height in metres, rounded to one
// decimal place. Returns 0 when height is unset.
func (m Measurement) BMI() float64 {
	if m.HeightCM <= 0 {
		return 0
	}
	h := m.HeightCM / 100
	return math.Round(m.WeightKG/(h*h)*10) / 10
}

// WaistToHeight returns the waist-to-height ratio rounded to two decimal
// places, or 0 when waist circumference was not provided.
func (m Measurement) WaistToHeight() float64 {
	if m.WaistCM <= 0 || m.HeightCM <= 0 {
		return 0
	}
	return math.Round(m.WaistCM/m.HeightCM*100) / 100
}

func checkRange(field string, v, lo, hi float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s is not a finite number", field)
	}
	if v < lo || v > hi {
		return fmt.Errorf("%s %.1f out of range [%.0f, %.0f]", field, v, lo, hi)
	}
	return nil
}
