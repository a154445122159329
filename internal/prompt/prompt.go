// Package prompt renders measurements into the fixed natural-language form
// the fine-tuned summarizer was trained on, and cleans up raw model output.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/somalabs/somagen/internal/measure"
)

// The wording is part of the model contract: the adapter was trained against
// this exact sentence shape, so changes here degrade output quality.
const summaryTemplate = `You are a health assistant. Write a short, plain-language summary of the following patient profile.

Patient profile: age {{.Age}} years, sex {{.Sex}}, height {{printf "%.0f" .HeightCM}} cm, weight {{printf "%.1f" .WeightKG}} kg{{if gt .WaistCM 0.0}}, waist circumference {{printf "%.0f" .WaistCM}} cm{{end}}.
Derived metrics: BMI {{printf "%.1f" .BMI}}{{if gt .WaistToHeight 0.0}}, waist-to-height ratio {{printf "%.2f" .WaistToHeight}}{{end}}.

Summary:`

var tmpl = template.Must(template.New("summary").Parse(summaryTemplate))

type templateData struct {
	Age           int
	Sex           measure.Sex
	HeightCM      float64
	WeightKG      float64
	WaistCM       float64
	BMI           float64
	WaistToHeight float64
}

// Render serializes a validated measurement into the prompt text.
func Render(m measure.Measurement) (string, error) {
	if err := m.Validate(); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	var b strings.Builder
	data := templateData{
		Age:           m.Age,
		Sex:           m.Sex,
		HeightCM:      m.HeightCM,
		WeightKG:      m.WeightKG,
		WaistCM:       m.WaistCM,
		BMI:           m.BMI(),
		WaistToHeight: m.WaistToHeight(),
	}
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}
