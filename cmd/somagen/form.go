package main

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"

	"github.com/somalabs/somagen/internal/measure"
)

// promptMeasurement collects a measurement interactively. Free-text answers
// go through the same coercion as API input, so "1.72m" or "160 lb" work
// here too.
func promptMeasurement() (measure.Measurement, error) {
	var answers struct {
		Age    string
		Sex    string
		Height string
		Weight string
		Waist  string
	}

	questions := []*survey.Question{
		{
			Name:     "age",
			Prompt:   &survey.Input{Message: "Age (years):"},
			Validate: coerceValidator(func(s string) error { _, err := measure.CoerceAge(s); return err }),
		},
		{
			Name: "sex",
			Prompt: &survey.Select{
				Message: "Sex:",
				Options: []string{"female", "male"},
			},
		},
		{
			Name:     "height",
			Prompt:   &survey.Input{Message: "Height (e.g. 172, 1.72m, 68in):"},
			Validate: coerceValidator(func(s string) error { _, err := measure.CoerceLength("height", s); return err }),
		},
		{
			Name:     "weight",
			Prompt:   &survey.Input{Message: "Weight (e.g. 70, 70kg, 155lb):"},
			Validate: coerceValidator(func(s string) error { _, err := measure.CoerceWeight("weight", s); return err }),
		},
		{
			Name:   "waist",
			Prompt: &survey.Input{Message: "Waist circumference in cm (optional):"},
		},
	}

	if err := survey.Ask(questions, &answers); err != nil {
		return measure.Measurement{}, err
	}

	return measure.FromFields(answers.Age, answers.Sex, answers.Height, answers.Weight, answers.Waist)
}

// coerceValidator adapts a coercion check to survey's validator shape.
func coerceValidator(check func(string) error) survey.Validator {
	return func(ans interface{}) error {
		s, ok := ans.(string)
		if !ok {
			return fmt.Errorf("expected a text answer")
		}
		return check(s)
	}
}
