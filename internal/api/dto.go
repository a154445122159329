package api

import "github.com/somalabs/somagen/internal/engine"

// SummaryRequest is the JSON body for POST /v1/summaries. Measurement
// fields are typed any because clients send numbers, numeric strings, and
// unit-suffixed strings interchangeably; coercion happens in one place.
type SummaryRequest struct {
	Age      any `json:"age"`
	Sex      any `json:"sex"`
	HeightCM any `json:"height_cm"`
	WeightKG any `json:"weight_kg"`
	WaistCM  any `json:"waist_cm,omitempty"`

	Adapter       string   `json:"adapter,omitempty"`
	MaxTokens     *int     `json:"max_tokens,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty"`
	Seed          *int64   `json:"seed,omitempty"`
	Stream        *bool    `json:"stream,omitempty"`
	Store         *bool    `json:"store,omitempty"`
}

func (r *SummaryRequest) options() engine.Options {
	return engine.Options{
		MaxTokens:     r.MaxTokens,
		Temperature:   r.Temperature,
		TopP:          r.TopP,
		TopK:          r.TopK,
		RepeatPenalty: r.RepeatPenalty,
		Seed:          r.Seed,
	}
}

// MeasurementView is the normalized measurement echoed back to clients.
type MeasurementView struct {
	Age           int     `json:"age"`
	Sex           string  `json:"sex"`
	HeightCM      float64 `json:"height_cm"`
	WeightKG      float64 `json:"weight_kg"`
	WaistCM       float64 `json:"waist_cm,omitempty"`
	BMI           float64 `json:"bmi"`
	WaistToHeight float64 `json:"waist_to_height,omitempty"`
}

// SummaryUsage reports token accounting. Exact is false when the counts
// came from the heuristic fallback tokenizer.
type SummaryUsage struct {
	InputTokens  int  `json:"input_tokens"`
	OutputTokens int  `json:"output_tokens"`
	TotalTokens  int  `json:"total_tokens"`
	Exact        bool `json:"exact"`
}

// SummaryResponse is one generated summary, also the history record shape.
type SummaryResponse struct {
	ID          string           `json:"id"`
	Object      string           `json:"object"`
	CreatedAt   int64            `json:"created_at"`
	Status      string           `json:"status"`
	Adapter     string           `json:"adapter,omitempty"`
	Measurement *MeasurementView `json:"measurement,omitempty"`
	Summary     string           `json:"summary,omitempty"`
	Usage       *SummaryUsage    `json:"usage,omitempty"`
	Error       *APIError        `json:"error,omitempty"`
}

// APIError mirrors the error object embedded in failed responses.
type APIError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
}

// SummaryList is the history listing shape.
type SummaryList struct {
	Object  string            `json:"object"`
	Data    []SummaryResponse `json:"data"`
	HasMore bool              `json:"has_more"`
}

// DeleteSummaryResponse confirms a deletion.
type DeleteSummaryResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// BatchRowEvent is one SSE event during batch processing.
type BatchRowEvent struct {
	Type    string           `json:"type"`
	Line    int              `json:"line,omitempty"`
	Summary string           `json:"summary,omitempty"`
	Error   string           `json:"error,omitempty"`
	Row     *MeasurementView `json:"measurement,omitempty"`

	// set on batch.completed
	Total     int `json:"total,omitempty"`
	Succeeded int `json:"succeeded,omitempty"`
	Failed    int `json:"failed,omitempty"`

	SequenceNumber int `json:"sequence_number"`
}
