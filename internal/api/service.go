package api

import (
	"context"
	"fmt"
	"time"

	"github.com/somalabs/somagen/internal/engine"
	"github.com/somalabs/somagen/internal/measure"
	"github.com/somalabs/somagen/internal/prompt"
	"github.com/somalabs/somagen/internal/tokenizer"
)

// SummaryService turns a summary request into a generation run: coercion,
// prompt rendering, context-window enforcement, the engine call, and output
// cleanup.
type SummaryService struct {
	engine     engine.Engine
	counter    tokenizer.Counter
	defaults   engine.Defaults
	adapter    string
	maxContext int
	clock      func() time.Time
}

// ServiceConfig configures a SummaryService.
type ServiceConfig struct {
	Engine   engine.Engine
	Counter  tokenizer.Counter
	Defaults engine.Defaults
	// Adapter is the default adapter ID applied when a request names none.
	Adapter string
	// MaxContext bounds prompt plus completion tokens; 0 disables the check.
	MaxContext int
}

// NewSummaryService wires a service from its collaborators.
func NewSummaryService(cfg ServiceConfig) *SummaryService {
	counter := cfg.Counter
	if counter == nil {
		counter = tokenizer.Heuristic{}
	}
	return &SummaryService{
		engine:     cfg.Engine,
		counter:    counter,
		defaults:   cfg.Defaults,
		adapter:    cfg.Adapter,
		maxContext: cfg.MaxContext,
		clock:      time.Now,
	}
}

// StreamWriter receives generation progress for streaming responses.
type StreamWriter interface {
	Begin(resp SummaryResponse) error
	EmitToken(delta string) error
	Complete(resp SummaryResponse) error
	Failed(resp SummaryResponse, err error) error
	Incomplete(resp SummaryResponse, err error) error
}

// CreateSummary runs one generation. With a non-nil stream the caller gets
// token deltas as they arrive; the returned response is final either way.
func (s *SummaryService) CreateSummary(ctx context.Context, req *SummaryRequest, stream StreamWriter) (*SummaryResponse, error) {
	m, err := measure.FromFields(req.Age, req.Sex, req.HeightCM, req.WeightKG, req.WaistCM)
	if err != nil {
		return nil, newInvalidRequest(err.Error())
	}

	text, err := prompt.Render(m)
	if err != nil {
		return nil, newInvalidRequest(err.Error())
	}

	adapter := req.Adapter
	if adapter == "" {
		adapter = s.adapter
	}
	genReq := engine.Resolve(text, adapter, req.options(), s.defaults)

	inputTokens := s.counter.Count(text)
	if s.maxContext > 0 && inputTokens+genReq.MaxTokens > s.maxContext {
		return nil, newInvalidRequest(fmt.Sprintf(
			"prompt (%d tokens) plus max_tokens (%d) exceeds the %d token context window",
			inputTokens, genReq.MaxTokens, s.maxContext))
	}

	resp := SummaryResponse{
		ID:        newSummaryID(),
		Object:    "summary",
		CreatedAt: s.clock().Unix(),
		Status:    "in_progress",
		Adapter:   adapter,
		Measurement: &MeasurementView{
			Age:           m.Age,
			Sex:           string(m.Sex),
			HeightCM:      m.HeightCM,
			WeightKG:      m.WeightKG,
			WaistCM:       m.WaistCM,
			BMI:           m.BMI(),
			WaistToHeight: m.WaistToHeight(),
		},
	}

	if stream != nil {
		if err := stream.Begin(resp); err != nil {
			return &resp, err
		}
	}

	result, err := s.engine.Generate(ctx, &genReq, func(tok string) {
		if stream != nil {
			_ = stream.EmitToken(tok)
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			resp.Status = "incomplete"
			resp.Error = &APIError{Message: err.Error(), Type: "cancelled"}
			if stream != nil {
				_ = stream.Incomplete(resp, ctx.Err())
			}
		} else {
			resp.Status = "failed"
			resp.Error = &APIError{Message: err.Error(), Type: "server_error"}
			if stream != nil {
				_ = stream.Failed(resp, err)
			}
		}
		return &resp, err
	}

	resp.Status = "completed"
	resp.Summary = prompt.SanitizeOutput(result.Text)
	outputTokens := result.Stats.TokensGenerated
	if outputTokens == 0 {
		outputTokens = s.counter.Count(resp.Summary)
	}
	resp.Usage = &SummaryUsage{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		Exact:        s.counter.Exact(),
	}

	if stream != nil {
		if err := stream.Complete(resp); err != nil {
			return &resp, err
		}
	}
	return &resp, nil
}
