package api

import (
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

// SSEStreamWriter emits summary generation progress as server-sent events.
// Event order: summary.created, summary.delta*, then exactly one of
// summary.completed / summary.failed / summary.incomplete.
type SSEStreamWriter struct {
	res     http.ResponseWriter
	flusher func()
	seq     int
	begun   bool
}

// NewSSEStreamWriter wraps the response for event streaming. Headers are
// not touched until the first event goes out, so validation failures before
// Begin can still answer with a plain JSON error.
func NewSSEStreamWriter(c *echo.Context) (*SSEStreamWriter, error) {
	res := c.Response()
	flusher, ok := res.(interface{ Flush() })
	if !ok {
		return nil, fmt.Errorf("streaming unsupported")
	}

	return &SSEStreamWriter{
		res:     res,
		flusher: flusher.Flush,
		seq:     1,
	}, nil
}

type summaryEvent struct {
	Type           string           `json:"type"`
	Summary        *SummaryResponse `json:"summary,omitempty"`
	Delta          string           `json:"delta,omitempty"`
	SequenceNumber int              `json:"sequence_number"`
}

// Begin implements StreamWriter.
func (s *SSEStreamWriter) Begin(resp SummaryResponse) error {
	resp.Status = "in_progress"
	return s.send(summaryEvent{Type: "summary.created", Summary: &resp})
}

// Started reports whether any event has been written; once true the HTTP
// status is committed and errors can only be reported in-stream.
func (s *SSEStreamWriter) Started() bool {
	return s.begun
}

// EmitToken implements StreamWriter.
func (s *SSEStreamWriter) EmitToken(delta string) error {
	return s.send(summaryEvent{Type: "summary.delta", Delta: delta})
}

// Complete implements StreamWriter.
func (s *SSEStreamWriter) Complete(resp SummaryResponse) error {
	resp.Status = "completed"
	return s.send(summaryEvent{Type: "summary.completed", Summary: &resp})
}

// Failed implements StreamWriter.
func (s *SSEStreamWriter) Failed(resp SummaryResponse, err error) error {
	resp.Status = "failed"
	if resp.Error == nil {
		resp.Error = &APIError{Message: err.Error(), Type: "server_error"}
	}
	return s.send(summaryEvent{Type: "summary.failed", Summary: &resp})
}

// Incomplete implements StreamWriter.
func (s *SSEStreamWriter) Incomplete(resp SummaryResponse, err error) error {
	resp.Status = "incomplete"
	if resp.Error == nil {
		resp.Error = &APIError{Message: err.Error(), Type: "cancelled"}
	}
	return s.send(summaryEvent{Type: "summary.incomplete", Summary: &resp})
}

func (s *SSEStreamWriter) send(event summaryEvent) error {
	if !s.begun {
		h := s.res.Header()
		h.Set(echo.HeaderContentType, "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		s.begun = true
	}
	event.SequenceNumber = s.seq
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.res, "data: %s\n\n", string(b)); err != nil {
		return err
	}
	s.flusher()
	s.seq++
	return nil
}
