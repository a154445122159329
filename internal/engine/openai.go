package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// OpenAICompatible speaks the /v1/completions dialect served by vLLM, TGI
// and similar model servers. When an adapter is set on the request, its ID
// is sent in the model field: multi-LoRA servers route on it and fold the
// adapter into the base model server-side.
type OpenAICompatible struct {
	baseURL   string
	baseModel string
	apiKey    string
	client    *http.Client
}

// NewOpenAICompatible returns a backend for an OpenAI-compatible server.
func NewOpenAICompatible(baseURL, baseModel, apiKey string) *OpenAICompatible {
	return &OpenAICompatible{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		baseModel: baseModel,
		apiKey:    apiKey,
		client:    &http.Client{},
	}
}

type completionRequest struct {
	Model         string   `json:"model"`
	Prompt        string   `json:"prompt"`
	MaxTokens     int      `json:"max_tokens,omitempty"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"top_p,omitempty"`
	Seed          *int64   `json:"seed,omitempty"`
	Stop          []string `json:"stop,omitempty"`
	Stream        bool     `json:"stream"`
	RepetitionPen float64  `json:"repetition_penalty,omitempty"`
}

type completionChoice struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

type completionResponse struct {
	Choices []completionChoice `json:"choices"`
	Usage   *struct {
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate implements Engine.
func (e *OpenAICompatible) Generate(ctx context.Context, req *Request, stream StreamFunc) (*Result, error) {
	body := completionRequest{
		Model:         e.resolveModel(req.Adapter),
		Prompt:        req.Prompt,
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		Stop:          req.Stop,
		Stream:        stream != nil,
		RepetitionPen: req.RepeatPenalty,
	}
	if req.Seed >= 0 {
		body.Seed = &req.Seed
	}

	resp, err := e.post(ctx, "/v1/completions", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeHTTPError("completions", resp)
	}

	start := time.Now()
	if stream == nil {
		var out completionResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("completions: decode: %w", err)
		}
		if len(out.Choices) == 0 {
			return nil, fmt.Errorf("completions: no choices in response")
		}
		tokens := 0
		if out.Usage != nil {
			tokens = out.Usage.CompletionTokens
		}
		return &Result{Text: out.Choices[0].Text, Stats: finishStats(tokens, start)}, nil
	}

	return readSSE(ctx, resp.Body, stream, start)
}

// readSSE consumes data: lines until [DONE] or EOF.
func readSSE(ctx context.Context, r io.Reader, stream StreamFunc, start time.Time) (*Result, error) {
	var text strings.Builder
	tokens := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}
		var chunk completionResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return nil, fmt.Errorf("completions: bad stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return nil, fmt.Errorf("completions: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Text
		if delta != "" {
			text.WriteString(delta)
			tokens++
			stream(delta)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("completions: stream: %w", err)
	}
	return &Result{Text: text.String(), Stats: finishStats(tokens, start)}, nil
}

func (e *OpenAICompatible) post(ctx context.Context, path string, body any) (*http.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completions: %w", err)
	}
	return resp, nil
}

func (e *OpenAICompatible) resolveModel(adapter string) string {
	if adapter != "" {
		return adapter
	}
	return e.baseModel
}

// Close implements Engine.
func (e *OpenAICompatible) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

func decodeHTTPError(backend string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body completionResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != nil {
		return fmt.Errorf("%s: HTTP %d: %s", backend, resp.StatusCode, body.Error.Message)
	}
	return fmt.Errorf("%s: HTTP %d", backend, resp.StatusCode)
}
