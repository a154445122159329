package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// DefaultOllamaBaseURL is where a local Ollama server listens.
const DefaultOllamaBaseURL = "http://localhost:11434"

// Ollama speaks the /api/generate endpoint. Ollama has no per-request
// adapter routing, so the adapter must be baked into the named model
// (a Modelfile with an ADAPTER line); the adapter ID is used as the
// model name when set.
type Ollama struct {
	baseURL   string
	baseModel string
	client    *http.Client
}

// NewOllama returns a backend for an Ollama server at baseURL.
func NewOllama(baseURL, baseModel string) *Ollama {
	u := strings.TrimSuffix(baseURL, "/")
	if u == "" {
		u = DefaultOllamaBaseURL
	}
	return &Ollama{
		baseURL:   u,
		baseModel: baseModel,
		client:    &http.Client{},
	}
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	NumPredict    int      `json:"num_predict,omitempty"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"top_p,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	RepeatPenalty float64  `json:"repeat_penalty,omitempty"`
	Seed          int64    `json:"seed,omitempty"`
	Stop          []string `json:"stop,omitempty"`
}

type ollamaGenerateResponse struct {
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	EvalCount int    `json:"eval_count"`
	Error     string `json:"error"`
}

// Generate implements Engine.
func (e *Ollama) Generate(ctx context.Context, req *Request, stream StreamFunc) (*Result, error) {
	model := req.Adapter
	if model == "" {
		model = e.baseModel
	}
	body := ollamaGenerateRequest{
		Model:  model,
		Prompt: req.Prompt,
		Stream: stream != nil,
		Options: ollamaOptions{
			NumPredict:    req.MaxTokens,
			Temperature:   req.Temperature,
			TopP:          req.TopP,
			TopK:          req.TopK,
			RepeatPenalty: req.RepeatPenalty,
			Stop:          req.Stop,
		},
	}
	if req.Seed >= 0 {
		body.Options.Seed = req.Seed
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/generate", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: HTTP %d", resp.StatusCode)
	}

	start := time.Now()
	var text strings.Builder
	tokens := 0

	// One JSON object per line, final object carries done=true and counts.
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaGenerateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return nil, fmt.Errorf("ollama: bad stream chunk: %w", err)
		}
		if chunk.Error != "" {
			return nil, fmt.Errorf("ollama: %s", chunk.Error)
		}
		if chunk.Response != "" {
			text.WriteString(chunk.Response)
			tokens++
			if stream != nil {
				stream(chunk.Response)
			}
		}
		if chunk.Done {
			if chunk.EvalCount > 0 {
				tokens = chunk.EvalCount
			}
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ollama: stream: %w", err)
	}
	return &Result{Text: text.String(), Stats: finishStats(tokens, start)}, nil
}

// Close implements Engine.
func (e *Ollama) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
