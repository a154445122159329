package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	req := Resolve("prompt", "adapter", Options{}, Defaults{})
	if req.MaxTokens != 256 || req.Temperature != 0.7 || req.Seed != -1 {
		t.Fatalf("built-in defaults not applied: %+v", req)
	}

	temp := 0.2
	maxTok := 100
	req = Resolve("p", "", Options{Temperature: &temp}, Defaults{Temperature: fptr(1.0), MaxTokens: &maxTok})
	if req.Temperature != 0.2 {
		t.Fatalf("option must win over default, got %v", req.Temperature)
	}
	if req.MaxTokens != 100 {
		t.Fatalf("config default not applied, got %v", req.MaxTokens)
	}

	// invalid values fall through to defaults
	req = Resolve("p", "", Options{TopP: fptr(1.5)}, Defaults{})
	if req.TopP != 0.9 {
		t.Fatalf("out-of-range top_p accepted: %v", req.TopP)
	}
}

func fptr(v float64) *float64 { return &v }

func sseChunk(text string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"text": text}},
	})
	return "data: " + string(b) + "\n\n"
}

func TestOpenAICompatibleStream(t *testing.T) {
	t.Parallel()

	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotModel = req.Model
		if !req.Stream {
			t.Error("expected streaming request")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("Hel"))
		fmt.Fprint(w, sseChunk("lo"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	e := NewOpenAICompatible(srv.URL, "base-model", "secret")
	var toks []string
	result, err := e.Generate(context.Background(), &Request{Prompt: "p", Adapter: "acme/soma-adapter", Seed: -1}, func(tok string) {
		toks = append(toks, tok)
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Text != "Hello" {
		t.Fatalf("text: got %q", result.Text)
	}
	if len(toks) != 2 {
		t.Fatalf("stream calls: got %v", toks)
	}
	if gotModel != "acme/soma-adapter" {
		t.Fatalf("adapter should be sent as model, got %q", gotModel)
	}
	if result.Stats.TokensGenerated != 2 {
		t.Fatalf("stats: %+v", result.Stats)
	}
}

func TestOpenAICompatibleStreamCancel(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("first"))
		w.(http.Flusher).Flush()
		// hold the stream open until the client gives up
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := NewOpenAICompatible(srv.URL, "base", "")
	req := Resolve("p", "", Options{}, Defaults{})

	var got []string
	_, err := e.Generate(ctx, &req, func(tok string) {
		got = append(got, tok)
		cancel()
	})
	if err == nil {
		t.Fatal("cancelled stream must return an error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled in chain, got %v", err)
	}
	if len(got) != 1 || got[0] != "first" {
		t.Fatalf("tokens before cancel: %v", got)
	}
}

func TestOpenAICompatibleSync(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", auth)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"text": "A summary."}},
			"usage":   map[string]any{"completion_tokens": 4},
		})
	}))
	defer srv.Close()

	e := NewOpenAICompatible(srv.URL, "base-model", "secret")
	result, err := e.Generate(context.Background(), &Request{Prompt: "p", Seed: -1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Text != "A summary." || result.Stats.TokensGenerated != 4 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestOpenAICompatibleHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"adapter not found"}}`)
	}))
	defer srv.Close()

	e := NewOpenAICompatible(srv.URL, "base-model", "")
	_, err := e.Generate(context.Background(), &Request{Prompt: "p", Seed: -1}, nil)
	if err == nil || !strings.Contains(err.Error(), "adapter not found") {
		t.Fatalf("expected server error message, got %v", err)
	}
}

func TestOllamaStream(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintln(w, `{"response":"Hel","done":false}`)
		fmt.Fprintln(w, `{"response":"lo","done":false}`)
		fmt.Fprintln(w, `{"response":"","done":true,"eval_count":7}`)
	}))
	defer srv.Close()

	e := NewOllama(srv.URL, "soma")
	var got strings.Builder
	result, err := e.Generate(context.Background(), &Request{Prompt: "p", Seed: -1}, func(tok string) {
		got.WriteString(tok)
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Text != "Hello" || got.String() != "Hello" {
		t.Fatalf("text: result=%q streamed=%q", result.Text, got.String())
	}
	if result.Stats.TokensGenerated != 7 {
		t.Fatalf("eval_count not used: %+v", result.Stats)
	}
}

type scriptedEngine struct {
	text   string
	err    error
	called int
}

func (s *scriptedEngine) Generate(ctx context.Context, req *Request, stream StreamFunc) (*Result, error) {
	s.called++
	if s.err != nil {
		return nil, s.err
	}
	if stream != nil {
		stream(s.text)
	}
	return &Result{Text: s.text}, nil
}

func (s *scriptedEngine) Close() error { return nil }

func TestFallback(t *testing.T) {
	t.Parallel()

	primary := &scriptedEngine{err: errors.New("connection refused")}
	secondary := &scriptedEngine{text: "ok"}
	f := &Fallback{Primary: primary, Secondary: secondary}

	result, err := f.Generate(context.Background(), &Request{Prompt: "p"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Text != "ok" || secondary.called != 1 {
		t.Fatalf("secondary not used: %+v called=%d", result, secondary.called)
	}
}

type midStreamEngine struct{}

func (midStreamEngine) Generate(ctx context.Context, req *Request, stream StreamFunc) (*Result, error) {
	if stream != nil {
		stream("partial")
	}
	return nil, errors.New("stream cut")
}

func (midStreamEngine) Close() error { return nil }

func TestFallbackDoesNotRetryMidStream(t *testing.T) {
	t.Parallel()

	secondary := &scriptedEngine{text: "ok"}
	f := &Fallback{Primary: midStreamEngine{}, Secondary: secondary}

	_, err := f.Generate(context.Background(), &Request{Prompt: "p"}, func(string) {})
	if err == nil {
		t.Fatal("mid-stream failure must propagate")
	}
	if secondary.called != 0 {
		t.Fatal("secondary must not run after tokens were emitted")
	}
}
