// Package engine talks to the external model server that performs the
// actual inference. Tokenization, adapter merging and sampling all happen
// server-side; this package only formats requests and relays token streams.
package engine

import (
	"context"
	"time"
)

// StreamFunc receives each generated token fragment as it arrives.
type StreamFunc func(token string)

// Engine is a generation backend.
type Engine interface {
	Generate(ctx context.Context, req *Request, stream StreamFunc) (*Result, error)
	Close() error
}

// Request is a fully resolved generation request.
type Request struct {
	Prompt  string
	Adapter string

	MaxTokens     int
	Temperature   float64
	TopP          float64
	TopK          int
	RepeatPenalty float64
	Seed          int64
	Stop          []string
}

// Stats describes one generation run.
type Stats struct {
	TokensGenerated int
	Duration        time.Duration
	TPS             float64
}

// Result is the completed generation.
type Result struct {
	Text  string
	Stats Stats
}

// Options carries caller overrides; nil fields fall back to Defaults.
type Options struct {
	MaxTokens     *int
	Temperature   *float64
	TopP          *float64
	TopK          *int
	RepeatPenalty *float64
	Seed          *int64
	Stop          []string
}

// Defaults are the configured sampling defaults.
type Defaults struct {
	MaxTokens     *int
	Temperature   *float64
	TopP          *float64
	TopK          *int
	RepeatPenalty *float64
}

// Resolve layers Options over Defaults over built-in values.
func Resolve(prompt, adapter string, opts Options, defaults Defaults) Request {
	req := Request{
		Prompt:        prompt,
		Adapter:       adapter,
		MaxTokens:     256,
		Temperature:   0.7,
		TopP:          0.9,
		TopK:          40,
		RepeatPenalty: 1.1,
		Seed:          -1,
	}

	if defaults.MaxTokens != nil && *defaults.MaxTokens > 0 {
		req.MaxTokens = *defaults.MaxTokens
	}
	if defaults.Temperature != nil && *defaults.Temperature >= 0 {
		req.Temperature = *defaults.Temperature
	}
	if defaults.TopP != nil && *defaults.TopP > 0 && *defaults.TopP <= 1 {
		req.TopP = *defaults.TopP
	}
	if defaults.TopK != nil && *defaults.TopK > 0 {
		req.TopK = *defaults.TopK
	}
	if defaults.RepeatPenalty != nil && *defaults.RepeatPenalty > 0 {
		req.RepeatPenalty = *defaults.RepeatPenalty
	}

	if opts.MaxTokens != nil && *opts.MaxTokens > 0 {
		req.MaxTokens = *opts.MaxTokens
	}
	if opts.Temperature != nil && *opts.Temperature >= 0 {
		req.Temperature = *opts.Temperature
	}
	if opts.TopP != nil && *opts.TopP > 0 && *opts.TopP <= 1 {
		req.TopP = *opts.TopP
	}
	if opts.TopK != nil && *opts.TopK > 0 {
		req.TopK = *opts.TopK
	}
	if opts.RepeatPenalty != nil && *opts.RepeatPenalty > 0 {
		req.RepeatPenalty = *opts.RepeatPenalty
	}
	if opts.Seed != nil {
		req.Seed = *opts.Seed
	}
	if len(opts.Stop) > 0 {
		req.Stop = append([]string(nil), opts.Stop...)
	}

	return req
}

func finishStats(tokens int, start time.Time) Stats {
	stats := Stats{
		TokensGenerated: tokens,
		Duration:        time.Since(start),
	}
	if secs := stats.Duration.Seconds(); secs > 0 {
		stats.TPS = float64(tokens) / secs
	}
	return stats
}
