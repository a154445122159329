package main

import "github.com/urfave/cli/v3"

var (
	serverURL     string
	engineKind    string
	fallbackURL   string
	baseModel     string
	adapterRepo   string
	hubURL        string
	hubCacheDir   string
	refreshHub    bool
	maxContext    int64
	historyDSN    string
	logLevel      string
	logFormat     string
	debug         bool
	maxTokens     int64
	temperature   float64
	topP          float64
	topK          int64
	repeatPenalty float64
	seed          int64
)

func commonEngineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "server-url",
			Aliases:     []string{"url"},
			Usage:       "base URL of the model server",
			Value:       "http://127.0.0.1:8000",
			Destination: &serverURL,
		},
		&cli.StringFlag{
			Name:        "engine",
			Usage:       "model server protocol (openai, ollama)",
			Value:       "openai",
			Destination: &engineKind,
		},
		&cli.StringFlag{
			Name:        "fallback-url",
			Usage:       "Ollama URL to retry against when the primary server is unreachable",
			Destination: &fallbackURL,
		},
		&cli.StringFlag{
			Name:        "base-model",
			Aliases:     []string{"m"},
			Usage:       "base model name as known to the server",
			Value:       "meta-llama/Llama-3.2-1B",
			Destination: &baseModel,
		},
		&cli.StringFlag{
			Name:        "adapter",
			Aliases:     []string{"a"},
			Usage:       "adapter repo id routed as the model field",
			Destination: &adapterRepo,
		},
		&cli.Int64Flag{
			Name:        "max-context",
			Aliases:     []string{"max-ctx", "ctx", "c"},
			Usage:       "context window budget in tokens",
			Value:       4096,
			Destination: &maxContext,
		},
	}
}

func hubFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "hub-url",
			Usage:       "model hub base URL",
			Destination: &hubURL,
		},
		&cli.StringFlag{
			Name:        "hub-cache",
			Usage:       "directory for cached hub artifacts",
			Destination: &hubCacheDir,
		},
		&cli.BoolFlag{
			Name:        "refresh",
			Usage:       "re-download hub artifacts even when cached",
			Destination: &refreshHub,
		},
	}
}

func generationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "max-tokens",
			Aliases:     []string{"n", "num-tokens", "num_tokens"},
			Usage:       "maximum tokens to generate",
			Value:       256,
			Destination: &maxTokens,
		},
		&cli.Float64Flag{
			Name:        "temp",
			Aliases:     []string{"temperature", "t"},
			Usage:       "sampling temperature",
			Value:       0.7,
			Destination: &temperature,
		},
		&cli.Float64Flag{
			Name:        "top-p",
			Aliases:     []string{"top_p", "topp"},
			Usage:       "top_p sampling parameter",
			Value:       0.9,
			Destination: &topP,
		},
		&cli.Int64Flag{
			Name:        "top-k",
			Aliases:     []string{"top_k", "topk"},
			Usage:       "top-k sampling parameter",
			Value:       40,
			Destination: &topK,
		},
		&cli.Float64Flag{
			Name:        "repeat-penalty",
			Aliases:     []string{"repeat_penalty"},
			Usage:       "repetition penalty (1.0 = disabled)",
			Value:       1.1,
			Destination: &repeatPenalty,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "sampling RNG seed (default -1 = random)",
			Value:       -1,
			Destination: &seed,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
