package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/somalabs/somagen/internal/engine"
	"github.com/somalabs/somagen/internal/hub"
	"github.com/somalabs/somagen/internal/logger"
	"github.com/somalabs/somagen/internal/tokenizer"
)

// buildEngine assembles the generation engine from the engine flags. When a
// fallback URL is configured the primary is wrapped so an unreachable
// server falls through to a local Ollama instance.
func buildEngine() engine.Engine {
	var primary engine.Engine
	switch engineKind {
	case "ollama":
		primary = engine.NewOllama(serverURL, baseModel)
	default:
		primary = engine.NewOpenAICompatible(serverURL, baseModel, os.Getenv("SOMAGEN_API_KEY"))
	}

	if fallbackURL == "" {
		return primary
	}
	return &engine.Fallback{
		Primary:   primary,
		Secondary: engine.NewOllama(fallbackURL, baseModel),
	}
}

// buildCounter fetches the adapter's tokenizer from the hub and loads it.
// Any failure degrades to the heuristic counter; summaries still generate,
// token usage just stops being exact.
func buildCounter(ctx context.Context) tokenizer.Counter {
	log := logger.FromContext(ctx)
	if adapterRepo == "" {
		return tokenizer.Heuristic{}
	}

	cache := hubCacheDir
	if cache == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			cache = filepath.Join(dir, "somagen", "hub")
		}
	}
	client := hub.New(hubURL, cache)

	if path, err := client.Fetch(ctx, adapterRepo, hub.AdapterConfigFile, refreshHub); err != nil {
		log.Warn("adapter config unavailable", "adapter", adapterRepo, "error", err)
	} else if cfg, err := hub.ReadAdapterConfig(path); err != nil {
		log.Warn("adapter config unreadable", "adapter", adapterRepo, "error", err)
	} else if err := hub.VerifyAdapter(cfg, baseModel); err != nil {
		log.Warn("adapter/base model mismatch", "error", err)
	}

	path, err := client.Fetch(ctx, adapterRepo, hub.TokenizerFile, refreshHub)
	if err != nil {
		log.Warn("tokenizer unavailable, using heuristic token counts",
			"adapter", adapterRepo, "error", err)
		return tokenizer.Heuristic{}
	}
	return tokenizer.Load(path)
}

func generationDefaults() engine.Defaults {
	mt := int(maxTokens)
	tk := int(topK)
	return engine.Defaults{
		MaxTokens:     &mt,
		Temperature:   &temperature,
		TopP:          &topP,
		TopK:          &tk,
		RepeatPenalty: &repeatPenalty,
	}
}
