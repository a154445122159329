package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the somagen configuration file
// (~/.config/somagen/config.yaml). All sampling fields are pointers so we
// can distinguish "not set" from zero values.
type Config struct {
	ServerURL   string `yaml:"server_url"`
	Engine      string `yaml:"engine"`
	FallbackURL string `yaml:"fallback_url"`
	BaseModel   string `yaml:"base_model"`
	Adapter     string `yaml:"adapter"`

	HubURL   string `yaml:"hub_url"`
	HubCache string `yaml:"hub_cache"`

	// Sampling defaults
	MaxTokens     *int64   `yaml:"max_tokens"`
	Temperature   *float64 `yaml:"temperature"`
	TopP          *float64 `yaml:"top_p"`
	TopK          *int64   `yaml:"top_k"`
	RepeatPenalty *float64 `yaml:"repeat_penalty"`
	Seed          *int64   `yaml:"seed"`
	MaxContext    *int64   `yaml:"max_context"`

	// Output
	StreamMode string `yaml:"stream_mode"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
	HistoryDSN    string `yaml:"history_dsn"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "somagen", "config.yaml")
}

// applyEngineConfig applies config file defaults to the engine flags when
// the corresponding CLI flag was not explicitly set.
func applyEngineConfig(c *cli.Command, cfg Config) {
	if cfg.ServerURL != "" && !c.IsSet("server-url") && !c.IsSet("url") {
		serverURL = cfg.ServerURL
	}
	if cfg.Engine != "" && !c.IsSet("engine") {
		engineKind = cfg.Engine
	}
	if cfg.FallbackURL != "" && !c.IsSet("fallback-url") {
		fallbackURL = cfg.FallbackURL
	}
	if cfg.BaseModel != "" && !c.IsSet("base-model") {
		baseModel = cfg.BaseModel
	}
	if cfg.Adapter != "" && !c.IsSet("adapter") {
		adapterRepo = cfg.Adapter
	}
	if cfg.HubURL != "" && !c.IsSet("hub-url") {
		hubURL = cfg.HubURL
	}
	if cfg.HubCache != "" && !c.IsSet("hub-cache") {
		hubCacheDir = cfg.HubCache
	}
	if cfg.MaxContext != nil && !c.IsSet("max-context") {
		maxContext = *cfg.MaxContext
	}
}

// applyGenerationConfig applies config file sampling defaults.
func applyGenerationConfig(c *cli.Command, cfg Config) {
	if cfg.MaxTokens != nil && !c.IsSet("max-tokens") {
		maxTokens = *cfg.MaxTokens
	}
	if cfg.Temperature != nil && !c.IsSet("temp") && !c.IsSet("temperature") && !c.IsSet("t") {
		temperature = *cfg.Temperature
	}
	if cfg.TopP != nil && !c.IsSet("top-p") && !c.IsSet("top_p") && !c.IsSet("topp") {
		topP = *cfg.TopP
	}
	if cfg.TopK != nil && !c.IsSet("top-k") && !c.IsSet("top_k") && !c.IsSet("topk") {
		topK = *cfg.TopK
	}
	if cfg.RepeatPenalty != nil && !c.IsSet("repeat-penalty") && !c.IsSet("repeat_penalty") {
		repeatPenalty = *cfg.RepeatPenalty
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		seed = *cfg.Seed
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.HistoryDSN != "" && !c.IsSet("history-dsn") {
		historyDSN = cfg.HistoryDSN
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file
// doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
