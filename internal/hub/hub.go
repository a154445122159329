// Package hub fetches model artifacts (tokenizer.json, adapter_config.json)
// from a Hugging Face style hub and caches them locally. Only anonymous
// downloads are performed; inference credentials never pass through here.
package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://huggingface.co"

	TokenizerFile     = "tokenizer.json"
	AdapterConfigFile = "adapter_config.json"
)

// Client downloads hub artifacts into a cache directory.
type Client struct {
	baseURL  string
	cacheDir string
	http     *http.Client
	limiter  *rate.Limiter
}

// New returns a Client caching under cacheDir. baseURL may be empty for the
// public hub.
func New(baseURL, cacheDir string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		cacheDir: cacheDir,
		http:     &http.Client{},
		limiter:  rate.NewLimiter(rate.Limit(2), 2),
	}
}

// CachePath returns where a repo file lands on disk.
func (c *Client) CachePath(repo, file string) string {
	return filepath.Join(c.cacheDir, strings.ReplaceAll(repo, "/", "--"), file)
}

// Fetch downloads one file from repo unless it is already cached. It returns
// the local path. With refresh true the cached copy is ignored.
func (c *Client) Fetch(ctx context.Context, repo, file string, refresh bool) (string, error) {
	if repo == "" {
		return "", fmt.Errorf("hub: repo is required")
	}
	dest := c.CachePath(repo, file)
	if !refresh {
		if _, err := os.Stat(dest); err == nil {
			return dest, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("hub: create cache dir: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/%s/resolve/main/%s", c.baseURL, repo, file)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("hub: fetch %s: %w", file, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("hub: fetch %s: HTTP %d", url, resp.StatusCode)
	}

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("hub: write %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// AdapterConfig is the subset of adapter_config.json this tool reads.
type AdapterConfig struct {
	BaseModel string  `json:"base_model_name_or_path"`
	PeftType  string  `json:"peft_type"`
	Rank      int     `json:"r"`
	Alpha     float64 `json:"lora_alpha"`
}

// ReadAdapterConfig parses a cached adapter_config.json.
func ReadAdapterConfig(path string) (AdapterConfig, error) {
	var cfg AdapterConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("hub: parse adapter config: %w", err)
	}
	return cfg, nil
}

// VerifyAdapter checks that the adapter was trained against baseModel.
// A mismatch is reported as an error the caller should log, not fail on:
// serving stacks routinely rename base models.
func VerifyAdapter(cfg AdapterConfig, baseModel string) error {
	if cfg.BaseModel == "" || baseModel == "" {
		return nil
	}
	if !strings.EqualFold(cfg.BaseModel, baseModel) {
		return fmt.Errorf("adapter was trained on %q, configured base model is %q", cfg.BaseModel, baseModel)
	}
	return nil
}
