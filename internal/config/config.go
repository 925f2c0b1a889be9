// Package config loads server configuration from a TOML file, then applies
// environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	BackendCanned = "canned"
	BackendOpenAI = "openai"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	LLM     LLMConfig     `toml:"llm"`
	Delays  DelayConfig   `toml:"delays"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
	// RateLimit is the sustained number of /api requests per second; 0 disables limiting.
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
	// MaxUploadMB caps multipart bodies for uploads and transcription.
	MaxUploadMB int64 `toml:"max_upload_mb"`
	// SessionUploadMB caps the uploads one session may hold at once; 0 means no cap.
	SessionUploadMB int64 `toml:"session_upload_mb"`
}

type LLMConfig struct {
	// Backend is "canned" (default) or "openai" for any OpenAI-compatible endpoint.
	Backend string `toml:"backend"`
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
	Model   string `toml:"model"`
}

// DelayConfig holds the simulated latencies, in milliseconds.
type DelayConfig struct {
	GeminiMs     int `toml:"gemini_ms"`
	TranscribeMs int `toml:"transcribe_ms"`
	ChatMs       int `toml:"chat_ms"`
	SaveKeysMs   int `toml:"save_keys_ms"`
}

type StorageConfig struct {
	// DBPath is the SQLite archive location. Empty disables the archive.
	DBPath string `toml:"db_path"`
}

type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8100",
			RateLimit:       20,
			RateBurst:       40,
			MaxUploadMB:     32,
			SessionUploadMB: 128,
		},
		LLM: LLMConfig{
			Backend: BackendCanned,
			BaseURL: "http://localhost:11434/v1/",
			Model:   "llama3.1:8b",
		},
		Delays: DelayConfig{
			GeminiMs:     2000,
			TranscribeMs: 1500,
			ChatMs:       1500,
			SaveKeysMs:   1000,
		},
		Storage: StorageConfig{DBPath: "coding-agent.db"},
		Log:     LogConfig{Level: "info"},
	}
}

// LoadFromPath reads a TOML file on top of the defaults. A missing file is
// not an error; the defaults are used.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) ApplyEnvOverrides() {
	if addr := os.Getenv("CODING_AGENT_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path, ok := os.LookupEnv("CODING_AGENT_DB"); ok {
		c.Storage.DBPath = path
	}
	if backend := os.Getenv("CODING_AGENT_BACKEND"); backend != "" {
		c.LLM.Backend = strings.ToLower(backend)
	}
	if url := os.Getenv("CODING_AGENT_LLM_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if token := os.Getenv("OPENAI_API_KEY"); token != "" {
		c.LLM.Token = token
	}
	if level := os.Getenv("CODING_AGENT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if fast := os.Getenv("CODING_AGENT_NO_DELAY"); fast != "" {
		if on, err := strconv.ParseBool(fast); err == nil && on {
			c.Delays = DelayConfig{}
		}
	}
}

func (c *Config) Validate() error {
	switch c.LLM.Backend {
	case BackendCanned:
	case BackendOpenAI:
		if c.LLM.BaseURL == "" {
			return errors.New("llm.base_url is required for the openai backend")
		}
	default:
		return fmt.Errorf("unknown llm backend %q", c.LLM.Backend)
	}

	d := c.Delays
	if d.GeminiMs < 0 || d.TranscribeMs < 0 || d.ChatMs < 0 || d.SaveKeysMs < 0 {
		return errors.New("delays must not be negative")
	}
	if c.Server.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return errors.New("server.rate_burst must be at least 1 when rate limiting is on")
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	if c.Server.SessionUploadMB < 0 {
		return errors.New("server.session_upload_mb must not be negative")
	}
	return nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (d DelayConfig) Gemini() time.Duration     { return ms(d.GeminiMs) }
func (d DelayConfig) Transcribe() time.Duration { return ms(d.TranscribeMs) }
func (d DelayConfig) Chat() time.Duration       { return ms(d.ChatMs) }
func (d DelayConfig) SaveKeys() time.Duration   { return ms(d.SaveKeysMs) }

func (s ServerConfig) MaxUploadBytes() int64     { return s.MaxUploadMB << 20 }
func (s ServerConfig) SessionUploadBytes() int64 { return s.SessionUploadMB << 20 }
