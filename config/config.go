package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultPath is where Load looks when no -config flag is given. A missing file
// at this path is not an error.
const DefaultPath = "config/config.json"

const (
	KeySourceForm = "form"
	KeySourceEnv  = "env"
)

// Config holds everything the generator needs at startup.
type Config struct {
	Server          ServerConfig `json:"server"`
	LLM             LLMConfig    `json:"llm"`
	KeySource       string       `json:"key_source,omitempty" env:"CONTENTGEN_KEY_SOURCE"`
	ShowErrorDetail bool         `json:"show_error_detail,omitempty" env:"CONTENTGEN_SHOW_ERROR_DETAIL"`
	LogLevel        string       `json:"log_level,omitempty" env:"CONTENTGEN_LOG_LEVEL"`
	LogFormat       string       `json:"log_format,omitempty" env:"CONTENTGEN_LOG_FORMAT"`
}

type ServerConfig struct {
	Addr            string   `json:"addr,omitempty" env:"CONTENTGEN_ADDR"`
	ReadTimeout     Duration `json:"read_timeout,omitempty" env:"CONTENTGEN_READ_TIMEOUT"`
	WriteTimeout    Duration `json:"write_timeout,omitempty" env:"CONTENTGEN_WRITE_TIMEOUT"`
	ShutdownTimeout Duration `json:"shutdown_timeout,omitempty" env:"CONTENTGEN_SHUTDOWN_TIMEOUT"`
}

// LLMConfig describes the OpenAI-compatible endpoint. Groq is the default.
type LLMConfig struct {
	Provider    string   `json:"provider,omitempty" env:"CONTENTGEN_LLM_PROVIDER"`
	Model       string   `json:"model,omitempty" env:"CONTENTGEN_LLM_MODEL"`
	BaseURL     string   `json:"base_url,omitempty" env:"CONTENTGEN_LLM_BASE_URL"`
	APIKey      string   `json:"api_key,omitempty" env:"GROQ_API_KEY"`
	Temperature float64  `json:"temperature,omitempty" env:"CONTENTGEN_LLM_TEMPERATURE"`
	Timeout     Duration `json:"timeout,omitempty" env:"CONTENTGEN_LLM_TIMEOUT"`
}

// Duration reads "90s"-style strings from both JSON and the environment.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration{30 * time.Second},
			WriteTimeout:    Duration{90 * time.Second},
			ShutdownTimeout: Duration{15 * time.Second},
		},
		LLM: LLMConfig{
			Provider:    "groq",
			Model:       "llama-3.3-70b-versatile",
			BaseURL:     "https://api.groq.com/openai/v1",
			Temperature: 0.7,
			Timeout:     Duration{60 * time.Second},
		},
		KeySource: KeySourceForm,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load starts from Default, applies the JSON file at path and then the
// environment. The file may be absent only when path is DefaultPath.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return Config{}, err
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.KeySource = strings.ToLower(strings.TrimSpace(cfg.KeySource))
	cfg.LLM.APIKey = strings.TrimSpace(cfg.LLM.APIKey)
	return cfg, nil
}

// Validate reports settings the process cannot start with. In env mode a
// missing API key is fatal.
func (c Config) Validate() error {
	switch c.KeySource {
	case KeySourceForm:
	case KeySourceEnv:
		if c.LLM.APIKey == "" {
			return errors.New("key_source is env but GROQ_API_KEY is not set")
		}
	default:
		return fmt.Errorf("key_source %q not supported; use %q or %q", c.KeySource, KeySourceForm, KeySourceEnv)
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	if c.LLM.BaseURL == "" {
		return errors.New("llm.base_url is required")
	}
	if c.LLM.Timeout.Duration <= 0 {
		return fmt.Errorf("llm.timeout must be positive, got %s", c.LLM.Timeout.Duration)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature %.2f out of range [0,2]", c.LLM.Temperature)
	}
	return nil
}
