// Package config loads layered settings: struct defaults, then an optional
// YAML file, then BOOKREC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/DhruvParmar051/book-recommendation-system/internal/enrichment"
	"github.com/DhruvParmar051/book-recommendation-system/internal/scoring"
	"github.com/DhruvParmar051/book-recommendation-system/internal/sources"
	"github.com/DhruvParmar051/book-recommendation-system/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix marks environment variables that override config keys.
	EnvPrefix = "BOOKREC_"
	// ConfigPathEnvVar points at a YAML config file.
	ConfigPathEnvVar = "BOOKREC_CONFIG"
)

// DefaultConfigPaths are searched when no path is given.
var DefaultConfigPaths = []string{"bookrec.yaml", "bookrec.yml"}

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Enrich    EnrichConfig    `koanf:"enrich"`
	Sources   SourcesConfig   `koanf:"sources"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Index     IndexConfig     `koanf:"index"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Rerank    RerankConfig    `koanf:"rerank"`
	Serve     ServeConfig     `koanf:"serve"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

type EnrichConfig struct {
	Input         string        `koanf:"input"`
	Checkpoint    string        `koanf:"checkpoint" validate:"required"`
	Concurrency   int           `koanf:"concurrency" validate:"min=1,max=256"`
	FlushInterval int           `koanf:"flush_interval" validate:"min=1"`
	GracePeriod   time.Duration `koanf:"grace_period" validate:"min=0"`
	LogEvery      int           `koanf:"log_every" validate:"min=0"`
	Adapters      []string      `koanf:"adapters" validate:"dive,oneof=strict short-title title-only isbn-exact google-isbn google-title-author opac"`
}

type SourcesConfig struct {
	OpenLibraryURL    string        `koanf:"openlibrary_url" validate:"required,url"`
	GoogleBooksURL    string        `koanf:"googlebooks_url" validate:"required,url"`
	GoogleBooksAPIKey string        `koanf:"googlebooks_api_key"`
	OPACURL           string        `koanf:"opac_url" validate:"omitempty,url"`
	Timeout           time.Duration `koanf:"timeout" validate:"min=0"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int           `koanf:"burst" validate:"min=1"`
	FailureThreshold  uint32        `koanf:"failure_threshold"`
	OpenTimeout       time.Duration `koanf:"open_timeout" validate:"min=0"`
}

type CatalogConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type IndexConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type EmbeddingConfig struct {
	Provider string `koanf:"provider" validate:"oneof=ollama openai gemini"`
	// Model defaults to the provider's standard embedding model.
	Model string `koanf:"model"`
}

type RerankConfig struct {
	// URL is optional; without it recommendations use retrieval scores.
	URL         string        `koanf:"url" validate:"omitempty,url"`
	Timeout     time.Duration `koanf:"timeout" validate:"min=0"`
	Weights     string        `koanf:"weights" validate:"oneof=canonical two-term"`
	Concurrency int           `koanf:"concurrency" validate:"min=1"`
}

type ServeConfig struct {
	Port               string   `koanf:"port" validate:"required,numeric"`
	PoolSize           int      `koanf:"pool_size" validate:"min=1,max=1000"`
	CORSOrigins        []string `koanf:"cors_origins"`
	RecommendPerMinute int      `koanf:"recommend_per_minute" validate:"min=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	src := sources.DefaultGuardConfig()
	orch := enrichment.DefaultConfig()
	return &Config{
		Log: LogConfig{Level: "info"},
		Enrich: EnrichConfig{
			Checkpoint:    "data/enriched.json",
			Concurrency:   orch.Concurrency,
			FlushInterval: storage.DefaultFlushInterval,
			GracePeriod:   orch.GracePeriod,
			LogEvery:      orch.LogEvery,
			Adapters:      append([]string(nil), sources.DefaultChain...),
		},
		Sources: SourcesConfig{
			OpenLibraryURL:    sources.DefaultOpenLibraryURL,
			GoogleBooksURL:    sources.DefaultGoogleBooksURL,
			Timeout:           sources.DefaultTimeout,
			RequestsPerSecond: src.RequestsPerSecond,
			Burst:             src.Burst,
			FailureThreshold:  src.FailureThreshold,
			OpenTimeout:       src.OpenTimeout,
		},
		Catalog:   CatalogConfig{Path: "data/books.sqlite"},
		Index:     IndexConfig{Path: "data/index.parquet"},
		Embedding: EmbeddingConfig{Provider: "ollama"},
		Rerank:    RerankConfig{Timeout: 10 * time.Second, Weights: "canonical", Concurrency: 8},
		Serve: ServeConfig{
			Port:               "8888",
			PoolSize:           30,
			CORSOrigins:        []string{"*"},
			RecommendPerMinute: 60,
		},
	}
}

// Load builds the configuration. An explicit path must exist; otherwise
// BOOKREC_CONFIG and then DefaultConfigPaths are tried.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps BOOKREC_ENRICH_FLUSH_INTERVAL to enrich.flush_interval.
// Only the first underscore separates the section from the key.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "config" {
		return ""
	}
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	return section + "." + rest
}

var sliceConfigPaths = []string{"enrich.adapters", "serve.cors_origins"}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for _, name := range c.Enrich.Adapters {
		if name == sources.MethodOPAC && c.Sources.OPACURL == "" {
			return errors.New("adapter opac requires sources.opac_url")
		}
	}
	return nil
}

// SourceOptions converts the sources section for sources.Build.
func (c *Config) SourceOptions() sources.Options {
	return sources.Options{
		OpenLibraryURL:    c.Sources.OpenLibraryURL,
		GoogleBooksURL:    c.Sources.GoogleBooksURL,
		GoogleBooksAPIKey: c.Sources.GoogleBooksAPIKey,
		OPACURL:           c.Sources.OPACURL,
		Timeout:           c.Sources.Timeout,
		Guard: sources.GuardConfig{
			RequestsPerSecond: c.Sources.RequestsPerSecond,
			Burst:             c.Sources.Burst,
			FailureThreshold:  c.Sources.FailureThreshold,
			OpenTimeout:       c.Sources.OpenTimeout,
		},
	}
}

// OrchestratorConfig converts the enrich section for enrichment.New.
func (c *Config) OrchestratorConfig() enrichment.Config {
	return enrichment.Config{
		Concurrency: c.Enrich.Concurrency,
		GracePeriod: c.Enrich.GracePeriod,
		LogEvery:    c.Enrich.LogEvery,
	}
}

// Weights resolves the configured blend.
func (c *Config) Weights() scoring.Weights {
	if c.Rerank.Weights == "two-term" {
		return scoring.TwoTermWeights
	}
	return scoring.CanonicalWeights
}
