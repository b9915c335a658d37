// Package config provides configuration loading and structs for the kotoba embedding engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the engine.
type Config struct {
	Debug        bool               `yaml:"debug"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	CrossLingual CrossLingualConfig `yaml:"cross_lingual"`
	Similarity   SimilarityConfig   `yaml:"similarity"`
	Models       ModelsConfig       `yaml:"models"`
}

// EmbeddingConfig holds model, tokenizer, cache and inference settings.
type EmbeddingConfig struct {
	ModelPath        string        `yaml:"model_path"`
	TokenizerPath    string        `yaml:"tokenizer_path"`
	Dimensions       int           `yaml:"dimensions" validate:"gt=0"`
	MaxTokens        int           `yaml:"max_tokens" validate:"gt=0"`
	CacheSize        int           `yaml:"cache_size" validate:"gt=0"`
	InferenceTimeout time.Duration `yaml:"inference_timeout" validate:"gte=0"`
	MaxConcurrent    int           `yaml:"max_concurrent" validate:"gt=0"`
	// RateLimit caps model calls per second; 0 disables limiting.
	RateLimit                float64       `yaml:"rate_limit" validate:"gte=0"`
	EnableContextEnhancement *bool         `yaml:"enable_context_enhancement"`
	Breaker                  BreakerConfig `yaml:"breaker"`
}

// ContextEnhancementOrDefault returns whether context enhancement is on; defaults to true when unset.
func (e *EmbeddingConfig) ContextEnhancementOrDefault() bool {
	if e.EnableContextEnhancement != nil {
		return *e.EnableContextEnhancement
	}
	return true
}

// BreakerConfig holds circuit breaker settings for model inference.
type BreakerConfig struct {
	FailureThreshold uint32        `yaml:"failure_threshold" validate:"gt=0"`
	OpenTimeout      time.Duration `yaml:"open_timeout" validate:"gt=0"`
}

// CrossLingualConfig holds cross-lingual transform settings.
type CrossLingualConfig struct {
	Jitter *bool `yaml:"jitter"`
	// Seed seeds the jitter source; 0 picks a random seed.
	Seed                    uint64             `yaml:"seed"`
	DriftModelPath          string             `yaml:"drift_model_path"`
	EnableDriftCompensation *bool              `yaml:"enable_drift_compensation"`
	ScalingFactors          map[string]float64 `yaml:"scaling_factors" validate:"omitempty,dive,gt=0"`
}

// JitterOrDefault returns whether jitter is applied; defaults to true when unset.
func (c *CrossLingualConfig) JitterOrDefault() bool {
	if c.Jitter != nil {
		return *c.Jitter
	}
	return true
}

// DriftCompensationOrDefault returns whether drift compensation runs; defaults to true when unset.
func (c *CrossLingualConfig) DriftCompensationOrDefault() bool {
	if c.EnableDriftCompensation != nil {
		return *c.EnableDriftCompensation
	}
	return true
}

// SimilarityConfig holds similarity verdict settings.
type SimilarityConfig struct {
	Threshold float64 `yaml:"threshold" validate:"gte=0.5,lte=0.9"`
}

// ModelsConfig holds model registry settings.
type ModelsConfig struct {
	FallbackPath string   `yaml:"fallback_path"`
	Preload      []string `yaml:"preload"`
	Watch        bool     `yaml:"watch"`
}

var validate = validator.New()

// Validate checks value ranges after defaults have been applied.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads and parses the config file at path, expands paths, applies defaults and validates.
// Returns an error if the file cannot be read, parsed, or fails validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.TokenizerPath = expandPath(cfg.Embedding.TokenizerPath, configDir)
	if cfg.CrossLingual.DriftModelPath != "" {
		cfg.CrossLingual.DriftModelPath = expandPath(cfg.CrossLingual.DriftModelPath, configDir)
	}
	if cfg.Models.FallbackPath != "" {
		cfg.Models.FallbackPath = expandPath(cfg.Models.FallbackPath, configDir)
	}
	for i := range cfg.Models.Preload {
		cfg.Models.Preload[i] = expandPath(cfg.Models.Preload[i], configDir)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
