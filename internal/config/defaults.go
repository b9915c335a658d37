package config

import (
	"time"

	"github.com/hyperjump/kotoba/internal/models"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kotoba/models/multilingual_bert.onnx"
	}
	if cfg.Embedding.TokenizerPath == "" {
		cfg.Embedding.TokenizerPath = "/usr/local/var/kotoba/models/tokenizer.json"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = models.EmbeddingDimension
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = models.MaxSequenceLength
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 100
	}
	if cfg.Embedding.InferenceTimeout == 0 {
		cfg.Embedding.InferenceTimeout = 5 * time.Second
	}
	if cfg.Embedding.MaxConcurrent == 0 {
		cfg.Embedding.MaxConcurrent = 4
	}
	if cfg.Embedding.Breaker.FailureThreshold == 0 {
		cfg.Embedding.Breaker.FailureThreshold = 5
	}
	if cfg.Embedding.Breaker.OpenTimeout == 0 {
		cfg.Embedding.Breaker.OpenTimeout = 30 * time.Second
	}
	if cfg.Similarity.Threshold == 0 {
		cfg.Similarity.Threshold = 0.7
	}
}
