package embedding

import (
	"testing"

	"github.com/hyperjump/kotoba/internal/config"
	"github.com/hyperjump/kotoba/internal/models"
	"github.com/hyperjump/kotoba/internal/tokenizer"
)

func testTokenizer() *tokenizer.Tokenizer {
	return tokenizer.New(&tokenizer.Config{
		Vocab: map[string]int{
			"[PAD]": 0,
			"he":    5,
			"llo":   6,
			"wo":    7,
			"rld":   8,
			"東京":    10,
		},
		PadTokenID: 0,
	})
}

func testConfig(mutate func(*config.Config)) *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

func unitVector(dims int) []float32 {
	v := make([]float32, dims)
	v[0] = 1
	return v
}

func newTestEngine(t *testing.T, model Model, opts ...Option) *Engine {
	t.Helper()
	e, err := New(model, testTokenizer(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func noContext() models.EmbeddingContext {
	return models.EmbeddingContext{}
}
