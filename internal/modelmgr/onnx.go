package modelmgr

import (
	"context"
	"io"

	"github.com/hyperjump/kotoba/internal/config"
	"github.com/hyperjump/kotoba/internal/embedding"
)

// ONNXOpener returns an OpenFunc that opens each artifact as an ONNX embedding model.
func ONNXOpener(dimensions, maxTokens int) OpenFunc {
	return func(_ context.Context, path string) (io.Closer, error) {
		m, err := embedding.NewONNXModel(path, dimensions, maxTokens)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// EmbeddingModel returns the model's handle as an embedding.Model, if it is one.
func (m *Model) EmbeddingModel() (embedding.Model, bool) {
	em, ok := m.Handle.(embedding.Model)
	return em, ok
}

// FromConfig creates a Manager whose FileLoader opens ONNX embedding models with the
// dimensions in cfg and whose fallback is cfg.Models.FallbackPath.
func FromConfig(cfg *config.Config, opts ...Option) *Manager {
	base := []Option{
		WithLoader(FileLoader{Open: ONNXOpener(cfg.Embedding.Dimensions, cfg.Embedding.MaxTokens)}),
		WithFallback(cfg.Models.FallbackPath),
	}
	return New(append(base, opts...)...)
}

// Start preloads the configured models and, if enabled, starts watching them. It returns the
// preload outcome per path.
func (m *Manager) Start(ctx context.Context, cfg config.ModelsConfig) (map[string]bool, error) {
	loaded := m.Preload(ctx, cfg.Preload)
	if cfg.Watch {
		if err := m.Watch(ctx); err != nil {
			return loaded, err
		}
	}
	return loaded, nil
}
