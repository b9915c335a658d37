package modelmgr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/hyperjump/kotoba/internal/models"
)

// Artifact is a model file read by a Loader.
type Artifact struct {
	Path     string
	Size     int64
	Metadata models.ModelMetadata
	// Handle is the runtime object for the model, if the loader opens one.
	Handle io.Closer
}

// Loader reads a model artifact and its metadata.
type Loader interface {
	Load(ctx context.Context, path string) (*Artifact, error)
}

// OpenFunc opens the runtime handle for a model file, e.g. an ONNX session.
type OpenFunc func(ctx context.Context, path string) (io.Closer, error)

// FileLoader loads model files from disk. Metadata comes from an optional sidecar
// "<path>.json"; without one, fallback metadata is used.
type FileLoader struct {
	// Open, when set, is called after the file checks pass.
	Open OpenFunc
}

// SidecarPath returns the metadata document path for a model file.
func SidecarPath(path string) string {
	return path + ".json"
}

// FallbackMetadata returns the metadata used when a model carries none.
func FallbackMetadata() models.ModelMetadata {
	return models.ModelMetadata{
		Name:               "Unknown Model",
		Description:        "No description",
		InputShape:         []int{1, models.MaxSequenceLength},
		OutputShape:        []int{1, models.EmbeddingDimension},
		SupportedLanguages: []string{models.DefaultLanguage},
	}
}

// Load checks that path is a non-empty regular file, reads its metadata and opens the handle.
func (l FileLoader) Load(ctx context.Context, path string) (*Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}

	meta, err := readSidecar(SidecarPath(path))
	if err != nil {
		return nil, err
	}
	if meta.LastUpdated.IsZero() {
		meta.LastUpdated = info.ModTime()
	}

	art := &Artifact{Path: path, Size: info.Size(), Metadata: meta}
	if l.Open != nil {
		h, err := l.Open(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		art.Handle = h
	}
	return art, nil
}

func readSidecar(path string) (models.ModelMetadata, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return FallbackMetadata(), nil
	}
	if err != nil {
		return models.ModelMetadata{}, err
	}
	meta := FallbackMetadata()
	if err := json.Unmarshal(data, &meta); err != nil {
		return models.ModelMetadata{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(meta.SupportedLanguages) == 0 {
		meta.SupportedLanguages = []string{models.DefaultLanguage}
	}
	return meta, nil
}

// modelName derives the registry name from the file name without its extension.
func modelName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
