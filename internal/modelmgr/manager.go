// Package modelmgr loads model artifacts once, keeps them in a registry with metadata and usage
// metrics, and evicts them when their files change on disk.
package modelmgr

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/kotoba/internal/embedding"
	"github.com/hyperjump/kotoba/internal/models"
	"github.com/hyperjump/kotoba/pkg/utils"
)

// FallbackVersion marks a model registered from the fallback artifact.
const FallbackVersion = "FALLBACK"

const preloadConcurrency = 4

// Model is a loaded model artifact.
type Model struct {
	ID         uuid.UUID
	Name       string
	Path       string
	Version    string
	Loaded     time.Time
	LoadTimeMs int64
	Metadata   models.ModelMetadata
	Handle     io.Closer
}

// Option configures a Manager.
type Option func(*Manager)

// WithLoader replaces the default FileLoader.
func WithLoader(l Loader) Option {
	return func(m *Manager) { m.loader = l }
}

// WithFallback sets the artifact loaded in place of any model that fails to load.
func WithFallback(path string) Option {
	return func(m *Manager) { m.fallbackPath = path }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = utils.OrNop(l) }
}

// WithDebounce sets how long file events settle before a model is evicted.
func WithDebounce(d time.Duration) Option {
	return func(m *Manager) { m.debounce = d }
}

// WithEvictHook registers a callback run after a model is evicted by the watcher.
func WithEvictHook(fn func(path string)) Option {
	return func(m *Manager) { m.onEvict = fn }
}

// Manager is a registry of loaded models. Concurrent loads of the same path share one load.
type Manager struct {
	loader       Loader
	fallbackPath string
	logger       *zap.Logger
	debounce     time.Duration
	onEvict      func(path string)

	group   singleflight.Group
	mu      sync.RWMutex
	models  map[string]*Model
	monitor *monitor

	watchMu sync.Mutex
	watch   *modelWatcher
}

// New creates a Manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		loader:   FileLoader{},
		logger:   zap.NewNop(),
		debounce: defaultDebounce,
		models:   make(map[string]*Model),
		monitor:  newMonitor(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsFallback reports whether the fallback artifact stands in for the requested model.
func (m *Model) IsFallback() bool {
	return m.Version == FallbackVersion
}

// Load returns the model at path, loading it on first use. When loading fails and a fallback
// is configured, the fallback artifact is registered under path with Version FallbackVersion.
// While a fallback is registered every Load retries the primary and swaps it in once it loads.
// Errors are *embedding.Error with kind embedding.ErrModelLoadFailure.
func (m *Manager) Load(ctx context.Context, path string) (*Model, error) {
	path = filepath.Clean(path)
	if model, ok := m.Get(path); ok && !model.IsFallback() {
		return model, nil
	}
	v, err, _ := m.group.Do(path, func() (any, error) {
		cached, ok := m.Get(path)
		switch {
		case ok && !cached.IsFallback():
			return cached, nil
		case ok:
			start := time.Now()
			art, err := m.loader.Load(ctx, path)
			if err != nil {
				m.logger.Debug("primary model still unavailable, keeping fallback",
					zap.String("path", path), zap.Error(err))
				return cached, nil
			}
			model := m.newModel(path, art, "", start)
			m.register(path, model)
			return model, nil
		}
		model, err := m.load(ctx, path)
		if err != nil {
			return nil, err
		}
		m.register(path, model)
		return model, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Model), nil
}

// register stores model under path, closing any model it replaces.
func (m *Manager) register(path string, model *Model) {
	m.mu.Lock()
	old := m.models[path]
	m.models[path] = model
	m.mu.Unlock()
	if old != nil && old != model {
		m.closeModel(old)
	}
	m.watchModel(path)
}

func (m *Manager) load(ctx context.Context, path string) (*Model, error) {
	start := time.Now()
	art, err := m.loader.Load(ctx, path)
	if err == nil {
		return m.newModel(path, art, "", start), nil
	}
	m.logger.Warn("model load failed", zap.String("path", path), zap.Error(err))
	if m.fallbackPath == "" || filepath.Clean(m.fallbackPath) == path {
		return nil, &embedding.Error{Kind: embedding.ErrModelLoadFailure, Op: "load model", Err: err}
	}
	fb, fbErr := m.loader.Load(ctx, m.fallbackPath)
	if fbErr != nil {
		m.logger.Error("fallback model load failed", zap.String("path", m.fallbackPath), zap.Error(fbErr))
		return nil, &embedding.Error{Kind: embedding.ErrModelLoadFailure, Op: "load model", Err: errors.Join(err, fbErr)}
	}
	return m.newModel(path, fb, FallbackVersion, start), nil
}

func (m *Manager) newModel(path string, art *Artifact, version string, start time.Time) *Model {
	if version == "" {
		version = strconv.FormatInt(art.Metadata.LastUpdated.UnixMilli(), 10)
	}
	elapsed := time.Since(start)
	m.monitor.recordLoad(path, elapsed)

	model := &Model{
		ID:         uuid.New(),
		Name:       modelName(path),
		Path:       path,
		Version:    version,
		Loaded:     time.Now(),
		LoadTimeMs: elapsed.Milliseconds(),
		Metadata:   art.Metadata,
		Handle:     art.Handle,
	}
	m.logger.Info("model loaded",
		zap.String("path", path),
		zap.String("name", model.Name),
		zap.String("version", version),
		zap.Int64("load_ms", model.LoadTimeMs))
	return model
}

// Get returns a loaded model without loading it.
func (m *Manager) Get(path string) (*Model, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	model, ok := m.models[filepath.Clean(path)]
	return model, ok
}

// Metadata loads the model at path if needed and returns its metadata.
func (m *Manager) Metadata(ctx context.Context, path string) (models.ModelMetadata, error) {
	model, err := m.Load(ctx, path)
	if err != nil {
		return models.ModelMetadata{}, err
	}
	return model.Metadata, nil
}

// IsAvailable reports whether the model at path can be loaded.
func (m *Manager) IsAvailable(ctx context.Context, path string) bool {
	_, err := m.Load(ctx, path)
	return err == nil
}

// SupportsLanguage reports whether the model at path loads and lists lang.
func (m *Manager) SupportsLanguage(ctx context.Context, path, lang string) bool {
	model, err := m.Load(ctx, path)
	if err != nil {
		return false
	}
	return model.Metadata.Supports(lang)
}

// Preload loads paths concurrently and reports which succeeded.
func (m *Manager) Preload(ctx context.Context, paths []string) map[string]bool {
	var (
		mu  sync.Mutex
		out = make(map[string]bool, len(paths))
		g   errgroup.Group
	)
	g.SetLimit(preloadConcurrency)
	for _, p := range paths {
		g.Go(func() error {
			_, err := m.Load(ctx, p)
			mu.Lock()
			out[p] = err == nil
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Loaded returns the paths of every registered model.
func (m *Manager) Loaded() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.models))
	for p := range m.models {
		out = append(out, p)
	}
	return out
}

// Evict removes the model at path and closes its handle. Callers still holding the *Model must
// not use the handle afterwards. It reports whether a model was removed.
func (m *Manager) Evict(path string) bool {
	path = filepath.Clean(path)
	m.mu.Lock()
	model, ok := m.models[path]
	delete(m.models, path)
	m.mu.Unlock()
	if !ok {
		return false
	}
	m.closeModel(model)
	return true
}

// Clear closes every model and resets all metrics.
func (m *Manager) Clear() {
	m.mu.Lock()
	old := m.models
	m.models = make(map[string]*Model)
	m.mu.Unlock()
	for _, model := range old {
		m.closeModel(model)
	}
	m.monitor.reset()
}

func (m *Manager) closeModel(model *Model) {
	if model.Handle == nil {
		return
	}
	if err := model.Handle.Close(); err != nil {
		m.logger.Warn("closing model failed", zap.String("path", model.Path), zap.Error(err))
	}
}

// RecordInference records one inference against the model at path.
func (m *Manager) RecordInference(path string, d time.Duration, err error) {
	m.monitor.recordInference(filepath.Clean(path), d, err)
}

// Observer returns an inference observer that records into path's metrics, for use with
// embedding.WithInferenceObserver.
func (m *Manager) Observer(path string) embedding.InferenceObserver {
	path = filepath.Clean(path)
	return func(d time.Duration, err error) {
		m.monitor.recordInference(path, d, err)
	}
}

// Metrics returns the metrics recorded for path.
func (m *Manager) Metrics(path string) (models.ModelMetrics, bool) {
	return m.monitor.snapshot(filepath.Clean(path))
}

// AllMetrics returns metrics for every model with recorded activity, keyed by path.
func (m *Manager) AllMetrics() map[string]models.ModelMetrics {
	return m.monitor.all()
}

// Summary returns a human-readable performance summary.
func (m *Manager) Summary() string {
	return m.monitor.summary()
}

// Watch evicts loaded models whose files (or metadata sidecars) are written, removed or renamed,
// so the next Load reads them again. It returns once the watcher is running; watching stops
// when ctx is cancelled.
func (m *Manager) Watch(ctx context.Context) error {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	if m.watch != nil {
		return errors.New("modelmgr: already watching")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w := newModelWatcher(fw, m.debounce, m.handleChange, m.logger)
	for _, p := range m.Loaded() {
		w.addDir(filepath.Dir(p))
	}
	m.watch = w
	go func() {
		w.run(ctx)
		m.watchMu.Lock()
		if m.watch == w {
			m.watch = nil
		}
		m.watchMu.Unlock()
	}()
	return nil
}

func (m *Manager) watchModel(path string) {
	m.watchMu.Lock()
	w := m.watch
	m.watchMu.Unlock()
	if w != nil {
		w.addDir(filepath.Dir(path))
	}
}

// handleChange maps a changed file to the model it belongs to and evicts it.
func (m *Manager) handleChange(file string) {
	path := filepath.Clean(file)
	if _, ok := m.Get(path); !ok {
		model, sidecar := strings.CutSuffix(path, ".json")
		if !sidecar {
			return
		}
		if _, ok := m.Get(model); !ok {
			return
		}
		path = model
	}
	if m.Evict(path) {
		m.logger.Info("model evicted after file change", zap.String("path", path))
		if m.onEvict != nil {
			m.onEvict(path)
		}
	}
}
