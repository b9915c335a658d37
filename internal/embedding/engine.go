package embedding

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kotoba/internal/config"
	"github.com/hyperjump/kotoba/internal/models"
	"github.com/hyperjump/kotoba/internal/tokenizer"
	"github.com/hyperjump/kotoba/internal/vector"
	"github.com/hyperjump/kotoba/pkg/utils"
)

var errNoTokens = errors.New("text produced no tokens")

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	cfg         *config.Config
	logger      *zap.Logger
	registerer  prometheus.Registerer
	transformer *CrossLingualTransformer
	drift       DriftModel
	observer    InferenceObserver
}

// WithConfig sets the engine configuration. Zero fields take their defaults.
func WithConfig(cfg *config.Config) Option {
	return func(o *engineOptions) {
		o.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *engineOptions) {
		o.logger = l
	}
}

// WithRegisterer sets where the engine's metrics are registered. By default each engine gets a
// private registry, available from Engine.Registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *engineOptions) {
		o.registerer = reg
	}
}

// WithTransformer replaces the cross-lingual transformer built from config.
func WithTransformer(t *CrossLingualTransformer) Option {
	return func(o *engineOptions) {
		o.transformer = t
	}
}

// WithDriftModel sets the drift model used by the config-built transformer.
func WithDriftModel(m DriftModel) Option {
	return func(o *engineOptions) {
		o.drift = m
	}
}

// WithInferenceObserver registers a callback run after every model call.
func WithInferenceObserver(fn InferenceObserver) Option {
	return func(o *engineOptions) {
		o.observer = fn
	}
}

// Engine generates, caches, compares and transforms embeddings. It is safe for concurrent use.
type Engine struct {
	model       Model
	seq         *tokenizer.SequenceBuilder
	guard       *inferenceGuard
	enhancer    *ContextEnhancer // nil when context enhancement is disabled
	transformer *CrossLingualTransformer
	cache       *EmbeddingCache
	metrics     *Metrics
	registry    *prometheus.Registry // nil when a registerer was injected
	logger      *zap.Logger

	dims          int
	threshold     float64
	maxConcurrent int
}

// Open loads the tokenizer, the ONNX embedding model and the optional drift model named in cfg
// and returns a ready engine. The engine owns the loaded models and releases them on Close.
func Open(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	config.ApplyDefaults(cfg)

	tokCfg, err := tokenizer.LoadConfig(cfg.Embedding.TokenizerPath)
	if err != nil {
		return nil, newError(ErrTokenizationFailure, "load tokenizer", err)
	}
	model, err := NewONNXModel(cfg.Embedding.ModelPath, cfg.Embedding.Dimensions, cfg.Embedding.MaxTokens)
	if err != nil {
		return nil, err
	}

	all := []Option{WithConfig(cfg)}
	if logger, err := utils.NewLogger(cfg.Debug); err == nil {
		all = append(all, WithLogger(logger))
	}
	all = append(all, opts...)
	var drift DriftModel
	if cfg.CrossLingual.DriftModelPath != "" {
		d, err := NewONNXDriftModel(cfg.CrossLingual.DriftModelPath)
		if err != nil {
			_ = model.Close()
			return nil, err
		}
		drift = d
	}
	return assemble(model, drift, tokenizer.New(tokCfg), all)
}

// assemble builds an engine that owns model and drift. Both are closed when construction fails.
func assemble(model Model, drift DriftModel, tok *tokenizer.Tokenizer, opts []Option) (*Engine, error) {
	if drift != nil {
		opts = append(opts, WithDriftModel(drift))
	}
	e, err := New(model, tok, opts...)
	if err != nil {
		_ = model.Close()
		if c, ok := drift.(interface{ Close() error }); ok {
			_ = c.Close()
		}
		return nil, err
	}
	return e, nil
}

// New builds an engine around an already loaded model and tokenizer.
func New(model Model, tok *tokenizer.Tokenizer, opts ...Option) (*Engine, error) {
	if model == nil {
		return nil, newError(ErrModelLoadFailure, "new engine", errors.New("nil model"))
	}
	if tok == nil {
		return nil, newError(ErrTokenizationFailure, "new engine", errors.New("nil tokenizer"))
	}

	o := engineOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	cfg := config.Config{}
	if o.cfg != nil {
		cfg = *o.cfg
	}
	config.ApplyDefaults(&cfg)
	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}

	e := &Engine{
		model:         model,
		seq:           tokenizer.NewSequenceBuilder(tok, cfg.Embedding.MaxTokens),
		logger:        utils.OrNop(o.logger),
		dims:          cfg.Embedding.Dimensions,
		threshold:     cfg.Similarity.Threshold,
		maxConcurrent: cfg.Embedding.MaxConcurrent,
	}

	reg := o.registerer
	if reg == nil {
		e.registry = prometheus.NewRegistry()
		reg = e.registry
	}
	e.metrics = NewMetrics(reg)
	e.cache = NewEmbeddingCache(cfg.Embedding.CacheSize, e.metrics)

	if cfg.Embedding.ContextEnhancementOrDefault() {
		e.enhancer = NewContextEnhancer()
	}

	e.transformer = o.transformer
	if e.transformer == nil {
		e.transformer = newTransformerFromConfig(cfg.CrossLingual, o.drift, e.logger)
	}

	e.guard = newInferenceGuard(model, guardSettings{
		dimensions:       cfg.Embedding.Dimensions,
		timeout:          cfg.Embedding.InferenceTimeout,
		maxConcurrent:    cfg.Embedding.MaxConcurrent,
		rateLimit:        cfg.Embedding.RateLimit,
		failureThreshold: cfg.Embedding.Breaker.FailureThreshold,
		openTimeout:      cfg.Embedding.Breaker.OpenTimeout,
	}, e.metrics, o.observer, e.logger)

	return e, nil
}

func newTransformerFromConfig(cfg config.CrossLingualConfig, drift DriftModel, logger *zap.Logger) *CrossLingualTransformer {
	opts := []TransformerOption{
		WithScalingFactors(cfg.ScalingFactors),
		WithDrift(NewDriftCompensator(drift, cfg.DriftCompensationOrDefault())),
		WithTransformerLogger(logger),
	}
	switch {
	case !cfg.JitterOrDefault():
		opts = append(opts, WithoutJitter())
	case cfg.Seed != 0:
		opts = append(opts, WithJitterSource(rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))))
	}
	return NewCrossLingualTransformer(opts...)
}

// GenerateEmbedding returns the embedding for text. Failures never escape as errors or panics:
// they produce a result with Source models.SourceError, a zero vector and Err set.
func (e *Engine) GenerateEmbedding(ctx context.Context, text string, ec models.EmbeddingContext) models.EmbeddingResult {
	lang := tokenizer.DetectLanguage(text)
	key := CacheKey(lang, text)

	if res, ok := e.cache.Get(key); ok {
		res.Source = models.SourceCached
		e.metrics.Generated.WithLabelValues(string(models.SourceCached)).Inc()
		return res
	}

	log := e.logger
	if log.Core().Enabled(zap.DebugLevel) {
		log = log.With(zap.String("request_id", uuid.NewString()))
		log.Debug("generating embedding",
			zap.String("lang", lang),
			zap.String("text", utils.Truncate(text, 64)))
	}

	res, err := e.generate(ctx, text, lang, ec)
	if err != nil {
		log.Warn("embedding generation failed",
			zap.String("lang", lang),
			zap.String("text", utils.Truncate(text, 64)),
			zap.Error(err))
		e.metrics.Errors.WithLabelValues(KindLabel(err)).Inc()
		e.metrics.Generated.WithLabelValues(string(models.SourceError)).Inc()
		return models.ErrorResult(lang, e.dims, err)
	}

	e.cache.Set(key, res)
	e.metrics.Generated.WithLabelValues(string(models.SourceGenerated)).Inc()
	return res
}

func (e *Engine) generate(ctx context.Context, text, lang string, ec models.EmbeddingContext) (res models.EmbeddingResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newError(ErrInferenceFailure, "generate", fmt.Errorf("panic: %v", r))
		}
	}()

	tokens := tokenizer.TokenizeLanguage(text, lang)
	if len(tokens) == 0 {
		return res, newError(ErrTokenizationFailure, "tokenize", errNoTokens)
	}
	ids, mask := e.seq.Build(tokens)

	raw, err := e.guard.Infer(ctx, ids, mask)
	if err != nil {
		return res, err
	}

	var vec []float32
	if e.enhancer != nil {
		ec.Language = lang
		vec = e.enhancer.Enhance(raw, ec)
	} else {
		vec = make([]float32, len(raw))
		copy(vec, raw)
	}
	utils.NormalizeL2(vec)

	return models.EmbeddingResult{
		Vector:   vec,
		Source:   models.SourceGenerated,
		Language: lang,
	}, nil
}

// GenerateEmbeddings embeds texts concurrently, at most max_concurrent at a time. Results are in
// input order; each one is independent of the others' failures.
func (e *Engine) GenerateEmbeddings(ctx context.Context, texts []string, ec models.EmbeddingContext) []models.EmbeddingResult {
	results := make([]models.EmbeddingResult, len(texts))
	var g errgroup.Group
	g.SetLimit(e.maxConcurrent)
	for i, text := range texts {
		g.Go(func() error {
			results[i] = e.GenerateEmbedding(ctx, text, ec)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// GenerateCrossLingualEmbedding embeds text and maps the vector into target's language space.
// Error results, and results already in target, are returned unchanged.
func (e *Engine) GenerateCrossLingualEmbedding(ctx context.Context, text, target string, ec models.EmbeddingContext) models.EmbeddingResult {
	res := e.GenerateEmbedding(ctx, text, ec)
	if !res.OK() || target == "" || target == res.Language {
		return res
	}

	vec, err := e.transformer.Transform(ctx, res.Vector, res.Language, target)
	if err != nil {
		e.logger.Warn("cross-lingual transform failed",
			zap.String("from", res.Language),
			zap.String("to", target),
			zap.Error(err))
		e.metrics.Errors.WithLabelValues(KindLabel(err)).Inc()
		return models.ErrorResult(res.Language, e.dims, err)
	}
	utils.NormalizeL2(vec)
	e.metrics.Generated.WithLabelValues(string(models.SourceTransformed)).Inc()
	return models.EmbeddingResult{
		Vector:   vec,
		Source:   models.SourceTransformed,
		Language: target,
	}
}

// CalculateSemanticSimilarity returns the cosine similarity of a and b in [-1, 1].
func (e *Engine) CalculateSemanticSimilarity(a, b []float32) float64 {
	return vector.CosineSimilarity(a, b)
}

// VerifySemanticConsistency reports whether a and b are at least threshold-similar. The threshold
// is clamped to [0.5, 0.9]; a non-positive threshold uses the configured default.
func (e *Engine) VerifySemanticConsistency(a, b []float32, threshold float64) bool {
	if threshold <= 0 {
		threshold = e.threshold
	}
	return vector.Consistent(a, b, threshold)
}

// CalculateLanguageSimilarity compares embeddings from languages l1 and l2. It returns 0 when
// the comparison itself fails.
func (e *Engine) CalculateLanguageSimilarity(ctx context.Context, e1, e2 []float32, l1, l2 string) float64 {
	sim, err := e.transformer.LanguageSimilarity(ctx, e1, e2, l1, l2)
	if err != nil {
		e.logger.Warn("language similarity failed",
			zap.String("l1", l1),
			zap.String("l2", l2),
			zap.Error(err))
		return 0
	}
	return sim
}

// Embed implements Embedder.
func (e *Engine) Embed(ctx context.Context, text string) ([]float32, error) {
	res := e.GenerateEmbedding(ctx, text, models.EmbeddingContext{})
	if !res.OK() {
		return nil, res.Err
	}
	return res.Vector, nil
}

// EmbedBatch implements Embedder. It fails on the first error result.
func (e *Engine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := e.GenerateEmbeddings(ctx, texts, models.EmbeddingContext{})
	out := make([][]float32, len(results))
	for i, res := range results {
		if !res.OK() {
			return nil, fmt.Errorf("text %d: %w", i, res.Err)
		}
		out[i] = res.Vector
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *Engine) Dimensions() int {
	return e.dims
}

// ClearCache drops every cached embedding and language-pair similarity.
func (e *Engine) ClearCache() {
	e.cache.Purge()
	e.transformer.ClearSimilarityCache()
}

// CacheLen returns the number of cached embeddings.
func (e *Engine) CacheLen() int {
	return e.cache.Len()
}

// BreakerState returns the inference circuit breaker state.
func (e *Engine) BreakerState() gobreaker.State {
	return e.guard.State()
}

// Registry returns the engine's private metrics registry, or nil when WithRegisterer was used.
func (e *Engine) Registry() *prometheus.Registry {
	return e.registry
}

// Close releases the model and the drift model.
func (e *Engine) Close() error {
	return errors.Join(e.model.Close(), e.transformer.Close())
}

var _ Embedder = (*Engine)(nil)
