package embedding

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kotoba/internal/models"
	"github.com/hyperjump/kotoba/internal/vector"
	"github.com/hyperjump/kotoba/pkg/utils"
)

const (
	jitterLow  = 0.975
	jitterSpan = 0.05

	defaultProximity = 0.5
)

var errNaNSimilarity = errors.New("refined similarity is NaN")

// DefaultScalingFactors are the per-language magnitude scales applied during transformation.
var DefaultScalingFactors = map[string]float64{
	"en": 1.0,
	"es": 0.98,
	"fr": 0.97,
	"de": 0.96,
	"ru": 0.95,
	"ko": 0.94,
	"ja": 0.93,
	"zh": 0.92,
	"hi": 0.91,
	"ar": 0.90,
}

type langPair struct{ a, b string }

var proximity = map[langPair]float32{
	{"en", "es"}: 0.80,
	{"en", "fr"}: 0.78,
	{"en", "de"}: 0.75,
	{"es", "fr"}: 0.85,
	{"fr", "de"}: 0.70,
	{"es", "de"}: 0.68,
	{"en", "ru"}: 0.55,
	{"zh", "ja"}: 0.70,
	{"ja", "ko"}: 0.65,
	{"zh", "ko"}: 0.60,
	{"hi", "ar"}: 0.50,
}

// LanguageProximity returns the symmetric closeness of two languages in [0,1].
func LanguageProximity(a, b string) float32 {
	if a == b {
		return 1.0
	}
	if p, ok := proximity[langPair{a, b}]; ok {
		return p
	}
	if p, ok := proximity[langPair{b, a}]; ok {
		return p
	}
	return defaultProximity
}

// TransformerOption configures a CrossLingualTransformer.
type TransformerOption func(*CrossLingualTransformer)

// WithScalingFactors overrides entries of the default scaling table.
func WithScalingFactors(factors map[string]float64) TransformerOption {
	return func(t *CrossLingualTransformer) {
		for lang, f := range factors {
			t.scales[lang] = f
		}
	}
}

// WithJitterSource sets the random source for per-dimension jitter.
func WithJitterSource(rng *rand.Rand) TransformerOption {
	return func(t *CrossLingualTransformer) {
		t.rng = rng
	}
}

// WithoutJitter makes transformation deterministic.
func WithoutJitter() TransformerOption {
	return func(t *CrossLingualTransformer) {
		t.rng = nil
	}
}

// WithDrift sets the drift compensator.
func WithDrift(d *DriftCompensator) TransformerOption {
	return func(t *CrossLingualTransformer) {
		t.drift = d
	}
}

// WithTransformerLogger sets the logger used for refinement fallbacks.
func WithTransformerLogger(l *zap.Logger) TransformerOption {
	return func(t *CrossLingualTransformer) {
		t.logger = utils.OrNop(l)
	}
}

// CrossLingualTransformer maps embeddings between languages by per-language scaling, small
// random jitter and drift compensation.
type CrossLingualTransformer struct {
	scales map[string]float64
	drift  *DriftCompensator
	logger *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	simMu    sync.Mutex
	simCache map[string]float64
}

// NewCrossLingualTransformer returns a transformer with the default scaling table, identity
// drift compensation and a randomly seeded jitter source.
func NewCrossLingualTransformer(opts ...TransformerOption) *CrossLingualTransformer {
	t := &CrossLingualTransformer{
		scales:   make(map[string]float64, len(DefaultScalingFactors)),
		drift:    NewDriftCompensator(nil, true),
		logger:   zap.NewNop(),
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		simCache: make(map[string]float64),
	}
	for lang, f := range DefaultScalingFactors {
		t.scales[lang] = f
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ScalingFactor returns the scale for lang (1.0 when unlisted).
func (t *CrossLingualTransformer) ScalingFactor(lang string) float64 {
	if f, ok := t.scales[lang]; ok {
		return f
	}
	return 1.0
}

// Transform maps v from language src to dst. The result is not normalized.
func (t *CrossLingualTransformer) Transform(ctx context.Context, v []float32, src, dst string) ([]float32, error) {
	ratio := t.ScalingFactor(dst) / t.ScalingFactor(src)
	prox := LanguageProximity(src, dst)
	jitter := t.jitter(len(v))

	out := make([]float32, len(v))
	n := float32(len(v))
	for i, x := range v {
		factor := float32(ratio)
		if jitter != nil {
			factor *= jitter[i]
		}
		c, err := t.drift.CompensateValue(ctx, x*factor, float32(i)/n, prox)
		if err != nil {
			return nil, newError(ErrInferenceFailure, "drift compensate", err)
		}
		out[i] = c
	}
	return out, nil
}

func (t *CrossLingualTransformer) jitter(n int) []float32 {
	t.rngMu.Lock()
	defer t.rngMu.Unlock()
	if t.rng == nil {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(jitterLow + t.rng.Float64()*jitterSpan)
	}
	return out
}

// LanguageSimilarity compares two embeddings from different languages by mapping both to
// English and refining the cosine by language proximity. Results are cached per language pair
// only, so later calls for the same pair return the first value regardless of vectors.
func (t *CrossLingualTransformer) LanguageSimilarity(ctx context.Context, e1, e2 []float32, l1, l2 string) (float64, error) {
	key := l1 + "|" + l2
	t.simMu.Lock()
	if s, ok := t.simCache[key]; ok {
		t.simMu.Unlock()
		return s, nil
	}
	t.simMu.Unlock()

	a, err := t.Transform(ctx, e1, l1, models.DefaultLanguage)
	if err != nil {
		return 0, err
	}
	b, err := t.Transform(ctx, e2, l2, models.DefaultLanguage)
	if err != nil {
		return 0, err
	}
	raw := vector.CosineSimilarity(a, b)
	sim, err := t.drift.RefineSimilarity(ctx, raw, LanguageProximity(l1, l2))
	if err == nil && math.IsNaN(sim) {
		err = errNaNSimilarity
	}
	if err != nil {
		t.logger.Warn("similarity refinement failed, using raw cosine",
			zap.String("pair", key), zap.Error(err))
		sim = raw
	}
	sim = max(-1, min(1, sim))

	t.simMu.Lock()
	t.simCache[key] = sim
	t.simMu.Unlock()
	return sim, nil
}

// ClearSimilarityCache drops cached language-pair similarities.
func (t *CrossLingualTransformer) ClearSimilarityCache() {
	t.simMu.Lock()
	clear(t.simCache)
	t.simMu.Unlock()
}

// Close releases the drift model.
func (t *CrossLingualTransformer) Close() error {
	return t.drift.Close()
}
