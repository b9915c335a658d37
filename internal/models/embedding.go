// Package models defines core data structures for embeddings, request context, and model bookkeeping.
package models

const (
	// EmbeddingDimension is the length of every embedding vector produced by the engine.
	EmbeddingDimension = 768
	// MaxSequenceLength is the number of token positions fed to the model.
	MaxSequenceLength = 512
	// DefaultLanguage is returned when no known script is detected.
	DefaultLanguage = "en"
)

// Source describes how an EmbeddingResult was produced.
type Source string

const (
	SourceGenerated   Source = "generated"
	SourceCached      Source = "cached"
	SourceTransformed Source = "transformed"
	SourceError       Source = "error"
)

// EmbeddingResult is the outcome of one embedding request.
// When Source is SourceError, Vector is the zero vector of EmbeddingDimension length and Err is set.
type EmbeddingResult struct {
	Vector   []float32 `json:"vector"`
	Source   Source    `json:"source"`
	Language string    `json:"language"`
	Err      error     `json:"-"`
}

// ErrorResult returns the terminal error result for language lang.
func ErrorResult(lang string, dims int, err error) EmbeddingResult {
	if lang == "" {
		lang = DefaultLanguage
	}
	return EmbeddingResult{
		Vector:   make([]float32, dims),
		Source:   SourceError,
		Language: lang,
		Err:      err,
	}
}

// OK reports whether the result carries a usable vector.
func (r EmbeddingResult) OK() bool {
	return r.Source != SourceError
}

// Clone returns a copy of r whose vector does not alias r.Vector.
func (r EmbeddingResult) Clone() EmbeddingResult {
	out := r
	if r.Vector != nil {
		out.Vector = make([]float32, len(r.Vector))
		copy(out.Vector, r.Vector)
	}
	return out
}
