package embedding

import (
	"context"
	"math"
)

// Model is the opaque inference boundary: fixed-length token ids and attention mask in,
// one embedding vector out. Implementations may block.
type Model interface {
	Infer(ctx context.Context, inputIDs, attentionMask []int64) ([]float32, error)
	Close() error
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, inputIDs, attentionMask []int64) ([]float32, error)

// Infer calls f.
func (f ModelFunc) Infer(ctx context.Context, inputIDs, attentionMask []int64) ([]float32, error) {
	return f(ctx, inputIDs, attentionMask)
}

// Close is a no-op for ModelFunc.
func (f ModelFunc) Close() error {
	return nil
}

// StubModel returns the same vector for every input.
type StubModel struct {
	vec []float32
}

// NewStubModel returns a model that always yields a copy of vec.
func NewStubModel(vec []float32) *StubModel {
	v := make([]float32, len(vec))
	copy(v, vec)
	return &StubModel{vec: v}
}

// Infer returns a copy of the fixed vector.
func (m *StubModel) Infer(ctx context.Context, inputIDs, attentionMask []int64) ([]float32, error) {
	out := make([]float32, len(m.vec))
	copy(out, m.vec)
	return out, nil
}

// Close is a no-op for StubModel.
func (m *StubModel) Close() error {
	return nil
}

// MockModel is a deterministic model for tests. It returns a fixed-dimension vector derived
// from a hash of the unmasked ids, so the same sequence always gets the same output.
type MockModel struct {
	dimensions int
}

// NewMockModel returns a model that produces deterministic vectors of the given dimensions.
func NewMockModel(dimensions int) *MockModel {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &MockModel{dimensions: dimensions}
}

// Infer returns a deterministic vector based on the sequence hash.
func (m *MockModel) Infer(ctx context.Context, inputIDs, attentionMask []int64) ([]float32, error) {
	h := hashSequence(inputIDs, attentionMask)
	emb := make([]float32, m.dimensions)
	for i := 0; i < m.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	return emb, nil
}

// Close is a no-op for MockModel.
func (m *MockModel) Close() error {
	return nil
}

// hashSequence returns a deterministic non-negative hash over the ids whose mask is set.
func hashSequence(ids, mask []int64) int {
	h := 0
	for i, id := range ids {
		if i < len(mask) && mask[i] == 0 {
			continue
		}
		h = 31*h + int(id) + 1
	}
	if h < 0 {
		h = -h
	}
	return h
}
