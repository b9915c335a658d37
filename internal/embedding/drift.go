package embedding

import (
	"context"
	"errors"
)

// DriftModel is a small learned function over a few scalars.
type DriftModel interface {
	Run(ctx context.Context, inputs []float32) (float32, error)
}

// DriftFunc adapts a function to the DriftModel interface.
type DriftFunc func(ctx context.Context, inputs []float32) (float32, error)

// Run calls f.
func (f DriftFunc) Run(ctx context.Context, inputs []float32) (float32, error) {
	return f(ctx, inputs)
}

// IdentityDrift returns its first input unchanged.
type IdentityDrift struct{}

// Run returns inputs[0].
func (IdentityDrift) Run(_ context.Context, inputs []float32) (float32, error) {
	if len(inputs) == 0 {
		return 0, errors.New("drift model: no inputs")
	}
	return inputs[0], nil
}

// DriftCompensator applies one DriftModel to per-dimension values during transformation and to
// similarity scores after comparison. A disabled compensator passes values through.
type DriftCompensator struct {
	model   DriftModel
	enabled bool
}

// NewDriftCompensator wraps model; a nil model means IdentityDrift.
func NewDriftCompensator(model DriftModel, enabled bool) *DriftCompensator {
	if model == nil {
		model = IdentityDrift{}
	}
	return &DriftCompensator{model: model, enabled: enabled}
}

// CompensateValue corrects one transformed dimension given its position in [0,1) and the
// language proximity.
func (d *DriftCompensator) CompensateValue(ctx context.Context, value, normIndex, proximity float32) (float32, error) {
	if !d.enabled {
		return value, nil
	}
	return d.model.Run(ctx, []float32{value, normIndex, proximity})
}

// RefineSimilarity corrects a raw cross-language similarity.
func (d *DriftCompensator) RefineSimilarity(ctx context.Context, similarity float64, proximity float32) (float64, error) {
	if !d.enabled {
		return similarity, nil
	}
	v, err := d.model.Run(ctx, []float32{float32(similarity), proximity})
	if err != nil {
		return similarity, err
	}
	return float64(v), nil
}

// Close releases the drift model if it holds resources.
func (d *DriftCompensator) Close() error {
	if c, ok := d.model.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
