//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

var errNoCGO = errors.New("ONNX models require CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXModel stub type when built without CGO (see onnx.go for real implementation).
type ONNXModel struct{}

// NewONNXModel returns a ModelLoadFailure when built without CGO.
func NewONNXModel(_ string, _, _ int) (*ONNXModel, error) {
	return nil, newError(ErrModelLoadFailure, "onnx init", errNoCGO)
}

// Infer always fails on the stub.
func (m *ONNXModel) Infer(context.Context, []int64, []int64) ([]float32, error) {
	return nil, errNoCGO
}

// Close is a no-op on the stub.
func (m *ONNXModel) Close() error { return nil }

// ONNXDriftModel stub type when built without CGO.
type ONNXDriftModel struct{}

// NewONNXDriftModel returns a ModelLoadFailure when built without CGO.
func NewONNXDriftModel(_ string) (*ONNXDriftModel, error) {
	return nil, newError(ErrModelLoadFailure, "onnx init", errNoCGO)
}

// Run always fails on the stub.
func (m *ONNXDriftModel) Run(context.Context, []float32) (float32, error) {
	return 0, errNoCGO
}

// Close is a no-op on the stub.
func (m *ONNXDriftModel) Close() error { return nil }
