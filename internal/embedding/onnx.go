//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

func initRuntime() error {
	if ort.IsInitialized() {
		return nil
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}
	return nil
}

// ONNXModel runs a sentence-embedding graph through ONNX Runtime. It requires CGO and the
// onnxruntime shared library. One session is shared, so calls are serialized.
type ONNXModel struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXModel loads the graph at modelPath. Inputs are "input_ids" and "attention_mask" of
// shape [1, maxTokens]; the output "output" has shape [1, dimensions].
func NewONNXModel(modelPath string, dimensions, maxTokens int) (*ONNXModel, error) {
	if err := initRuntime(); err != nil {
		return nil, newError(ErrModelLoadFailure, "onnx init", err)
	}

	inputIDsTensor, err := ort.NewEmptyTensor[int64](ort.NewShape(1, int64(maxTokens)))
	if err != nil {
		return nil, newError(ErrModelLoadFailure, "onnx tensor", fmt.Errorf("input_ids: %w", err))
	}
	attentionMaskTensor, err := ort.NewEmptyTensor[int64](ort.NewShape(1, int64(maxTokens)))
	if err != nil {
		inputIDsTensor.Destroy()
		return nil, newError(ErrModelLoadFailure, "onnx tensor", fmt.Errorf("attention_mask: %w", err))
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(dimensions)))
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		return nil, newError(ErrModelLoadFailure, "onnx tensor", fmt.Errorf("output: %w", err))
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"output"},
		[]ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		outputTensor.Destroy()
		return nil, newError(ErrModelLoadFailure, "onnx session", err)
	}

	return &ONNXModel{
		session:             session,
		dimensions:          dimensions,
		maxTokens:           maxTokens,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		outputTensor:        outputTensor,
	}, nil
}

// Infer runs the graph on one sequence and returns a copy of the output row.
func (m *ONNXModel) Infer(ctx context.Context, inputIDs, attentionMask []int64) ([]float32, error) {
	if len(inputIDs) != m.maxTokens || len(attentionMask) != m.maxTokens {
		return nil, fmt.Errorf("sequence length %d/%d, model expects %d", len(inputIDs), len(attentionMask), m.maxTokens)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, fmt.Errorf("model closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	copy(m.inputIDsTensor.GetData(), inputIDs)
	copy(m.attentionMaskTensor.GetData(), attentionMask)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := make([]float32, m.dimensions)
	copy(out, m.outputTensor.GetData())
	return out, nil
}

// Close destroys the session and tensors.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var err error
	if m.session != nil {
		err = m.session.Destroy()
		m.session = nil
	}
	if m.inputIDsTensor != nil {
		_ = m.inputIDsTensor.Destroy()
		m.inputIDsTensor = nil
	}
	if m.attentionMaskTensor != nil {
		_ = m.attentionMaskTensor.Destroy()
		m.attentionMaskTensor = nil
	}
	if m.outputTensor != nil {
		_ = m.outputTensor.Destroy()
		m.outputTensor = nil
	}
	return err
}

// driftInputs is the fixed input width of the drift graph: value, position or similarity, proximity.
const driftInputs = 3

// ONNXDriftModel runs a small drift-compensation graph with input "input" of shape [1, 3] and
// output "output" of shape [1, 1].
type ONNXDriftModel struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	mu           sync.Mutex
}

// NewONNXDriftModel loads the drift graph at modelPath.
func NewONNXDriftModel(modelPath string) (*ONNXDriftModel, error) {
	if err := initRuntime(); err != nil {
		return nil, newError(ErrModelLoadFailure, "onnx init", err)
	}
	in, err := ort.NewEmptyTensor[float32](ort.NewShape(1, driftInputs))
	if err != nil {
		return nil, newError(ErrModelLoadFailure, "onnx tensor", err)
	}
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		in.Destroy()
		return nil, newError(ErrModelLoadFailure, "onnx tensor", err)
	}
	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{in}, []ort.ArbitraryTensor{out}, nil)
	if err != nil {
		in.Destroy()
		out.Destroy()
		return nil, newError(ErrModelLoadFailure, "onnx drift session", err)
	}
	return &ONNXDriftModel{session: session, inputTensor: in, outputTensor: out}, nil
}

// Run evaluates the drift graph. Shorter inputs are zero-padded to the graph width.
func (m *ONNXDriftModel) Run(ctx context.Context, inputs []float32) (float32, error) {
	if len(inputs) > driftInputs {
		return 0, fmt.Errorf("drift model takes at most %d inputs, got %d", driftInputs, len(inputs))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return 0, fmt.Errorf("drift model closed")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data := m.inputTensor.GetData()
	clear(data)
	copy(data, inputs)
	if err := m.session.Run(); err != nil {
		return 0, fmt.Errorf("drift inference failed: %w", err)
	}
	return m.outputTensor.GetData()[0], nil
}

// Close destroys the session and tensors.
func (m *ONNXDriftModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var err error
	if m.session != nil {
		err = m.session.Destroy()
		m.session = nil
	}
	if m.inputTensor != nil {
		_ = m.inputTensor.Destroy()
		m.inputTensor = nil
	}
	if m.outputTensor != nil {
		_ = m.outputTensor.Destroy()
		m.outputTensor = nil
	}
	return err
}
