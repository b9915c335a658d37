package modelmgr

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperjump/kotoba/internal/embedding"
)

func writeModel(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return p
}

type countingLoader struct {
	calls atomic.Int32
	inner Loader
	delay time.Duration
}

func (l *countingLoader) Load(ctx context.Context, path string) (*Artifact, error) {
	l.calls.Add(1)
	time.Sleep(l.delay)
	return l.inner.Load(ctx, path)
}

type closeRecorder struct {
	closed atomic.Bool
}

func (c *closeRecorder) Close() error {
	c.closed.Store(true)
	return nil
}

func TestLoad_FallbackMetadata(t *testing.T) {
	p := writeModel(t, t.TempDir(), "text_embedding.onnx", "weights")
	m := New()
	model, err := m.Load(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if model.Name != "text_embedding" {
		t.Errorf("Name: got %q", model.Name)
	}
	if model.Metadata.Name != "Unknown Model" {
		t.Errorf("Metadata.Name: got %q", model.Metadata.Name)
	}
	if got := model.Metadata.OutputShape; len(got) != 2 || got[1] != 768 {
		t.Errorf("OutputShape: got %v", got)
	}
	if !model.Metadata.Supports("en") || model.Metadata.Supports("ja") {
		t.Errorf("SupportedLanguages: got %v", model.Metadata.SupportedLanguages)
	}
	info, _ := os.Stat(p)
	if want := info.ModTime().UnixMilli(); model.Version != strconv.FormatInt(want, 10) {
		t.Errorf("Version: got %q, want %d", model.Version, want)
	}
	if model.ID.String() == "" {
		t.Error("expected an instance id")
	}
}

func TestLoad_Sidecar(t *testing.T) {
	dir := t.TempDir()
	p := writeModel(t, dir, "multilingual_bert.onnx", "weights")
	writeModel(t, dir, "multilingual_bert.onnx.json", `{
		"name": "Multilingual BERT",
		"description": "sentence encoder",
		"supported_languages": ["en", "ja", "zh"],
		"last_updated": "2024-05-01T00:00:00Z"
	}`)

	m := New()
	ctx := context.Background()
	meta, err := m.Metadata(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Name != "Multilingual BERT" {
		t.Errorf("Name: got %q", meta.Name)
	}
	if got := meta.InputShape; len(got) != 2 || got[1] != 512 {
		t.Errorf("InputShape should keep its default: %v", got)
	}
	if !m.SupportsLanguage(ctx, p, "ja") || m.SupportsLanguage(ctx, p, "ko") {
		t.Error("SupportsLanguage mismatch")
	}
	model, _ := m.Get(p)
	if model.Version != "1714521600000" {
		t.Errorf("Version: got %q", model.Version)
	}
}

func TestLoad_BadSidecar(t *testing.T) {
	dir := t.TempDir()
	p := writeModel(t, dir, "m.onnx", "weights")
	writeModel(t, dir, "m.onnx.json", "{not json")
	_, err := New().Load(context.Background(), p)
	if !errors.Is(err, embedding.ErrModelLoadFailure) {
		t.Errorf("got %v, want ErrModelLoadFailure", err)
	}
}

func TestLoad_Failures(t *testing.T) {
	dir := t.TempDir()
	empty := writeModel(t, dir, "empty.onnx", "")
	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "nope.onnx")},
		{"empty", empty},
		{"directory", dir},
	}
	m := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Load(context.Background(), tt.path)
			if !errors.Is(err, embedding.ErrModelLoadFailure) {
				t.Errorf("got %v, want ErrModelLoadFailure", err)
			}
			if m.IsAvailable(context.Background(), tt.path) {
				t.Error("IsAvailable should be false")
			}
			if _, ok := m.Get(tt.path); ok {
				t.Error("failed load must not be registered")
			}
		})
	}
}

func TestLoad_Fallback(t *testing.T) {
	dir := t.TempDir()
	fb := writeModel(t, dir, "fallback.onnx", "small weights")
	m := New(WithFallback(fb))

	missing := filepath.Join(dir, "primary.onnx")
	model, err := m.Load(context.Background(), missing)
	if err != nil {
		t.Fatal(err)
	}
	if model.Version != FallbackVersion {
		t.Errorf("Version: got %q, want %q", model.Version, FallbackVersion)
	}
	if got, ok := m.Get(missing); !ok || got != model {
		t.Error("fallback should be registered under the requested path")
	}

	os.Remove(fb)
	_, err = New(WithFallback(fb)).Load(context.Background(), missing)
	if !errors.Is(err, embedding.ErrModelLoadFailure) {
		t.Errorf("got %v, want ErrModelLoadFailure", err)
	}
}

func TestLoad_FallbackRetriesPrimary(t *testing.T) {
	dir := t.TempDir()
	fb := writeModel(t, dir, "fallback.onnx", "small weights")
	var mu sync.Mutex
	handles := make(map[string]*closeRecorder)
	open := func(_ context.Context, path string) (io.Closer, error) {
		mu.Lock()
		defer mu.Unlock()
		c := &closeRecorder{}
		handles[path] = c
		return c, nil
	}
	m := New(WithLoader(FileLoader{Open: open}), WithFallback(fb))
	ctx := context.Background()
	primary := filepath.Join(dir, "primary.onnx")

	first, err := m.Load(ctx, primary)
	if err != nil {
		t.Fatal(err)
	}
	if !first.IsFallback() {
		t.Fatalf("Version: got %q, want %q", first.Version, FallbackVersion)
	}
	again, err := m.Load(ctx, primary)
	if err != nil {
		t.Fatal(err)
	}
	if again != first {
		t.Error("fallback should be kept while the primary is missing")
	}

	writeModel(t, dir, "primary.onnx", "weights")
	model, err := m.Load(ctx, primary)
	if err != nil {
		t.Fatal(err)
	}
	if model.IsFallback() {
		t.Error("primary should replace the fallback once it loads")
	}
	if got, _ := m.Get(primary); got != model {
		t.Error("registry should hold the primary")
	}
	mu.Lock()
	defer mu.Unlock()
	if !handles[fb].closed.Load() {
		t.Error("replaced fallback handle should be closed")
	}
	if handles[primary].closed.Load() {
		t.Error("primary handle should stay open")
	}
}

func TestLoad_ConcurrentCallsShareOneLoad(t *testing.T) {
	p := writeModel(t, t.TempDir(), "m.onnx", "weights")
	loader := &countingLoader{inner: FileLoader{}, delay: 20 * time.Millisecond}
	m := New(WithLoader(loader))

	var wg sync.WaitGroup
	results := make([]*Model, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			model, err := m.Load(context.Background(), p)
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = model
		}(i)
	}
	wg.Wait()

	if got := loader.calls.Load(); got != 1 {
		t.Errorf("loader calls: got %d, want 1", got)
	}
	for i, r := range results {
		if r != results[0] {
			t.Errorf("result %d is a different instance", i)
		}
	}
}

func TestPreload(t *testing.T) {
	dir := t.TempDir()
	a := writeModel(t, dir, "a.onnx", "x")
	b := writeModel(t, dir, "b.onnx", "y")
	missing := filepath.Join(dir, "c.onnx")

	m := New()
	got := m.Preload(context.Background(), []string{a, b, missing})
	if !got[a] || !got[b] || got[missing] {
		t.Errorf("Preload: got %v", got)
	}
	if n := len(m.Loaded()); n != 2 {
		t.Errorf("Loaded: got %d, want 2", n)
	}
}

func TestClear(t *testing.T) {
	p := writeModel(t, t.TempDir(), "m.onnx", "x")
	handle := &closeRecorder{}
	m := New(WithLoader(FileLoader{Open: func(context.Context, string) (io.Closer, error) {
		return handle, nil
	}}))
	if _, err := m.Load(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	m.RecordInference(p, time.Millisecond, nil)

	m.Clear()
	if !handle.closed.Load() {
		t.Error("Clear should close model handles")
	}
	if len(m.Loaded()) != 0 {
		t.Error("Clear should empty the registry")
	}
	if len(m.AllMetrics()) != 0 {
		t.Error("Clear should reset metrics")
	}
}

func TestFileLoader_OpenError(t *testing.T) {
	p := writeModel(t, t.TempDir(), "m.onnx", "x")
	l := FileLoader{Open: func(context.Context, string) (io.Closer, error) {
		return nil, errors.New("bad graph")
	}}
	if _, err := l.Load(context.Background(), p); err == nil || !strings.Contains(err.Error(), "bad graph") {
		t.Errorf("got %v", err)
	}
}
