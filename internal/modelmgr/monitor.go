package modelmgr

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/kotoba/internal/models"
)

type modelStats struct {
	name          string
	loadTime      time.Duration
	inferenceTime time.Duration
	errors        int64
	successes     int64
	lastUsed      time.Time
}

// monitor keeps per-model load and inference counters.
type monitor struct {
	mu      sync.Mutex
	entries map[string]*modelStats
	now     func() time.Time
}

func newMonitor() *monitor {
	return &monitor{entries: make(map[string]*modelStats), now: time.Now}
}

func (m *monitor) entryLocked(path string) *modelStats {
	s, ok := m.entries[path]
	if !ok {
		s = &modelStats{name: modelName(path)}
		m.entries[path] = s
	}
	return s
}

func (m *monitor) recordLoad(path string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.entryLocked(path)
	s.loadTime = d
	s.lastUsed = m.now()
}

// recordInference adds a successful call's latency, or counts a failure.
func (m *monitor) recordInference(path string, d time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.entryLocked(path)
	if err != nil {
		s.errors++
	} else {
		s.successes++
		s.inferenceTime += d
	}
	s.lastUsed = m.now()
}

func (m *monitor) snapshot(path string) (models.ModelMetrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.entries[path]
	if !ok {
		return models.ModelMetrics{}, false
	}
	return s.metrics(), true
}

func (m *monitor) all() map[string]models.ModelMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.ModelMetrics, len(m.entries))
	for path, s := range m.entries {
		out[path] = s.metrics()
	}
	return out
}

func (m *monitor) reset() {
	m.mu.Lock()
	clear(m.entries)
	m.mu.Unlock()
}

func (s *modelStats) metrics() models.ModelMetrics {
	return models.ModelMetrics{
		ModelName:     s.name,
		LoadTime:      s.loadTime,
		InferenceTime: s.inferenceTime,
		MemoryUsageKB: EstimateMemoryKB(s.name),
		ErrorCount:    s.errors,
		SuccessCount:  s.successes,
		LastUsed:      s.lastUsed,
	}
}

// EstimateMemoryKB is a rough memory footprint guess from the model name.
func EstimateMemoryKB(name string) int64 {
	name = strings.ToLower(name)
	switch {
	case strings.Contains(name, "embedding"):
		return 50 * 1024
	case strings.Contains(name, "multilingual"):
		return 100 * 1024
	default:
		return 25 * 1024
	}
}

func (m *monitor) summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		errs, successes   int64
		loadSum, inferSum time.Duration
	)
	for _, s := range m.entries {
		errs += s.errors
		successes += s.successes
		loadSum += s.loadTime
		inferSum += s.inferenceTime
	}
	var avgLoad, avgInfer time.Duration
	if n := len(m.entries); n > 0 {
		avgLoad = loadSum / time.Duration(n)
		avgInfer = inferSum / time.Duration(n)
	}
	var b strings.Builder
	b.WriteString("Model Performance Summary:\n")
	fmt.Fprintf(&b, "- Total Models: %d\n", len(m.entries))
	fmt.Fprintf(&b, "- Total Errors: %d\n", errs)
	fmt.Fprintf(&b, "- Total Successes: %d\n", successes)
	fmt.Fprintf(&b, "- Average Load Time: %dms\n", avgLoad.Milliseconds())
	fmt.Fprintf(&b, "- Average Inference Time: %dms", avgInfer.Milliseconds())
	return b.String()
}
