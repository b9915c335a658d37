package models

import "time"

// ModelMetadata describes a model artifact. It is informational only.
type ModelMetadata struct {
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	InputShape         []int     `json:"input_shape"`
	OutputShape        []int     `json:"output_shape"`
	SupportedLanguages []string  `json:"supported_languages"`
	LastUpdated        time.Time `json:"last_updated"`
}

// Supports reports whether lang is listed in SupportedLanguages.
func (m ModelMetadata) Supports(lang string) bool {
	for _, l := range m.SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// ModelMetrics is a snapshot of per-model counters. InferenceTime is cumulative.
type ModelMetrics struct {
	ModelName     string        `json:"model_name"`
	LoadTime      time.Duration `json:"load_time"`
	InferenceTime time.Duration `json:"inference_time"`
	MemoryUsageKB int64         `json:"memory_usage_kb"`
	ErrorCount    int64         `json:"error_count"`
	SuccessCount  int64         `json:"success_count"`
	LastUsed      time.Time     `json:"last_used"`
}
