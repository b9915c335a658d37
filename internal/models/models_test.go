package models

import (
	"errors"
	"testing"
)

func TestErrorResult(t *testing.T) {
	res := ErrorResult("", EmbeddingDimension, errors.New("boom"))
	if res.Source != SourceError {
		t.Errorf("source = %s, want error", res.Source)
	}
	if res.Language != DefaultLanguage {
		t.Errorf("language = %q, want %q", res.Language, DefaultLanguage)
	}
	if len(res.Vector) != EmbeddingDimension {
		t.Fatalf("len(vector) = %d", len(res.Vector))
	}
	for i, v := range res.Vector {
		if v != 0 {
			t.Fatalf("vector[%d] = %v, want 0", i, v)
		}
	}
	if res.OK() {
		t.Error("error result should not be OK")
	}
}

func TestEmbeddingResult_Clone(t *testing.T) {
	orig := EmbeddingResult{Vector: []float32{1, 2}, Source: SourceGenerated, Language: "en"}
	c := orig.Clone()
	c.Vector[0] = 9
	if orig.Vector[0] != 1 {
		t.Error("clone must not alias the original vector")
	}
}

func TestParseMediaTypeAndGenre(t *testing.T) {
	tests := []struct {
		in        string
		wantMedia MediaType
		wantGenre Genre
	}{
		{"Movie", MediaTypeMovie, GenreUnknown},
		{"tvshow", MediaTypeTvShow, GenreUnknown},
		{"SciFi", MediaTypeUnknown, GenreSciFi},
		{"sci-fi", MediaTypeUnknown, GenreSciFi},
		{"comedy", MediaTypeUnknown, GenreComedy},
		{"western", MediaTypeUnknown, GenreUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseMediaType(tt.in); got != tt.wantMedia {
				t.Errorf("ParseMediaType(%q) = %q, want %q", tt.in, got, tt.wantMedia)
			}
			if got := ParseGenre(tt.in); got != tt.wantGenre {
				t.Errorf("ParseGenre(%q) = %q, want %q", tt.in, got, tt.wantGenre)
			}
		})
	}
}

func TestEmbeddingContext_Intensity(t *testing.T) {
	var c EmbeddingContext
	if c.Intensity() != 1.0 {
		t.Errorf("default intensity = %v", c.Intensity())
	}
	c = c.WithIntensity(0.5)
	if c.Intensity() != 0.5 {
		t.Errorf("intensity = %v, want 0.5", c.Intensity())
	}
}

func TestModelMetadata_Supports(t *testing.T) {
	m := ModelMetadata{SupportedLanguages: []string{"en", "zh"}}
	if !m.Supports("zh") || m.Supports("ko") {
		t.Errorf("Supports mismatch for %v", m.SupportedLanguages)
	}
}
