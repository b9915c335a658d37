package embedding

import "github.com/hyperjump/kotoba/internal/models"

var mediaTypeFactors = map[models.MediaType]float32{
	models.MediaTypeMovie:       1.1,
	models.MediaTypeTvShow:      0.9,
	models.MediaTypeDocumentary: 1.05,
}

var genreFactors = map[models.Genre]float32{
	models.GenreSciFi:  1.15,
	models.GenreDrama:  0.95,
	models.GenreAction: 1.1,
	models.GenreComedy: 0.85,
}

// MediaTypeFactor returns the scale applied to every third dimension starting at 0.
func MediaTypeFactor(mt models.MediaType) float32 {
	if f, ok := mediaTypeFactors[mt]; ok {
		return f
	}
	return 1.0
}

// GenreFactor returns the scale applied to every third dimension starting at 1.
func GenreFactor(g models.Genre) float32 {
	if f, ok := genreFactors[g]; ok {
		return f
	}
	return 1.0
}

// ContextEnhancer scales raw model output by media type, genre and semantic intensity.
type ContextEnhancer struct{}

// NewContextEnhancer returns a ContextEnhancer.
func NewContextEnhancer() *ContextEnhancer {
	return &ContextEnhancer{}
}

// Enhance returns a new vector: dimensions i%3==0 scaled by the media type factor, i%3==1 by the
// genre factor, i%3==2 untouched, then every dimension scaled by the semantic intensity.
func (e *ContextEnhancer) Enhance(v []float32, ec models.EmbeddingContext) []float32 {
	media := MediaTypeFactor(ec.MediaType)
	genre := GenreFactor(ec.Genre)
	intensity := float32(ec.Intensity())

	out := make([]float32, len(v))
	for i, x := range v {
		switch i % 3 {
		case 0:
			x *= media
		case 1:
			x *= genre
		}
		out[i] = x * intensity
	}
	return out
}
