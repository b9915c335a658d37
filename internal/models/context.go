package models

import "strings"

// MediaType is the kind of media an embedded text describes.
type MediaType string

const (
	MediaTypeUnknown     MediaType = ""
	MediaTypeMovie       MediaType = "Movie"
	MediaTypeTvShow      MediaType = "TvShow"
	MediaTypeDocumentary MediaType = "Documentary"
	MediaTypeNews        MediaType = "News"
)

// Genre is the content genre of an embedded text.
type Genre string

const (
	GenreUnknown Genre = ""
	GenreSciFi   Genre = "SciFi"
	GenreDrama   Genre = "Drama"
	GenreAction  Genre = "Action"
	GenreComedy  Genre = "Comedy"
)

// ParseMediaType maps a media type name (case-insensitive) to a MediaType.
// Unrecognised names yield MediaTypeUnknown.
func ParseMediaType(s string) MediaType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie":
		return MediaTypeMovie
	case "tvshow", "tv_show", "show":
		return MediaTypeTvShow
	case "documentary":
		return MediaTypeDocumentary
	case "news":
		return MediaTypeNews
	default:
		return MediaTypeUnknown
	}
}

// ParseGenre maps a genre name (case-insensitive) to a Genre.
// Unrecognised names yield GenreUnknown.
func ParseGenre(s string) Genre {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scifi", "sci-fi", "sci_fi":
		return GenreSciFi
	case "drama":
		return GenreDrama
	case "action":
		return GenreAction
	case "comedy":
		return GenreComedy
	default:
		return GenreUnknown
	}
}

// EmbeddingContext carries the optional metadata that adjusts a generated embedding.
// The zero value applies no adjustment.
type EmbeddingContext struct {
	MediaType MediaType `json:"media_type,omitempty" yaml:"media_type,omitempty"`
	Genre     Genre     `json:"genre,omitempty" yaml:"genre,omitempty"`
	// SemanticIntensity scales every dimension; nil means 1.0.
	SemanticIntensity *float64 `json:"semantic_intensity,omitempty" yaml:"semantic_intensity,omitempty"`
	// Language is filled in by the engine after detection.
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
}

// Intensity returns the semantic intensity, defaulting to 1.0.
func (c EmbeddingContext) Intensity() float64 {
	if c.SemanticIntensity == nil {
		return 1.0
	}
	return *c.SemanticIntensity
}

// WithIntensity returns a copy of c with SemanticIntensity set to v.
func (c EmbeddingContext) WithIntensity(v float64) EmbeddingContext {
	c.SemanticIntensity = &v
	return c
}
