package tokenizer

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		text string
		lang string
		want string
	}{
		{"latin lowercases and keeps allowed punctuation", "Hello, World! (2024) #1", "en", "hello, world! 2024 1"},
		{"latin keeps apostrophe and hyphen", "Ocean's Eleven - Remix", "en", "ocean's eleven - remix"},
		{"cyrillic uses latin rules", "Сталкер!", "ru", "сталкер!"},
		{"han strips punctuation", "東京、物語。", "zh", "東京物語"},
		{"arabic strips harakat", "كِتَاب", "ar", "كتاب"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.text, tt.lang); got != tt.want {
				t.Errorf("Normalize(%q, %q) = %q, want %q", tt.text, tt.lang, got, tt.want)
			}
		})
	}
}

func TestStripDiacritics(t *testing.T) {
	if got := StripDiacritics("Café"); got != "cafe" {
		t.Errorf("StripDiacritics(Café) = %q", got)
	}
}

func TestTokenizeLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		lang string
		want []string
	}{
		{"short words kept whole", "the cat sat", "en", []string{"the", "cat", "sat"}},
		{"four to six runes bisected", "hello world", "en", []string{"he", "llo", "wo", "rld"}},
		{"long words bisected", "interstellar", "en", []string{"inters", "tellar"}},
		{"odd long word", "godfather", "en", []string{"godf", "ather"}},
		{"punctuation stays attached", "Hello, World!", "en", []string{"hel", "lo,", "wor", "ld!"}},
		{"multibyte latin counted in runes", "éclair", "en", []string{"écl", "air"}},
		{"han runs", "東京物語", "zh", []string{"東京物語"}},
		{"han runs split by space and singletons", "東京 2 物語", "zh", []string{"東京", "2", "物語"}},
		{"alphanumerics outside run are singletons", "東京ab物語", "zh", []string{"東京", "a", "b", "物語"}},
		{"kana and han in one run", "千と千尋の神隠し", "ja", []string{"千と千尋の神隠し"}},
		{"hangul words", "기생충 영화", "ko", []string{"기생충", "영화"}},
		{"empty", "", "en", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TokenizeLanguage(tt.text, tt.lang)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TokenizeLanguage(%q, %q) = %q, want %q", tt.text, tt.lang, got, tt.want)
			}
		})
	}
}

func TestTokenizer_Tokenize_DetectsLanguage(t *testing.T) {
	tok := New(testConfig())
	got := tok.Tokenize("東京 物語")
	want := []string{"東京", "物語"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %q, want %q", got, want)
	}
}

func TestTokenizer_TokenToID(t *testing.T) {
	tok := New(testConfig())
	tests := []struct {
		token string
		want  int
	}{
		{"he", 5},
		{"Ab", 11},
		{"THE", 12},
		{"Café", 9},
		{"東京", 10},
		{"unknown", 0},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if got := tok.TokenToID(tt.token); got != tt.want {
				t.Errorf("TokenToID(%q) = %d, want %d", tt.token, got, tt.want)
			}
		})
	}
}

func TestNew_CopiesVocab(t *testing.T) {
	cfg := testConfig()
	tok := New(cfg)
	cfg.Vocab["he"] = 99
	if got := tok.TokenToID("he"); got != 5 {
		t.Errorf("tokenizer must not observe later config mutation, got %d", got)
	}
	if tok.VocabSize() != len(testConfig().Vocab) {
		t.Errorf("VocabSize = %d", tok.VocabSize())
	}
}
