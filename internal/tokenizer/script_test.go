package tokenizer

import "testing"

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"ascii", "The Matrix 1999", "en"},
		{"empty", "", "en"},
		{"latin with accents", "Amélie", "en"},
		{"han", "东京物语", "zh"},
		{"hangul", "기생충", "ko"},
		{"cyrillic", "Сталкер", "ru"},
		{"arabic", "الرسالة", "ar"},
		{"devanagari", "लगान", "hi"},
		{"kana", "となりのトトロ", "ja"},
		{"cyrillic wins over han", "東京 Москва", "ru"},
		{"han wins over hangul", "東京 서울", "zh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.text); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsScriptSegmented(t *testing.T) {
	for _, lang := range []string{"zh", "ja", "ko", "hi", "ar"} {
		if !IsScriptSegmented(lang) {
			t.Errorf("%s should be script-segmented", lang)
		}
	}
	for _, lang := range []string{"en", "ru", "es", ""} {
		if IsScriptSegmented(lang) {
			t.Errorf("%s should not be script-segmented", lang)
		}
	}
}
