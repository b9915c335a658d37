package tokenizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// latinKeep are the punctuation runes preserved by Latin-family normalization.
const latinKeep = "'.,!?-"

// Normalize prepares text for tokenization according to the script family of lang.
// Latin-family text is lowercased and stripped of everything except letters, digits,
// whitespace and '.,!?-. Script-segmented text loses punctuation and nonspacing marks.
func Normalize(text, lang string) string {
	if IsScriptSegmented(lang) {
		return stripPunctAndMarks(text)
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || strings.ContainsRune(latinKeep, r) {
			return r
		}
		return -1
	}, strings.ToLower(text))
}

func stripPunctAndMarks(text string) string {
	t := runes.Remove(runes.Predicate(func(r rune) bool {
		return unicode.IsPunct(r) || unicode.Is(unicode.Mn, r)
	}))
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

// StripDiacritics lowercases s and removes combining marks after canonical decomposition,
// so "Café" becomes "cafe".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
