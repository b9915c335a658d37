// Package tokenizer implements script-aware language detection, normalization,
// tokenization, and fixed-length sequence building for the embedding model.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/hyperjump/kotoba/internal/models"
)

// scriptRule maps a set of Unicode scripts to the language reported when any of them is present.
type scriptRule struct {
	lang    string
	scripts []*unicode.RangeTable
}

// detectionOrder is the fixed priority used by DetectLanguage. Mixed-script text is classified by
// the first rule that matches any rune, not by majority content.
var detectionOrder = []scriptRule{
	{lang: "ru", scripts: []*unicode.RangeTable{unicode.Cyrillic}},
	{lang: "ja", scripts: []*unicode.RangeTable{unicode.Hiragana, unicode.Katakana}},
	{lang: "zh", scripts: []*unicode.RangeTable{unicode.Han}},
	{lang: "ko", scripts: []*unicode.RangeTable{unicode.Hangul}},
	{lang: "hi", scripts: []*unicode.RangeTable{unicode.Devanagari}},
	{lang: "ar", scripts: []*unicode.RangeTable{unicode.Arabic}},
}

// segmentScripts lists the languages tokenized by script runs rather than whitespace,
// with the scripts that make up a run.
var segmentScripts = map[string][]*unicode.RangeTable{
	"zh": {unicode.Han},
	"ja": {unicode.Han, unicode.Hiragana, unicode.Katakana},
	"ko": {unicode.Hangul},
	"hi": {unicode.Devanagari},
	"ar": {unicode.Arabic},
}

// DetectLanguage returns a short language code for text based on the Unicode scripts it contains.
// Text with no recognised script is reported as "en".
func DetectLanguage(text string) string {
	for _, rule := range detectionOrder {
		if strings.ContainsFunc(text, func(r rune) bool {
			return unicode.IsOneOf(rule.scripts, r)
		}) {
			return rule.lang
		}
	}
	return models.DefaultLanguage
}

// IsScriptSegmented reports whether lang is tokenized by script runs (CJK, Korean, Devanagari, Arabic).
func IsScriptSegmented(lang string) bool {
	_, ok := segmentScripts[lang]
	return ok
}
