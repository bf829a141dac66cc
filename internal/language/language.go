package language

import (
	"strings"
	"unicode"
)

// #region detect

// Detect picks the language of text from its script mix. It never fails:
// text with no Arabic or Latin letters (digits, punctuation, empty) is Arabic.
func Detect(text string) Language {
	arabic, latin := countScripts(text)
	total := arabic + latin
	if total == 0 {
		return Arabic
	}

	ratio := float64(arabic) / float64(total)
	switch {
	case ratio > arabicRatioMin:
		return Arabic
	case ratio < latinRatioMax:
		if frenchMatches(text) >= frenchMinMatches {
			return French
		}
		return English
	default:
		return AlgerianMixed
	}
}

// #endregion detect

// #region helpers

// countScripts counts code points in the Arabic block (U+0600..U+06FF) and
// ASCII Latin letters.
func countScripts(text string) (arabic, latin int) {
	for _, r := range text {
		switch {
		case r >= 0x0600 && r <= 0x06FF:
			arabic++
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			latin++
		}
	}
	return arabic, latin
}

// frenchMatches counts how many distinct French function words occur as
// space-delimited tokens in text.
func frenchMatches(text string) int {
	padded := " " + strings.ToLower(text) + " "
	n := 0
	for _, w := range frenchWords {
		if strings.Contains(padded, " "+w+" ") {
			n++
		}
	}
	return n
}

// #endregion helpers
