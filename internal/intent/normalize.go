package intent

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// #region patterns

var urlPattern = regexp.MustCompile(`(?:http|www)\S+`)

// arabicVariants folds letter variants the domain model was trained without.
var arabicVariants = map[rune]rune{
	'إ': 'ا', 'أ': 'ا', 'آ': 'ا',
	'ى': 'ي',
	'ؤ': 'ء', 'ئ': 'ء',
	'ة': 'ه',
	'گ': 'ك',
}

// #endregion patterns

// #region normalize

// Normalize prepares text for the out-of-domain scorer. The result is only
// ever used as classifier input.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = urlPattern.ReplaceAllString(s, " ")
	s = strings.Map(keepWordRune, s)

	// transform chains carry state, so one is built per call
	chain := transform.Chain(
		runes.Map(canonicalLetter),
		runes.Remove(runes.Predicate(isTashkeel)),
	)
	if out, _, err := transform.String(chain, s); err == nil {
		s = out
	}

	s = collapseRepeats(s, 2)
	return strings.Join(strings.Fields(s), " ")
}

// #endregion normalize

// #region helpers

func isArabicBlock(r rune) bool {
	return r >= 0x0600 && r <= 0x06FF
}

// keepWordRune replaces anything that is not a word rune, whitespace or an
// Arabic-block rune with a space.
func keepWordRune(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) || isArabicBlock(r) {
		return r
	}
	return ' '
}

func canonicalLetter(r rune) rune {
	if c, ok := arabicVariants[r]; ok {
		return c
	}
	return r
}

// isTashkeel matches the Arabic short-vowel and shadda marks U+064B..U+0652.
func isTashkeel(r rune) bool {
	return r >= 0x064B && r <= 0x0652
}

// collapseRepeats shortens every run of one repeated rune to at most max.
func collapseRepeats(s string, max int) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run <= max {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// #endregion helpers
