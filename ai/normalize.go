package ai

import (
	"strings"
	"unicode"
)

// NormalizeText prepares text for embedding: whitespace runs collapse to a
// single space, control and other non-text artifacts are stripped, and the
// result is truncated to maxChars. Truncation is deterministic and snaps
// back to the preceding rune boundary, so a given input always normalizes
// to the same output. Embeddings are pure functions of the normalized text.
func NormalizeText(text string, maxChars int) string {
	var b strings.Builder
	b.Grow(len(text))

	space := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsControl(r) || r == unicode.ReplacementChar:
			// drop artifacts
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}

	out := b.String()
	if maxChars > 0 && len(out) > maxChars {
		cut := maxChars
		for cut > 0 && !isRuneStart(out[cut]) {
			cut--
		}
		out = strings.TrimRight(out[:cut], " ")
	}
	return out
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
