package ocr

import (
	"regexp"
	"strings"
)

// identifierPatterns are tried in order and the first hit wins. Moving a
// looser pattern up changes results on noisy text.
var identifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`([A-Z0158]{2,5})-([0-9OIBS]{1,4})`),
	regexp.MustCompile(`([A-Z0158]{2,5})\s+([0-9OIBS]{2,4})`),
	regexp.MustCompile(`([A-Z0158]{2,5})([0-9OIBS]{2,4})`),
	regexp.MustCompile(`([A-Z0158]+)[^A-Z0-9]*([0-9OIBS]{2,})`),
}

var barGlyphs = strings.NewReplacer("|", "I", "!", "I", "¡", "I")

// NormalizeText upper-cases raw recognizer output, collapses whitespace and
// maps vertical-bar glyphs to I.
func NormalizeText(raw string) string {
	t := strings.ToUpper(normalizeOCRText(raw))
	return barGlyphs.Replace(t)
}

// ExtractIdentifier parses raw text into a canonical PREFIX-NUMBER identifier.
// It reports false when no pattern matches.
func ExtractIdentifier(raw string) (string, bool) {
	text := NormalizeText(raw)
	if text == "" {
		return "", false
	}
	for _, re := range identifierPatterns {
		m := re.FindStringSubmatch(text)
		if len(m) < 3 {
			continue
		}
		return repairLetters(m[1]) + "-" + repairDigits(m[2]), true
	}
	return "", false
}
