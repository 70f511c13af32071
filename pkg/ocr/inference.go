package ocr

import "strings"

// Glyph confusions are resolved by field: the prefix only holds letters and
// the number only holds digits, so the same glyph repairs differently.

func repairLetters(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '0':
			return 'O'
		case '8':
			return 'B'
		case '5':
			return 'S'
		case '1':
			return 'I'
		default:
			return r
		}
	}, s)
}

func repairDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case 'O':
			return '0'
		case 'I':
			return '1'
		case 'B':
			return '8'
		case 'S':
			return '5'
		default:
			return r
		}
	}, s)
}
