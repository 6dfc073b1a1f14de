package intake

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeCode trims whitespace and leading zeros.
func NormalizeCode(code string) string {
	return strings.TrimLeft(strings.TrimSpace(code), "0")
}

// ExtractEAN pulls the EAN-13 out of a GS1 DataMatrix payload (AI 01 +
// GTIN-14). Codes of 13 characters or fewer, and payloads without AI 01,
// are returned unchanged.
func ExtractEAN(raw string) string {
	if len(raw) <= 13 {
		return raw
	}
	numeric := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if strings.HasPrefix(numeric, "01") && len(numeric) >= 16 {
		gtin14 := numeric[2:16]
		return strings.TrimPrefix(gtin14, "0")
	}
	return raw
}

// Tidy lowercases text and capitalizes its first letter.
func Tidy(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(text)
	return string(unicode.ToTitle(r)) + text[size:]
}

func before(s, sep string) string {
	head, _, _ := strings.Cut(s, sep)
	return head
}
