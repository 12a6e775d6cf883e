package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reSpaces     = regexp.MustCompile(`\s+`)
	reBareNumber = regexp.MustCompile(`^[+-]?[0-9][0-9,]*(?:\.[0-9]+)?$`)
)

// StripControl drops NUL and other control characters. Tabs become spaces so
// column-separated OCR output keeps its word boundaries.
func StripControl(input string) string {
	if input == "" {
		return input
	}
	out := strings.Builder{}
	out.Grow(len(input))
	for _, r := range input {
		switch {
		case r == '\t':
			out.WriteRune(' ')
		case r == unicode.ReplacementChar, unicode.IsControl(r), r == '\u200b', r == '\ufeff':
			continue
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}

// FoldWidth applies NFKC so full-width digits, letters and punctuation
// ("１０００１", "Ｎｏ．", "：") collapse to their ASCII forms.
func FoldWidth(input string) string {
	return norm.NFKC.String(input)
}

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// IsBareNumber reports whether the whole string is a single number, with
// optional sign, thousands separators and decimals.
func IsBareNumber(input string) bool {
	return reBareNumber.MatchString(strings.TrimSpace(input))
}

func StringPtr(v string) *string {
	return &v
}

func FloatPtr(v float64) *float64 {
	return &v
}

func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
