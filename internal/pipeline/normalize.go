package pipeline

import (
	"errors"
	"regexp"
	"strings"

	"slipscan/internal/util"
)

// ErrEmptyInput is returned when there are no lines to parse at all.
var ErrEmptyInput = errors.New("empty input: no lines to parse")

// LineFilter reports whether a normalized line should be dropped.
type LineFilter func(line string) bool

// Page furniture repeated on every scanned page. Bare digit lines are never
// listed here: they carry slip numbers after a label-only line.
var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[-=_─━]{3,}$`),
	regexp.MustCompile(`^\d+\s*/\s*\d+$`),
	regexp.MustCompile(`^-\s*\d+\s*-$`),
	regexp.MustCompile(`(?i)^page\s*\d+(?:\s*(?:of|/)\s*\d+)?$`),
	regexp.MustCompile(`^(?:第\s*)?\d+\s*(?:ページ|頁|枚目)(?:\s*/\s*\d+\s*(?:ページ|頁|枚)?)?$`),
	regexp.MustCompile(`^[(（]?\s*(?:続く|次頁へ続く|次ページへ続く)\s*[)）]?$`),
	regexp.MustCompile(`^以下余白$`),
	// Document title repeated at the top of each page.
	regexp.MustCompile(`(?i)^(?:納品書|納品伝票|delivery\s*slip)(?:\s*[(（]\s*(?:控え?|写し?|copy)\s*[)）])?$`),
}

func DefaultBoilerplate(line string) bool {
	for _, re := range boilerplatePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

type LineNormalizer struct {
	IsBoilerplate LineFilter
	FoldWidth     bool
}

func NewLineNormalizer(foldWidth bool) LineNormalizer {
	return LineNormalizer{IsBoilerplate: DefaultBoilerplate, FoldWidth: foldWidth}
}

// Normalize trims each line, strips control characters and drops empty and
// boilerplate lines. Order is preserved.
func (n LineNormalizer) Normalize(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = util.StripControl(line)
		if n.FoldWidth {
			line = util.FoldWidth(line)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if n.IsBoilerplate != nil && n.IsBoilerplate(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

// SplitBlock splits a block of text into raw lines. Form feeds separate PDF
// pages and are treated as line breaks.
func SplitBlock(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\f", "\n")
	return strings.Split(text, "\n")
}

func splitLines(text string) []string {
	out := []string{}
	for _, p := range SplitBlock(text) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
