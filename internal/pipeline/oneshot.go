package pipeline

import (
	"fmt"
	"strings"

	"slipscan/internal"
)

// ExtractLines turns one input document into raw lines for the slip parser.
func ExtractLines(source internal.DocumentSource, content []byte) ([]string, error) {
	switch source {
	case internal.SourceText:
		return SplitBlock(string(content)), nil
	case internal.SourceHTML:
		if lines := htmlTableLines(string(content)); len(lines) > 0 {
			return lines, nil
		}
		return htmlTextLines(string(content)), nil
	case internal.SourceXLSX:
		return xlsxLines(content)
	case internal.SourcePDF:
		return pdfLines(content)
	case internal.SourceEmail:
		doc, err := ExtractDocument(content)
		if err != nil {
			return nil, err
		}
		return doc.Lines, nil
	default:
		return nil, fmt.Errorf("unsupported input type: %s", source)
	}
}

// SourceFromPath guesses the input type from a file extension.
func SourceFromPath(path string) internal.DocumentSource {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xls"):
		return internal.SourceXLSX
	case strings.HasSuffix(lower, ".pdf"):
		return internal.SourcePDF
	case strings.HasSuffix(lower, ".eml"):
		return internal.SourceEmail
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"):
		return internal.SourceHTML
	default:
		return internal.SourceText
	}
}
