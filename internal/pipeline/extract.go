package pipeline

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"slipscan/internal/util"
)

// Mail chatter around a forwarded slip. Only applied to email body text.
var ignorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^--\s*$`),
	regexp.MustCompile(`^(?:いつも)?お世話になって(?:おり|い)ます`),
	regexp.MustCompile(`^よろしくお願い`),
	regexp.MustCompile(`^以上(?:です|、|。)?$`),
	regexp.MustCompile(`(?i)^(?:thanks|thank you|best regards|regards)\b`),
	regexp.MustCompile(`(?i)^e-?mail[:\s]`),
	regexp.MustCompile(`(?i)^https?://`),
	regexp.MustCompile(`^>`),
}

type EmailDocument struct {
	Subject         string
	Text            string
	Lines           []string
	AttachmentNames []string
}

// ExtractDocument reads a raw MIME message and collects its slip lines: body
// lines (HTML table rows when the body has tables, plain text otherwise),
// then xlsx rows and PDF page lines of each attachment in order.
func ExtractDocument(raw []byte) (EmailDocument, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return EmailDocument{}, err
	}

	doc := EmailDocument{Subject: env.GetHeader("Subject"), Text: env.Text}
	tableLines := []string{}
	if env.HTML != "" {
		tableLines = htmlTableLines(env.HTML)
	}
	if len(tableLines) > 0 {
		doc.Lines = append(doc.Lines, tableLines...)
	} else if env.Text != "" {
		doc.Lines = append(doc.Lines, emailTextLines(env.Text)...)
	}

	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		doc.AttachmentNames = append(doc.AttachmentNames, filename)
		lower := strings.ToLower(filename)

		switch {
		case strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls"):
			if extra, err := xlsxLines(att.Content); err == nil {
				doc.Lines = append(doc.Lines, extra...)
			}
		case strings.HasSuffix(lower, ".pdf"):
			if extra, err := pdfLines(att.Content); err == nil {
				doc.Lines = append(doc.Lines, extra...)
			}
		case strings.HasSuffix(lower, ".txt"):
			doc.Lines = append(doc.Lines, splitLines(string(att.Content))...)
		}
	}

	return doc, nil
}

func emailTextLines(text string) []string {
	lines := splitLines(text)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if isLikelyNoise(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

// htmlTableLines renders every table row as one line, cells joined by a space.
func htmlTableLines(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	out := []string{}
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				if text := util.NormalizeSpaces(cell.Text()); text != "" {
					cells = append(cells, text)
				}
			})
			if len(cells) > 0 {
				out = append(out, strings.Join(cells, " "))
			}
		})
	})
	return out
}

// htmlTextLines is the fallback for HTML without tables.
func htmlTextLines(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p,div,li,h1,h2,h3,h4").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return splitLines(doc.Text())
}

func xlsxLines(content []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := []string{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, c := range row {
				if c = util.NormalizeSpaces(c); c != "" {
					cells = append(cells, c)
				}
			}
			if len(cells) > 0 {
				out = append(out, strings.Join(cells, " "))
			}
		}
	}
	return out, nil
}

// pdfLines reads the text layer page by page. Scanned PDFs without a text
// layer produce nothing here; their lines come from the OCR service.
func pdfLines(content []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	out := []string{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		out = append(out, splitLines(text)...)
	}
	return out, nil
}

func isLikelyNoise(line string) bool {
	for _, re := range ignorePatterns {
		if re.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}
