package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"slipscan/internal"
)

func mkXLSX(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	buf := bytes.NewBuffer(nil)
	_, err := f.WriteTo(buf)
	require.NoError(t, err)
	return buf.Bytes()
}

// mkEmail builds a multipart message: a plain-text body and, when given, a
// text attachment.
func mkEmail(subject, body, attachmentName, attachment string) []byte {
	var b strings.Builder
	b.WriteString("From: vendor@example.com\r\n")
	b.WriteString("To: kitchen@example.com\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Message-ID: <slip-1@example.com>\r\n")
	b.WriteString("Date: Mon, 05 Oct 2026 09:00:00 +0900\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=\"b1\"\r\n\r\n")
	b.WriteString("--b1\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(body + "\r\n")
	if attachmentName != "" {
		b.WriteString("--b1\r\n")
		b.WriteString("Content-Type: text/plain; charset=UTF-8; name=\"" + attachmentName + "\"\r\n")
		b.WriteString("Content-Disposition: attachment; filename=\"" + attachmentName + "\"\r\n")
		b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
		b.WriteString(attachment + "\r\n")
	}
	b.WriteString("--b1--\r\n")
	return []byte(b.String())
}

func TestHTMLTableLines(t *testing.T) {
	html := `<p>納品書</p><table>
<tr><th>伝票No.</th><td>10001</td></tr>
<tr><td>トマト</td><td>10</td><td>kg</td></tr>
<tr><td> </td></tr>
</table>`

	assert.Equal(t, []string{"伝票No. 10001", "トマト 10 kg"}, htmlTableLines(html))
}

func TestExtractLinesHTMLWithoutTable(t *testing.T) {
	lines, err := ExtractLines(internal.SourceHTML, []byte(`<div>伝票No. 10001</div><p>トマト 10 kg<br>牛乳 2 l</p>`))
	require.NoError(t, err)
	assert.Equal(t, []string{"伝票No. 10001", "トマト 10 kg", "牛乳 2 l"}, lines)
}

func TestExtractLinesXLSX(t *testing.T) {
	blob := mkXLSX(t, [][]any{
		{"取引先名", "株式会社サンプルフード"},
		{"伝票No.", 10001},
		{"トマト", 10, "kg"},
		{},
		{"牛乳", 2, "l"},
	})

	lines, err := ExtractLines(internal.SourceXLSX, blob)
	require.NoError(t, err)
	assert.Equal(t, []string{"取引先名 株式会社サンプルフード", "伝票No. 10001", "トマト 10 kg", "牛乳 2 l"}, lines)
}

func TestExtractLinesText(t *testing.T) {
	lines, err := ExtractLines(internal.SourceText, []byte("a\r\nb"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, lines)

	_, err = ExtractLines(internal.DocumentSource("docx"), nil)
	assert.Error(t, err)
}

func TestExtractDocument(t *testing.T) {
	raw := mkEmail("Delivery slip 10001",
		"お世話になっております。\r\n伝票No. 10001\r\n取引先名： 株式会社サンプルフード\r\nトマト 10 kg\r\nよろしくお願いいたします。",
		"page2.txt", "伝票No. 10001\r\n玉ねぎ 5 個")

	doc, err := ExtractDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, "Delivery slip 10001", doc.Subject)
	assert.Equal(t, []string{"page2.txt"}, doc.AttachmentNames)
	assert.Equal(t, []string{
		"伝票No. 10001",
		"取引先名： 株式会社サンプルフード",
		"トマト 10 kg",
		"伝票No. 10001",
		"玉ねぎ 5 個",
	}, doc.Lines)
}

func TestSourceFromPath(t *testing.T) {
	assert.Equal(t, internal.SourceXLSX, SourceFromPath("in/slip.XLSX"))
	assert.Equal(t, internal.SourcePDF, SourceFromPath("slip.pdf"))
	assert.Equal(t, internal.SourceEmail, SourceFromPath("slip.eml"))
	assert.Equal(t, internal.SourceHTML, SourceFromPath("slip.htm"))
	assert.Equal(t, internal.SourceText, SourceFromPath("slip.txt"))
}
