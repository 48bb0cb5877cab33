package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docindex/config"
	"docindex/internal/domain"
)

// buildZip creates an archive in memory from name/content pairs.
func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

const docxBody = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Hello </w:t></w:r><w:r><w:t>world &amp; friends</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
</w:body>
</w:document>`

func TestOfficeExtractDocx(t *testing.T) {
	data := buildZip(t, map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/document.xml":   docxBody,
		"word/footer1.xml":    `<w:ftr xmlns:w="w"><w:p><w:r><w:t>Page footer</w:t></w:r></w:p></w:ftr>`,
		"word/styles.xml":     `<w:styles xmlns:w="w"><w:p><w:r><w:t>ignored</w:t></w:r></w:p></w:styles>`,
	})

	got, err := NewOfficeExtractor(0).Extract(context.Background(), data, "report.docx", "")
	require.NoError(t, err)
	assert.Equal(t, "Hello world & friends\nSecond paragraph\n\nPage footer", got.Text)
	assert.Equal(t, 3, got.Metadata.ParagraphCount)
	assert.False(t, got.Placeholder)
}

func TestOfficeExtractXlsx(t *testing.T) {
	data := buildZip(t, map[string]string{
		"xl/sharedStrings.xml": `<sst><si><t>Name</t></si><si><t>Qty</t></si><si><r><t>Wid</t></r><r><t>get</t></r></si></sst>`,
		"xl/worksheets/sheet1.xml": `<worksheet><sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
<row r="2"><c r="A2" t="s"><v>2</v></c><c r="B2"><v>42</v></c></row>
<row r="3"><c r="A3"/></row>
</sheetData></worksheet>`,
		"xl/worksheets/sheet2.xml": `<worksheet><sheetData></sheetData></worksheet>`,
		"xl/worksheets/sheet10.xml": `<worksheet><sheetData>
<row r="1"><c r="A1" t="inlineStr"><is><t>inline note</t></is></c></row>
</sheetData></worksheet>`,
	})

	got, err := NewOfficeExtractor(0).Extract(context.Background(), data, "stock.xlsx", "")
	require.NoError(t, err)
	assert.Equal(t, "Sheet 1\nName Qty\nWidget 42\n\nSheet 3\ninline note", got.Text)
	assert.Equal(t, []string{"Sheet 1", "Sheet 3"}, got.Metadata.SheetNames)
	assert.Equal(t, 3, got.Metadata.RowCount)
}

func TestOfficeExtractPptx(t *testing.T) {
	data := buildZip(t, map[string]string{
		"ppt/slides/slide2.xml": `<p:sld xmlns:p="p" xmlns:a="a"><a:p><a:r><a:t>Second</a:t></a:r></a:p></p:sld>`,
		"ppt/slides/slide1.xml": `<p:sld xmlns:p="p" xmlns:a="a"><a:p><a:r><a:t>Title</a:t></a:r></a:p><a:p><a:r><a:t>Bullet</a:t></a:r></a:p></p:sld>`,
		"ppt/slides/_rels/slide1.xml.rels": `<Relationships/>`,
	})

	got, err := NewOfficeExtractor(0).Extract(context.Background(), data, "deck.pptx", "")
	require.NoError(t, err)
	assert.Equal(t, "Slide 1\nTitle Bullet\n\nSlide 2\nSecond", got.Text)
	assert.Equal(t, 2, got.Metadata.SlideCount)
}

func TestOfficeExtractLegacyFallback(t *testing.T) {
	e := NewOfficeExtractor(0)
	for _, name := range []string{"old.doc", "old.xls", "old.ppt"} {
		got, err := e.Extract(context.Background(), []byte{0xd0, 0xcf}, name, "")
		require.NoError(t, err, name)
		assert.True(t, got.Placeholder, name)
		assert.Contains(t, got.Text, name)
	}
}

func TestOfficeExtractCorruptArchive(t *testing.T) {
	_, err := NewOfficeExtractor(0).Extract(context.Background(), []byte("not a zip"), "broken.docx", "application/octet-stream")
	var xe *domain.ExtractionError
	require.True(t, errors.As(err, &xe))
	assert.Equal(t, "broken.docx", xe.FileName)
}

func TestOfficeExtractEmptyDocument(t *testing.T) {
	data := buildZip(t, map[string]string{"word/document.xml": `<w:document xmlns:w="w"><w:body/></w:document>`})

	got, err := NewOfficeExtractor(0).Extract(context.Background(), data, "blank.docx", "")
	require.NoError(t, err)
	assert.True(t, got.Placeholder)
	assert.Contains(t, got.Text, "blank.docx")
}

func TestNormalize(t *testing.T) {
	in := "  first\tline  \r\nsecond\x00line\n\n\n\n\fthird  "
	assert.Equal(t, "first line\nsecondline\n\nthird", Normalize(in))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "short", Truncate("short", 0))

	got := Truncate("日本語のテキスト", 3)
	assert.True(t, strings.HasPrefix(got, "日本語\n\n[Note: only the first 3 characters are shown]"))
}

func TestFinalize(t *testing.T) {
	out, placeholder := Finalize(" \n ", "scan.pdf", 100)
	assert.True(t, placeholder)
	assert.Contains(t, out, "scan.pdf")

	out, placeholder = Finalize("a\r\nb", "x.docx", 100)
	assert.False(t, placeholder)
	assert.Equal(t, "a\nb", out)
}

func TestCompositeRouting(t *testing.T) {
	c := FromConfig(config.ExtractConfig{PDF: true, Office: true})
	assert.True(t, c.Supports("a.PDF", ""))
	assert.True(t, c.Supports("book.epub", ""))
	assert.True(t, c.Supports("a.docx", ""))
	assert.True(t, c.Supports("scan", "application/pdf"))
	assert.False(t, c.Supports("a.png", "image/png"))

	_, err := c.Extract(context.Background(), nil, "a.png", "image/png")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	officeOnly := FromConfig(config.ExtractConfig{Office: true})
	assert.False(t, officeOnly.Supports("a.pdf", ""))

	got, err := officeOnly.Extract(context.Background(), nil, "legacy.doc", "")
	require.NoError(t, err)
	assert.True(t, got.Placeholder)
}
