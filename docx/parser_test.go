package docx_test

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"
            xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<w:body>
  <w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Student Handbook</w:t></w:r></w:p>
  <w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Housing</w:t></w:r></w:p>
  <w:p><w:r><w:t xml:space="preserve">Apply through the </w:t></w:r><w:hyperlink r:id="rId5"><w:r><w:t>housing portal</w:t></w:r></w:hyperlink><w:r><w:t>.</w:t></w:r></w:p>
  <w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>Bring bedding</w:t></w:r></w:p>
  <w:p><w:r><w:t>   </w:t></w:r></w:p>
  <w:tbl>
    <w:tr><w:tc><w:p><w:r><w:t>Hall</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Rate</w:t></w:r></w:p></w:tc></w:tr>
    <w:tr><w:tc><w:p><w:r><w:t>North</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>$4,000</w:t></w:r></w:p></w:tc></w:tr>
  </w:tbl>
  <w:sectPr/>
</w:body>
</w:document>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId5" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.com/housing" TargetMode="External"/>
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

const coreXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
                   xmlns:dc="http://purl.org/dc/elements/1.1/">
  <dc:title>Core Title</dc:title>
</cp:coreProperties>`

func buildDOCX(t *testing.T, parts map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func parse(t *testing.T, body []byte) (*siteqa.StructuredRecord, error) {
	t.Helper()
	return docx.NewParser().Parse(context.Background(), siteqa.ParseInput{
		URL:    "https://example.com/files/student_handbook.docx",
		Format: siteqa.FormatDOCX,
		Body:   body,
	})
}

func TestParser_Parse(t *testing.T) {
	t.Parallel()

	t.Run("extracts typed blocks", func(t *testing.T) {
		t.Parallel()

		rec, err := parse(t, buildDOCX(t, map[string]string{
			"word/document.xml":            documentXML,
			"word/_rels/document.xml.rels": relsXML,
		}))
		require.NoError(t, err)

		assert.Equal(t, siteqa.VariantDocument, rec.Variant)
		assert.Equal(t, "Student Handbook", rec.Title)
		require.Len(t, rec.Blocks, 5)

		assert.Equal(t, siteqa.BlockTitle, rec.Blocks[0].Type)

		assert.Equal(t, siteqa.BlockHeading, rec.Blocks[1].Type)
		assert.Equal(t, 2, rec.Blocks[1].Metadata.Level)

		assert.Equal(t, siteqa.BlockParagraph, rec.Blocks[2].Type)
		assert.Equal(t, "Apply through the housing portal.", rec.Blocks[2].Text)
		assert.Equal(t, []string{"https://example.com/housing"}, rec.Blocks[2].Metadata.LinkURLs)
		assert.Equal(t, []string{"housing portal"}, rec.Blocks[2].Metadata.LinkTexts)

		assert.Equal(t, siteqa.BlockListItem, rec.Blocks[3].Type)
		assert.Equal(t, "Bring bedding", rec.Blocks[3].Text)

		assert.Equal(t, siteqa.BlockTable, rec.Blocks[4].Type)
		assert.Equal(t, "Hall | Rate\nNorth | $4,000", rec.Blocks[4].Text)
	})

	t.Run("takes the title from core properties", func(t *testing.T) {
		t.Parallel()

		doc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>Text</w:t></w:r></w:p></w:body></w:document>`
		rec, err := parse(t, buildDOCX(t, map[string]string{
			"word/document.xml": doc,
			"docProps/core.xml": coreXML,
		}))
		require.NoError(t, err)
		assert.Equal(t, "Core Title", rec.Title)
	})

	t.Run("falls back to the file name for the title", func(t *testing.T) {
		t.Parallel()

		doc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>Text</w:t></w:r></w:p></w:body></w:document>`
		rec, err := parse(t, buildDOCX(t, map[string]string{"word/document.xml": doc}))
		require.NoError(t, err)
		assert.Equal(t, "student handbook", rec.Title)
	})

	t.Run("returns EPARSE for non-zip input", func(t *testing.T) {
		t.Parallel()

		_, err := parse(t, []byte("plain text"))
		require.Error(t, err)
		assert.Equal(t, siteqa.EPARSE, siteqa.ErrorCode(err))
	})

	t.Run("returns EPARSE without a document part", func(t *testing.T) {
		t.Parallel()

		_, err := parse(t, buildDOCX(t, map[string]string{"other.xml": "<a/>"}))
		require.Error(t, err)
		assert.Equal(t, siteqa.EPARSE, siteqa.ErrorCode(err))
	})
}
