package pdf_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF assembles a minimal PDF with one page per entry in pages,
// each showing its text in Helvetica. An empty title omits the Info
// dictionary.
func buildPDF(t *testing.T, title string, pages ...string) []byte {
	t.Helper()

	var objects []string
	add := func(obj string) int {
		objects = append(objects, obj)
		return len(objects)
	}

	catalog := add("") // filled in once the page tree exists
	tree := add("")
	font := add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var kids []string
	for _, text := range pages {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		content := add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
		page := add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", tree, font, content))
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
	}
	objects[catalog-1] = fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", tree)
	objects[tree-1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids))

	info := 0
	if title != "" {
		info = add(fmt.Sprintf("<< /Title (%s) >>", title))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	trailer := fmt.Sprintf("<< /Size %d /Root %d 0 R", len(objects)+1, catalog)
	if info != 0 {
		trailer += fmt.Sprintf(" /Info %d 0 R", info)
	}
	fmt.Fprintf(&buf, "trailer\n%s >>\nstartxref\n%d\n%%%%EOF\n", trailer, xref)
	return buf.Bytes()
}

func TestParser_Parse(t *testing.T) {
	t.Parallel()

	t.Run("emits one block per page", func(t *testing.T) {
		t.Parallel()

		body := buildPDF(t, "Course Catalog", "Biology requires 120 credits", "Chemistry requires 124 credits")

		rec, err := pdf.NewParser().Parse(context.Background(), siteqa.ParseInput{
			URL:    "https://example.com/catalog.pdf",
			Format: siteqa.FormatPDF,
			Body:   body,
		})
		require.NoError(t, err)

		assert.Equal(t, siteqa.VariantDocument, rec.Variant)
		assert.Equal(t, "Course Catalog", rec.Title)
		require.Len(t, rec.Blocks, 2)
		assert.Equal(t, siteqa.BlockPage, rec.Blocks[0].Type)
		assert.Contains(t, rec.Blocks[0].Text, "Biology requires 120 credits")
		assert.Equal(t, 1, rec.Blocks[0].Metadata.PageNumber)
		assert.Contains(t, rec.Blocks[1].Text, "Chemistry")
		assert.Equal(t, 2, rec.Blocks[1].Metadata.PageNumber)
	})

	t.Run("falls back to the first line for the title", func(t *testing.T) {
		t.Parallel()

		body := buildPDF(t, "", "Tuition and Fees")

		rec, err := pdf.NewParser().Parse(context.Background(), siteqa.ParseInput{
			URL:  "https://example.com/fees.pdf",
			Body: body,
		})
		require.NoError(t, err)
		assert.Contains(t, rec.Title, "Tuition and Fees")
	})

	t.Run("returns EPARSE for malformed input", func(t *testing.T) {
		t.Parallel()

		_, err := pdf.NewParser().Parse(context.Background(), siteqa.ParseInput{
			URL:  "https://example.com/broken.pdf",
			Body: []byte("this is not a pdf"),
		})
		require.Error(t, err)
		assert.Equal(t, siteqa.EPARSE, siteqa.ErrorCode(err))
	})

	t.Run("returns EPARSE for an empty body", func(t *testing.T) {
		t.Parallel()

		_, err := pdf.NewParser().Parse(context.Background(), siteqa.ParseInput{URL: "https://example.com/empty.pdf"})
		require.Error(t, err)
		assert.Equal(t, siteqa.EPARSE, siteqa.ErrorCode(err))
	})
}
