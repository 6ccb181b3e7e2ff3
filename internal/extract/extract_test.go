package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestPlainFallsBackToWindows1251(t *testing.T) {
	assert.Equal(t, "Heart failure", Plain([]byte("Heart failure")))

	encoded, err := charmap.Windows1251.NewEncoder().String("Сердце")
	require.NoError(t, err)
	assert.Equal(t, "Сердце", Plain([]byte(encoded)))
}

func TestHTMLDropsScriptsAndStyles(t *testing.T) {
	page := `<html><head><style>body{color:red}</style><script>var x = 1;</script></head>
<body><h1>  Atrial fibrillation </h1>
<p>Rate control    rhythm control</p><noscript>enable js</noscript></body></html>`
	got, err := HTML(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, "Atrial fibrillation\nRate control\nrhythm control", got)
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDOCXParagraphs(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Heart </w:t></w:r><w:r><w:t>failure</w:t></w:r></w:p>
<w:p><w:r><w:t>  </w:t></w:r></w:p>
<w:p><w:r><w:t>Dose</w:t><w:tab/><w:t>10 mg</w:t></w:r></w:p>
</w:body></w:document>`
	got, err := DOCX(buildDOCX(t, doc))
	require.NoError(t, err)
	assert.Equal(t, "Heart failure\nDose\t10 mg", got)
}

func TestDOCXWithoutBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	require.NoError(t, zw.Close())
	_, err := DOCX(buf.Bytes())
	assert.Error(t, err)
}

func TestPDFInvalid(t *testing.T) {
	_, err := PDF([]byte("not a pdf"))
	assert.Error(t, err)
}

func TestTextPlaceholder(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o644))

	text, ok := Text(bad)
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(text, "[extraction error: "), text)
	assert.True(t, strings.HasSuffix(text, "]"))

	good := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(good, []byte("Title\nbody"), 0o644))
	text, ok = Text(good)
	assert.True(t, ok)
	assert.Equal(t, "Title\nbody", text)
}

func TestFileUnsupported(t *testing.T) {
	_, err := File("scan.tiff")
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.True(t, Supported("A.HTM"))
	assert.False(t, Supported("a.md"))
}
