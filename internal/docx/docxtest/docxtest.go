// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docxtest builds small .docx packages for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"os"
	"strings"
	"testing"
)

const nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// Run returns a plain w:r with text.
func Run(text string) string {
	return `<w:r><w:t xml:space="preserve">` + text + `</w:t></w:r>`
}

// BoldRun returns a bold w:r with text.
func BoldRun(text string) string {
	return `<w:r><w:rPr><w:b/></w:rPr><w:t>` + text + `</w:t></w:r>`
}

// Para returns a w:p holding runs.
func Para(runs ...string) string {
	return `<w:p><w:pPr><w:jc w:val="center"/></w:pPr>` + strings.Join(runs, "") + `</w:p>`
}

// Table returns a one-row w:tbl with one cell per entry of cells; each
// entry is the cell's inner XML.
func Table(cells ...string) string {
	var b strings.Builder
	b.WriteString(`<w:tbl><w:tblPr/><w:tr>`)
	for _, c := range cells {
		b.WriteString(`<w:tc><w:tcPr/>` + c + `</w:tc>`)
	}
	b.WriteString(`</w:tr></w:tbl>`)
	return b.String()
}

// Package holds the parts of a test document.
type Package struct {
	Body   string
	Header string
	Footer string
}

// Bytes renders the package.
func (p Package) Bytes() []byte {
	parts := []struct{ name, data string }{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
			`<Default Extension="xml" ContentType="application/xml"/>` +
			`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
			`<Override PartName="/word/header1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"/>` +
			`<Override PartName="/word/footer1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"/>` +
			`</Types>`},
		{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
			`</Relationships>`},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="` + nsW + `"><w:body>` + p.Body + `<w:sectPr/></w:body></w:document>`},
		{"word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/header" Target="header1.xml"/>` +
			`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer" Target="footer1.xml"/>` +
			`</Relationships>`},
		{"word/header1.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:hdr xmlns:w="` + nsW + `">` + p.Header + `</w:hdr>`},
		{"word/footer1.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:ftr xmlns:w="` + nsW + `">` + p.Footer + `</w:ftr>`},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(part.data)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Write saves the package to path.
func (p Package) Write(t testing.TB, path string) {
	t.Helper()
	if err := os.WriteFile(path, p.Bytes(), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
