// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docx fills Word templates: it replaces {tag}, {{tag}} and
// <<tag>> placeholders in the body, tables and headers of a .docx package
// and inserts photographs where table cells carry {FOTOn} placeholders.
//
// The package edits WordprocessingML in place. Only the text of w:t
// elements and whole photo paragraphs are rewritten; every other byte of
// each part is kept, so styles, numbering and section properties survive.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"time"
)

// Well-known part names.
const (
	partDocument     = "word/document.xml"
	partDocumentRels = "word/_rels/document.xml.rels"
	partContentTypes = "[Content_Types].xml"
)

var headerPart = regexp.MustCompile(`^word/header[0-9]*\.xml$`)

type part struct {
	name     string
	data     []byte
	modified time.Time
}

// Document is an opened .docx package.
type Document struct {
	parts []*part
	index map[string]int
}

// Open reads the .docx at path.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	d, err := OpenBytes(data)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return d, nil
}

// OpenBytes reads a .docx package from memory.
func OpenBytes(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("not a docx package: %w", err)
	}
	d := &Document{index: make(map[string]int)}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening part %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading part %s: %w", f.Name, err)
		}
		d.index[f.Name] = len(d.parts)
		d.parts = append(d.parts, &part{name: f.Name, data: b, modified: f.Modified})
	}
	if _, ok := d.index[partDocument]; !ok {
		return nil, fmt.Errorf("package has no %s", partDocument)
	}
	return d, nil
}

// Part returns the bytes of the named part.
func (d *Document) Part(name string) ([]byte, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.parts[i].data, true
}

// SetPart replaces or adds a part.
func (d *Document) SetPart(name string, data []byte) {
	if i, ok := d.index[name]; ok {
		d.parts[i].data = data
		return
	}
	d.index[name] = len(d.parts)
	d.parts = append(d.parts, &part{name: name, data: data, modified: time.Now()})
}

// Parts returns the part names in package order.
func (d *Document) Parts() []string {
	out := make([]string, len(d.parts))
	for i, p := range d.parts {
		out[i] = p.name
	}
	return out
}

// headers returns the header part names, sorted.
func (d *Document) headers() []string {
	var out []string
	for _, p := range d.parts {
		if headerPart.MatchString(p.name) {
			out = append(out, p.name)
		}
	}
	sort.Strings(out)
	return out
}

// Bytes serializes the package.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range d.parts {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: p.modified,
		})
		if err != nil {
			return nil, fmt.Errorf("writing part %s: %w", p.name, err)
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, fmt.Errorf("writing part %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing package: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the package to path.
func (d *Document) Save(path string) error {
	b, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}
