// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Display size of inserted photos in EMU: 2.0 in by 1.5 in.
const (
	emuPerInch  = 914400
	PhotoWidth  = 2 * emuPerInch
	PhotoHeight = emuPerInch * 3 / 2
)

// MissingPhotoText replaces a photo placeholder whose file does not exist.
const MissingPhotoText = "Imagen no encontrada"

// MaxPhotos is the number of FOTOn placeholders recognized.
const MaxPhotos = 4

const (
	nsWP       = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsR        = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsA        = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic      = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	relImage   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	emptyRels  = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`
	relsCloser = "</Relationships>"
)

var imageTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
}

var (
	relIDPattern   = regexp.MustCompile(`\bId="([^"]+)"`)
	docPrIDPattern = regexp.MustCompile(`<wp:docPr\b[^>]*\bid="(\d+)"`)
	pPrPattern     = regexp.MustCompile(`(?s)^\s*(<w:pPr\s*/>|<w:pPr\b.*?</w:pPr>)`)
	rootPattern    = regexp.MustCompile(`<w:document\b[^>]*>`)
)

// PhotoStats counts what InsertPhotos did.
type PhotoStats struct {
	Tags     int `json:"tags"`
	Inserted int `json:"inserted"`
	Missing  int `json:"missing"`
}

// PhotoPlaceholder reports which photo number (1-4) a paragraph's text
// names with {FOTOn}, {{FOTOn}} or <<FOTOn>> in any case, or 0.
func PhotoPlaceholder(text string) int {
	lower := strings.ToLower(text)
	for i := 1; i <= MaxPhotos; i++ {
		n := strconv.Itoa(i)
		if strings.Contains(lower, "{foto"+n+"}") || strings.Contains(lower, "<<foto"+n+">>") {
			return i
		}
	}
	return 0
}

// photoKey returns the value photos holds for FOTOn, matching keys
// case-insensitively.
func photoKey(photos map[string]string, n int) (string, bool) {
	want := "foto" + strconv.Itoa(n)
	for k, v := range photos {
		if strings.ToLower(strings.TrimSpace(k)) == want && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}

// InsertPhotos replaces table-cell paragraphs that carry a photo
// placeholder with an inline picture of PhotoWidth by PhotoHeight. photos
// maps FOTO1..FOTO4 to image paths; placeholders without a configured
// photo are left alone. A configured file that cannot be read, or is not
// a supported image type, is replaced by MissingPhotoText.
func (d *Document) InsertPhotos(photos map[string]string) (PhotoStats, error) {
	var stats PhotoStats
	src, _ := d.Part(partDocument)

	emb := &embedder{doc: d, byPath: make(map[string]string)}
	emb.nextDocPr = 1
	for _, m := range docPrIDPattern.FindAllSubmatch(src, -1) {
		if id, err := strconv.Atoi(string(m[1])); err == nil && id >= emb.nextDocPr {
			emb.nextDocPr = id + 1
		}
	}

	var edits []edit
	for _, p := range scan(src) {
		if !p.inCell || p.nested || len(p.nodes) == 0 {
			continue
		}
		n := PhotoPlaceholder(p.Text())
		if n == 0 {
			continue
		}
		path, ok := photoKey(photos, n)
		if !ok {
			continue
		}
		stats.Tags++

		run, err := emb.pictureRun(path, n)
		if err != nil {
			run = `<w:r><w:t xml:space="preserve">` + MissingPhotoText + `</w:t></w:r>`
			stats.Missing++
		} else {
			stats.Inserted++
		}

		content := string(src[p.contentStart:p.contentEnd])
		pPr := ""
		if m := pPrPattern.FindStringSubmatch(content); m != nil {
			pPr = m[1]
		}
		edits = append(edits, edit{start: p.start, end: p.end, text: p.openTag + pPr + run + "</w:p>"})
	}

	if len(edits) == 0 {
		return stats, nil
	}
	out := applyEdits(src, edits)
	if stats.Inserted > 0 {
		out = declareNamespaces(out)
		if err := emb.flush(); err != nil {
			return stats, err
		}
	}
	d.SetPart(partDocument, out)
	return stats, nil
}

// embedder adds media parts and relationships for inserted pictures.
type embedder struct {
	doc       *Document
	byPath    map[string]string // image path -> relationship id
	rels      []string
	exts      map[string]bool
	nextDocPr int
	media     int
}

func (e *embedder) pictureRun(path string, n int) (string, error) {
	relID, err := e.embed(path)
	if err != nil {
		return "", err
	}
	id := e.nextDocPr
	e.nextDocPr++
	name := fmt.Sprintf("FOTO%d", n)
	return fmt.Sprintf(`<w:r><w:drawing>`+
		`<wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%[1]d" cy="%[2]d"/>`+
		`<wp:effectExtent l="0" t="0" r="0" b="0"/>`+
		`<wp:docPr id="%[3]d" name="%[4]s"/>`+
		`<wp:cNvGraphicFramePr><a:graphicFrameLocks xmlns:a="%[5]s" noChangeAspect="1"/></wp:cNvGraphicFramePr>`+
		`<a:graphic xmlns:a="%[5]s"><a:graphicData uri="%[6]s">`+
		`<pic:pic xmlns:pic="%[6]s">`+
		`<pic:nvPicPr><pic:cNvPr id="%[3]d" name="%[4]s"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%[7]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[1]d" cy="%[2]d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`,
		PhotoWidth, PhotoHeight, id, name, nsA, nsPic, relID), nil
}

// embed stores the image at path as a media part once and returns its
// relationship id.
func (e *embedder) embed(path string) (string, error) {
	if id, ok := e.byPath[path]; ok {
		return id, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if _, ok := imageTypes[ext]; !ok {
		return "", fmt.Errorf("unsupported image type %q for %s", ext, path)
	}

	e.media++
	target := fmt.Sprintf("media/irca_foto%d.%s", e.media, ext)
	for e.doc.hasPart("word/" + target) {
		e.media++
		target = fmt.Sprintf("media/irca_foto%d.%s", e.media, ext)
	}
	e.doc.SetPart("word/"+target, data)

	id := e.uniqueRelID()
	e.rels = append(e.rels, fmt.Sprintf(`<Relationship Id="%s" Type="%s" Target="%s"/>`, id, relImage, target))
	if e.exts == nil {
		e.exts = make(map[string]bool)
	}
	e.exts[ext] = true
	e.byPath[path] = id
	return id, nil
}

func (e *embedder) uniqueRelID() string {
	rels, ok := e.doc.Part(partDocumentRels)
	if !ok {
		rels = []byte(emptyRels)
	}
	used := make(map[string]bool)
	for _, m := range relIDPattern.FindAllSubmatch(rels, -1) {
		used[string(m[1])] = true
	}
	for _, r := range e.rels {
		if m := relIDPattern.FindStringSubmatch(r); m != nil {
			used[m[1]] = true
		}
	}
	for i := 1; ; i++ {
		id := fmt.Sprintf("rIdIrca%d", i)
		if !used[id] {
			return id
		}
	}
}

// flush writes the pending relationships and content type defaults.
func (e *embedder) flush() error {
	if len(e.rels) > 0 {
		rels, ok := e.doc.Part(partDocumentRels)
		if !ok {
			rels = []byte(emptyRels)
		}
		s := string(rels)
		i := strings.LastIndex(s, relsCloser)
		if i < 0 {
			return fmt.Errorf("malformed %s", partDocumentRels)
		}
		s = s[:i] + strings.Join(e.rels, "") + s[i:]
		e.doc.SetPart(partDocumentRels, []byte(s))
	}

	ct, ok := e.doc.Part(partContentTypes)
	if !ok {
		return fmt.Errorf("package has no %s", partContentTypes)
	}
	s := string(ct)
	for ext := range e.exts {
		if regexp.MustCompile(`(?i)<Default\b[^>]*\bExtension="` + regexp.QuoteMeta(ext) + `"`).MatchString(s) {
			continue
		}
		i := strings.LastIndex(s, "</Types>")
		if i < 0 {
			return fmt.Errorf("malformed %s", partContentTypes)
		}
		s = s[:i] + fmt.Sprintf(`<Default Extension="%s" ContentType="%s"/>`, ext, imageTypes[ext]) + s[i:]
	}
	e.doc.SetPart(partContentTypes, []byte(s))
	return nil
}

func (d *Document) hasPart(name string) bool {
	_, ok := d.index[name]
	return ok
}

// declareNamespaces adds the wp and r prefixes to the document root when
// the template does not declare them.
func declareNamespaces(src []byte) []byte {
	loc := rootPattern.FindIndex(src)
	if loc == nil {
		return src
	}
	root := string(src[loc[0]:loc[1]])
	add := ""
	if !strings.Contains(root, "xmlns:wp=") {
		add += ` xmlns:wp="` + nsWP + `"`
	}
	if !strings.Contains(root, "xmlns:r=") {
		add += ` xmlns:r="` + nsR + `"`
	}
	if add == "" {
		return src
	}
	newRoot := strings.TrimSuffix(root, ">") + add + ">"
	out := make([]byte, 0, len(src)+len(add))
	out = append(out, src[:loc[0]]...)
	out = append(out, newRoot...)
	out = append(out, src[loc[1]:]...)
	return out
}
