// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dt "github.com/pdiddy/irca-engine/internal/docx/docxtest"
)

func open(t *testing.T, p dt.Package) *Document {
	t.Helper()
	d, err := OpenBytes(p.Bytes())
	require.NoError(t, err)
	return d
}

var tags = map[string]string{
	"nro":        "11",
	"mes":        "julio",
	"año":        "2025",
	"irca_pto_1": "12.5",
	"periodo":    "1 DE JULIO AL 31 DE JULIO DE 2025",
}

func TestReplaceTagsAcrossSplitRuns(t *testing.T) {
	d := open(t, dt.Package{Body: dt.Para(
		dt.Run("Informe N° {"), dt.BoldRun("n"), dt.Run("ro} del {{ MES }} de <<AÑO>>."),
	)})

	n := d.ReplaceTags(tags)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"Informe N° 11 del julio de 2025."}, d.Paragraphs())

	body, _ := d.Part(partDocument)
	assert.Contains(t, string(body), `<w:pPr><w:jc w:val="center"/></w:pPr>`, "paragraph properties survive")
	assert.Contains(t, string(body), `<w:rPr><w:b/></w:rPr><w:t></w:t>`, "later runs are emptied, not removed")
}

func TestReplaceTagsForms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single braces", "Mes: {mes}", "Mes: julio"},
		{"double braces", "Mes: {{mes}}", "Mes: julio"},
		{"angle brackets", "Mes: <<mes>>", "Mes: julio"},
		{"inner whitespace", "Mes: {  mes }", "Mes: julio"},
		{"upper case", "Mes: {MES}", "Mes: julio"},
		{"several tokens", "{nro}-{mes}-{año}", "11-julio-2025"},
		{"unknown tag kept", "{otro} y {mes}", "{otro} y julio"},
		{"no token", "Sin etiquetas", "Sin etiquetas"},
		{"unbalanced", "{{mes}", "{julio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := open(t, dt.Package{Body: dt.Para(dt.Run(tt.in))})
			d.ReplaceTags(tags)
			assert.Equal(t, []string{tt.want}, d.Paragraphs())
		})
	}
}

func TestReplaceTagsTablesAndHeadersButNotFooters(t *testing.T) {
	d := open(t, dt.Package{
		Body:   dt.Table(dt.Para(dt.Run("IRCA {irca_pto_1}%")), dt.Para(dt.Run("{periodo}"))),
		Header: dt.Para(dt.Run("Informe {nro}")) + dt.Table(dt.Para(dt.Run("<<mes>>"))),
		Footer: dt.Para(dt.Run("Pie {nro}")),
	})

	assert.Equal(t, 4, d.ReplaceTags(tags))
	assert.Equal(t, []string{"IRCA 12.5%", "1 DE JULIO AL 31 DE JULIO DE 2025"}, d.Paragraphs())
	assert.Equal(t, []string{"Informe 11", "julio"}, d.HeaderParagraphs())

	footer, _ := d.Part("word/footer1.xml")
	assert.Contains(t, string(footer), "Pie {nro}")
}

func TestReplaceTagsEscapesValues(t *testing.T) {
	d := open(t, dt.Package{Body: dt.Para(dt.Run("Obs: {mes}"))})
	d.ReplaceTags(map[string]string{"MES": `A & B <c> "d"`})

	assert.Equal(t, []string{`Obs: A & B <c> "d"`}, d.Paragraphs())
	body, _ := d.Part(partDocument)
	assert.Contains(t, string(body), "A &amp; B &lt;c&gt;")
}

func TestReplaceTagsEmptyTags(t *testing.T) {
	d := open(t, dt.Package{Body: dt.Para(dt.Run("{mes}"))})
	assert.Equal(t, 0, d.ReplaceTags(nil))
	assert.Equal(t, 0, d.ReplaceTags(map[string]string{" ": "x"}))
	assert.Equal(t, []string{"{mes}"}, d.Paragraphs())
}

func TestReplacer(t *testing.T) {
	r := NewReplacer(map[string]string{"a.b": "X"})
	got, n := r.Replace("{a.b} {aXb}")
	assert.Equal(t, "X {aXb}", got, "keys are literal, not patterns")
	assert.Equal(t, 1, n)

	var none *Replacer
	got, n = none.Replace("{a}")
	assert.Equal(t, "{a}", got)
	assert.Zero(t, n)
}

func TestSaveRoundTrip(t *testing.T) {
	d := open(t, dt.Package{Body: dt.Para(dt.Run("{nro}"))})
	d.ReplaceTags(tags)

	path := filepath.Join(t.TempDir(), "reporte_Pasto.docx")
	require.NoError(t, d.Save(path))

	again, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"11"}, again.Paragraphs())
	assert.Equal(t, d.Parts(), again.Parts())
}

func TestOpenErrors(t *testing.T) {
	_, err := OpenBytes([]byte("not a zip"))
	assert.Error(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/other.xml")
	w.Write([]byte("<x/>"))
	require.NoError(t, zw.Close())
	_, err = OpenBytes(buf.Bytes())
	assert.Error(t, err)

	_, err = Open(filepath.Join(t.TempDir(), "missing.docx"))
	assert.Error(t, err)
}

func TestPhotoPlaceholder(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"{FOTO1}", 1},
		{" {{foto2}} ", 2},
		{"<<Foto3>>", 3},
		{"Registro {FOTO4}", 4},
		{"{FOTO5}", 0},
		{"{FOTO10}", 0},
		{"FOTO1", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PhotoPlaceholder(tt.in), tt.in)
	}
}

func TestInsertPhotos(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "Muestras-P1.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\nfake"), 0o644))

	d := open(t, dt.Package{Body: dt.Para(dt.Run("{FOTO1}")) + dt.Table(
		dt.Para(dt.Run("{FO"), dt.Run("TO1}")),
		dt.Para(dt.Run("<<foto2>>")),
		dt.Para(dt.Run("{{FOTO3}}")),
		dt.Para(dt.Run("{FOTO1}")),
	)})

	stats, err := d.InsertPhotos(map[string]string{
		"FOTO1": img,
		"foto2": filepath.Join(dir, "missing.jpg"),
	})
	require.NoError(t, err)
	assert.Equal(t, PhotoStats{Tags: 3, Inserted: 2, Missing: 1}, stats)

	paras := d.Paragraphs()
	assert.Equal(t, "{FOTO1}", paras[0], "placeholders outside tables are left alone")
	assert.Equal(t, "", paras[1])
	assert.Equal(t, MissingPhotoText, paras[2])
	assert.Equal(t, "{{FOTO3}}", paras[3], "photos without a configured file are left alone")

	body, _ := d.Part(partDocument)
	doc := string(body)
	assert.Contains(t, doc, `<wp:extent cx="1828800" cy="1371600"/>`)
	assert.Contains(t, doc, `xmlns:wp="`+nsWP+`"`)
	assert.Contains(t, doc, `xmlns:r="`+nsR+`"`)
	assert.Equal(t, 2, strings.Count(doc, `r:embed="rIdIrca1"`), "the same file is embedded once")
	assert.Contains(t, doc, `<w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:drawing>`)

	media, ok := d.Part("word/media/irca_foto1.png")
	require.True(t, ok)
	assert.True(t, bytes.HasPrefix(media, []byte("\x89PNG")))

	rels, _ := d.Part(partDocumentRels)
	assert.Contains(t, string(rels), `Id="rIdIrca1"`)
	assert.Contains(t, string(rels), `Target="media/irca_foto1.png"`)
	assert.Contains(t, string(rels), `Id="rId1"`, "existing relationships are kept")

	ct, _ := d.Part(partContentTypes)
	assert.Contains(t, string(ct), `<Default Extension="png" ContentType="image/png"/>`)
}

func TestInsertPhotosNothingToDo(t *testing.T) {
	d := open(t, dt.Package{Body: dt.Table(dt.Para(dt.Run("sin fotos")))})
	before, _ := d.Part(partDocument)

	stats, err := d.InsertPhotos(map[string]string{"FOTO1": "x.jpg"})
	require.NoError(t, err)
	assert.Zero(t, stats)

	after, _ := d.Part(partDocument)
	assert.Equal(t, before, after)
}

func TestInsertPhotosSurvivesSave(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "p.jpg")
	require.NoError(t, os.WriteFile(img, []byte{0xFF, 0xD8, 0xFF}, 0o644))

	d := open(t, dt.Package{Body: dt.Table(dt.Para(dt.Run("{FOTO2}")))})
	_, err := d.InsertPhotos(map[string]string{"FOTO2": img})
	require.NoError(t, err)

	out := filepath.Join(dir, "out.docx")
	require.NoError(t, d.Save(out))
	again, err := Open(out)
	require.NoError(t, err)
	_, ok := again.Part("word/media/irca_foto1.jpg")
	assert.True(t, ok)
}
