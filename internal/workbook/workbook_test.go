// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workbook

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWorkbook saves a workbook whose sheets hold the given rows. The
// first entry of order names the first sheet.
func writeWorkbook(t *testing.T, order []string, sheets map[string][][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "base_Pasto.xlsx")
	w, err := Create(path, order[0])
	require.NoError(t, err)
	defer w.Close()
	for _, name := range order {
		require.NoError(t, w.WriteRows(name, sheets[name]))
	}
	require.NoError(t, w.Save())
	return path
}

var sourceRows = [][]string{
	{" Parámetro ", "Técnica", "Unidad", "Límite", "Punto de Muestreo", "Resultado_Crudo", "Método"},
	{"pH", "Electrométrico", "U pH", "6,5-9,0", "P1", "7.1", "SM"},
	{"pH", "Electrométrico", "U pH", "6,5-9,0", "P2", "7.4", "SM"},
	{"Cloro", "DPD", "mg/L", "0,3-2,0", "P2", "0.8", "SM"},
	{"Alcalinidad", "Titulación", "mg/L", "200", "P1", "", "SM"},
	{"Alcalinidad", "Titulación", "mg/L", "200", "P1", "45", "SM"},
	{"pH", "Electrométrico", "U pH", "6,5-9,0", "P1", "9.9", "SM"},
	{"Cloro", "DPD", "mg/L", "0,3-2,0", "P3", "1.1", "SM"},
}

func TestReadMeasurements(t *testing.T) {
	path := writeWorkbook(t, []string{SheetSource}, map[string][][]string{SheetSource: sourceRows})

	ms, err := ReadMeasurements(path, SheetSource)
	require.NoError(t, err)
	require.Len(t, ms, 7)
	assert.Equal(t, Measurement{
		Parameter: "pH", Technique: "Electrométrico", Unit: "U pH",
		Limit: "6,5-9,0", Point: "P1", Result: "7.1",
	}, ms[0])
}

func TestReadMeasurementsMissingColumns(t *testing.T) {
	path := writeWorkbook(t, []string{SheetSource}, map[string][][]string{
		SheetSource: {{"PARÁMETRO", "UNIDAD"}, {"pH", "U"}},
	})
	_, err := ReadMeasurements(path, SheetSource)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TÉCNICA")
	assert.Contains(t, err.Error(), "RESULTADO_CRUDO")
}

func TestReadMeasurementsUnaccentedHeaders(t *testing.T) {
	ms, err := ParseMeasurements([][]string{
		{"PARAMETRO", "TECNICA", "UNIDAD", "LIMITE", "PUNTO", "RESULTADO_CRUDO"},
		{"Turbiedad", "Nefelométrico", "UNT", "2", "P1", "0.5"},
	})
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, "Turbiedad", ms[0].Parameter)
}

func TestPivotKeepsFirstSeenOrder(t *testing.T) {
	ms, err := ParseMeasurements(sourceRows)
	require.NoError(t, err)

	table := Pivot(ms)
	assert.Equal(t, []string{ColParameter, ColTechnique, ColUnit, ColLimit, "P1", "P2", "P3"}, table.Header)
	assert.Equal(t, []string{"P1", "P2", "P3"}, table.Points())
	require.Len(t, table.Rows, 3)

	assert.Equal(t, []string{"pH", "Electrométrico", "U pH", "6,5-9,0", "7.1", "7.4", MissingValue}, table.Rows[0],
		"the first pH result for P1 wins over the later 9.9")
	assert.Equal(t, []string{"Cloro", "DPD", "mg/L", "0,3-2,0", MissingValue, "0.8", "1.1"}, table.Rows[1])
	assert.Equal(t, []string{"Alcalinidad", "Titulación", "mg/L", "200", "45", MissingValue, MissingValue}, table.Rows[2],
		"empty results do not claim the cell")
}

func TestPivotGroupsVariantsUnderTheirParameter(t *testing.T) {
	table := Pivot([]Measurement{
		{Parameter: "A", Technique: "t1", Unit: "u", Limit: "1", Point: "P1", Result: "1"},
		{Parameter: "B", Technique: "t1", Unit: "u", Limit: "1", Point: "P1", Result: "2"},
		{Parameter: "A", Technique: "t2", Unit: "u", Limit: "1", Point: "P2", Result: "3"},
	})
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "A", table.Rows[0][0])
	assert.Equal(t, "t1", table.Rows[0][1])
	assert.Equal(t, "A", table.Rows[1][0])
	assert.Equal(t, "t2", table.Rows[1][1])
	assert.Equal(t, "B", table.Rows[2][0])
}

func TestPivotDropsRowsWithBlankKeys(t *testing.T) {
	table := Pivot([]Measurement{
		{Parameter: "pH", Technique: "E", Unit: "U pH", Limit: "6,5-9,0", Point: "P1", Result: "7.1"},
		{Parameter: "", Technique: "E", Unit: "U pH", Limit: "6,5-9,0", Point: "P2", Result: "7.0"},
		{Parameter: "Cloro", Technique: "DPD", Unit: "mg/L", Limit: "", Point: "P1", Result: "0.8"},
		{Parameter: "Color", Technique: "V", Unit: "UPC", Limit: "15", Point: "", Result: "5"},
	})
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"pH", "E", "U pH", "6,5-9,0", "7.1", MissingValue}, table.Rows[0])
	assert.Equal(t, []string{"P1", "P2"}, table.Points(), "points of dropped rows still become columns")
}

func TestPivotEmpty(t *testing.T) {
	table := Pivot(nil)
	assert.Len(t, table.Header, 4)
	assert.Empty(t, table.Rows)
	assert.Nil(t, table.Points())
}

func TestWriteTagsPreservesOtherSheets(t *testing.T) {
	path := writeWorkbook(t, []string{SheetTags, SheetPivot, SheetSource}, map[string][][]string{
		SheetTags:   {{"ETIQUETA", "VALOR"}, {"nro", "3"}, {"obsoleta", "x"}, {"extra", "y"}},
		SheetPivot:  {{"PARÁMETRO", "P1"}, {"pH", "7"}},
		SheetSource: sourceRows,
	})

	tags := NewTagTable()
	tags.Set("nro", "11")
	tags.Set("mes", "julio")
	require.NoError(t, WriteTags(path, tags))

	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, []string{SheetTags, SheetPivot, SheetSource}, w.Sheets())

	got, err := w.Tags()
	require.NoError(t, err)
	assert.Equal(t, []string{"nro", "mes"}, got.Labels())
	assert.Equal(t, "11", got.Value("nro"))

	pivot, err := w.Rows(SheetPivot)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"PARÁMETRO", "P1"}, {"pH", "7"}}, pivot)

	src, err := w.Measurements(SheetSource)
	require.NoError(t, err)
	assert.Len(t, src, 7)

	family, size, err := w.FontOf(SheetTags, "A2")
	require.NoError(t, err)
	assert.Equal(t, FontFamily, family)
	assert.InDelta(t, float64(FontSize), size, 1e-9)
}

func TestReadTags(t *testing.T) {
	path := writeWorkbook(t, []string{SheetTags}, map[string][][]string{
		SheetTags: {{" etiqueta ", "Valor"}, {"nro", "5"}, {"", "ignored"}, {"mes"}, {"nro", "6"}},
	})
	tags, err := ReadTags(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"nro", "mes"}, tags.Labels())
	assert.Equal(t, "5", tags.Value("nro"))
	v, ok := tags.Get("mes")
	assert.True(t, ok)
	assert.Empty(t, v)
}

func TestReadTagsErrors(t *testing.T) {
	noSheet := writeWorkbook(t, []string{SheetPivot}, map[string][][]string{SheetPivot: {{"x"}}})
	_, err := ReadTags(noSheet)
	assert.Error(t, err)

	noColumns := writeWorkbook(t, []string{SheetTags}, map[string][][]string{SheetTags: {{"LABEL", "VALUE"}}})
	_, err = ReadTags(noColumns)
	assert.Error(t, err)

	_, err = ReadTags(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}

func TestMergeCatalogue(t *testing.T) {
	existing := NewTagTable()
	existing.Set("manual", "keep?")
	existing.Set("cod_1", "1001")
	existing.Set("nro", "7")

	got := MergeCatalogue(existing, Catalogue)
	assert.Equal(t, Catalogue, got.Labels())
	assert.Equal(t, "7", got.Value("nro"))
	assert.Equal(t, "1001", got.Value("cod_1"))
	assert.False(t, got.Has("manual"))

	fresh := MergeCatalogue(nil, Catalogue)
	assert.Equal(t, len(Catalogue), fresh.Len())
	assert.Empty(t, fresh.Value("nro"))
}

func TestReorder(t *testing.T) {
	tags := NewTagTable()
	tags.Set("zeta", "z")
	tags.Set("mes", "julio")
	tags.Set("nro", "1")

	got := tags.Reorder([]string{"nro", "periodo", "mes"})
	assert.Equal(t, []string{"nro", "mes", "zeta"}, got.Labels())
	assert.Equal(t, "z", got.Value("zeta"))
}

func TestApplyFontReportsMissingSheets(t *testing.T) {
	path := writeWorkbook(t, []string{SheetTags}, map[string][][]string{SheetTags: {{"ETIQUETA", "VALOR"}, {"nro", "1"}}})
	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	err = w.ApplyFont(FontFamily, FontSize, SheetTags, SheetPivot)
	require.Error(t, err)
	assert.Contains(t, err.Error(), SheetPivot)

	family, _, err := w.FontOf(SheetTags, "B2")
	require.NoError(t, err)
	assert.Equal(t, FontFamily, family)
}
