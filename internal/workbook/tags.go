// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workbook

import (
	"fmt"
	"strings"
)

// TAGS sheet columns.
const (
	ColLabel = "ETIQUETA"
	ColValue = "VALOR"
)

// Catalogue is the fixed list of labels every base workbook carries.
var Catalogue = []string{
	"nro", "periodo", "mes", "año",
	"pto_1", "pto_2", "pto_3", "pto_4",
	"fecha_mu", "dia_mu",
	"cod_1", "cod_2", "cod_3", "cod_4",
	"irca_pto_1", "irca_pto_2", "irca_pto_3", "irca_pto_4",
	"clasificacion_riesgo_1", "clasificacion_riesgo_2", "clasificacion_riesgo_3", "clasificacion_riesgo_4",
	"param_1", "param_2", "param_3", "param_4", "param_5", "param_6",
}

// Tag is one label/value pair.
type Tag struct {
	Label string `json:"etiqueta"`
	Value string `json:"valor"`
}

// TagTable is an ordered label/value table. Setting an existing label
// updates it in place.
type TagTable struct {
	tags  []Tag
	index map[string]int
}

// NewTagTable returns an empty table.
func NewTagTable() *TagTable {
	return &TagTable{index: make(map[string]int)}
}

// Set assigns value to label, appending the label when new.
func (t *TagTable) Set(label, value string) {
	if i, ok := t.index[label]; ok {
		t.tags[i].Value = value
		return
	}
	t.index[label] = len(t.tags)
	t.tags = append(t.tags, Tag{Label: label, Value: value})
}

// Get returns the value of label.
func (t *TagTable) Get(label string) (string, bool) {
	i, ok := t.index[label]
	if !ok {
		return "", false
	}
	return t.tags[i].Value, true
}

// Value returns the value of label, or "".
func (t *TagTable) Value(label string) string {
	v, _ := t.Get(label)
	return v
}

// Has reports whether label is present.
func (t *TagTable) Has(label string) bool {
	_, ok := t.index[label]
	return ok
}

// Len returns the number of tags.
func (t *TagTable) Len() int { return len(t.tags) }

// Tags returns a copy of the tags in order.
func (t *TagTable) Tags() []Tag {
	out := make([]Tag, len(t.tags))
	copy(out, t.tags)
	return out
}

// Labels returns the labels in order.
func (t *TagTable) Labels() []string {
	out := make([]string, len(t.tags))
	for i, tag := range t.tags {
		out[i] = tag.Label
	}
	return out
}

// Reorder returns a table with the labels in order first, in that order,
// followed by the remaining labels in their current order.
func (t *TagTable) Reorder(order []string) *TagTable {
	out := NewTagTable()
	for _, label := range order {
		if v, ok := t.Get(label); ok {
			out.Set(label, v)
		}
	}
	for _, tag := range t.tags {
		if !out.Has(tag.Label) {
			out.Set(tag.Label, tag.Value)
		}
	}
	return out
}

// MergeCatalogue returns a table holding exactly the labels of catalogue,
// in catalogue order, carrying over the values existing already has.
// Labels of existing outside the catalogue are dropped.
func MergeCatalogue(existing *TagTable, catalogue []string) *TagTable {
	out := NewTagTable()
	for _, label := range catalogue {
		v := ""
		if existing != nil {
			v = existing.Value(label)
		}
		out.Set(label, v)
	}
	return out
}

// ReadTags reads the TAGS sheet of the workbook at path.
func ReadTags(path string) (*TagTable, error) {
	w, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return w.Tags()
}

// Tags reads the TAGS sheet. The ETIQUETA and VALOR columns are required;
// rows without a label are ignored. The first occurrence of a label wins.
func (w *Workbook) Tags() (*TagTable, error) {
	if !w.HasSheet(SheetTags) {
		return nil, fmt.Errorf("sheet %s not found in %s", SheetTags, w.path)
	}
	rows, err := w.Rows(SheetTags)
	if err != nil {
		return nil, err
	}
	return ParseTags(rows)
}

// ParseTags builds a table from TAGS sheet rows.
func ParseTags(rows [][]string) (*TagTable, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s has no header row", SheetTags)
	}
	labelCol, valueCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToUpper(strings.TrimSpace(h)) {
		case ColLabel:
			if labelCol < 0 {
				labelCol = i
			}
		case ColValue:
			if valueCol < 0 {
				valueCol = i
			}
		}
	}
	if labelCol < 0 || valueCol < 0 {
		return nil, fmt.Errorf("sheet %s needs columns %s and %s", SheetTags, ColLabel, ColValue)
	}

	t := NewTagTable()
	for _, row := range rows[1:] {
		if labelCol >= len(row) {
			continue
		}
		label := strings.TrimSpace(row[labelCol])
		if label == "" || t.Has(label) {
			continue
		}
		value := ""
		if valueCol < len(row) {
			value = strings.TrimSpace(row[valueCol])
		}
		t.Set(label, value)
	}
	return t, nil
}

// WriteTags rewrites the TAGS sheet of the workbook at path, keeping every
// other sheet.
func WriteTags(path string, tags *TagTable) error {
	w, err := Open(path)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.WriteTags(tags); err != nil {
		return err
	}
	if err := w.ApplyFont(FontFamily, FontSize, SheetTags); err != nil {
		return err
	}
	return w.Save()
}

// WriteTags replaces the TAGS sheet with tags.
func (w *Workbook) WriteTags(tags *TagTable) error {
	rows := make([][]string, 0, tags.Len()+1)
	rows = append(rows, []string{ColLabel, ColValue})
	for _, tag := range tags.tags {
		rows = append(rows, []string{tag.Label, tag.Value})
	}
	return w.WriteRows(SheetTags, rows)
}
