// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workbook

import (
	"fmt"
	"strings"

	"github.com/pdiddy/irca-engine/internal/cities"
)

// Measurement columns after header normalization.
const (
	ColParameter = "PARÁMETRO"
	ColTechnique = "TÉCNICA"
	ColUnit      = "UNIDAD"
	ColLimit     = "LÍMITE"
	ColPoint     = "PUNTO"
	ColResult    = "RESULTADO_CRUDO"
)

// MissingValue fills pivot cells with no measurement.
const MissingValue = "n/a"

var measurementColumns = []string{ColParameter, ColTechnique, ColUnit, ColLimit, ColPoint, ColResult}

var headerAliases = map[string]string{
	"PUNTO DE MUESTREO": ColPoint,
	"MÉTODO":            "METODO",
}

// Measurement is one laboratory result from the source sheet.
type Measurement struct {
	Parameter string
	Technique string
	Unit      string
	Limit     string
	Point     string
	Result    string
}

// ReadMeasurements reads the measurement rows of sheet in the workbook at
// path.
func ReadMeasurements(path, sheet string) ([]Measurement, error) {
	w, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return w.Measurements(sheet)
}

// Measurements reads the measurement rows of sheet. Headers are trimmed
// and upper-cased, PUNTO DE MUESTREO is read as PUNTO, and accents in
// header names are optional.
func (w *Workbook) Measurements(sheet string) ([]Measurement, error) {
	rows, err := w.Rows(sheet)
	if err != nil {
		return nil, err
	}
	return ParseMeasurements(rows)
}

// ParseMeasurements converts a header row and data rows into measurements.
func ParseMeasurements(rows [][]string) ([]Measurement, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("measurement sheet is empty")
	}

	index := make(map[string]int)
	for i, h := range rows[0] {
		name := strings.ToUpper(strings.TrimSpace(h))
		if alias, ok := headerAliases[name]; ok {
			name = alias
		}
		key := cities.Normalize(name)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	cols := make([]int, len(measurementColumns))
	var missing []string
	for i, c := range measurementColumns {
		idx, ok := index[cities.Normalize(c)]
		if !ok {
			missing = append(missing, c)
			continue
		}
		cols[i] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	get := func(row []string, i int) string {
		if cols[i] >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[cols[i]])
	}

	var out []Measurement
	for _, row := range rows[1:] {
		m := Measurement{
			Parameter: get(row, 0),
			Technique: get(row, 1),
			Unit:      get(row, 2),
			Limit:     get(row, 3),
			Point:     get(row, 4),
			Result:    get(row, 5),
		}
		if m == (Measurement{}) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// keyed reports whether every pivot key and the point are present.
func (m Measurement) keyed() bool {
	return m.Parameter != "" && m.Technique != "" && m.Unit != "" && m.Limit != "" && m.Point != ""
}

// PivotTable is the wide TABLA_4 layout: the four key columns followed by
// one column per sampling point.
type PivotTable struct {
	Header []string
	Rows   [][]string
}

// Points returns the sampling point columns.
func (p PivotTable) Points() []string {
	if len(p.Header) <= 4 {
		return nil
	}
	return p.Header[4:]
}

// Pivot turns measurements into one row per (parameter, technique, unit,
// limit) and one column per sampling point. Rows follow the first-seen
// order of parameters, columns the first-seen order of points. When a
// cell has several results the first non-empty one is kept; cells with
// none read "n/a". Measurements with a blank key or point produce no row,
// though their point still gets a column.
func Pivot(ms []Measurement) PivotTable {
	type key struct{ param, tech, unit, limit string }

	var paramOrder []string
	paramSeen := make(map[string]bool)
	var points []string
	pointCol := make(map[string]int)

	var keys []key
	values := make(map[key]map[string]string)

	for _, m := range ms {
		if m.Point != "" {
			if _, ok := pointCol[m.Point]; !ok {
				pointCol[m.Point] = len(points)
				points = append(points, m.Point)
			}
		}
		if !m.keyed() {
			continue
		}
		if !paramSeen[m.Parameter] {
			paramSeen[m.Parameter] = true
			paramOrder = append(paramOrder, m.Parameter)
		}

		k := key{m.Parameter, m.Technique, m.Unit, m.Limit}
		cells, ok := values[k]
		if !ok {
			cells = make(map[string]string)
			values[k] = cells
			keys = append(keys, k)
		}
		if m.Result == "" {
			continue
		}
		if _, set := cells[m.Point]; !set {
			cells[m.Point] = m.Result
		}
	}

	table := PivotTable{
		Header: append([]string{ColParameter, ColTechnique, ColUnit, ColLimit}, points...),
	}
	for _, param := range paramOrder {
		for _, k := range keys {
			if k.param != param {
				continue
			}
			row := make([]string, 0, len(table.Header))
			row = append(row, k.param, k.tech, k.unit, k.limit)
			for _, p := range points {
				v, ok := values[k][p]
				if !ok {
					v = MissingValue
				}
				row = append(row, v)
			}
			table.Rows = append(table.Rows, row)
		}
	}
	return table
}

// WritePivot replaces the TABLA_4 sheet with table.
func (w *Workbook) WritePivot(table PivotTable) error {
	rows := make([][]string, 0, len(table.Rows)+1)
	rows = append(rows, table.Header)
	rows = append(rows, table.Rows...)
	return w.WriteRows(SheetPivot, rows)
}
