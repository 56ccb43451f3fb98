// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package irca loads the IRCA risk-index dataset and answers the per-city
// questions the tag filler needs: newest sample date, sampling points,
// codes and their IRCA percentages.
package irca

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/irca-engine/internal/cities"
	"github.com/pdiddy/irca-engine/internal/risk"
)

// Column names of the dataset.
const (
	ColCity  = "Ciudad"
	ColCode  = "Codigo"
	ColDate  = "Fecha"
	ColMonth = "Mes"
	ColIRCA  = "IRCA (%)"
	ColPoint = "Punto de Muestreo"
)

var requiredColumns = []string{ColCity, ColCode, ColIRCA}

// Record is one row of the dataset.
type Record struct {
	City  string
	Code  string
	Date  time.Time // zero when Fecha is missing or unparseable
	Month string
	Point string

	// IRCA is the value as stored. HasIRCA is false for blank or
	// unparseable cells.
	IRCA    float64
	HasIRCA bool
}

// Year returns the sample year, or 0 when the date is unknown.
func (r Record) Year() int {
	if r.Date.IsZero() {
		return 0
	}
	return r.Date.Year()
}

// Percent returns the IRCA reading as a percentage.
func (r Record) Percent() float64 {
	if !r.HasIRCA {
		return 0
	}
	return risk.ToPercent(r.IRCA)
}

// Dataset is an in-memory IRCA dataset.
type Dataset struct {
	Records []Record
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.Records) }

// Load reads a dataset from a semicolon-separated .csv or an .xlsx file
// (first sheet). Header names are trimmed; Ciudad, Codigo and IRCA (%)
// are required.
func Load(path string) (*Dataset, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported IRCA file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	ds, err := FromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return ds, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening IRCA file: %w", err)
	}
	defer f.Close()
	return ParseCSV(f)
}

// ParseCSV reads semicolon-separated rows, tolerating a UTF-8 BOM and
// ragged lines.
func ParseCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}
	cr := csv.NewReader(br)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing IRCA csv: %w", err)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening IRCA workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("IRCA workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// FromRows builds a dataset from a header row followed by data rows.
func FromRows(rows [][]string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("IRCA data has no header row")
	}
	index := make(map[string]int)
	for i, h := range rows[0] {
		index[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns %s", strings.Join(missing, ", "))
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	ds := &Dataset{}
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		rec := Record{
			City:  cell(row, ColCity),
			Code:  NormalizeCode(cell(row, ColCode)),
			Month: cell(row, ColMonth),
			Point: cell(row, ColPoint),
		}
		rec.Date, _ = ParseDate(cell(row, ColDate))
		if v, err := risk.ParsePercent(cell(row, ColIRCA)); err == nil {
			rec.IRCA, rec.HasIRCA = v, true
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses Fecha values written as dd/mm/yyyy, ISO dates, or
// Excel serial day numbers.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		return excelize.ExcelDateToTime(serial, false)
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// NormalizeCode trims a sampling code and drops the ".0" suffix numeric
// cells acquire on the way through a spreadsheet.
func NormalizeCode(s string) string {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && strings.Contains(s, ".") {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return s
}

// MonthYear is a distinct (Mes, year) pair present in the dataset.
type MonthYear struct {
	Month string `json:"mes"`
	Year  int    `json:"año"`
}

// Display returns "Julio 2025".
func (m MonthYear) Display() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

// Months returns the distinct month/year pairs, newest first. Rows
// without a month or a parseable date are ignored.
func (d *Dataset) Months() []MonthYear {
	seen := make(map[MonthYear]bool)
	var out []MonthYear
	for _, r := range d.Records {
		if r.Month == "" || r.Year() == 0 {
			continue
		}
		k := MonthYear{Month: r.Month, Year: r.Year()}
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return monthIndex(out[i].Month) > monthIndex(out[j].Month)
	})
	return out
}

// monthIndex orders unknown month names after every real month.
func monthIndex(name string) int {
	if m := risk.MonthNumber(name); m != 0 {
		return int(m)
	}
	return -1
}

func sameMonth(a, b string) bool {
	return cities.Fold(a) == cities.Fold(b)
}

// Scope describes which rule of the filter fallback chain produced a
// filtered dataset.
type Scope string

const (
	ScopeExact      Scope = "exact"
	ScopeMonth      Scope = "month"
	ScopeRecentYear Scope = "recent_year"
	ScopeAll        Scope = "all"
)

// Minimum record counts for the exact and month-only filters to be used.
const (
	minExactRecords = 10
	minMonthRecords = 5
)

// Filter selects the records for month and year. When the exact match
// has fewer than 10 records it falls back to the month across all years;
// when that has fewer than 5 it uses the most recent year available for
// the month; when the month is absent it returns all data. An empty
// month or zero year selects all data.
func (d *Dataset) Filter(month string, year int) (*Dataset, Scope) {
	if month == "" || year == 0 {
		return d.where(func(Record) bool { return true }), ScopeAll
	}

	exact := d.Exact(month, year)
	if exact.Len() >= minExactRecords {
		return exact, ScopeExact
	}

	byMonth := d.where(func(r Record) bool { return sameMonth(r.Month, month) })
	if byMonth.Len() >= minMonthRecords {
		return byMonth, ScopeMonth
	}

	recent := 0
	for _, r := range byMonth.Records {
		if r.Year() > recent {
			recent = r.Year()
		}
	}
	if recent > 0 {
		return d.where(func(r Record) bool { return sameMonth(r.Month, month) && r.Year() == recent }), ScopeRecentYear
	}
	return d.where(func(Record) bool { return true }), ScopeAll
}

func (d *Dataset) where(keep func(Record) bool) *Dataset {
	out := &Dataset{}
	for _, r := range d.Records {
		if keep(r) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// Cities returns the distinct Ciudad values in first-seen order.
func (d *Dataset) Cities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range d.Records {
		if r.City != "" && !seen[r.City] {
			seen[r.City] = true
			out = append(out, r.City)
		}
	}
	return out
}

// CitiesFor returns the cities with records for exactly month and year.
func (d *Dataset) CitiesFor(month string, year int) []string {
	return d.Exact(month, year).Cities()
}

// Exact selects the records of month and year with no fallback.
func (d *Dataset) Exact(month string, year int) *Dataset {
	return d.where(func(r Record) bool { return sameMonth(r.Month, month) && r.Year() == year })
}

// Summary aggregates a dataset for the dashboard.
type Summary struct {
	Records     int            `json:"total_registros"`
	Cities      int            `json:"ciudades_con_datos"`
	MeanIRCA    float64        `json:"irca_promedio"`
	RecordsCity map[string]int `json:"ciudades_irca"`
}

// Summary counts records per city and averages the parsed IRCA values,
// rounded to two decimals.
func (d *Dataset) Summary() Summary {
	s := Summary{Records: d.Len(), RecordsCity: make(map[string]int)}
	var sum float64
	var n int
	for _, r := range d.Records {
		if r.City != "" {
			s.RecordsCity[r.City]++
		}
		if r.HasIRCA {
			sum += r.IRCA
			n++
		}
	}
	s.Cities = len(s.RecordsCity)
	if n > 0 {
		s.MeanIRCA = math.Round(sum/float64(n)*100) / 100
	}
	return s
}

// Point is a sampling point detected for a city.
type Point struct {
	Number int     `json:"numero"`
	Code   string  `json:"codigo"`
	Name   string  `json:"punto"`
	IRCA   float64 `json:"irca"`
}

// CityData is what the dataset knows about one city.
type CityData struct {
	Found bool `json:"found"`

	// The following are derived from the newest sample date and are empty
	// when no record for the city has a date.
	Month      string `json:"mes"`
	Year       string `json:"año"`
	SampleDate string `json:"fecha_mu"`
	SampleDay  string `json:"dia_mu"`

	// Points is keyed by detected point number (1-4).
	Points map[int]Point `json:"puntos"`

	// Codes lists every code found for the city, in dataset order.
	Codes []string `json:"codigos"`
}

// HasCode reports whether code is already mapped to a detected point.
func (c CityData) HasCode(code string) bool {
	for _, p := range c.Points {
		if p.Code == code {
			return true
		}
	}
	return false
}

var pointPattern = regexp.MustCompile(`(?i)(?:^|[^a-zA-Z])p(?:to)?[_\- ]?([1-4]|0[1-4])`)

// PointNumber detects the sampling point number in a "Punto de Muestreo"
// value such as "P1 Tanque", "pto_2" or "Red P-03". It returns 0 when no
// point is named.
func PointNumber(s string) int {
	m := pointPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// ForCity collects the records whose folded Ciudad contains the folded
// city name. Later records for the same point number replace earlier ones.
func (d *Dataset) ForCity(city string) CityData {
	needle := cities.Fold(city)
	out := CityData{Points: make(map[int]Point)}
	if needle == "" {
		return out
	}

	var newest time.Time
	for _, r := range d.Records {
		if !strings.Contains(cities.Fold(r.City), needle) {
			continue
		}
		out.Found = true
		if r.Date.After(newest) {
			newest = r.Date
		}
		if r.Code == "" || r.Point == "" {
			continue
		}
		out.Codes = append(out.Codes, r.Code)
		if n := PointNumber(r.Point); n != 0 {
			out.Points[n] = Point{Number: n, Code: r.Code, Name: r.Point, IRCA: r.Percent()}
		}
	}

	if !newest.IsZero() {
		out.Month = risk.MonthName(newest.Month())
		out.Year = strconv.Itoa(newest.Year())
		out.SampleDate = newest.Format("2006-01-02")
		out.SampleDay = risk.SampleDateText(newest)
	}
	return out
}

// LookupCode returns the IRCA percentage recorded for code. When a code
// appears more than once the last record wins.
func (d *Dataset) LookupCode(code string) (float64, bool) {
	code = NormalizeCode(code)
	var pct float64
	var found bool
	for _, r := range d.Records {
		if r.Code == code && r.HasIRCA {
			pct, found = r.Percent(), true
		}
	}
	return pct, found
}
