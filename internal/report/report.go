// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report implements the third workflow step: it renders each
// city's Word template with the values of its TAGS sheet and the
// configured photos, producing reporte_<city>.docx.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pdiddy/irca-engine/internal/base"
	"github.com/pdiddy/irca-engine/internal/docx"
	"github.com/pdiddy/irca-engine/internal/photos"
	"github.com/pdiddy/irca-engine/internal/workbook"
	"github.com/pdiddy/irca-engine/pkg/types"
)

// MinValidSize is the size above which a generated report is considered
// complete.
const MinValidSize = 1024

// FileName returns the report name for city.
func FileName(city string) string {
	return "reporte_" + city + ".docx"
}

// FindTemplate returns the Word template in folder: the first .docx by
// name that is neither a generated report nor an Office lock file. It
// returns "" when there is none.
func FindTemplate(folder string) (string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return "", err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".docx") {
			continue
		}
		if strings.HasPrefix(name, "~$") || strings.HasPrefix(strings.ToLower(name), "reporte_") {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return filepath.Join(folder, names[0]), nil
}

// Render generates the report of every city folder under dataDir,
// printing one status line per folder and a closing summary to w. A
// folder without its base workbook or template is skipped.
func Render(dataDir string, manifest photos.Manifest, w io.Writer) (types.BatchResult, error) {
	var result types.BatchResult
	folders, err := base.Folders(dataDir)
	if err != nil {
		return result, err
	}
	for _, city := range folders {
		result.Count(RenderFolder(filepath.Join(dataDir, city), manifest.For(city), w))
	}
	fmt.Fprintf(w, "\n%s\n", result.Summary())
	return result, nil
}

// RenderFolder renders one city folder. The folder name is the city.
func RenderFolder(folder string, cityPhotos map[string]string, w io.Writer) types.Outcome {
	city := filepath.Base(folder)
	excel := filepath.Join(folder, base.FileName(city))
	if _, err := os.Stat(excel); err != nil {
		fmt.Fprintf(w, "skipped: %s (%s not found)\n", city, base.FileName(city))
		return types.OutcomeSkipped
	}
	template, err := FindTemplate(folder)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", city, err)
		return types.OutcomeFailed
	}
	if template == "" {
		fmt.Fprintf(w, "skipped: %s (no Word template)\n", city)
		return types.OutcomeSkipped
	}

	tags, err := workbook.ReadTags(excel)
	if err != nil {
		fmt.Fprintf(w, "skipped: %s (%v)\n", city, err)
		return types.OutcomeSkipped
	}

	out := filepath.Join(folder, FileName(city))
	stats, err := Fill(template, out, Values(tags), cityPhotos)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", city, err)
		return types.OutcomeFailed
	}

	if stats.Tags > 0 {
		fmt.Fprintf(w, "processed: %s (%d photos, %d missing)\n", city, stats.Inserted, stats.Missing)
	} else {
		fmt.Fprintf(w, "processed: %s\n", city)
	}
	return types.OutcomeProcessed
}

// Fill renders template with values and photos and saves it to out.
func Fill(template, out string, values, cityPhotos map[string]string) (docx.PhotoStats, error) {
	doc, err := docx.Open(template)
	if err != nil {
		return docx.PhotoStats{}, err
	}
	doc.ReplaceTags(values)
	stats, err := doc.InsertPhotos(cityPhotos)
	if err != nil {
		return stats, err
	}
	return stats, doc.Save(out)
}

// Values turns a TAGS table into the placeholder values the template
// engine uses: lower-case keys and formatted values.
func Values(tags *workbook.TagTable) map[string]string {
	out := make(map[string]string, tags.Len())
	for _, t := range tags.Tags() {
		key := strings.ToLower(strings.TrimSpace(t.Label))
		if key == "" {
			continue
		}
		out[key] = FormatValue(t.Value)
	}
	return out
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// FormatValue renders a TAGS value for a document. Timestamps keep only
// their date (YYYY-MM-DD); "nan" and "NaT" left by spreadsheet tools
// read as empty.
func FormatValue(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "nan", "nat", "none":
		return ""
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return v
}

// Status describes the generated report of one city.
type Status struct {
	City     string    `json:"ciudad"`
	Path     string    `json:"path"`
	Exists   bool      `json:"existe"`
	Size     int64     `json:"size"`
	SizeText string    `json:"size_text"`
	Valid    bool      `json:"valido"`
	Modified time.Time `json:"modified,omitempty"`

	HasBase     bool `json:"excel_exists"`
	HasTemplate bool `json:"plantilla_exists"`
}

// Summary counts the reports of a data directory.
type Summary struct {
	Cities  int      `json:"total_ciudades"`
	Found   int      `json:"reportes_encontrados"`
	Valid   int      `json:"reportes_validos"`
	Reports []Status `json:"reportes_info"`
}

// Ready reports whether at least one valid report can be packaged.
func (s Summary) Ready() bool { return s.Valid > 0 }

// ValidCities returns the cities whose report is valid.
func (s Summary) ValidCities() []string {
	var out []string
	for _, r := range s.Reports {
		if r.Valid {
			out = append(out, r.City)
		}
	}
	return out
}

// Inspect reports on every city folder of dataDir. A missing data
// directory yields an empty summary.
func Inspect(dataDir string) Summary {
	var s Summary
	folders, err := base.Folders(dataDir)
	if err != nil {
		return s
	}
	s.Cities = len(folders)
	for _, city := range folders {
		folder := filepath.Join(dataDir, city)
		st := Status{City: city, Path: filepath.Join(folder, FileName(city))}
		if info, err := os.Stat(st.Path); err == nil && !info.IsDir() {
			st.Exists = true
			st.Size = info.Size()
			st.SizeText = humanize.Bytes(uint64(st.Size))
			st.Valid = st.Size > MinValidSize
			st.Modified = info.ModTime()
			s.Found++
			if st.Valid {
				s.Valid++
			}
		}
		if _, err := os.Stat(filepath.Join(folder, base.FileName(city))); err == nil {
			st.HasBase = true
		}
		if tpl, err := FindTemplate(folder); err == nil && tpl != "" {
			st.HasTemplate = true
		}
		s.Reports = append(s.Reports, st)
	}
	return s
}
