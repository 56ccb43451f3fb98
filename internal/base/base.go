// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package base implements the first workflow step: it turns the cleaned
// per-airport measurement workbooks into one folder per city holding
// base_<city>.xlsx (with TABLA_4 and TAGS sheets) and the city's Word
// template.
package base

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/irca-engine/internal/cities"
	"github.com/pdiddy/irca-engine/internal/workbook"
	"github.com/pdiddy/irca-engine/pkg/types"
)

// FileName returns the base workbook name for city.
func FileName(city string) string {
	return "base_" + city + ".xlsx"
}

// Folders lists the city folders under dataDir by name. Hidden entries
// such as marker files are skipped.
func Folders(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory %s: %w", dataDir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Generator runs step 1 over a source directory.
type Generator struct {
	SourceDir    string
	DataDir      string
	TemplatesDir string
	TemplateYear int
}

// NewGenerator builds a Generator from cfg.
func NewGenerator(cfg types.Config) *Generator {
	return &Generator{
		SourceDir:    cfg.SourceDir,
		DataDir:      cfg.DataDir,
		TemplatesDir: cfg.TemplatesDir,
		TemplateYear: cfg.TemplateYear,
	}
}

// Sources lists the measurement workbooks in the source directory, sorted
// by name. Office lock files (~$...) are ignored.
func (g *Generator) Sources() ([]string, error) {
	entries, err := os.ReadDir(g.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory %s: %w", g.SourceDir, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") || !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Generate processes every source workbook, printing one status line per
// file and a closing summary to w. It fails only when the source or
// templates directory is missing; per-file problems are counted.
func (g *Generator) Generate(w io.Writer) (types.BatchResult, error) {
	var result types.BatchResult
	for _, dir := range []struct{ label, path string }{
		{"source", g.SourceDir},
		{"templates", g.TemplatesDir},
	} {
		if info, err := os.Stat(dir.path); err != nil || !info.IsDir() {
			return result, fmt.Errorf("%s directory not found: %s", dir.label, dir.path)
		}
	}

	sources, err := g.Sources()
	if err != nil {
		return result, err
	}
	if len(sources) == 0 {
		fmt.Fprintf(w, "warning: no .xlsx files in %s\n", g.SourceDir)
	}
	if err := os.MkdirAll(g.DataDir, 0o755); err != nil {
		return result, fmt.Errorf("creating data directory %s: %w", g.DataDir, err)
	}

	for _, name := range sources {
		result.Count(g.GenerateFile(name, w))
	}
	fmt.Fprintf(w, "\n%s\n", result.Summary())
	return result, nil
}

// GenerateFile builds the city folder for one source workbook.
func (g *Generator) GenerateFile(name string, w io.Writer) types.Outcome {
	airport := cities.AirportFromFilename(name)
	city, known := cities.AirportToCity(airport)
	if !known {
		fmt.Fprintf(w, "warning: no city for airport %q, using it as the folder name\n", airport)
	}
	if strings.TrimSpace(city) == "" {
		fmt.Fprintf(w, "skipped: %s (no airport name)\n", name)
		return types.OutcomeSkipped
	}

	folder := filepath.Join(g.DataDir, city)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", city, err)
		return types.OutcomeFailed
	}

	dest := filepath.Join(folder, FileName(city))
	existing := previousTags(dest)

	if err := copyFile(filepath.Join(g.SourceDir, name), dest); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", city, err)
		return types.OutcomeFailed
	}
	if err := Build(dest, existing); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", city, err)
		return types.OutcomeFailed
	}

	template, err := g.copyTemplate(city, folder)
	switch {
	case err != nil:
		fmt.Fprintf(w, "warning: %s template not copied (%v)\n", city, err)
	case template == "":
		fmt.Fprintf(w, "warning: no Word template found for %s\n", city)
	}

	fmt.Fprintf(w, "processed: %s (%s)\n", city, airport)
	return types.OutcomeProcessed
}

// Build derives the TABLA_4 pivot and the TAGS sheet inside the base
// workbook at path. existing carries tag values to keep; it may be nil.
func Build(path string, existing *workbook.TagTable) error {
	wb, err := workbook.Open(path)
	if err != nil {
		return err
	}
	defer wb.Close()

	ms, err := wb.Measurements(workbook.SheetSource)
	if err != nil {
		return err
	}
	if err := wb.WritePivot(workbook.Pivot(ms)); err != nil {
		return err
	}

	if existing == nil && wb.HasSheet(workbook.SheetTags) {
		existing, _ = wb.Tags()
	}
	if err := wb.WriteTags(workbook.MergeCatalogue(existing, workbook.Catalogue)); err != nil {
		return err
	}
	if err := wb.ApplyFont(workbook.FontFamily, workbook.FontSize, workbook.SheetPivot, workbook.SheetTags); err != nil {
		return err
	}
	if err := wb.Activate(workbook.SheetTags); err != nil {
		return err
	}
	return wb.Save()
}

// previousTags reads the TAGS sheet of an earlier base workbook so that
// manually entered values survive a rerun. It returns nil when there is
// none.
func previousTags(path string) *workbook.TagTable {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	tags, err := workbook.ReadTags(path)
	if err != nil {
		return nil
	}
	return tags
}

// copyTemplate copies the city's template into folder unless a file of
// that name is already there. It returns the template path, or "" when
// none was found.
func (g *Generator) copyTemplate(city, folder string) (string, error) {
	src, err := cities.FindTemplate(city, g.TemplatesDir, g.TemplateYear)
	if err != nil || src == "" {
		return "", err
	}
	dest := filepath.Join(folder, filepath.Base(src))
	if _, err := os.Stat(dest); err == nil {
		return src, nil
	}
	return src, copyFile(src, dest)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dest, info.ModTime(), info.ModTime())
}
