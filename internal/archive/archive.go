// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive packages the valid generated reports into a ZIP file
// together with a plain-text download summary.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"

	"github.com/pdiddy/irca-engine/internal/report"
	"github.com/pdiddy/irca-engine/pkg/types"
)

// SummaryName is the summary entry added to every package.
const SummaryName = "RESUMEN_DESCARGA.txt"

// ErrNoReports is returned when no valid report exists to package.
var ErrNoReports = errors.New("no valid reports to package")

// Entry is one report added to a package.
type Entry struct {
	City string `json:"ciudad"`
	Name string `json:"nombre"`
	Size int64  `json:"size"`
}

// Result describes a written package.
type Result struct {
	Entries  []Entry   `json:"entries"`
	Created  time.Time `json:"created"`
	Period   string    `json:"period"`
	Bytes    int64     `json:"bytes"`
	Filename string    `json:"filename,omitempty"`
}

// EntryName returns the name a city's report takes inside the package.
func EntryName(city string, s types.Session) string {
	if s.HasMonth() {
		return fmt.Sprintf("Reporte_IRCA_%s_%s_%d.docx", city, s.SelectedMonth, s.SelectedYear)
	}
	return fmt.Sprintf("Reporte_IRCA_%s.docx", city)
}

// DefaultFilename returns the suggested package file name.
func DefaultFilename(s types.Session, now time.Time) string {
	if s.HasMonth() {
		return fmt.Sprintf("Reportes_IRCA_%s_%d.zip", s.SelectedMonth, s.SelectedYear)
	}
	return "Reportes_IRCA_" + now.Format("20060102_150405") + ".zip"
}

// Packager writes report packages.
type Packager struct {
	DataDir string
	Clock   clockwork.Clock
}

// New returns a Packager over dataDir using the real clock.
func New(dataDir string) *Packager {
	return &Packager{DataDir: dataDir, Clock: clockwork.NewRealClock()}
}

// Write streams a ZIP holding every valid report of the data directory and
// the summary to w. It returns ErrNoReports without writing when there is
// nothing to package.
func (p *Packager) Write(w io.Writer, s types.Session) (Result, error) {
	now := p.Clock.Now()
	res := Result{Created: now, Period: s.MonthDisplay()}

	summary := report.Inspect(p.DataDir)
	if !summary.Ready() {
		return res, ErrNoReports
	}

	zw := zip.NewWriter(w)
	for _, st := range summary.Reports {
		if !st.Valid {
			continue
		}
		name := EntryName(st.City, s)
		if err := addFile(zw, st.Path, name, now); err != nil {
			zw.Close()
			return res, err
		}
		res.Entries = append(res.Entries, Entry{City: st.City, Name: name, Size: st.Size})
		res.Bytes += st.Size
	}

	hdr := &zip.FileHeader{Name: SummaryName, Method: zip.Deflate, Modified: now}
	sw, err := zw.CreateHeader(hdr)
	if err != nil {
		zw.Close()
		return res, err
	}
	if _, err := io.WriteString(sw, Summary(res)); err != nil {
		zw.Close()
		return res, err
	}
	if err := zw.Close(); err != nil {
		return res, fmt.Errorf("closing package: %w", err)
	}
	return res, nil
}

// WriteFile writes the package to path. When path is a directory the
// default file name is used inside it.
func (p *Packager) WriteFile(path string, s types.Session) (Result, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultFilename(s, p.Clock.Now()))
	}
	f, err := os.Create(path)
	if err != nil {
		return Result{}, fmt.Errorf("creating package: %w", err)
	}
	res, err := p.Write(f, s)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return res, err
	}
	res.Filename = path
	return res, nil
}

func addFile(zw *zip.Writer, path, name string, now time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: now})
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	return nil
}

// Summary renders the text of RESUMEN_DESCARGA.txt.
func Summary(res Result) string {
	period := res.Period
	if period == "" {
		period = "No especificado"
	}
	var b strings.Builder
	b.WriteString("DESCARGA DE REPORTES IRCA\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Período: %s\n", period)
	fmt.Fprintf(&b, "Fecha descarga: %s\n", res.Created.Format("02/01/2006 15:04:05"))
	fmt.Fprintf(&b, "Total reportes: %d\n", len(res.Entries))
	fmt.Fprintf(&b, "Tamaño total: %s\n\n", humanize.Bytes(uint64(res.Bytes)))
	b.WriteString("Ciudades incluidas:\n")
	for _, e := range res.Entries {
		fmt.Fprintf(&b, "  - %s\n", e.City)
	}
	return b.String()
}
