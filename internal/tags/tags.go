// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tags implements the second workflow step: it fills the TAGS
// sheet of every city's base workbook from the IRCA dataset.
package tags

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/irca-engine/internal/base"
	"github.com/pdiddy/irca-engine/internal/irca"
	"github.com/pdiddy/irca-engine/internal/risk"
	"github.com/pdiddy/irca-engine/internal/workbook"
	"github.com/pdiddy/irca-engine/pkg/types"
)

// Order is the label order written back to TAGS. Each risk
// classification follows its IRCA value; labels not listed keep their
// relative order after these.
var Order = []string{
	"nro", "periodo", "mes", "año",
	"pto_1", "pto_2", "pto_3", "pto_4",
	"fecha_mu", "dia_mu",
	"cod_1", "cod_2", "cod_3", "cod_4",
	"irca_pto_1", "clasificacion_riesgo_1",
	"irca_pto_2", "clasificacion_riesgo_2",
	"irca_pto_3", "clasificacion_riesgo_3",
	"irca_pto_4", "clasificacion_riesgo_4",
}

// ErrNoFolders is returned when the data directory holds no city folder.
var ErrNoFolders = errors.New("no city folders found")

var baseFilePattern = regexp.MustCompile(`(?i)^Base_.*\.xlsx$`)

// FindBase returns the base workbook in folder, or "" when there is none.
func FindBase(folder string) (string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() && baseFilePattern.MatchString(e.Name()) {
			return filepath.Join(folder, e.Name()), nil
		}
	}
	return "", nil
}

// Fill updates the TAGS sheet in every city folder under dataDir from ds,
// printing one status line per folder and a closing summary to w.
func Fill(ds *irca.Dataset, dataDir string, w io.Writer) (types.BatchResult, error) {
	var result types.BatchResult
	if ds == nil || ds.Len() == 0 {
		return result, fmt.Errorf("IRCA dataset is empty")
	}
	folders, err := base.Folders(dataDir)
	if err != nil {
		return result, err
	}
	if len(folders) == 0 {
		return result, fmt.Errorf("%w in %s", ErrNoFolders, dataDir)
	}

	for i, city := range folders {
		fmt.Fprintf(w, "[%d/%d] ", i+1, len(folders))
		result.Count(FillFolder(ds, filepath.Join(dataDir, city), w))
	}
	fmt.Fprintf(w, "\n%s\n", result.Summary())
	return result, nil
}

// FillFolder updates one city folder. The folder name is the city.
func FillFolder(ds *irca.Dataset, folder string, w io.Writer) types.Outcome {
	city := filepath.Base(folder)
	path, err := FindBase(folder)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", city, err)
		return types.OutcomeFailed
	}
	if path == "" {
		fmt.Fprintf(w, "failed:  %s (base workbook not found)\n", city)
		return types.OutcomeFailed
	}

	current, err := workbook.ReadTags(path)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", city, err)
		return types.OutcomeFailed
	}

	updated := Update(current, ds, city)
	if err := workbook.WriteTags(path, updated); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", city, err)
		return types.OutcomeFailed
	}
	fmt.Fprintf(w, "processed: %s\n", city)
	return types.OutcomeProcessed
}

// Update returns tags with the values ds holds for city applied.
func Update(tags *workbook.TagTable, ds *irca.Dataset, city string) *workbook.TagTable {
	out := workbook.NewTagTable()
	if tags != nil {
		for _, t := range tags.Tags() {
			out.Set(t.Label, t.Value)
		}
	}

	data := ds.ForCity(city)
	if data.Month != "" {
		out.Set("mes", data.Month)
		out.Set("nro", strconv.Itoa(risk.ReportNumber(city, data.Month)))
	}
	if data.Year != "" {
		out.Set("año", data.Year)
	}
	if data.SampleDate != "" {
		out.Set("fecha_mu", data.SampleDate)
	}
	if data.SampleDay != "" {
		out.Set("dia_mu", data.SampleDay)
	}
	if mes, año := out.Value("mes"), out.Value("año"); mes != "" && año != "" {
		out.Set("periodo", strings.ToUpper(risk.PeriodText(mes, año)))
	}

	for i := 1; i <= 4; i++ {
		p, ok := data.Points[i]
		if !ok {
			continue
		}
		out.Set(label("cod", i), p.Code)
		out.Set(label("pto", i), p.Name)
		out.Set(label("irca_pto", i), FormatPercent(p.IRCA))
	}

	// Codes typed into TAGS by hand that the dataset did not map to a
	// point still get their IRCA value.
	for i := 1; i <= 4; i++ {
		code := irca.NormalizeCode(out.Value(label("cod", i)))
		if code == "" || data.HasCode(code) {
			continue
		}
		if pct, ok := ds.LookupCode(code); ok {
			out.Set(label("irca_pto", i), FormatPercent(pct))
		}
	}

	for i := 1; i <= 4; i++ {
		class := ""
		if v := out.Value(label("irca_pto", i)); v != "" {
			if pct, err := risk.ParsePercent(v); err == nil {
				class = risk.Classify(pct).Label
			}
		}
		out.Set(label("clasificacion_riesgo", i), class)
	}

	for _, l := range Order {
		if !out.Has(l) {
			out.Set(l, "")
		}
	}
	return out.Reorder(Order)
}

func label(prefix string, i int) string {
	return prefix + "_" + strconv.Itoa(i)
}

// FormatPercent renders an IRCA percentage rounded to two decimals
// without trailing zeros: 48, 12.5, 3.33.
func FormatPercent(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
