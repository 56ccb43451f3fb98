// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cities maps airport names to the cities that own their reports,
// normalizes names for matching, and locates each city's Word template.
package cities

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// airportCity pairs an airport name with its city. Order matters: the
// first entry whose name overlaps the input wins.
type airportCity struct {
	airport string
	city    string
}

var airports = []airportCity{
	{"ERNESTO CORTISSOZ", "Barranquilla"},
	{"GUILLERMO LEÓN VALENCIA", "Popayan"},
	{"EL EDÉN", "Armenia"},
	{"HACARITAMA", "Aguachica"},
	{"GOLFO MORROSQUILLO", "Tolu"},
	{"GERARDO TOVAR LÓPEZ", "Buenaventura"},
	{"ANTONIO NARIÑO", "Pasto"},
	{"JUAN CASIANO SOLÍS", "Guapi"},
	{"SAN LUIS", "Ipiales"},
	{"EL EMBRUJO", "Providencia"},
	{"GUSTAVO ROJAS PINILLA", "San Andres"},
	{"LA FLORIDA", "Tumaco"},
	{"PASTO", "Pasto"},
	{"GOLFO DE MORROSQUILLO", "Tolu"},
}

// abbreviations maps a normalized city name to the code used in template
// file names.
var abbreviations = map[string]string{
	"AGUACHICA":    "AGCA",
	"ARMENIA":      "ARM",
	"BARRANQUILLA": "BAQ",
	"BUENAVENTURA": "BTURA",
	"GUAPI":        "GUAPI",
	"IPIALES":      "IPI",
	"PASTO":        "PASTO",
	"POPAYAN":      "POP",
	"TOLU":         "TOLU",
	"TUMACO":       "TUM",
	"SAN ANDRES":   "SAI",
	"PROVIDENCIA":  "PROV",
}

// Normalize upper-cases s, trims it, and strips combining marks so that
// "Popayán" and "POPAYAN" compare equal.
func Normalize(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lower-cases s and strips accents. It is the form used to match
// city names against the Ciudad column of the IRCA dataset.
func Fold(s string) string {
	return strings.ToLower(Normalize(s))
}

// AirportFromFilename extracts the airport name from a source workbook
// name such as "Base_Aeropuerto EL EDÉN.xlsx".
func AirportFromFilename(name string) string {
	r := strings.NewReplacer(
		"Base_Aeropuerto ", "",
		"base_aeropuerto ", "",
		".xlsx", "",
	)
	return strings.TrimSpace(r.Replace(name))
}

// AirportToCity returns the city for airport. When no dictionary entry
// overlaps the name it returns airport itself and false.
func AirportToCity(airport string) (string, bool) {
	n := Normalize(airport)
	if n == "" {
		return airport, false
	}
	for _, e := range airports {
		key := Normalize(e.airport)
		if strings.Contains(n, key) || strings.Contains(key, n) {
			return e.city, true
		}
	}
	return airport, false
}

// Abbreviation returns the template code for city, or "" if unknown.
func Abbreviation(city string) string {
	return abbreviations[Normalize(city)]
}

// TemplateName returns the canonical template file name for city.
func TemplateName(city string, year int) string {
	abbr := Abbreviation(city)
	if abbr == "" {
		return ""
	}
	return fmt.Sprintf("Plantilla_AP_%s_%d.docx", abbr, year)
}

// FindTemplate locates the Word template for city in dir. It tries the
// canonical name first, then any .docx whose normalized name contains the
// city or one of its words, then the closest name by edit distance.
// It returns "" with a nil error when nothing matches.
func FindTemplate(city, dir string, year int) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading templates directory %s: %w", dir, err)
	}

	if name := TemplateName(city, year); name != "" {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	c := Normalize(city)
	words := strings.Fields(c)

	var candidates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") || !strings.HasSuffix(strings.ToLower(name), ".docx") {
			continue
		}
		candidates = append(candidates, name)

		n := Normalize(name)
		if strings.Contains(n, c) {
			return filepath.Join(dir, name), nil
		}
		for _, w := range words {
			if strings.Contains(n, w) {
				return filepath.Join(dir, name), nil
			}
		}
	}

	if best := closest(c, candidates); best != "" {
		return filepath.Join(dir, best), nil
	}
	return "", nil
}

// closest returns the candidate with a name token nearest to city, when
// that distance is small relative to the city name's length.
func closest(city string, candidates []string) string {
	compact := strings.ReplaceAll(city, " ", "")
	limit := len(compact) / 4
	if limit < 1 {
		limit = 1
	}

	best, bestDist := "", limit+1
	for _, name := range candidates {
		stem := strings.TrimSuffix(Normalize(name), ".DOCX")
		for _, tok := range strings.FieldsFunc(stem, func(r rune) bool {
			return r == '_' || r == '-' || r == ' ' || r == '.'
		}) {
			if d := levenshtein.ComputeDistance(compact, tok); d < bestDist {
				best, bestDist = name, d
			}
		}
	}
	return best
}
