// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package risk classifies IRCA percentages into the five sanitary risk
// bands and produces the Spanish calendar text used in reports.
package risk

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/irca-engine/internal/cities"
)

// Level is a risk band: a numeric class (1-5, 0 for invalid) and its label.
type Level struct {
	Class int    `json:"clasificacion"`
	Label string `json:"nivel"`
}

// Band labels.
const (
	LabelInvalid  = "Valor Inválido"
	LabelNone     = "Sin Riesgo"
	LabelLow      = "Bajo"
	LabelMedium   = "Medio"
	LabelHigh     = "Alto"
	LabelUnviable = "Inviable Sanitariamente"
)

// Classify maps an IRCA percentage to its band. Upper bounds are
// inclusive: 5 is Sin Riesgo, 5.01 is Bajo. Values outside [0,100] are
// invalid.
func Classify(pct float64) Level {
	switch {
	case pct < 0 || pct > 100:
		return Level{0, LabelInvalid}
	case pct <= 5:
		return Level{1, LabelNone}
	case pct <= 14:
		return Level{2, LabelLow}
	case pct <= 35:
		return Level{3, LabelMedium}
	case pct <= 80:
		return Level{4, LabelHigh}
	default:
		return Level{5, LabelUnviable}
	}
}

// ToPercent converts a raw IRCA reading to a percentage. Readings in
// [0,1] are fractions (0.48 means 48%).
func ToPercent(v float64) float64 {
	if v >= 0 && v <= 1 {
		return v * 100
	}
	return v
}

// ParsePercent parses readings such as "12,5%", "12.5" or " 0,48 ".
func ParsePercent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, fmt.Errorf("empty IRCA value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing IRCA value %q: %w", s, err)
	}
	return v, nil
}

var months = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// MonthName returns the lower-case Spanish name of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return months[m-1]
}

// MonthNumber parses a Spanish month name ("Julio", "julio") or a number
// ("7", "07"). It returns 0 when s is neither.
func MonthNumber(s string) time.Month {
	s = cities.Fold(s)
	for i, name := range months {
		if s == name {
			return time.Month(i + 1)
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
		return time.Month(n)
	}
	return 0
}

// SampleDateText renders t as "5 de julio de 2025".
func SampleDateText(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), MonthName(t.Month()), t.Year())
}

// PeriodText renders the reporting period for month (name or number) and
// year: "1 de julio al 31 de julio de 2025". When either cannot be
// parsed the month is echoed and the period is taken as 30 days.
func PeriodText(month, year string) string {
	name := month
	lastDay := 30
	m := MonthNumber(month)
	if m != 0 {
		name = MonthName(m)
		if y, err := strconv.Atoi(strings.TrimSpace(year)); err == nil {
			lastDay = daysIn(m, y)
		}
	}
	return fmt.Sprintf("1 de %s al %d de %s de %s", name, lastDay, name, year)
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ReportNumber computes the consecutive report number (nro) for city in
// month. June is the base: 10 for Barranquilla, 25 elsewhere; each month
// away from June adds or subtracts one. An unknown month counts as June.
func ReportNumber(city, month string) int {
	m := MonthNumber(month)
	if m == 0 {
		m = time.June
	}
	base := 25
	if strings.Contains(cities.Fold(city), "barranquilla") {
		base = 10
	}
	return base + int(m) - int(time.June)
}
