// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Session is the per-run selection persisted between front end requests:
// the reporting month and year, and where packaged reports go.
type Session struct {
	// SelectedMonth is the Spanish month name as it appears in the Mes
	// column of the IRCA dataset (e.g. "Julio").
	SelectedMonth string `json:"selected_month,omitempty" yaml:"selected_month,omitempty"`

	// SelectedYear is the four-digit reporting year.
	SelectedYear int `json:"selected_year,omitempty" yaml:"selected_year,omitempty"`

	// OutputDirectory is an existing directory that receives ZIP packages.
	OutputDirectory string `json:"output_directory,omitempty" yaml:"output_directory,omitempty"`
}

// HasMonth reports whether both month and year are selected.
func (s Session) HasMonth() bool {
	return s.SelectedMonth != "" && s.SelectedYear != 0
}

// MonthDisplay returns "Julio 2025", or "" when no month is selected.
func (s Session) MonthDisplay() string {
	if !s.HasMonth() {
		return ""
	}
	return fmt.Sprintf("%s %d", s.SelectedMonth, s.SelectedYear)
}
