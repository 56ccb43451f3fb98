// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package health checks that the configured directories and data files
// are usable before the workflow runs.
package health

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdiddy/irca-engine/internal/irca"
	"github.com/pdiddy/irca-engine/pkg/types"
)

// Check names.
const (
	CheckPaths = "paths"
	CheckData  = "data"
	CheckWrite = "write"
)

// Recommendations keyed by the check that failed.
var recommendations = map[string]string{
	CheckPaths: "Verify the directory settings in irca-engine.yaml",
	CheckData:  "Verify the IRCA(%) file in the data directory",
	CheckWrite: "Check the write permissions of the data directory",
}

// Report is the result of a health check.
type Report struct {
	Healthy         bool            `json:"healthy"`
	Checks          map[string]bool `json:"checks"`
	Issues          []string        `json:"issues"`
	Recommendations []string        `json:"recommendations"`
}

// Status is the one-line label shown on the dashboard.
func (r Report) Status() string {
	if r.Healthy {
		return "System healthy"
	}
	return "Problems detected"
}

// PathErrors returns one message per configured path that does not exist.
func PathErrors(cfg types.Config) []string {
	var errs []string
	for _, p := range []struct{ label, path string }{
		{"templates directory", cfg.TemplatesDir},
		{"IRCA file", cfg.IRCAFile},
		{"source directory", cfg.SourceDir},
	} {
		if _, err := os.Stat(p.path); err != nil {
			errs = append(errs, fmt.Sprintf("%s not found: %s", p.label, p.path))
		}
	}
	return errs
}

// Run performs every check against cfg.
func Run(cfg types.Config) Report {
	r := Report{Checks: map[string]bool{CheckPaths: true, CheckData: true, CheckWrite: true}}
	fail := func(check, issue string) {
		r.Checks[check] = false
		r.Issues = append(r.Issues, issue)
	}

	for _, e := range PathErrors(cfg) {
		fail(CheckPaths, e)
	}

	if _, err := os.Stat(cfg.IRCAFile); err != nil {
		fail(CheckData, "IRCA file not accessible")
	} else if ds, err := irca.Load(cfg.IRCAFile); err != nil {
		fail(CheckData, fmt.Sprintf("reading IRCA file: %v", err))
	} else if ds.Len() == 0 {
		fail(CheckData, "IRCA file is empty")
	}

	if err := writable(cfg.DataDir); err != nil {
		fail(CheckWrite, "no write permission on the data directory")
	}

	r.Healthy = true
	for check, ok := range r.Checks {
		if !ok {
			r.Healthy = false
			r.Recommendations = append(r.Recommendations, recommendations[check])
		}
	}
	sort.Strings(r.Recommendations)
	if r.Healthy {
		r.Recommendations = []string{"System working correctly"}
	}
	return r
}

func writable(dir string) error {
	probe := filepath.Join(dir, ".write_test")
	f, err := os.Create(probe)
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(probe)
}
