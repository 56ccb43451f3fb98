//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Pipeline groups the report generation steps.
type Pipeline mg.Namespace

func irca(args ...string) error {
	mg.Deps(Build)
	return sh.RunV("./"+binDir+"/"+binName, args...)
}

// Base creates the per-city base workbooks (step 1).
func (Pipeline) Base() error { return irca("base") }

// Tags fills the TAGS sheet of every base workbook (step 2).
func (Pipeline) Tags() error { return irca("tags") }

// Render generates the Word reports (step 3).
func (Pipeline) Render() error { return irca("render") }

// Photos verifies the configured photo manifest.
func (Pipeline) Photos() error { return irca("photos", "verify") }

// All runs the remaining workflow steps for the selected month.
func (Pipeline) All() error { return irca("workflow", "run") }

// Serve starts the web front end.
func Serve() error { return irca("serve") }
