// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// Step identifies one stage of the gated report workflow.
type Step string

const (
	StepBase   Step = "paso1"
	StepTags   Step = "paso2"
	StepRender Step = "paso3"

	// StepPhotos is the optional photo verification. It is not gated and
	// has no completion marker.
	StepPhotos Step = "fotos"
)

// Steps lists the gated stages in execution order.
var Steps = []Step{StepBase, StepTags, StepRender}

// ParseStep accepts either the marker name (paso1) or the command name
// (base, tags, render, photos).
func ParseStep(s string) (Step, error) {
	switch s {
	case "paso1", "base", "1":
		return StepBase, nil
	case "paso2", "tags", "2":
		return StepTags, nil
	case "paso3", "render", "3":
		return StepRender, nil
	case "fotos", "photos":
		return StepPhotos, nil
	}
	return "", fmt.Errorf("unknown step %q", s)
}

// Command returns the CLI subcommand that runs the step.
func (s Step) Command() string {
	switch s {
	case StepBase:
		return "base"
	case StepTags:
		return "tags"
	case StepRender:
		return "render"
	default:
		return "photos"
	}
}

// Title returns the label shown in the front end.
func (s Step) Title() string {
	switch s {
	case StepBase:
		return "PASO 1: Generador Base"
	case StepTags:
		return "PASO 2: Procesamiento IRCA"
	case StepRender:
		return "PASO 3: Generación Reportes"
	default:
		return "Verificación de Fotos"
	}
}

// Description returns a one-line summary of what the step does.
func (s Step) Description() string {
	switch s {
	case StepBase:
		return "Crea estructura de carpetas y archivos base"
	case StepTags:
		return "Procesa datos IRCA y rellena hojas TAGS"
	case StepRender:
		return "Genera informes Word finales con fotos"
	default:
		return "Verifica la existencia de las fotos configuradas"
	}
}

// Outcome is what happened to one unit of a batch (one source workbook or
// one city folder).
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// BatchResult holds the outcome of one pass over the city folders.
type BatchResult struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Total returns the number of units the batch looked at.
func (r BatchResult) Total() int {
	return r.Processed + r.Skipped + r.Failed
}

// HasFailures reports whether any unit failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Count records one outcome.
func (r *BatchResult) Count(o Outcome) {
	switch o {
	case OutcomeProcessed:
		r.Processed++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
}

// Summary renders the closing line batch stages print.
func (r BatchResult) Summary() string {
	return fmt.Sprintf("Batch summary: %d processed, %d skipped, %d failed (total: %d)",
		r.Processed, r.Skipped, r.Failed, r.Total())
}

// Add accumulates another result into r.
func (r *BatchResult) Add(o BatchResult) {
	r.Processed += o.Processed
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

// StepResult is the structured outcome of executing a step, whether the
// step ran in-process or as a subprocess.
type StepResult struct {
	Step     Step          `json:"step"`
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	Batch    BatchResult   `json:"batch"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Output   string        `json:"output,omitempty"`
}
