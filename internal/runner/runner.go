// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runner executes one workflow step and reports a structured
// result. Steps run in-process by default; Subprocess re-invokes the
// binary for callers that need a process boundary.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/jonboulle/clockwork"

	"github.com/pdiddy/irca-engine/internal/base"
	"github.com/pdiddy/irca-engine/internal/irca"
	"github.com/pdiddy/irca-engine/internal/photos"
	"github.com/pdiddy/irca-engine/internal/report"
	"github.com/pdiddy/irca-engine/internal/tags"
	"github.com/pdiddy/irca-engine/pkg/types"
)

// Runner executes a step for the given session. The returned error is
// reserved for failures to run the step at all; a step that ran and
// failed reports Success false in the result.
type Runner interface {
	Run(ctx context.Context, step types.Step, s types.Session) (types.StepResult, error)
}

// InProcess runs the stages by calling their packages directly.
type InProcess struct {
	Config types.Config

	// Out, when set, receives the status lines as they are printed.
	Out   io.Writer
	Clock clockwork.Clock
}

// NewInProcess returns an in-process runner over cfg.
func NewInProcess(cfg types.Config) *InProcess {
	return &InProcess{Config: cfg, Clock: clockwork.NewRealClock()}
}

// Run executes step and captures its status lines in the result.
func (p *InProcess) Run(ctx context.Context, step types.Step, s types.Session) (types.StepResult, error) {
	res := types.StepResult{Step: step}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	var buf bytes.Buffer
	var w io.Writer = &buf
	if p.Out != nil {
		w = io.MultiWriter(&buf, p.Out)
	}

	res.Started = clock.Now()
	var err error
	switch step {
	case types.StepBase:
		res.Batch, err = base.NewGenerator(p.Config).Generate(w)
	case types.StepTags:
		res.Batch, err = p.fillTags(s, w)
	case types.StepRender:
		res.Batch, err = p.render(w)
	case types.StepPhotos:
		res.Batch, err = p.verifyPhotos(w)
	default:
		return res, fmt.Errorf("unknown step %q", step)
	}
	res.Duration = clock.Since(res.Started)
	res.Output = buf.String()
	Conclude(&res, err)
	return res, nil
}

// Conclude sets Success and Message from the batch counts and the stage
// error. Gated steps succeed when at least one unit was processed; photo
// verification succeeds when no photo is missing.
func Conclude(res *types.StepResult, err error) {
	switch {
	case err != nil:
		res.Success = false
		res.Message = err.Error()
	case res.Step == types.StepPhotos:
		res.Success = res.Batch.Failed == 0
		res.Message = fmt.Sprintf("%d photos found, %d missing", res.Batch.Processed, res.Batch.Failed)
	default:
		res.Success = res.Batch.Processed > 0
		res.Message = res.Batch.Summary()
	}
}

func (p *InProcess) fillTags(s types.Session, w io.Writer) (types.BatchResult, error) {
	ds, err := irca.Load(p.Config.IRCAFile)
	if err != nil {
		return types.BatchResult{}, err
	}
	filtered, scope := ds.Filter(s.SelectedMonth, s.SelectedYear)
	fmt.Fprintf(w, "IRCA records: %d (%s)\n", filtered.Len(), scope)
	return tags.Fill(filtered, p.Config.DataDir, w)
}

func (p *InProcess) render(w io.Writer) (types.BatchResult, error) {
	m, err := photos.Load(p.Config.PhotosFile)
	if err != nil {
		return types.BatchResult{}, err
	}
	return report.Render(p.Config.DataDir, m, w)
}

func (p *InProcess) verifyPhotos(w io.Writer) (types.BatchResult, error) {
	m, err := photos.Load(p.Config.PhotosFile)
	if err != nil {
		return types.BatchResult{}, err
	}
	rep, err := photos.Verify(m, "", w)
	if err != nil {
		return types.BatchResult{}, err
	}
	return types.BatchResult{Processed: rep.Found, Failed: rep.Missing}, nil
}
