// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow gates the three report steps with completion markers
// in the data directory, persists the session selection and records
// every execution.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/pdiddy/irca-engine/internal/base"
	"github.com/pdiddy/irca-engine/internal/history"
	"github.com/pdiddy/irca-engine/internal/irca"
	"github.com/pdiddy/irca-engine/internal/metrics"
	"github.com/pdiddy/irca-engine/internal/report"
	"github.com/pdiddy/irca-engine/internal/runner"
	"github.com/pdiddy/irca-engine/pkg/types"
)

var (
	ErrStepLocked       = errors.New("step locked")
	ErrNoMonthSelected  = errors.New("no month selected")
	ErrUnknownStep      = errors.New("unknown step")
	ErrNoData           = errors.New("no IRCA data")
	ErrStepFailed       = errors.New("step failed")
	ErrBusy             = errors.New("another step is running")
	ErrInvalidOutputDir = errors.New("output directory does not exist")
)

// markers maps each gated step to its completion file in the data dir.
var markers = map[types.Step]string{
	types.StepBase:   ".paso1_completed",
	types.StepTags:   ".paso2_completed",
	types.StepRender: ".paso3_completed",
}

// MarkerName returns the completion file name of a gated step.
func MarkerName(step types.Step) (string, bool) {
	name, ok := markers[step]
	return name, ok
}

// Controller sequences the workflow over one data directory.
type Controller struct {
	cfg     types.Config
	runner  runner.Runner
	history *history.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
	clock   clockwork.Clock

	mu      sync.Mutex
	running types.Step
}

// Option configures a Controller.
type Option func(*Controller)

// WithRunner replaces the in-process runner.
func WithRunner(r runner.Runner) Option { return func(c *Controller) { c.runner = r } }

// WithHistory records executions in s.
func WithHistory(s *history.Store) Option { return func(c *Controller) { c.history = s } }

// WithMetrics observes executions in m.
func WithMetrics(m *metrics.Metrics) Option { return func(c *Controller) { c.metrics = m } }

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option { return func(c *Controller) { c.logger = l } }

// WithClock sets the clock used for package timestamps.
func WithClock(clock clockwork.Clock) Option { return func(c *Controller) { c.clock = clock } }

// New returns a controller over cfg. Without options steps run
// in-process, nothing is recorded and logging is discarded.
func New(cfg types.Config, opts ...Option) *Controller {
	c := &Controller{cfg: cfg, logger: zap.NewNop(), clock: clockwork.NewRealClock()}
	for _, o := range opts {
		o(c)
	}
	if c.runner == nil {
		c.runner = runner.NewInProcess(cfg)
	}
	return c
}

// Config returns the controller's configuration.
func (c *Controller) Config() types.Config { return c.cfg }

// History returns the execution store, or nil when none is configured.
func (c *Controller) History() *history.Store { return c.history }

func (c *Controller) markerPath(step types.Step) string {
	return filepath.Join(c.cfg.DataDir, markers[step])
}

// Completed reports whether the marker of step exists.
func (c *Controller) Completed(step types.Step) bool {
	if _, ok := markers[step]; !ok {
		return false
	}
	_, err := os.Stat(c.markerPath(step))
	return err == nil
}

func (c *Controller) mark(step types.Step, done bool) error {
	if _, ok := markers[step]; !ok {
		return nil
	}
	path := c.markerPath(step)
	if !done {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing marker: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(c.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return os.WriteFile(path, nil, 0o644)
}

// markResult writes the marker of a successful step. A failed step
// removes its own marker and those of every later step, since their
// outputs were built from what it produced.
func (c *Controller) markResult(step types.Step, success bool) error {
	if success {
		return c.mark(step, true)
	}
	after := false
	for _, s := range types.Steps {
		if s == step {
			after = true
		}
		if !after {
			continue
		}
		if err := c.mark(s, false); err != nil {
			return err
		}
	}
	return nil
}

// NextStep returns the first gated step without a marker, or "" when the
// workflow is complete.
func (c *Controller) NextStep() types.Step {
	for _, s := range types.Steps {
		if !c.Completed(s) {
			return s
		}
	}
	return ""
}

// CanExecute returns nil when step may run now. Every step needs a
// selected month; step 1 needs IRCA data for it and each later step
// needs the previous marker. Photo verification is never gated.
func (c *Controller) CanExecute(step types.Step) error {
	if step == types.StepPhotos {
		return nil
	}
	if _, ok := markers[step]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	s, err := c.Session()
	if err != nil {
		return err
	}
	if !s.HasMonth() {
		return ErrNoMonthSelected
	}
	for _, prev := range types.Steps {
		if prev == step {
			break
		}
		if !c.Completed(prev) {
			return fmt.Errorf("%w: complete %s first", ErrStepLocked, prev.Title())
		}
	}
	if step == types.StepBase {
		n, err := c.recordsFor(s)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNoData, err)
		}
		if n == 0 {
			return fmt.Errorf("%w for %s", ErrNoData, s.MonthDisplay())
		}
	}
	return nil
}

func (c *Controller) recordsFor(s types.Session) (int, error) {
	ds, err := irca.Load(c.cfg.IRCAFile)
	if err != nil {
		return 0, err
	}
	return ds.Exact(s.SelectedMonth, s.SelectedYear).Len(), nil
}

// Running returns the step in progress, or "".
func (c *Controller) Running() types.Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Controller) begin(step types.Step) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running != "" {
		return fmt.Errorf("%w: %s", ErrBusy, c.running)
	}
	c.running = step
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.running = ""
	c.mu.Unlock()
}

// Execute runs step when CanExecute allows it. A successful gated step
// writes its marker and a failed one removes it along with the markers
// of the steps after it. The result is recorded
// in the history and the metrics either way.
func (c *Controller) Execute(ctx context.Context, step types.Step) (types.StepResult, error) {
	if err := c.CanExecute(step); err != nil {
		return types.StepResult{Step: step}, err
	}
	if err := c.begin(step); err != nil {
		return types.StepResult{Step: step}, err
	}
	defer c.end()

	s, err := c.Session()
	if err != nil {
		return types.StepResult{Step: step}, err
	}
	c.logger.Info("executing step", zap.String("step", string(step)), zap.String("month", s.MonthDisplay()))

	res, err := c.runner.Run(ctx, step, s)
	if err != nil {
		res.Step = step
		res.Success = false
		res.Message = err.Error()
	}
	if merr := c.markResult(step, res.Success); merr != nil {
		c.logger.Error("updating marker", zap.String("step", string(step)), zap.Error(merr))
	}
	c.record(ctx, res, s.MonthDisplay())
	if step == types.StepRender {
		c.metrics.SetReportsReady(report.Inspect(c.cfg.DataDir).Valid)
	}

	fields := []zap.Field{
		zap.String("step", string(step)),
		zap.Bool("success", res.Success),
		zap.Int("processed", res.Batch.Processed),
		zap.Int("skipped", res.Batch.Skipped),
		zap.Int("failed", res.Batch.Failed),
		zap.Duration("duration", res.Duration),
	}
	if res.Success {
		c.logger.Info("step finished", fields...)
	} else {
		c.logger.Warn("step failed", append(fields, zap.String("message", res.Message))...)
	}
	return res, err
}

func (c *Controller) record(ctx context.Context, res types.StepResult, month string) {
	c.metrics.ObserveStep(res)
	if c.history == nil {
		return
	}
	if _, err := c.history.Record(ctx, res, month); err != nil {
		c.logger.Error("recording execution", zap.String("step", string(res.Step)), zap.Error(err))
	}
}

// RunAll executes every gated step not yet completed, in order, and
// stops at the first one that fails.
func (c *Controller) RunAll(ctx context.Context) ([]types.StepResult, error) {
	var results []types.StepResult
	for _, step := range types.Steps {
		if c.Completed(step) {
			continue
		}
		res, err := c.Execute(ctx, step)
		results = append(results, res)
		if err != nil {
			return results, err
		}
		if !res.Success {
			return results, fmt.Errorf("%w: %s: %s", ErrStepFailed, step.Title(), res.Message)
		}
	}
	return results, nil
}

// Reset removes every marker and clears the execution history.
func (c *Controller) Reset(ctx context.Context) error {
	for _, step := range types.Steps {
		if err := c.mark(step, false); err != nil {
			return err
		}
	}
	if c.history != nil {
		if err := c.history.Reset(ctx); err != nil {
			return err
		}
	}
	c.logger.Info("workflow reset")
	return nil
}

// ResetAll is Reset plus removal of the session file and of every city
// folder in the data directory.
func (c *Controller) ResetAll(ctx context.Context) error {
	if err := c.Reset(ctx); err != nil {
		return err
	}
	if err := os.Remove(c.sessionPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	folders, err := base.Folders(c.cfg.DataDir)
	if err != nil {
		return nil
	}
	for _, f := range folders {
		if err := os.RemoveAll(filepath.Join(c.cfg.DataDir, f)); err != nil {
			c.logger.Error("removing city folder", zap.String("city", f), zap.Error(err))
		}
	}
	c.logger.Info("workflow fully reset", zap.Int("folders_removed", len(folders)))
	return nil
}
