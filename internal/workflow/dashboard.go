// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/irca-engine/internal/archive"
	"github.com/pdiddy/irca-engine/internal/base"
	"github.com/pdiddy/irca-engine/internal/cities"
	"github.com/pdiddy/irca-engine/internal/irca"
	"github.com/pdiddy/irca-engine/internal/photos"
	"github.com/pdiddy/irca-engine/internal/report"
	"github.com/pdiddy/irca-engine/pkg/types"
)

// StepState describes one gated step for the front end.
type StepState struct {
	Step        types.Step `json:"step"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Running     bool       `json:"running"`
	CanExecute  bool       `json:"can_execute"`
	Reason      string     `json:"reason,omitempty"`
}

// Status is the overall state of the workflow.
type Status struct {
	Overall  string        `json:"overall"`
	Steps    []StepState   `json:"steps"`
	Next     types.Step    `json:"next,omitempty"`
	Complete bool          `json:"complete"`
	Session  types.Session `json:"session"`
	Month    string        `json:"month_display,omitempty"`
}

// Status returns the state of every gated step.
func (c *Controller) Status() Status {
	s, err := c.Session()
	if err != nil {
		c.logger.Warn("loading session", zap.Error(err))
	}
	st := Status{Session: s, Month: s.MonthDisplay(), Next: c.NextStep()}
	running := c.Running()
	for _, step := range types.Steps {
		ss := StepState{
			Step:        step,
			Title:       step.Title(),
			Description: step.Description(),
			Completed:   c.Completed(step),
			Running:     running == step,
		}
		if err := c.CanExecute(step); err != nil {
			ss.Reason = err.Error()
		} else {
			ss.CanExecute = true
		}
		st.Steps = append(st.Steps, ss)
	}
	st.Complete = st.Next == ""

	switch {
	case c.Completed(types.StepRender):
		st.Overall = "Completado"
	case c.Completed(types.StepTags):
		st.Overall = "En Paso 3"
	case c.Completed(types.StepBase):
		st.Overall = "En Paso 2"
	default:
		st.Overall = "Pendiente"
	}
	return st
}

// Dashboard holds the headline numbers of the dashboard page.
type Dashboard struct {
	TotalAirports int      `json:"total_aeropuertos"`
	Folders       int      `json:"carpetas_creadas"`
	PendingCities int      `json:"ciudades_pendientes"`
	Pending       []string `json:"ciudades_faltantes"`
	MeanIRCA      float64  `json:"irca_promedio"`
	Records       int      `json:"total_registros"`
	LastRun       string   `json:"ultimo_proceso"`
	ReportsReady  int      `json:"reportes_validos"`
}

// Dashboard computes the dashboard headline numbers. Pending cities are
// the configured airports without IRCA records for the selected month, or
// in the whole dataset when no month is selected.
func (c *Controller) Dashboard(ctx context.Context) Dashboard {
	d := Dashboard{TotalAirports: len(c.cfg.Airports), LastRun: "Nunca"}
	if folders, err := base.Folders(c.cfg.DataDir); err == nil {
		d.Folders = len(folders)
	}
	d.ReportsReady = report.Inspect(c.cfg.DataDir).Valid

	s, _ := c.Session()
	present := map[string]bool{}
	if ds, err := irca.Load(c.cfg.IRCAFile); err != nil {
		c.logger.Debug("dashboard without IRCA data", zap.Error(err))
	} else {
		var names []string
		if s.HasMonth() {
			names = ds.CitiesFor(s.SelectedMonth, s.SelectedYear)
			filtered, _ := ds.Filter(s.SelectedMonth, s.SelectedYear)
			sum := filtered.Summary()
			d.MeanIRCA, d.Records = sum.MeanIRCA, sum.Records
		} else {
			names = ds.Cities()
			sum := ds.Summary()
			d.MeanIRCA, d.Records = sum.MeanIRCA, sum.Records
		}
		for _, n := range names {
			present[cities.Fold(n)] = true
		}
	}
	for _, a := range c.cfg.Airports {
		if !present[cities.Fold(a)] {
			d.Pending = append(d.Pending, a)
		}
	}
	sort.Strings(d.Pending)
	d.PendingCities = len(d.Pending)

	if c.history != nil {
		if last, ok, err := c.history.Last(ctx); err == nil && ok {
			d.LastRun = last.Started.Local().Format("02/01/2006 15:04")
		}
	}
	return d
}

// Months lists the month/year pairs present in the IRCA dataset.
func (c *Controller) Months() ([]irca.MonthYear, error) {
	ds, err := irca.Load(c.cfg.IRCAFile)
	if err != nil {
		return nil, err
	}
	return ds.Months(), nil
}

// Reports inspects the generated reports of every city folder.
func (c *Controller) Reports() report.Summary {
	return report.Inspect(c.cfg.DataDir)
}

// CanPackage returns nil once all three steps are complete.
func (c *Controller) CanPackage() error {
	if next := c.NextStep(); next != "" {
		return fmt.Errorf("%w: complete %s first", ErrStepLocked, next.Title())
	}
	return nil
}

func (c *Controller) packager() *archive.Packager {
	return &archive.Packager{DataDir: c.cfg.DataDir, Clock: c.clock}
}

// PackageName returns the suggested file name of the package.
func (c *Controller) PackageName() string {
	s, _ := c.Session()
	return archive.DefaultFilename(s, c.clock.Now())
}

// Package streams the ZIP of valid reports to w.
func (c *Controller) Package(w io.Writer) (archive.Result, error) {
	if err := c.CanPackage(); err != nil {
		return archive.Result{}, err
	}
	s, err := c.Session()
	if err != nil {
		return archive.Result{}, err
	}
	res, err := c.packager().Write(w, s)
	if err == nil {
		c.logger.Info("reports packaged", zap.Int("reports", len(res.Entries)), zap.Int64("bytes", res.Bytes))
	}
	return res, err
}

// PackageFile writes the ZIP to path, or into the session output
// directory when path is empty.
func (c *Controller) PackageFile(path string) (archive.Result, error) {
	if err := c.CanPackage(); err != nil {
		return archive.Result{}, err
	}
	s, err := c.Session()
	if err != nil {
		return archive.Result{}, err
	}
	if path == "" {
		path = s.OutputDirectory
	}
	if path == "" {
		return archive.Result{}, fmt.Errorf("%w: none configured", ErrInvalidOutputDir)
	}
	res, err := c.packager().WriteFile(path, s)
	if err == nil {
		c.logger.Info("reports packaged", zap.String("file", res.Filename), zap.Int("reports", len(res.Entries)))
	}
	return res, err
}

// CheckPhotos checks the photo manifest for city, or all cities when
// city is empty, without recording anything.
func (c *Controller) CheckPhotos(city string, w io.Writer) (photos.Report, error) {
	m, err := photos.Load(c.cfg.PhotosFile)
	if err != nil {
		return photos.Report{}, err
	}
	return photos.Verify(m, city, w)
}

// VerifyPhotos runs CheckPhotos and records the verification in the
// history.
func (c *Controller) VerifyPhotos(ctx context.Context, city string, w io.Writer) (photos.Report, error) {
	start := c.clock.Now()
	rep, err := c.CheckPhotos(city, w)
	if err != nil {
		return rep, err
	}
	target := city
	if target == "" {
		target = "all cities"
	}
	c.record(ctx, types.StepResult{
		Step:     types.StepPhotos,
		Success:  rep.AllFound(),
		Message:  fmt.Sprintf("%s: %d found, %d missing", target, rep.Found, rep.Missing),
		Batch:    types.BatchResult{Processed: rep.Found, Failed: rep.Missing},
		Started:  start,
		Duration: c.clock.Since(start),
	}, "")
	return rep, nil
}

// Logs returns the most recent executions, newest first.
func (c *Controller) Logs(ctx context.Context, limit int) ([]LogEntry, error) {
	if c.history == nil {
		return nil, nil
	}
	execs, err := c.history.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]LogEntry, 0, len(execs))
	for _, e := range execs {
		out = append(out, LogEntry{
			Time:     e.Started,
			Action:   e.Step.Title(),
			Success:  e.Success,
			Details:  e.Message,
			Duration: e.Duration.Round(100 * time.Millisecond).String(),
			Month:    e.Month,
		})
	}
	return out, nil
}

// LogEntry is one row of the logs page.
type LogEntry struct {
	Time     time.Time `json:"timestamp"`
	Action   string    `json:"action"`
	Success  bool      `json:"success"`
	Details  string    `json:"details"`
	Duration string    `json:"duration"`
	Month    string    `json:"month,omitempty"`
}
