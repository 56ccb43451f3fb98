// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/irca-engine/internal/history"
	"github.com/pdiddy/irca-engine/internal/metrics"
	"github.com/pdiddy/irca-engine/pkg/types"
)

var t0 = time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)

const ircaCSV = "Ciudad;Codigo;Fecha;Mes;IRCA (%);Punto de Muestreo\n" +
	"Pasto;101;05/07/2025;Julio;12,5;PTO 1\n" +
	"Guapi;201;08/07/2025;Julio;40;PTO 1\n" +
	"Tumaco;301;03/06/2025;Junio;0;PTO 1\n"

// fakeRunner returns canned results and records which steps ran.
type fakeRunner struct {
	fail  map[types.Step]bool
	calls []types.Step
	seen  []types.Session
}

func (f *fakeRunner) Run(_ context.Context, step types.Step, s types.Session) (types.StepResult, error) {
	f.calls = append(f.calls, step)
	f.seen = append(f.seen, s)
	res := types.StepResult{Step: step, Started: t0, Duration: time.Second}
	if f.fail[step] {
		res.Message = "boom"
		res.Batch.Failed = 1
		return res, nil
	}
	res.Success = true
	res.Batch.Processed = 2
	res.Message = res.Batch.Summary()
	return res, nil
}

type fixture struct {
	c       *Controller
	cfg     types.Config
	runner  *fakeRunner
	store   *history.Store
	metrics *metrics.Metrics
}

func setup(t *testing.T, csv string) fixture {
	t.Helper()
	root := t.TempDir()
	cfg := types.DefaultConfig()
	cfg.DataDir = filepath.Join(root, "Datos")
	cfg.IRCAFile = filepath.Join(cfg.DataDir, "IRCA(%).csv")
	cfg.PhotosFile = filepath.Join(root, "fotos.yaml")
	cfg.Airports = []string{"Pasto", "Guapi", "Tumaco"}
	require.NoError(t, os.MkdirAll(cfg.DataDir, 0o755))
	require.NoError(t, os.WriteFile(cfg.IRCAFile, []byte(csv), 0o644))

	store, err := history.OpenWithClock(cfg.DataDir, clockwork.NewFakeClockAt(t0))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := fixture{cfg: cfg, runner: &fakeRunner{fail: map[types.Step]bool{}}, store: store, metrics: metrics.NewForTesting()}
	f.c = New(cfg,
		WithRunner(f.runner),
		WithHistory(store),
		WithMetrics(f.metrics),
		WithClock(clockwork.NewFakeClockAt(t0)),
	)
	return f
}

func selectJuly(t *testing.T, c *Controller) {
	t.Helper()
	_, err := c.SelectMonth(context.Background(), "julio", 2025)
	require.NoError(t, err)
}

func TestCanExecuteRequiresMonth(t *testing.T) {
	f := setup(t, ircaCSV)
	assert.ErrorIs(t, f.c.CanExecute(types.StepBase), ErrNoMonthSelected)
	assert.NoError(t, f.c.CanExecute(types.StepPhotos), "photo verification is not gated")
	assert.ErrorIs(t, f.c.CanExecute(types.Step("paso7")), ErrUnknownStep)
}

func TestCanExecuteGates(t *testing.T) {
	f := setup(t, ircaCSV)
	selectJuly(t, f.c)

	assert.NoError(t, f.c.CanExecute(types.StepBase))
	assert.ErrorIs(t, f.c.CanExecute(types.StepTags), ErrStepLocked)
	assert.ErrorIs(t, f.c.CanExecute(types.StepRender), ErrStepLocked)

	_, err := f.c.Execute(context.Background(), types.StepBase)
	require.NoError(t, err)
	assert.NoError(t, f.c.CanExecute(types.StepTags))
	assert.ErrorIs(t, f.c.CanExecute(types.StepRender), ErrStepLocked)
}

func TestCanExecuteWithoutData(t *testing.T) {
	f := setup(t, "Ciudad;Codigo;Fecha;Mes;IRCA (%);Punto de Muestreo\n")
	selectJuly(t, f.c)
	assert.ErrorIs(t, f.c.CanExecute(types.StepBase), ErrNoData)

	require.NoError(t, os.Remove(f.cfg.IRCAFile))
	assert.ErrorIs(t, f.c.CanExecute(types.StepBase), ErrNoData)
}

func TestCanExecuteMonthWithoutRecords(t *testing.T) {
	f := setup(t, ircaCSV)
	_, err := f.c.SelectMonth(context.Background(), "marzo", 2025)
	require.NoError(t, err)

	err = f.c.CanExecute(types.StepBase)
	assert.ErrorIs(t, err, ErrNoData, "other months having data does not unlock the selected one")
	assert.Contains(t, err.Error(), "Marzo 2025")

	_, err = f.c.SelectMonth(context.Background(), "julio", 2024)
	require.NoError(t, err)
	assert.ErrorIs(t, f.c.CanExecute(types.StepBase), ErrNoData, "the year must match too")
}

func TestExecuteMarksAndRecords(t *testing.T) {
	f := setup(t, ircaCSV)
	selectJuly(t, f.c)
	ctx := context.Background()

	res, err := f.c.Execute(ctx, types.StepBase)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, f.c.Completed(types.StepBase))
	assert.FileExists(t, filepath.Join(f.cfg.DataDir, ".paso1_completed"))
	assert.Equal(t, "Julio", f.runner.seen[0].SelectedMonth)

	f.runner.fail[types.StepBase] = true
	res, err = f.c.Execute(ctx, types.StepBase)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, f.c.Completed(types.StepBase), "a failed rerun removes the marker")

	logs, err := f.c.Logs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "Julio 2025", logs[0].Month)
	assert.Equal(t, types.StepBase.Title(), logs[0].Action)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StepRuns.WithLabelValues("paso1", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StepRuns.WithLabelValues("paso1", "failure")))
}

func TestFailedRerunClearsLaterMarkers(t *testing.T) {
	f := setup(t, ircaCSV)
	selectJuly(t, f.c)
	ctx := context.Background()

	_, err := f.c.RunAll(ctx)
	require.NoError(t, err)
	require.NoError(t, f.c.CanPackage())

	f.runner.fail[types.StepTags] = true
	res, err := f.c.Execute(ctx, types.StepTags)
	require.NoError(t, err)
	assert.False(t, res.Success)

	assert.True(t, f.c.Completed(types.StepBase), "earlier steps keep their marker")
	assert.False(t, f.c.Completed(types.StepTags))
	assert.False(t, f.c.Completed(types.StepRender))
	assert.NoFileExists(t, filepath.Join(f.cfg.DataDir, ".paso3_completed"))
	assert.ErrorIs(t, f.c.CanPackage(), ErrStepLocked)
	assert.Equal(t, types.StepTags, f.c.NextStep())
}

func TestExecuteLockedStepDoesNotRun(t *testing.T) {
	f := setup(t, ircaCSV)
	selectJuly(t, f.c)
	_, err := f.c.Execute(context.Background(), types.StepRender)
	assert.ErrorIs(t, err, ErrStepLocked)
	assert.Empty(t, f.runner.calls)
}

func TestRunAll(t *testing.T) {
	f := setup(t, ircaCSV)
	selectJuly(t, f.c)

	results, err := f.c.RunAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, types.Steps, f.runner.calls)
	assert.Equal(t, types.Step(""), f.c.NextStep())

	f.runner.calls = nil
	results, err = f.c.RunAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results, "completed steps are skipped")
	assert.Empty(t, f.runner.calls)
}

func TestRunAllStopsAtFirstFailure(t *testing.T) {
	f := setup(t, ircaCSV)
	selectJuly(t, f.c)
	f.runner.fail[types.StepTags] = true

	results, err := f.c.RunAll(context.Background())
	assert.ErrorIs(t, err, ErrStepFailed)
	assert.Len(t, results, 2)
	assert.Equal(t, []types.Step{types.StepBase, types.StepTags}, f.runner.calls)
	assert.Equal(t, types.StepTags, f.c.NextStep())
}

func TestSelectMonthResetsStartedFlow(t *testing.T) {
	f := setup(t, ircaCSV)
	ctx := context.Background()

	reset, err := f.c.SelectMonth(ctx, "7", 2025)
	require.NoError(t, err)
	assert.False(t, reset)

	_, err = f.c.Execute(ctx, types.StepBase)
	require.NoError(t, err)

	reset, err = f.c.SelectMonth(ctx, "Junio", 2025)
	require.NoError(t, err)
	assert.True(t, reset)
	assert.False(t, f.c.Completed(types.StepBase))

	s, err := f.c.Session()
	require.NoError(t, err)
	assert.Equal(t, "Junio", s.SelectedMonth)

	_, err = f.c.SelectMonth(ctx, "Smarch", 2025)
	assert.Error(t, err)
}

func TestSetOutputDir(t *testing.T) {
	f := setup(t, ircaCSV)
	assert.ErrorIs(t, f.c.SetOutputDir(filepath.Join(t.TempDir(), "missing")), ErrInvalidOutputDir)

	out := t.TempDir()
	require.NoError(t, f.c.SetOutputDir(out))
	selectJuly(t, f.c)
	s, err := f.c.Session()
	require.NoError(t, err)
	assert.Equal(t, out, s.OutputDirectory, "selecting a month keeps the output directory")
}

func TestResetAll(t *testing.T) {
	f := setup(t, ircaCSV)
	ctx := context.Background()
	selectJuly(t, f.c)
	_, err := f.c.Execute(ctx, types.StepBase)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(f.cfg.DataDir, "Pasto"), 0o755))

	require.NoError(t, f.c.ResetAll(ctx))
	assert.NoDirExists(t, filepath.Join(f.cfg.DataDir, "Pasto"))
	assert.NoFileExists(t, filepath.Join(f.cfg.DataDir, SessionFile))
	assert.FileExists(t, f.cfg.IRCAFile)
	assert.False(t, f.c.Completed(types.StepBase))

	logs, err := f.c.Logs(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestStatus(t *testing.T) {
	f := setup(t, ircaCSV)
	st := f.c.Status()
	assert.Equal(t, "Pendiente", st.Overall)
	require.Len(t, st.Steps, 3)
	assert.False(t, st.Steps[0].CanExecute)
	assert.NotEmpty(t, st.Steps[0].Reason)

	selectJuly(t, f.c)
	_, err := f.c.Execute(context.Background(), types.StepBase)
	require.NoError(t, err)

	st = f.c.Status()
	assert.Equal(t, "En Paso 2", st.Overall)
	assert.Equal(t, types.StepTags, st.Next)
	assert.True(t, st.Steps[0].Completed)
	assert.True(t, st.Steps[1].CanExecute)
	assert.Equal(t, "Julio 2025", st.Month)
}

func TestDashboard(t *testing.T) {
	f := setup(t, ircaCSV)
	ctx := context.Background()
	require.NoError(t, os.MkdirAll(filepath.Join(f.cfg.DataDir, "Pasto"), 0o755))

	d := f.c.Dashboard(ctx)
	assert.Equal(t, 3, d.TotalAirports)
	assert.Equal(t, 1, d.Folders)
	assert.Equal(t, 0, d.PendingCities, "every airport has data somewhere")
	assert.Equal(t, "Nunca", d.LastRun)

	selectJuly(t, f.c)
	_, err := f.c.Execute(ctx, types.StepBase)
	require.NoError(t, err)

	d = f.c.Dashboard(ctx)
	assert.Equal(t, []string{"Tumaco"}, d.Pending)
	assert.Equal(t, 1, d.PendingCities)
	assert.Equal(t, 2, d.Records, "a thin month falls back to its most recent year")
	assert.Equal(t, t0.Local().Format("02/01/2006 15:04"), d.LastRun)
}

func TestMonths(t *testing.T) {
	f := setup(t, ircaCSV)
	months, err := f.c.Months()
	require.NoError(t, err)
	require.Len(t, months, 2)
	assert.Equal(t, "Julio 2025", months[0].Display())
}

func TestPackage(t *testing.T) {
	f := setup(t, ircaCSV)
	ctx := context.Background()
	selectJuly(t, f.c)

	_, err := f.c.Package(&bytes.Buffer{})
	assert.ErrorIs(t, err, ErrStepLocked)

	_, err = f.c.RunAll(ctx)
	require.NoError(t, err)
	folder := filepath.Join(f.cfg.DataDir, "Pasto")
	require.NoError(t, os.MkdirAll(folder, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "reporte_Pasto.docx"), make([]byte, 4096), 0o644))

	var buf bytes.Buffer
	res, err := f.c.Package(&buf)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "Reporte_IRCA_Pasto_Julio_2025.docx", res.Entries[0].Name)
	assert.NotZero(t, buf.Len())
	assert.Equal(t, "Reportes_IRCA_Julio_2025.zip", f.c.PackageName())

	_, err = f.c.PackageFile("")
	assert.ErrorIs(t, err, ErrInvalidOutputDir)

	out := t.TempDir()
	require.NoError(t, f.c.SetOutputDir(out))
	res, err = f.c.PackageFile("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "Reportes_IRCA_Julio_2025.zip"), res.Filename)
}

func TestVerifyPhotosRecordsHistory(t *testing.T) {
	f := setup(t, ircaCSV)
	ctx := context.Background()
	dir := filepath.Dir(f.cfg.PhotosFile)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p1.jpg"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(f.cfg.PhotosFile, []byte("Pasto:\n  FOTO1: p1.jpg\n"), 0o644))

	var out bytes.Buffer
	rep, err := f.c.VerifyPhotos(ctx, "Pasto", &out)
	require.NoError(t, err)
	assert.True(t, rep.AllFound())

	logs, err := f.c.Logs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
	assert.Equal(t, "Pasto: 1 found, 0 missing", logs[0].Details)
}

func TestCheckPhotosDoesNotRecord(t *testing.T) {
	f := setup(t, ircaCSV)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(f.cfg.PhotosFile, []byte("Pasto:\n  FOTO1: missing.jpg\n"), 0o644))

	var out bytes.Buffer
	rep, err := f.c.CheckPhotos("Pasto", &out)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Missing)

	logs, err := f.c.Logs(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestExecutePhotosRecordsOnce(t *testing.T) {
	f := setup(t, ircaCSV)
	ctx := context.Background()

	res, err := f.c.Execute(ctx, types.StepPhotos)
	require.NoError(t, err)
	assert.True(t, res.Success)

	logs, err := f.c.Logs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, types.StepPhotos.Title(), logs[0].Action)
}
