// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/pdiddy/irca-engine/pkg/types"
)

// utf8Env forces UTF-8 I/O in the child process.
var utf8Env = []string{"LANG=C.UTF-8", "LC_ALL=C.UTF-8"}

// executor abstracts command execution for testing.
type executor interface {
	// Run executes name with args and the extra environment, returning the
	// process exit code. err is set only when the process could not be
	// started or was killed.
	Run(ctx context.Context, name string, args, env []string, stdout, stderr io.Writer) (int, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) Run(ctx context.Context, name string, args, env []string, stdout, stderr io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}
	return 0, nil
}

// Subprocess runs each step as `<binary> <command> --json`.
type Subprocess struct {
	// Binary is the executable to invoke; it defaults to the running one.
	Binary string

	// ConfigFile, when set, is passed through with --config.
	ConfigFile string

	Timeouts types.StepTimeouts
	Logger   *zap.Logger
	Clock    clockwork.Clock

	exec executor
}

// NewSubprocess returns a subprocess runner re-invoking the current
// executable.
func NewSubprocess(cfg types.Config, configFile string, logger *zap.Logger) (*Subprocess, error) {
	bin, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating executable: %w", err)
	}
	return &Subprocess{
		Binary:     bin,
		ConfigFile: configFile,
		Timeouts:   cfg.StepTimeouts,
		Logger:     logger,
		Clock:      clockwork.NewRealClock(),
		exec:       &osExecutor{},
	}, nil
}

// Args returns the command line used for step.
func (r *Subprocess) Args(step types.Step, s types.Session) []string {
	args := []string{step.Command()}
	if step == types.StepPhotos {
		args = append(args, "verify")
	}
	args = append(args, "--json")
	if step == types.StepTags && s.HasMonth() {
		args = append(args, "--month", s.SelectedMonth, "--year", strconv.Itoa(s.SelectedYear))
	}
	if r.ConfigFile != "" {
		args = append(args, "--config", r.ConfigFile)
	}
	return args
}

// Run executes step in a child process bounded by the step timeout. The
// exit code decides success; the JSON line printed last supplies the
// batch counts and message.
func (r *Subprocess) Run(ctx context.Context, step types.Step, s types.Session) (types.StepResult, error) {
	res := types.StepResult{Step: step}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := r.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ex := r.exec
	if ex == nil {
		ex = &osExecutor{}
	}

	timeout := r.Timeouts.For(step)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := r.Args(step, s)
	logger.Debug("starting step subprocess",
		zap.String("step", string(step)), zap.Strings("args", args), zap.Duration("timeout", timeout))

	var stdout, stderr bytes.Buffer
	res.Started = clock.Now()
	code, err := ex.Run(ctx, r.Binary, args, utf8Env, &stdout, &stderr)
	res.Duration = clock.Since(res.Started)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.Message = fmt.Sprintf("step timed out after %s", timeout)
		res.Output = stdout.String()
		logger.Warn("step subprocess timed out", zap.String("step", string(step)), zap.Duration("timeout", timeout))
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("running %s: %w", step.Command(), err)
	}

	output, summary, found := splitSummary(stdout.String())
	res.Output = output
	if found {
		res.Batch = summary.Batch
		res.Message = summary.Message
	}
	res.Success = code == 0
	if !res.Success {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			res.Message = lastLine(msg)
		} else if res.Message == "" {
			res.Message = fmt.Sprintf("exit code %d", code)
		}
	}
	logger.Info("step subprocess finished",
		zap.String("step", string(step)), zap.Int("exit_code", code),
		zap.Bool("success", res.Success), zap.Duration("duration", res.Duration))
	return res, nil
}

// splitSummary separates the trailing JSON result line from the status
// output above it.
func splitSummary(out string) (string, types.StepResult, bool) {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var res types.StepResult
		if strings.HasPrefix(line, "{") && json.Unmarshal([]byte(line), &res) == nil {
			rest := strings.Join(lines[:i], "\n")
			if rest != "" {
				rest += "\n"
			}
			return rest, res, true
		}
		break
	}
	return out, types.StepResult{}, false
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
