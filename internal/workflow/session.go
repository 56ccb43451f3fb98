// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/irca-engine/internal/risk"
	"github.com/pdiddy/irca-engine/pkg/types"
)

// SessionFile is the session file name inside the data directory.
const SessionFile = ".session_config.yaml"

func (c *Controller) sessionPath() string {
	return filepath.Join(c.cfg.DataDir, SessionFile)
}

// Session loads the persisted session. A missing file is an empty session.
func (c *Controller) Session() (types.Session, error) {
	var s types.Session
	data, err := os.ReadFile(c.sessionPath())
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("reading session: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing session: %w", err)
	}
	return s, nil
}

func (c *Controller) saveSession(s types.Session) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.MkdirAll(c.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(c.sessionPath(), data, 0o644); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// SelectMonth stores the reporting month. When any step was already
// completed the workflow is reset, and reset reports that it was.
func (c *Controller) SelectMonth(ctx context.Context, month string, year int) (reset bool, err error) {
	m := risk.MonthNumber(month)
	if m == 0 {
		return false, fmt.Errorf("unknown month %q", month)
	}
	if year < 1900 {
		return false, fmt.Errorf("invalid year %d", year)
	}
	s, err := c.Session()
	if err != nil {
		return false, err
	}
	name := risk.MonthName(m)
	s.SelectedMonth = strings.ToUpper(name[:1]) + name[1:]
	s.SelectedYear = year
	if err := c.saveSession(s); err != nil {
		return false, err
	}
	c.logger.Info("month selected", zap.String("month", s.MonthDisplay()))

	for _, step := range types.Steps {
		if c.Completed(step) {
			return true, c.Reset(ctx)
		}
	}
	return false, nil
}

// SetOutputDir stores the directory packages are written to. It must be
// an existing directory.
func (c *Controller) SetOutputDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInvalidOutputDir, dir)
	}
	s, err := c.Session()
	if err != nil {
		return err
	}
	s.OutputDirectory = dir
	return c.saveSession(s)
}
