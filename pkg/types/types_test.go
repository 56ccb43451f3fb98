// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStep(t *testing.T) {
	tests := []struct {
		in   string
		want Step
	}{
		{"paso1", StepBase},
		{"base", StepBase},
		{"2", StepTags},
		{"render", StepRender},
		{"photos", StepPhotos},
		{"fotos", StepPhotos},
	}
	for _, tt := range tests {
		got, err := ParseStep(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseStep("paso4")
	assert.Error(t, err)
}

func TestStepCommand(t *testing.T) {
	for _, s := range Steps {
		got, err := ParseStep(s.Command())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	assert.Equal(t, "photos", StepPhotos.Command())
}

func TestBatchResult(t *testing.T) {
	var r BatchResult
	r.Count(OutcomeProcessed)
	r.Count(OutcomeProcessed)
	r.Count(OutcomeSkipped)
	r.Add(BatchResult{Failed: 1})

	assert.Equal(t, 4, r.Total())
	assert.True(t, r.HasFailures())
	assert.Equal(t, "Batch summary: 2 processed, 1 skipped, 1 failed (total: 4)", r.Summary())
}

func TestSession(t *testing.T) {
	assert.False(t, Session{SelectedMonth: "Julio"}.HasMonth())
	assert.Equal(t, "", Session{}.MonthDisplay())
	assert.Equal(t, "Julio 2025", Session{SelectedMonth: "Julio", SelectedYear: 2025}.MonthDisplay())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "Datos", cfg.DataDir)
	assert.Len(t, cfg.Airports, 12)
	assert.Equal(t, 10*time.Minute, cfg.StepTimeouts.For(StepTags))
	assert.Equal(t, time.Minute, cfg.StepTimeouts.For(StepPhotos))
	assert.Equal(t, DefaultPowerBIURL, cfg.Server.PowerBIURL)

	// DefaultConfig must hand out a fresh airport slice.
	cfg.Airports[0] = "X"
	assert.NotEqual(t, "X", DefaultConfig().Airports[0])
}
