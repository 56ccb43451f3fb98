// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package health

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/irca-engine/pkg/types"
)

const header = "Ciudad;Codigo;Fecha;Mes;IRCA (%);Punto de Muestreo\n"

func setup(t *testing.T, csv string) types.Config {
	t.Helper()
	root := t.TempDir()
	cfg := types.DefaultConfig()
	cfg.DataDir = filepath.Join(root, "Datos")
	cfg.SourceDir = filepath.Join(root, "Resultados_por_Aeropuerto")
	cfg.TemplatesDir = filepath.Join(root, "Plantillas")
	cfg.IRCAFile = filepath.Join(cfg.DataDir, "IRCA(%).csv")
	for _, d := range []string{cfg.DataDir, cfg.SourceDir, cfg.TemplatesDir} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	require.NoError(t, os.WriteFile(cfg.IRCAFile, []byte(csv), 0o644))
	return cfg
}

func TestRunHealthy(t *testing.T) {
	cfg := setup(t, header+"Pasto;101;05/07/2025;Julio;12,5;PTO 1\n")
	r := Run(cfg)
	assert.True(t, r.Healthy)
	assert.Empty(t, r.Issues)
	assert.Equal(t, []string{"System working correctly"}, r.Recommendations)
	assert.Equal(t, "System healthy", r.Status())
}

func TestRunEmptyIRCA(t *testing.T) {
	cfg := setup(t, header)
	r := Run(cfg)
	assert.False(t, r.Healthy)
	assert.False(t, r.Checks[CheckData])
	assert.True(t, r.Checks[CheckPaths])
	assert.Contains(t, r.Issues, "IRCA file is empty")
	assert.Equal(t, []string{recommendations[CheckData]}, r.Recommendations)
}

func TestRunMissingPaths(t *testing.T) {
	cfg := setup(t, header+"Pasto;101;05/07/2025;Julio;12,5;PTO 1\n")
	require.NoError(t, os.RemoveAll(cfg.TemplatesDir))
	require.NoError(t, os.Remove(cfg.IRCAFile))

	r := Run(cfg)
	assert.False(t, r.Healthy)
	assert.False(t, r.Checks[CheckPaths])
	assert.False(t, r.Checks[CheckData])
	assert.True(t, r.Checks[CheckWrite])
	assert.Len(t, PathErrors(cfg), 2)
	assert.Len(t, r.Recommendations, 2)
	assert.Equal(t, "Problems detected", r.Status())
}

func TestRunUnreadableIRCA(t *testing.T) {
	cfg := setup(t, "Ciudad;Fecha\nPasto;01/07/2025\n")
	r := Run(cfg)
	assert.False(t, r.Checks[CheckData])
	require.Len(t, r.Issues, 1)
	assert.Contains(t, r.Issues[0], "missing columns")
}

func TestRunDataDirMissing(t *testing.T) {
	cfg := setup(t, header+"Pasto;101;05/07/2025;Julio;12,5;PTO 1\n")
	cfg.DataDir = filepath.Join(t.TempDir(), "nope")
	r := Run(cfg)
	assert.False(t, r.Checks[CheckWrite])
}
