// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package photos

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fotos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
Pasto:
  FOTO1: fotos/p1.jpg
  FOTO2: /abs/p2.jpg
Popayan:
  FOTO1: ""
`), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "fotos", "p1.jpg"), m["Pasto"]["FOTO1"])
	assert.Equal(t, "/abs/p2.jpg", m["Pasto"]["FOTO2"])
	assert.Equal(t, []string{"Pasto", "Popayan"}, m.Cities())
	assert.NotNil(t, m.For("POPAYÁN"))
	assert.Nil(t, m.For("Guapi"))
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "fotos.yaml"))
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fotos.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fotos.yaml")
	m := Manifest{"Tolu": {"FOTO1": "/x/1.jpg"}}
	require.NoError(t, m.Save(path))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "p1.jpg")
	require.NoError(t, os.WriteFile(present, make([]byte, 2048), 0o644))

	m := Manifest{
		"Pasto":   {"FOTO1": present, "FOTO2": filepath.Join(dir, "p2.jpg")},
		"Armenia": {"FOTO1": present},
	}

	var buf bytes.Buffer
	rep, err := Verify(m, "", &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Found)
	assert.Equal(t, 1, rep.Missing)
	assert.Equal(t, []string{"Pasto"}, rep.ProblemCities)
	assert.InDelta(t, 66.7, rep.SuccessRate(), 0.1)
	assert.False(t, rep.AllFound())

	out := buf.String()
	assert.Contains(t, out, "found:   Armenia FOTO1 (2.0 kB)")
	assert.Contains(t, out, "missing: Pasto FOTO2")
	assert.Contains(t, out, "Photo summary: 2 found, 1 missing (total: 3, 66.7%)")
	assert.Contains(t, out, "Cities with missing photos: Pasto")
}

func TestVerifyOneCity(t *testing.T) {
	m := Manifest{"Pasto": {"FOTO1": "/nope.jpg"}, "Tolu": {}}

	rep, err := Verify(m, "pasto", &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Missing)

	rep, err = Verify(m, "Tolu", &bytes.Buffer{})
	require.NoError(t, err)
	assert.Zero(t, rep.Total())
	assert.Zero(t, rep.SuccessRate())

	_, err = Verify(m, "Guapi", &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrUnknownCity)
}
