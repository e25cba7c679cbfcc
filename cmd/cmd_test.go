package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

const triangleOBJ = `
o tri
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

func run(t *testing.T, args ...string) (string, error) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--env-file", "", "--log-level", "error", "--quiet"))
	err := root.Execute()
	return out.String(), err
}

func newProject(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tri.obj"), []byte(triangleOBJ), 0o644))
	return dir
}

func TestFormats(t *testing.T) {
	out, err := run(t, "formats")
	require.NoError(t, err)
	assert.Contains(t, out, "RGBA8Unorm")
	assert.Contains(t, out, ".acube .cubemap")
	assert.Contains(t, out, "shader")
}

func TestInspect(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, "inspect", "--project", dir, "--workers", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "tri.obj")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "File cache:")
}

func TestInspectReportsFailures(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, "inspect", "--project", dir, "tri.obj", "missing.obj")
	assert.ErrorIs(t, err, core.ErrImportFailed)
	assert.Contains(t, out, "missing.obj")
	assert.Contains(t, out, "failed")
}

func TestPackMirrorsProject(t *testing.T) {
	dir := newProject(t)
	outDir := t.TempDir()

	out, err := run(t, "pack", "--project", dir, "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "tri.amodel")
	assert.FileExists(t, filepath.Join(outDir, "tri.amodel"))
	assert.NoFileExists(t, filepath.Join(dir, "tri.amodel"))
}

func TestPackNextToSources(t *testing.T) {
	dir := newProject(t)

	_, err := run(t, "pack", "--project", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "tri.amodel"))
}

func TestBadConfig(t *testing.T) {
	_, err := run(t, "inspect", "--config", filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = run(t, "inspect", "--project", t.TempDir(), "--workers", "-5")
	// negative worker counts mean "use the configuration"
	assert.NoError(t, err)
}
