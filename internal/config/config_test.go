package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridstitch/internal/match/cvmatch"
	"gridstitch/internal/registration"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 20.0, cfg.Margin)
	assert.Equal(t, 20.0, cfg.MaxDelta)
	assert.Equal(t, "sift", cfg.Matcher.Detector)
	assert.Equal(t, "bfgs", cfg.Optimizer.Method)
	assert.Equal(t, 2000, cfg.Optimizer.MaxIterations)
	assert.Equal(t, 4, cfg.Matcher.Workers)
	assert.NoError(t, cfg.Validate(false))
	assert.Error(t, cfg.Validate(true), "rows and cols have no default")
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
rows = 3
cols = 4
max_delta = 12.5

[matcher]
detector = "orb"
workers = 2

[optimizer]
method = "lbfgs"
runtime = "30s"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Rows)
	assert.Equal(t, 4, cfg.Cols)
	assert.Equal(t, 12.5, cfg.MaxDelta)
	assert.Equal(t, 20.0, cfg.Margin, "unset keys keep defaults")
	assert.Equal(t, "orb", cfg.Matcher.Detector)
	assert.Equal(t, 2, cfg.Matcher.Workers)
	assert.Equal(t, 3.0, cfg.Matcher.RansacThreshold)
	assert.Equal(t, 30*time.Second, cfg.Optimizer.Runtime.Duration)
	require.NoError(t, cfg.Validate(true))

	opts := cfg.SolverOptions()
	assert.Equal(t, registration.LBFGS, opts.Method)
	assert.Equal(t, 30*time.Second, opts.Runtime)

	mo := cfg.MatcherOptions()
	assert.Equal(t, cvmatch.ORB, mo.Detector)
	assert.Equal(t, int64(1), mo.Ransac.Seed)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err, "explicit path must exist")

	_, err = Load(writeFile(t, `rows = "three"`))
	assert.Error(t, err)

	_, err = Load(writeFile(t, `unknown_key = 1`))
	assert.ErrorContains(t, err, "unknown keys")

	_, err = Load(writeFile(t, "[optimizer]\nruntime = \"soon\"\n"))
	assert.Error(t, err)
}

func TestLoadDefaultPathMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Rows, cfg.Cols = 2, 2
	cfg.MaxDelta = -1
	cfg.Matcher.Detector = "surf"
	cfg.Optimizer.Method = "newton"

	err := cfg.Validate(true)
	require.Error(t, err)
	assert.ErrorContains(t, err, "max_delta")
	assert.ErrorContains(t, err, "surf")
	assert.ErrorContains(t, err, "newton")
}

func TestPreviewOptions(t *testing.T) {
	cfg := Default()
	cfg.Output.Labels = false
	p := cfg.PreviewOptions()
	assert.Equal(t, 1200, p.MaxSize)
	assert.True(t, p.TileBorders)
	assert.False(t, p.Labels)
}
