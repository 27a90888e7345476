package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/mixsim/calibrate"
	"github.com/katalvlaran/mixsim/config"
)

const yamlDoc = `
k: 4
v: 3
average_overlap: 0.05
maximum_overlap: 0.15
spherical: true
min_proportion: 0.1
max_resamplings: 20
seed: 42
`

const tomlDoc = `
k = 4
v = 3
average_overlap = 0.05
maximum_overlap = 0.15
spherical = true
min_proportion = 0.1
max_resamplings = 20
seed = 42
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

// TestLoad_FormatsAgree: the YAML and TOML spellings of one document decode alike.
func TestLoad_FormatsAgree(t *testing.T) {
	t.Parallel()

	y, err := config.Load(writeFile(t, "run.yaml", yamlDoc))
	require.NoError(t, err)
	tm, err := config.Load(writeFile(t, "run.toml", tomlDoc))
	require.NoError(t, err)
	assert.Equal(t, y, tm)

	o := y.Options
	assert.Equal(t, 4, o.K)
	assert.Equal(t, 3, o.V)
	assert.Equal(t, 0.05, o.AverageOverlap)
	assert.Equal(t, 0.15, o.MaximumOverlap)
	assert.True(t, o.Spherical)
	assert.Equal(t, 0.1, o.MinProportion)
	assert.Equal(t, 20, o.MaxResamplings)
	assert.Equal(t, calibrate.DefaultTolerance, o.Tolerance)
	assert.Equal(t, uint64(42), y.Seed)
	assert.True(t, y.MaximumSet)
	require.NoError(t, o.Validate())
}

func TestDecode_AverageAloneDropsDefaultMaximum(t *testing.T) {
	t.Parallel()

	cfg, err := config.Decode(strings.NewReader("k: 3\nv: 2\naverage_overlap: 0.01\n"), config.YAML)
	require.NoError(t, err)
	assert.Equal(t, 0.01, cfg.Options.AverageOverlap)
	assert.Zero(t, cfg.Options.MaximumOverlap)
	assert.False(t, cfg.MaximumSet)

	cfg, err = config.Decode(strings.NewReader("k = 3\nv = 2\n"), config.TOML)
	require.NoError(t, err)
	assert.Equal(t, calibrate.DefaultMaximumOverlap, cfg.Options.MaximumOverlap)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	_, err := config.Load("run.json")
	assert.ErrorIs(t, err, config.ErrUnknownFormat)

	_, err = config.Decode(strings.NewReader("k: 3\nbogus: 1\n"), config.YAML)
	assert.Error(t, err)

	_, err = config.Decode(strings.NewReader("k = 3\nbogus = 1\n"), config.TOML)
	assert.Error(t, err)

	_, err = config.Decode(strings.NewReader("k: [\n"), config.YAML)
	assert.Error(t, err)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
