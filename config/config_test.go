package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 7500, cfg.Model.NEstimators)
	assert.Equal(t, "log2", cfg.Model.MaxFeatures)
	assert.Equal(t, 0.5, cfg.Model.Subsample)
	assert.Equal(t, int64(19951212), cfg.Seed)
	assert.Equal(t, 5, cfg.CVFolds)
	assert.Equal(t, 5, cfg.Importance.NRepeats)
	assert.Equal(t, 5000, cfg.Tune.NEstimators)
	assert.True(t, cfg.SchemaCheck)

	n := 1
	for _, vals := range cfg.Tune.Grid {
		n *= len(vals)
	}
	assert.Equal(t, 1296, n)
	assert.Equal(t, []string{"learning_rate", "max_features", "min_samples_leaf", "subsample"}, cfg.GridKeys())
}

func TestParseOverlay(t *testing.T) {
	cfg, err := Parse([]byte(`
n_jobs: 4
model:
  n_estimators: 100
schema_check: false
`))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.NJobs)
	assert.Equal(t, 100, cfg.Model.NEstimators)
	// untouched fields keep their defaults
	assert.Equal(t, "log2", cfg.Model.MaxFeatures)
	assert.Equal(t, 0.5, cfg.Model.Subsample)
	assert.False(t, cfg.SchemaCheck)
	assert.Len(t, cfg.Tune.Grid, 4)
}

func TestParseGridReplaces(t *testing.T) {
	cfg, err := Parse([]byte(`
tune:
  grid:
    learning_rate: [0.1, 1]
    max_features: [log2, 5]
`))
	require.NoError(t, err)
	require.Len(t, cfg.Tune.Grid, 2)
	assert.Equal(t, []interface{}{0.1, 1}, cfg.Tune.Grid["learning_rate"])
	assert.Equal(t, []interface{}{"log2", 5}, cfg.Tune.Grid["max_features"])
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"syntax", "model: [1, 2"},
		{"folds", "cv_folds: 1"},
		{"subsample", "model: {subsample: 1.5}"},
		{"max features", "model: {max_features: cube}"},
		{"log level", "log_level: loud"},
		{"alpha", "significance: {alpha: 0}"},
		{"empty grid axis", "tune: {grid: {subsample: []}}"},
		{"repeats", "importance: {n_repeats: 0}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "erkboost.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plot_dir: charts\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "charts", cfg.PlotDir)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadSearchPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "erkboost.yaml"), []byte("seed: 7\n"), 0o600))

	orig := SearchPaths
	SearchPaths = []string{filepath.Join(dir, "erkboost.yaml"), filepath.Join(dir, "configs", "erkboost.yaml")}
	defer func() { SearchPaths = orig }()

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)

	SearchPaths = []string{filepath.Join(dir, "nope.yaml")}
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(19951212), cfg.Seed)
}
