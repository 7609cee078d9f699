// Package config loads erkboost settings from YAML. Every value has a
// default; a config file only needs to name what it changes.
package config

import (
	"os"
	"sort"

	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/pkg/log"
	"github.com/YuminosukeSato/erkboost/sklearn/tree"
	"gopkg.in/yaml.v3"
)

// SearchPaths are tried in order when no config path is given.
var SearchPaths = []string{"erkboost.yaml", "configs/erkboost.yaml"}

// Config is the top-level configuration.
type Config struct {
	LogLevel    string   `yaml:"log_level"`
	NJobs       int      `yaml:"n_jobs"` // 0以下は全コア
	CVFolds     int      `yaml:"cv_folds"`
	Seed        int64    `yaml:"seed"`
	Datasets    []string `yaml:"datasets"`
	PlotDir     string   `yaml:"plot_dir"`
	SchemaCheck bool     `yaml:"schema_check"`

	Model        ModelConfig        `yaml:"model"`
	Importance   ImportanceConfig   `yaml:"importance"`
	Tune         TuneConfig         `yaml:"tune"`
	Significance SignificanceConfig `yaml:"significance"`
}

// ModelConfig holds the gradient boosting hyperparameters used by fit.
type ModelConfig struct {
	NEstimators     int     `yaml:"n_estimators"`
	LearningRate    float64 `yaml:"learning_rate"`
	MaxDepth        int     `yaml:"max_depth"`
	MaxFeatures     string  `yaml:"max_features"`
	Subsample       float64 `yaml:"subsample"`
	MinSamplesLeaf  int     `yaml:"min_samples_leaf"`
	MinSamplesSplit int     `yaml:"min_samples_split"`
	SavePath        string  `yaml:"save_path"`
}

// ImportanceConfig controls permutation importance.
type ImportanceConfig struct {
	NRepeats int    `yaml:"n_repeats"`
	Scoring  string `yaml:"scoring"`
}

// TuneConfig controls the hyperparameter grid search.
type TuneConfig struct {
	NEstimators int                      `yaml:"n_estimators"`
	Grid        map[string][]interface{} `yaml:"grid"`
	Refit       bool                     `yaml:"refit"`
	Scoring     string                   `yaml:"scoring"` // 空なら推定器のR²
}

// SignificanceConfig controls the significance pipeline.
type SignificanceConfig struct {
	DF       float64  `yaml:"df"`
	Alpha    float64  `yaml:"alpha"`
	Fixtures []string `yaml:"fixtures"` // 空なら埋め込みの全条件
	Markers  bool     `yaml:"markers"`
}

// DefaultGrid is the 6x6x6x6 search space of the original tuning run.
func DefaultGrid() map[string][]interface{} {
	return map[string][]interface{}{
		"learning_rate":    {0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		"max_features":     {5, 10, 15, 30, 40, 48},
		"subsample":        {0.2, 0.3, 0.4, 0.5, 0.6, 0.7},
		"min_samples_leaf": {1, 5, 10, 50, 100, 500},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		CVFolds:     5,
		Seed:        19951212,
		Datasets:    []string{"ERK_times_CD28_low.xlsx"},
		SchemaCheck: true,
		Model: ModelConfig{
			NEstimators:     7500,
			LearningRate:    0.1,
			MaxDepth:        3,
			MaxFeatures:     "log2",
			Subsample:       0.5,
			MinSamplesLeaf:  1,
			MinSamplesSplit: 2,
		},
		Importance: ImportanceConfig{
			NRepeats: 5,
			Scoring:  "r2",
		},
		Tune: TuneConfig{
			NEstimators: 5000,
			Grid:        DefaultGrid(),
			Refit:       true,
		},
		Significance: SignificanceConfig{
			DF:    4,
			Alpha: 0.01,
		},
	}
}

// Load reads path over the defaults. With an empty path the SearchPaths are
// tried; when none exists the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	logger := log.GetLoggerWithName("config")

	if path == "" {
		for _, p := range SearchPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
		if path == "" {
			logger.Debug("no config file found, using defaults")
			cfg := Default()
			return cfg, cfg.Validate()
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	logger.Info("config loaded", log.SourceKey, path)
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. A grid
// given in the document replaces the default grid entirely.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Tune.Grid = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if cfg.Tune.Grid == nil {
		cfg.Tune.Grid = DefaultGrid()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.CVFolds < 2 {
		return errors.NewValidationError("cv_folds", "must be >= 2", c.CVFolds)
	}
	m := c.Model
	if m.NEstimators < 1 {
		return errors.NewValidationError("model.n_estimators", "must be >= 1", m.NEstimators)
	}
	if m.LearningRate <= 0 {
		return errors.NewValidationError("model.learning_rate", "must be > 0", m.LearningRate)
	}
	if m.Subsample <= 0 || m.Subsample > 1 {
		return errors.NewValidationError("model.subsample", "must be in (0, 1]", m.Subsample)
	}
	if m.MinSamplesLeaf < 1 {
		return errors.NewValidationError("model.min_samples_leaf", "must be >= 1", m.MinSamplesLeaf)
	}
	if m.MinSamplesSplit < 2 {
		return errors.NewValidationError("model.min_samples_split", "must be >= 2", m.MinSamplesSplit)
	}
	if _, err := tree.ParseMaxFeatures(m.MaxFeatures); err != nil {
		return err
	}
	if c.Importance.NRepeats < 1 {
		return errors.NewValidationError("importance.n_repeats", "must be >= 1", c.Importance.NRepeats)
	}
	if c.Tune.NEstimators < 1 {
		return errors.NewValidationError("tune.n_estimators", "must be >= 1", c.Tune.NEstimators)
	}
	for _, k := range c.GridKeys() {
		if len(c.Tune.Grid[k]) == 0 {
			return errors.NewValidationError("tune.grid."+k, "must list at least one value", nil)
		}
	}
	if c.Significance.DF <= 0 {
		return errors.NewValidationError("significance.df", "must be > 0", c.Significance.DF)
	}
	if c.Significance.Alpha <= 0 || c.Significance.Alpha >= 1 {
		return errors.NewValidationError("significance.alpha", "must be in (0, 1)", c.Significance.Alpha)
	}
	return nil
}

// GridKeys returns the grid parameter names in sorted order.
func (c *Config) GridKeys() []string {
	keys := make([]string, 0, len(c.Tune.Grid))
	for k := range c.Tune.Grid {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
