package pipeline

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/YuminosukeSato/erkboost/config"
	"github.com/YuminosukeSato/erkboost/dataset"
	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/pkg/log"
	"github.com/YuminosukeSato/erkboost/schema"
	"github.com/YuminosukeSato/erkboost/sklearn/model_selection"
)

// TuneResult is the outcome of a grid search on one dataset.
type TuneResult struct {
	Source     string
	BestScore  float64
	BestParams map[string]interface{}
	Search     *model_selection.GridSearchCV
}

// Tune runs an exhaustive grid search over cfg.Tune.Grid with k-fold CV and
// prints the best mean score and its parameters.
func Tune(ctx context.Context, cfg *config.Config, path string, w io.Writer) (*TuneResult, error) {
	logger := log.GetLoggerWithName("pipeline").With(log.PipelineKey, log.PipelineTune, log.SourceKey, path)
	start := time.Now()

	ds, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.SchemaCheck {
		if err := ds.ValidateSchema(schema.Default()); err != nil {
			return nil, err
		}
	}

	// グリッドにない値は推定器のデフォルトのまま
	base, err := NewEstimator(config.ModelConfig{
		NEstimators:     cfg.Tune.NEstimators,
		LearningRate:    0.1,
		MaxDepth:        3,
		Subsample:       1,
		MinSamplesLeaf:  1,
		MinSamplesSplit: 2,
	}, cfg.Seed, 1)
	if err != nil {
		return nil, err
	}

	grid := model_selection.ParamGrid(cfg.Tune.Grid)
	gs := model_selection.NewGridSearchCV(base, grid,
		model_selection.WithCV(model_selection.NewKFold(cfg.CVFolds, false, 0)),
		model_selection.WithScoring(cfg.Tune.Scoring),
		model_selection.WithNJobs(cfg.NJobs),
		model_selection.WithRefit(cfg.Tune.Refit),
		model_selection.WithVerbose(1),
	)
	logger.Info("grid search started",
		log.SamplesKey, ds.NSamples(),
		"candidates", grid.Len(),
		"fits", grid.Len()*cfg.CVFolds,
		log.JobsKey, cfg.NJobs)

	if err := gs.Fit(ctx, ds.X, ds.Y); err != nil {
		return nil, errors.Wrapf(err, "grid search %s", ds.Source)
	}

	res := &TuneResult{
		Source:     ds.Source,
		BestScore:  gs.BestScore,
		BestParams: gs.BestParams,
		Search:     gs,
	}
	if _, err := fmt.Fprintf(w, "Best Score:  %g Best Params:  %s\n", res.BestScore, FormatParams(res.BestParams)); err != nil {
		return nil, err
	}
	logger.Info("tune pipeline finished", log.DurationMsKey, time.Since(start).Milliseconds())
	return res, nil
}

// FormatParams renders params as {key: value, ...} with sorted keys.
func FormatParams(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("'%s': %v", k, params[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
