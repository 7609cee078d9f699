package model_selection

import (
	"context"
	"time"

	"github.com/YuminosukeSato/erkboost/core/model"
	"github.com/YuminosukeSato/erkboost/core/parallel"
	"github.com/YuminosukeSato/erkboost/metrics"
	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/pkg/log"
	"github.com/YuminosukeSato/erkboost/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// DefaultScorer は推定器自身のScore（R²）を使う場合の名前
const DefaultScorer = "score"

// contextFitter is implemented by estimators whose Fit can be cancelled.
type contextFitter interface {
	FitContext(ctx context.Context, X, y mat.Matrix) error
}

// CVOptions configures CrossValidate.
type CVOptions struct {
	// Scoring lists scorer names (see metrics.ScorerNames). Empty means the
	// estimator's own Score method.
	Scoring []string
	// NJobs bounds the number of folds fitted concurrently (<= 0: all cores).
	NJobs            int
	ReturnTrainScore bool
	ReturnEstimator  bool
}

// CVResult holds per-fold results keyed by scorer name.
type CVResult struct {
	TestScores  map[string][]float64
	TrainScores map[string][]float64
	FitTimes    []float64 // 秒
	ScoreTimes  []float64 // 秒
	Estimators  []model.Regressor
}

// Mean returns the mean test score for a scorer.
func (r *CVResult) Mean(scorer string) float64 {
	return stats.Mean(r.TestScores[scorer])
}

// SEM returns sqrt(1/k) * std(ddof=0) of the test scores for a scorer.
func (r *CVResult) SEM(scorer string) float64 {
	return stats.SEM(r.TestScores[scorer])
}

// foldScorer evaluates a fitted estimator on a subset.
type foldScorer struct {
	name  string
	score func(est model.Regressor, X, y mat.Matrix) (float64, error)
}

func resolveScorers(names []string) ([]foldScorer, error) {
	if len(names) == 0 {
		return []foldScorer{{
			name: DefaultScorer,
			score: func(est model.Regressor, X, y mat.Matrix) (float64, error) {
				return est.Score(X, y)
			},
		}}, nil
	}
	scorers, err := metrics.GetScorers(names...)
	if err != nil {
		return nil, err
	}
	out := make([]foldScorer, len(scorers))
	for i, s := range scorers {
		out[i] = foldScorer{
			name: s.Name,
			score: func(est model.Regressor, X, y mat.Matrix) (float64, error) {
				return s.Score(est, X, y)
			},
		}
	}
	return out, nil
}

// CrossValidate fits a clone of est on each training split of cv and scores
// it on the matching test split with every requested scorer. Folds run
// concurrently, each on its own clone, so results do not depend on NJobs.
func CrossValidate(ctx context.Context, est model.Regressor, X, y mat.Matrix, cv Splitter, opts CVOptions) (*CVResult, error) {
	rows, _ := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return nil, errors.NewDimensionError("CrossValidate", rows, yRows, 0)
	}
	if yCols != 1 {
		return nil, errors.NewDimensionError("CrossValidate", 1, yCols, 1)
	}
	if cv == nil {
		cv = NewKFold(5, false, 0)
	}
	scorers, err := resolveScorers(opts.Scoring)
	if err != nil {
		return nil, err
	}
	folds, err := cv.Split(rows)
	if err != nil {
		return nil, err
	}

	nFolds := len(folds)
	res := &CVResult{
		TestScores: make(map[string][]float64, len(scorers)),
		FitTimes:   make([]float64, nFolds),
		ScoreTimes: make([]float64, nFolds),
	}
	for _, s := range scorers {
		res.TestScores[s.name] = make([]float64, nFolds)
	}
	if opts.ReturnTrainScore {
		res.TrainScores = make(map[string][]float64, len(scorers))
		for _, s := range scorers {
			res.TrainScores[s.name] = make([]float64, nFolds)
		}
	}
	if opts.ReturnEstimator {
		res.Estimators = make([]model.Regressor, nFolds)
	}

	logger := log.GetLoggerWithName("model_selection")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel.Workers(opts.NJobs))

	for i, fold := range folds {
		g.Go(func() error {
			return errors.SafeExecute("CrossValidate", func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				trainX, trainY := TakeRows(X, y, fold.TrainIndices)
				testX, testY := TakeRows(X, y, fold.TestIndices)

				clone := est.Clone()
				start := time.Now()
				if err := fit(gctx, clone, trainX, trainY); err != nil {
					return errors.Wrapf(err, "fold %d", i)
				}
				res.FitTimes[i] = time.Since(start).Seconds()

				start = time.Now()
				for _, s := range scorers {
					v, err := s.score(clone, testX, testY)
					if err != nil {
						return errors.Wrapf(err, "fold %d: scorer %s", i, s.name)
					}
					res.TestScores[s.name][i] = v
					if opts.ReturnTrainScore {
						tv, err := s.score(clone, trainX, trainY)
						if err != nil {
							return errors.Wrapf(err, "fold %d: train scorer %s", i, s.name)
						}
						res.TrainScores[s.name][i] = tv
					}
				}
				res.ScoreTimes[i] = time.Since(start).Seconds()
				if opts.ReturnEstimator {
					res.Estimators[i] = clone
				}

				logger.Debug("Fold completed",
					log.OperationKey, log.OperationCrossValidate,
					log.FoldKey, i,
					log.ScorerKey, scorers[0].name,
					log.ScoreKey, res.TestScores[scorers[0].name][i])
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// CrossValScore is CrossValidate with a single scorer, returning its
// per-fold test scores.
func CrossValScore(ctx context.Context, est model.Regressor, X, y mat.Matrix, cv Splitter, scoring string, nJobs int) ([]float64, error) {
	opts := CVOptions{NJobs: nJobs}
	key := DefaultScorer
	if scoring != "" {
		opts.Scoring = []string{scoring}
		key = scoring
	}
	res, err := CrossValidate(ctx, est, X, y, cv, opts)
	if err != nil {
		return nil, err
	}
	return res.TestScores[key], nil
}

func fit(ctx context.Context, est model.Regressor, X, y mat.Matrix) error {
	if cf, ok := est.(contextFitter); ok {
		return cf.FitContext(ctx, X, y)
	}
	return est.Fit(X, y)
}

// TakeRows copies the given rows of X and y into new matrices, preserving
// the order of indices.
func TakeRows(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	_, xCols := X.Dims()
	_, yCols := y.Dims()
	xs := mat.NewDense(len(indices), xCols, nil)
	ys := mat.NewDense(len(indices), yCols, nil)
	for i, idx := range indices {
		for j := 0; j < xCols; j++ {
			xs.Set(i, j, X.At(idx, j))
		}
		for j := 0; j < yCols; j++ {
			ys.Set(i, j, y.At(idx, j))
		}
	}
	return xs, ys
}
