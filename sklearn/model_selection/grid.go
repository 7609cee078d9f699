package model_selection

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/YuminosukeSato/erkboost/core/model"
	"github.com/YuminosukeSato/erkboost/core/parallel"
	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/pkg/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// ParamGrid maps parameter names to the values to try.
type ParamGrid map[string][]interface{}

// Keys returns the parameter names in sorted order.
func (pg ParamGrid) Keys() []string {
	keys := make([]string, 0, len(pg))
	for k := range pg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of candidates in the Cartesian product.
func (pg ParamGrid) Len() int {
	if len(pg) == 0 {
		return 0
	}
	n := 1
	for _, v := range pg {
		n *= len(v)
	}
	return n
}

// Candidates enumerates the Cartesian product with keys in sorted order and
// the last key varying fastest, the order scikit-learn's ParameterGrid uses.
func (pg ParamGrid) Candidates() []map[string]interface{} {
	keys := pg.Keys()
	total := pg.Len()
	out := make([]map[string]interface{}, 0, total)
	idx := make([]int, len(keys))
	for c := 0; c < total; c++ {
		params := make(map[string]interface{}, len(keys))
		for k, key := range keys {
			params[key] = pg[key][idx[k]]
		}
		out = append(out, params)

		// 最後のキーから繰り上げる
		for k := len(keys) - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < len(pg[keys[k]]) {
				break
			}
			idx[k] = 0
		}
	}
	return out
}

// SearchResults is the per-candidate summary of a grid search.
type SearchResults struct {
	Params          []map[string]interface{}
	SplitTestScores [][]float64 // [candidate][fold]
	MeanTestScore   []float64
	StdTestScore    []float64 // 母標準偏差
	RankTestScore   []int     // 1が最良、同点は同順位
	MeanFitTime     []float64
}

// GridSearchCV evaluates every candidate of ParamGrid with cross-validation
// and keeps the one with the highest mean test score. Ties go to the
// candidate that comes first in enumeration order.
type GridSearchCV struct {
	Estimator model.Regressor
	ParamGrid ParamGrid
	CV        Splitter
	Scoring   string // 空なら推定器のScore
	NJobs     int
	Refit     bool
	Verbose   int

	CVResults     *SearchResults
	BestParams    map[string]interface{}
	BestScore     float64
	BestIndex     int
	BestEstimator model.Regressor
}

// GridOption configures a GridSearchCV.
type GridOption func(*GridSearchCV)

// WithCV sets the splitter.
func WithCV(cv Splitter) GridOption { return func(gs *GridSearchCV) { gs.CV = cv } }

// WithScoring sets the scorer name.
func WithScoring(name string) GridOption { return func(gs *GridSearchCV) { gs.Scoring = name } }

// WithNJobs bounds the number of concurrent fits.
func WithNJobs(n int) GridOption { return func(gs *GridSearchCV) { gs.NJobs = n } }

// WithRefit controls whether the best candidate is refitted on all data.
func WithRefit(refit bool) GridOption { return func(gs *GridSearchCV) { gs.Refit = refit } }

// WithVerbose enables progress logging.
func WithVerbose(v int) GridOption { return func(gs *GridSearchCV) { gs.Verbose = v } }

// NewGridSearchCV creates a search with 5-fold CV and refit enabled.
func NewGridSearchCV(est model.Regressor, grid ParamGrid, opts ...GridOption) *GridSearchCV {
	gs := &GridSearchCV{
		Estimator: est,
		ParamGrid: grid,
		CV:        NewKFold(5, false, 0),
		Refit:     true,
		BestIndex: -1,
	}
	for _, o := range opts {
		o(gs)
	}
	return gs
}

type task struct {
	candidate int
	fold      int
}

// Fit runs the search. Candidate and fold evaluations share one bounded
// worker pool; cancelling ctx stops outstanding fits.
func (gs *GridSearchCV) Fit(ctx context.Context, X, y mat.Matrix) error {
	if gs.Estimator == nil {
		return errors.NewValueError("GridSearchCV.Fit", "estimator is nil")
	}
	candidates := gs.ParamGrid.Candidates()
	if len(candidates) == 0 {
		return errors.NewValidationError("param_grid", "must contain at least one candidate", len(gs.ParamGrid))
	}
	for key, values := range gs.ParamGrid {
		if len(values) == 0 {
			return errors.NewValidationError(key, "grid values must not be empty", values)
		}
	}

	rows, _ := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("GridSearchCV.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("GridSearchCV.Fit", 1, yCols, 1)
	}
	folds, err := gs.CV.Split(rows)
	if err != nil {
		return err
	}
	scorers, err := resolveScorers(scoringList(gs.Scoring))
	if err != nil {
		return err
	}
	scorer := scorers[0]

	// パラメータの妥当性は学習前にまとめて確認する
	for _, params := range candidates {
		if err := gs.Estimator.Clone().SetParams(params); err != nil {
			return err
		}
	}

	logger := log.GetLoggerWithName("model_selection")
	if gs.Verbose > 0 {
		logger.Info("Fitting grid search",
			log.OperationKey, log.OperationGridSearch,
			"n_folds", len(folds),
			"n_candidates", len(candidates),
			"n_fits", len(folds)*len(candidates),
			log.JobsKey, parallel.Workers(gs.NJobs))
	}

	splitScores := make([][]float64, len(candidates))
	fitTimes := make([][]float64, len(candidates))
	for c := range candidates {
		splitScores[c] = make([]float64, len(folds))
		fitTimes[c] = make([]float64, len(folds))
	}

	// 各分割のデータは候補間で共有する（読み取りのみ）
	type split struct{ trainX, trainY, testX, testY *mat.Dense }
	splits := make([]split, len(folds))
	for f, fold := range folds {
		trX, trY := TakeRows(X, y, fold.TrainIndices)
		teX, teY := TakeRows(X, y, fold.TestIndices)
		splits[f] = split{trX, trY, teX, teY}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel.Workers(gs.NJobs))
	for c := range candidates {
		for f := range folds {
			t := task{candidate: c, fold: f}
			g.Go(func() error {
				return errors.SafeExecute("GridSearchCV", func() error {
					if err := gctx.Err(); err != nil {
						return err
					}
					est := gs.Estimator.Clone()
					if err := est.SetParams(candidates[t.candidate]); err != nil {
						return err
					}
					s := splits[t.fold]
					start := time.Now()
					if err := fit(gctx, est, s.trainX, s.trainY); err != nil {
						return errors.Wrapf(err, "candidate %d fold %d", t.candidate, t.fold)
					}
					fitTimes[t.candidate][t.fold] = time.Since(start).Seconds()
					v, err := scorer.score(est, s.testX, s.testY)
					if err != nil {
						return errors.Wrapf(err, "candidate %d fold %d", t.candidate, t.fold)
					}
					splitScores[t.candidate][t.fold] = v
					if gs.Verbose > 1 {
						logger.Debug("Candidate fold scored",
							log.CandidateKey, t.candidate,
							log.FoldKey, t.fold,
							log.ScoreKey, v)
					}
					return nil
				})
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	gs.CVResults = summarize(candidates, splitScores, fitTimes)
	gs.BestIndex = bestIndex(gs.CVResults.MeanTestScore)
	gs.BestScore = gs.CVResults.MeanTestScore[gs.BestIndex]
	gs.BestParams = candidates[gs.BestIndex]

	if gs.Verbose > 0 {
		logger.Info("Grid search completed",
			log.OperationKey, log.OperationGridSearch,
			log.CandidateKey, gs.BestIndex,
			log.ScoreKey, gs.BestScore,
			log.HyperParamsKey, gs.BestParams)
	}

	if gs.Refit {
		best := gs.Estimator.Clone()
		if err := best.SetParams(gs.BestParams); err != nil {
			return err
		}
		if err := fit(ctx, best, X, y); err != nil {
			return errors.Wrap(err, "refit")
		}
		gs.BestEstimator = best
	}
	return nil
}

func scoringList(name string) []string {
	if name == "" || name == DefaultScorer {
		return nil
	}
	return []string{name}
}

// bestIndex returns the first index holding the maximum; NaN never wins.
func bestIndex(means []float64) int {
	best := 0
	for i := 1; i < len(means); i++ {
		if means[i] > means[best] || (math.IsNaN(means[best]) && !math.IsNaN(means[i])) {
			best = i
		}
	}
	return best
}

func summarize(candidates []map[string]interface{}, scores, fitTimes [][]float64) *SearchResults {
	n := len(candidates)
	res := &SearchResults{
		Params:          candidates,
		SplitTestScores: scores,
		MeanTestScore:   make([]float64, n),
		StdTestScore:    make([]float64, n),
		RankTestScore:   make([]int, n),
		MeanFitTime:     make([]float64, n),
	}
	for c := range candidates {
		var sum, tsum float64
		for f, v := range scores[c] {
			sum += v
			tsum += fitTimes[c][f]
		}
		k := float64(len(scores[c]))
		mean := sum / k
		var ss float64
		for _, v := range scores[c] {
			ss += (v - mean) * (v - mean)
		}
		res.MeanTestScore[c] = mean
		res.StdTestScore[c] = math.Sqrt(ss / k)
		res.MeanFitTime[c] = tsum / k
	}
	for c, m := range res.MeanTestScore {
		rank := 1
		for _, other := range res.MeanTestScore {
			if other > m || (math.IsNaN(m) && !math.IsNaN(other)) {
				rank++
			}
		}
		res.RankTestScore[c] = rank
	}
	return res
}

// Predict delegates to the refitted best estimator.
func (gs *GridSearchCV) Predict(X mat.Matrix) (mat.Matrix, error) {
	if gs.BestEstimator == nil {
		return nil, errors.NewNotFittedError("GridSearchCV", "Predict")
	}
	return gs.BestEstimator.Predict(X)
}
