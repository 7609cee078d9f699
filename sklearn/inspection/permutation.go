// Package inspection computes model-agnostic permutation importance.
package inspection

import (
	"math"

	"github.com/YuminosukeSato/erkboost/core/model"
	"github.com/YuminosukeSato/erkboost/core/parallel"
	"github.com/YuminosukeSato/erkboost/metrics"
	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/pkg/log"
	"github.com/YuminosukeSato/erkboost/sklearn/tree"
	"github.com/YuminosukeSato/erkboost/stats"
	"gonum.org/v1/gonum/mat"
)

// Options configures PermutationImportance.
type Options struct {
	NRepeats    int    // 各特徴量のシャッフル回数（デフォルト5）
	Scoring     string // スコアラー名（デフォルト"r2"）
	RandomState int64
	NJobs       int // 特徴量単位の並列数（0以下は全コア）
}

// Result holds the importance of each feature.
type Result struct {
	// Importances[f][r] is baseline score minus the score after the r-th
	// shuffle of feature f.
	Importances [][]float64
	Means       []float64
	Stds        []float64 // 母標準偏差（ddof=0）
	Baseline    float64
	Scoring     string
}

// SEMs returns sqrt(1/nRepeats) * Stds.
func (r *Result) SEMs() []float64 {
	out := make([]float64, len(r.Stds))
	for i, s := range r.Stds {
		out[i] = math.Sqrt(1/float64(len(r.Importances[i]))) * s
	}
	return out
}

// NRepeats returns the number of shuffles per feature.
func (r *Result) NRepeats() int {
	if len(r.Importances) == 0 {
		return 0
	}
	return len(r.Importances[0])
}

// PermutationImportance measures how much the score of a fitted estimator
// drops when one feature column is randomly shuffled.
//
// Each feature gets its own seed drawn up front from RandomState, so the
// result is the same for any NJobs.
func PermutationImportance(est model.Predictor, X, y mat.Matrix, opts Options) (*Result, error) {
	if opts.NRepeats == 0 {
		opts.NRepeats = 5
	}
	if opts.NRepeats < 1 {
		return nil, errors.NewValidationError("n_repeats", "must be >= 1", opts.NRepeats)
	}
	if opts.Scoring == "" {
		opts.Scoring = "r2"
	}
	if f, ok := est.(interface{ IsFitted() bool }); ok && !f.IsFitted() {
		return nil, errors.NewNotFittedError("PermutationImportance", "estimator")
	}
	scorer, err := metrics.GetScorer(opts.Scoring)
	if err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return nil, errors.NewDimensionError("PermutationImportance", rows, yRows, 0)
	}
	if yCols != 1 {
		return nil, errors.NewDimensionError("PermutationImportance", 1, yCols, 1)
	}
	if rows == 0 || cols == 0 {
		return nil, errors.ErrEmptyData
	}

	baseline, err := scorer.Score(est, X, y)
	if err != nil {
		return nil, errors.Wrap(err, "baseline score")
	}

	master := tree.NewRand(opts.RandomState)
	seeds := make([]int64, cols)
	for i := range seeds {
		seeds[i] = master.Int64()
	}

	res := &Result{
		Importances: make([][]float64, cols),
		Means:       make([]float64, cols),
		Stds:        make([]float64, cols),
		Baseline:    baseline,
		Scoring:     opts.Scoring,
	}
	errs := make([]error, cols)

	parallel.Parallelize(cols, opts.NJobs, func(start, end int) {
		// チャンクごとにXの複製を持ち、列を入れ替えては元に戻す
		work := mat.DenseCopyOf(X)
		original := make([]float64, rows)
		for f := start; f < end; f++ {
			errs[f] = errors.SafeExecute("PermutationImportance", func() error {
				mat.Col(original, f, work)
				rng := tree.NewRand(seeds[f])
				perm := make([]int, rows)
				for i := range perm {
					perm[i] = i
				}
				scores := make([]float64, opts.NRepeats)
				for r := 0; r < opts.NRepeats; r++ {
					rng.Shuffle(rows, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
					for i, p := range perm {
						work.Set(i, f, original[p])
					}
					s, err := scorer.Score(est, work, y)
					if err != nil {
						return errors.Wrapf(err, "feature %d repeat %d", f, r)
					}
					scores[r] = baseline - s
				}
				work.SetCol(f, original)

				res.Importances[f] = scores
				res.Means[f] = stats.Mean(scores)
				res.Stds[f] = stats.PopStd(scores)
				return nil
			})
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	log.GetLoggerWithName("inspection").Debug("Permutation importance computed",
		log.OperationKey, log.OperationPermutation,
		log.FeaturesKey, cols,
		log.ScorerKey, opts.Scoring,
		log.ScoreKey, baseline)
	return res, nil
}
