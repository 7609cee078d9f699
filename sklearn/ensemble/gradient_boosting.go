// Package ensemble implements gradient boosted regression trees with the
// scikit-learn GradientBoostingRegressor parameterisation.
package ensemble

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/erkboost/core/model"
	"github.com/YuminosukeSato/erkboost/core/parallel"
	"github.com/YuminosukeSato/erkboost/metrics"
	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/pkg/log"
	"github.com/YuminosukeSato/erkboost/sklearn/tree"
	"gonum.org/v1/gonum/mat"
)

// predictParallelThreshold 以下の行数では予測を逐次実行する
const predictParallelThreshold = 256

// GradientBoostingRegressor fits an additive model of regression trees to
// the squared-error loss. Each stage fits a tree to the current residuals on
// a random row subsample and adds it, shrunk by LearningRate.
type GradientBoostingRegressor struct {
	model.BaseEstimator

	// Hyperparameters (matching scikit-learn)
	Loss                string
	LearningRate        float64
	NEstimators         int
	Subsample           float64
	Criterion           string
	MinSamplesSplit     int
	MinSamplesLeaf      int
	MinImpurityDecrease float64
	MaxDepth            int
	MaxFeatures         tree.MaxFeatures
	RandomState         int64
	NJobs               int // 予測時の並列数（0以下は全コア）
	Verbose             int // >0 で進捗をDEBUGログに出す間隔

	// Fitted state
	init       float64
	estimators []*tree.DecisionTreeRegressor
	nFeatures  int
	trainScore []float64
}

// Option configures a GradientBoostingRegressor.
type Option func(*GradientBoostingRegressor)

// WithLearningRate sets the shrinkage applied to each tree.
func WithLearningRate(lr float64) Option {
	return func(g *GradientBoostingRegressor) { g.LearningRate = lr }
}

// WithNEstimators sets the number of boosting stages.
func WithNEstimators(n int) Option {
	return func(g *GradientBoostingRegressor) { g.NEstimators = n }
}

// WithSubsample sets the fraction of rows drawn (without replacement) per stage.
func WithSubsample(s float64) Option {
	return func(g *GradientBoostingRegressor) { g.Subsample = s }
}

// WithMaxDepth sets the depth of each tree.
func WithMaxDepth(d int) Option {
	return func(g *GradientBoostingRegressor) { g.MaxDepth = d }
}

// WithMaxFeatures sets the features considered per split.
func WithMaxFeatures(m tree.MaxFeatures) Option {
	return func(g *GradientBoostingRegressor) { g.MaxFeatures = m }
}

// WithMinSamplesLeaf sets the minimum samples per leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(g *GradientBoostingRegressor) { g.MinSamplesLeaf = n }
}

// WithMinSamplesSplit sets the minimum samples needed to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(g *GradientBoostingRegressor) { g.MinSamplesSplit = n }
}

// WithRandomState seeds row subsampling and feature sampling.
func WithRandomState(seed int64) Option {
	return func(g *GradientBoostingRegressor) { g.RandomState = seed }
}

// WithNJobs sets the prediction parallelism.
func WithNJobs(n int) Option {
	return func(g *GradientBoostingRegressor) { g.NJobs = n }
}

// WithVerbose logs training loss every n stages.
func WithVerbose(n int) Option {
	return func(g *GradientBoostingRegressor) { g.Verbose = n }
}

// NewGradientBoostingRegressor returns a regressor with scikit-learn defaults.
func NewGradientBoostingRegressor(opts ...Option) *GradientBoostingRegressor {
	g := &GradientBoostingRegressor{
		Loss:            "squared_error",
		LearningRate:    0.1,
		NEstimators:     100,
		Subsample:       1.0,
		Criterion:       "friedman_mse",
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxDepth:        3,
		MaxFeatures:     tree.AllFeatures(),
		NJobs:           1,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *GradientBoostingRegressor) validateParams() error {
	if g.Loss != "squared_error" {
		return errors.NewValidationError("loss", "only squared_error is supported", g.Loss)
	}
	if g.LearningRate <= 0 || math.IsNaN(g.LearningRate) {
		return errors.NewValidationError("learning_rate", "must be > 0", g.LearningRate)
	}
	if g.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", g.NEstimators)
	}
	if g.Subsample <= 0 || g.Subsample > 1 {
		return errors.NewValidationError("subsample", "must be in (0, 1]", g.Subsample)
	}
	return nil
}

func (g *GradientBoostingRegressor) newTree() *tree.DecisionTreeRegressor {
	return tree.NewDecisionTreeRegressor(
		tree.WithCriterion(g.Criterion),
		tree.WithMaxDepth(g.MaxDepth),
		tree.WithMinSamplesSplit(g.MinSamplesSplit),
		tree.WithMinSamplesLeaf(g.MinSamplesLeaf),
		tree.WithMinImpurityDecrease(g.MinImpurityDecrease),
		tree.WithMaxFeatures(g.MaxFeatures),
	)
}

// Fit trains the ensemble on X (n×p) and y (n×1).
func (g *GradientBoostingRegressor) Fit(X, y mat.Matrix) error {
	return g.FitContext(context.Background(), X, y)
}

// FitContext is Fit with cancellation checked between boosting stages.
func (g *GradientBoostingRegressor) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GradientBoostingRegressor.Fit")

	if err := g.validateParams(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("Fit", 1, yCols, 1)
	}
	if rows == 0 || cols == 0 {
		return errors.ErrEmptyData
	}
	if err := errors.CheckMatrix("Fit", X, rows, cols, 0); err != nil {
		return err
	}
	if err := errors.CheckMatrix("Fit", y, rows, 1, 0); err != nil {
		return err
	}

	logger := log.GetLoggerWithName("ensemble")
	if logger.Enabled(ctx, log.LevelDebug) {
		logger.Debug("Training GradientBoostingRegressor",
			log.SamplesKey, rows,
			log.FeaturesKey, cols,
			log.HyperParamsKey, g.GetParams())
	}

	g.Reset()
	colData := tree.Columns(X)
	target := mat.Col(nil, 0, y)

	var sum float64
	for _, v := range target {
		sum += v
	}
	g.init = sum / float64(rows)
	g.nFeatures = cols
	g.estimators = make([]*tree.DecisionTreeRegressor, 0, g.NEstimators)
	g.trainScore = make([]float64, 0, g.NEstimators)

	raw := make([]float64, rows)
	for i := range raw {
		raw[i] = g.init
	}
	residual := make([]float64, rows)
	row := make([]float64, cols)

	rng := tree.NewRand(g.RandomState)
	nInBag := int(g.Subsample * float64(rows))
	if nInBag < 1 {
		nInBag = 1
	}

	for stage := 0; stage < g.NEstimators; stage++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		for i := range residual {
			residual[i] = target[i] - raw[i]
		}

		samples := g.drawSamples(rng, rows, nInBag)
		// Growが並べ替えるので損失計算用に控えておく
		inBag := append([]int(nil), samples...)

		t := g.newTree()
		if err := t.Grow(colData, residual, samples, rng); err != nil {
			return errors.Wrapf(err, "stage %d", stage)
		}

		for i := 0; i < rows; i++ {
			for j := range row {
				row[j] = colData[j][i]
			}
			raw[i] += g.LearningRate * t.PredictRow(row)
		}
		g.estimators = append(g.estimators, t)

		var loss float64
		for _, i := range inBag {
			d := target[i] - raw[i]
			loss += d * d
		}
		loss /= float64(len(inBag))
		if err := errors.CheckScalar("GradientBoostingRegressor.Fit", loss, stage); err != nil {
			return err
		}
		g.trainScore = append(g.trainScore, loss)

		if g.Verbose > 0 && stage%g.Verbose == 0 {
			logger.Debug("Training progress", log.IterationKey, stage, log.LossKey, loss)
		}
	}

	g.SetFitted()
	return nil
}

// drawSamples returns nInBag distinct row indices in ascending order, or all
// rows when nInBag == n.
func (g *GradientBoostingRegressor) drawSamples(rng *rand.Rand, n, nInBag int) []int {
	if nInBag >= n {
		samples := make([]int, n)
		for i := range samples {
			samples[i] = i
		}
		return samples
	}
	mask := make([]bool, n)
	for _, i := range rng.Perm(n)[:nInBag] {
		mask[i] = true
	}
	samples := make([]int, 0, nInBag)
	for i, in := range mask {
		if in {
			samples = append(samples, i)
		}
	}
	return samples
}

// Predict returns an n×1 matrix of predictions.
func (g *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !g.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != g.nFeatures {
		return nil, errors.NewDimensionError("Predict", g.nFeatures, cols, 1)
	}

	out := make([]float64, rows)
	parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, g.NJobs, func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			for j := range row {
				row[j] = X.At(i, j)
			}
			out[i] = g.predictRow(row)
		}
	})
	return mat.NewDense(rows, 1, out), nil
}

func (g *GradientBoostingRegressor) predictRow(row []float64) float64 {
	v := g.init
	for _, t := range g.estimators {
		v += g.LearningRate * t.PredictRow(row)
	}
	return v
}

// Score returns the coefficient of determination R^2 of the prediction.
func (g *GradientBoostingRegressor) Score(X, y mat.Matrix) (float64, error) {
	if !g.IsFitted() {
		return 0, errors.NewNotFittedError("GradientBoostingRegressor", "Score")
	}
	pred, err := g.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(metrics.VecFromMatrix(y), metrics.VecFromMatrix(pred))
}

// FeatureImportances returns impurity-based importances. Each tree's total
// impurity decrease is divided by its root sample count, summed over the
// trees that split at least once and normalised to sum to one at the end.
func (g *GradientBoostingRegressor) FeatureImportances() ([]float64, error) {
	if !g.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingRegressor", "FeatureImportances")
	}
	out := make([]float64, g.nFeatures)
	for _, t := range g.estimators {
		nodes := t.Nodes()
		// 単一ノードの木は寄与しない
		if len(nodes) <= 1 || nodes[0].NSamples == 0 {
			continue
		}
		root := float64(nodes[0].NSamples)
		for j, v := range t.ImpurityDecrease() {
			out[j] += v / root
		}
	}
	var sum float64
	for _, v := range out {
		sum += v
	}
	if sum > 0 {
		for j := range out {
			out[j] /= sum
		}
	}
	return out, nil
}

// TrainScore returns the in-bag squared-error loss after each stage.
func (g *GradientBoostingRegressor) TrainScore() []float64 {
	out := make([]float64, len(g.trainScore))
	copy(out, g.trainScore)
	return out
}

// NEstimatorsFitted returns the number of trees in the fitted ensemble.
func (g *GradientBoostingRegressor) NEstimatorsFitted() int {
	return len(g.estimators)
}

// InitValue returns the constant initial prediction (the training mean).
func (g *GradientBoostingRegressor) InitValue() float64 {
	return g.init
}
