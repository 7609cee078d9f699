package model_selection

import (
	"context"
	"math"
	"testing"

	"github.com/YuminosukeSato/erkboost/core/model"
	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/sklearn/ensemble"
	"github.com/YuminosukeSato/erkboost/sklearn/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// paramRegressor scores a fixed function of its parameters, independent of
// the data, so grid search selection can be checked exactly.
type paramRegressor struct {
	model.BaseEstimator
	params map[string]interface{}
	score  func(p map[string]interface{}) float64
}

func (r *paramRegressor) Fit(X, y mat.Matrix) error {
	r.SetFitted()
	return nil
}

func (r *paramRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	n, _ := X.Dims()
	return mat.NewDense(n, 1, nil), nil
}

func (r *paramRegressor) Score(X, y mat.Matrix) (float64, error) {
	return r.score(r.params), nil
}

func (r *paramRegressor) GetParams() map[string]interface{} { return r.params }

func (r *paramRegressor) SetParams(p map[string]interface{}) error {
	for k, v := range p {
		if k == "invalid" {
			return errors.NewValidationError(k, "rejected", v)
		}
		r.params[k] = v
	}
	return nil
}

func (r *paramRegressor) Clone() model.Regressor {
	p := make(map[string]interface{}, len(r.params))
	for k, v := range r.params {
		p[k] = v
	}
	return &paramRegressor{params: p, score: r.score}
}

func linearData(n, p int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := tree.NewRand(seed)
	X := mat.NewDense(n, p, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			X.Set(i, j, rng.Float64())
		}
		y.Set(i, 0, 2*X.At(i, 0)+1)
	}
	return X, y
}

func TestKFold_Split(t *testing.T) {
	kf := NewKFold(5, false, 0)
	folds, err := kf.Split(11)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	sizes := []int{3, 2, 2, 2, 2}
	next := 0
	seen := make([]int, 11)
	for i, f := range folds {
		require.Len(t, f.TestIndices, sizes[i])
		assert.Len(t, f.TrainIndices, 11-sizes[i])
		for _, idx := range f.TestIndices {
			assert.Equal(t, next, idx, "unshuffled folds are contiguous")
			next++
			seen[idx]++
		}
		for j := 1; j < len(f.TrainIndices); j++ {
			assert.Less(t, f.TrainIndices[j-1], f.TrainIndices[j])
		}
	}
	for _, c := range seen {
		assert.Equal(t, 1, c)
	}
}

func TestKFold_Shuffle(t *testing.T) {
	a, err := NewKFold(3, true, 42).Split(30)
	require.NoError(t, err)
	b, err := NewKFold(3, true, 42).Split(30)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	plain, err := NewKFold(3, false, 42).Split(30)
	require.NoError(t, err)
	assert.NotEqual(t, plain[0].TestIndices, a[0].TestIndices)
}

func TestKFold_Errors(t *testing.T) {
	_, err := NewKFold(5, false, 0).Split(3)
	assert.Error(t, err)
	_, err = (&KFold{NSplits: 1}).Split(10)
	assert.Error(t, err)
	assert.Equal(t, 5, NewKFold(0, false, 0).GetNSplits())
}

func TestParamGrid_Candidates(t *testing.T) {
	grid := ParamGrid{
		"subsample":     {0.2, 0.3},
		"learning_rate": {0.01, 0.1, 1},
	}
	assert.Equal(t, 6, grid.Len())
	assert.Equal(t, []string{"learning_rate", "subsample"}, grid.Keys())

	c := grid.Candidates()
	require.Len(t, c, 6)
	assert.Equal(t, map[string]interface{}{"learning_rate": 0.01, "subsample": 0.2}, c[0])
	assert.Equal(t, map[string]interface{}{"learning_rate": 0.01, "subsample": 0.3}, c[1])
	assert.Equal(t, map[string]interface{}{"learning_rate": 0.1, "subsample": 0.2}, c[2])
	assert.Equal(t, map[string]interface{}{"learning_rate": 1, "subsample": 0.3}, c[5])

	assert.Empty(t, ParamGrid{}.Candidates())
}

func TestCrossValidate_MultipleScorers(t *testing.T) {
	X, y := linearData(100, 3, 1)
	est := ensemble.NewGradientBoostingRegressor(ensemble.WithNEstimators(50), ensemble.WithRandomState(1))

	res, err := CrossValidate(context.Background(), est, X, y, NewKFold(5, false, 0), CVOptions{
		Scoring:          []string{"r2", "neg_mean_absolute_error", "explained_variance"},
		NJobs:            2,
		ReturnTrainScore: true,
		ReturnEstimator:  true,
	})
	require.NoError(t, err)

	require.Len(t, res.TestScores["r2"], 5)
	assert.Greater(t, res.Mean("r2"), 0.95)
	assert.Less(t, res.Mean("neg_mean_absolute_error"), 0.0)
	assert.GreaterOrEqual(t, res.Mean("explained_variance"), res.Mean("r2")-1e-9)
	assert.GreaterOrEqual(t, res.SEM("r2"), 0.0)
	assert.Len(t, res.TrainScores["r2"], 5)
	require.Len(t, res.Estimators, 5)
	for _, e := range res.Estimators {
		assert.True(t, e.IsFitted())
	}
	assert.False(t, est.IsFitted(), "the template estimator is never fitted")
}

func TestCrossValidate_IndependentOfNJobs(t *testing.T) {
	X, y := linearData(60, 4, 2)
	est := ensemble.NewGradientBoostingRegressor(
		ensemble.WithNEstimators(20),
		ensemble.WithSubsample(0.5),
		ensemble.WithRandomState(19951212),
	)

	serial, err := CrossValScore(context.Background(), est, X, y, nil, "r2", 1)
	require.NoError(t, err)
	par, err := CrossValScore(context.Background(), est, X, y, nil, "r2", 5)
	require.NoError(t, err)
	assert.Equal(t, serial, par)
}

func TestCrossValidate_Errors(t *testing.T) {
	X, y := linearData(20, 2, 3)
	est := ensemble.NewGradientBoostingRegressor(ensemble.WithNEstimators(2))

	_, err := CrossValidate(context.Background(), est, X, mat.NewDense(5, 1, nil), nil, CVOptions{})
	assert.Error(t, err)

	_, err = CrossValidate(context.Background(), est, X, y, nil, CVOptions{Scoring: []string{"accuracy"}})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = CrossValidate(ctx, est, X, y, nil, CVOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func reducedGrid() ParamGrid {
	return ParamGrid{
		"learning_rate":    {0.01, 0.1},
		"max_features":     {5, 10},
		"subsample":        {0.2, 0.5},
		"min_samples_leaf": {1, 10},
	}
}

func TestGridSearchCV_SelectsBestMean(t *testing.T) {
	X, y := linearData(20, 2, 4)
	est := &paramRegressor{
		params: map[string]interface{}{},
		score: func(p map[string]interface{}) float64 {
			lr := p["learning_rate"].(float64)
			ss := p["subsample"].(float64)
			leaf := p["min_samples_leaf"].(int)
			return lr*10 - math.Abs(ss-0.5) - float64(leaf)/100
		},
	}

	gs := NewGridSearchCV(est, reducedGrid(), WithNJobs(4))
	require.NoError(t, gs.Fit(context.Background(), X, y))

	assert.Equal(t, 0.1, gs.BestParams["learning_rate"])
	assert.Equal(t, 0.5, gs.BestParams["subsample"])
	assert.Equal(t, 1, gs.BestParams["min_samples_leaf"])
	// max_features does not affect the score: the first value wins the tie
	assert.Equal(t, 5, gs.BestParams["max_features"])
	assert.InDelta(t, 0.99, gs.BestScore, 1e-12)
	assert.Equal(t, 1, gs.CVResults.RankTestScore[gs.BestIndex])
	require.NotNil(t, gs.BestEstimator)
	assert.True(t, gs.BestEstimator.IsFitted())

	// 同点の候補は同順位
	ties := 0
	for _, r := range gs.CVResults.RankTestScore {
		if r == 1 {
			ties++
		}
	}
	assert.Equal(t, 2, ties)
}

func TestGridSearchCV_AllTiedPicksFirst(t *testing.T) {
	X, y := linearData(20, 2, 5)
	est := &paramRegressor{
		params: map[string]interface{}{},
		score:  func(map[string]interface{}) float64 { return 0.5 },
	}
	gs := NewGridSearchCV(est, reducedGrid(), WithRefit(false))
	require.NoError(t, gs.Fit(context.Background(), X, y))

	assert.Equal(t, 0, gs.BestIndex)
	assert.Equal(t, reducedGrid().Candidates()[0], gs.BestParams)
	assert.Nil(t, gs.BestEstimator)

	_, err := gs.Predict(X)
	assert.Error(t, err)
}

func TestGridSearchCV_Deterministic(t *testing.T) {
	X, y := linearData(50, 12, 6)
	grid := ParamGrid{
		"learning_rate":    {0.05, 0.5},
		"max_features":     {2, 12},
		"subsample":        {0.3, 0.7},
		"min_samples_leaf": {1, 5},
	}
	run := func(nJobs int) *GridSearchCV {
		est := ensemble.NewGradientBoostingRegressor(ensemble.WithNEstimators(10), ensemble.WithRandomState(19951212))
		gs := NewGridSearchCV(est, grid, WithNJobs(nJobs), WithRefit(false))
		require.NoError(t, gs.Fit(context.Background(), X, y))
		return gs
	}
	a, b := run(1), run(8)
	assert.Equal(t, a.BestIndex, b.BestIndex)
	assert.Equal(t, a.CVResults.MeanTestScore, b.CVResults.MeanTestScore)

	for i, m := range a.CVResults.MeanTestScore {
		assert.LessOrEqual(t, m, a.BestScore, "candidate %d", i)
	}
}

func TestGridSearchCV_Errors(t *testing.T) {
	X, y := linearData(20, 2, 7)
	est := &paramRegressor{params: map[string]interface{}{}, score: func(map[string]interface{}) float64 { return 0 }}

	assert.Error(t, NewGridSearchCV(est, ParamGrid{}).Fit(context.Background(), X, y))
	assert.Error(t, NewGridSearchCV(est, ParamGrid{"a": {}}).Fit(context.Background(), X, y))
	assert.Error(t, NewGridSearchCV(est, ParamGrid{"invalid": {1}}).Fit(context.Background(), X, y))
	assert.Error(t, NewGridSearchCV(nil, reducedGrid()).Fit(context.Background(), X, y))

	// 目的変数は1列のみ
	y2 := mat.NewDense(20, 2, nil)
	err := NewGridSearchCV(est, reducedGrid()).Fit(context.Background(), X, y2)
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr), "got %v", err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewGridSearchCV(est, reducedGrid()).Fit(ctx, X, y)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBestIndex(t *testing.T) {
	assert.Equal(t, 1, bestIndex([]float64{0.1, 0.3, 0.3}))
	assert.Equal(t, 1, bestIndex([]float64{math.NaN(), 0.2}))
	assert.Equal(t, 0, bestIndex([]float64{0.2, math.NaN()}))
}
