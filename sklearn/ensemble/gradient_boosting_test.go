package ensemble

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/erkboost/core/model"
	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/sklearn/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// linearData returns y = 3*x0 + 0.5*x1 on uniform features.
func linearData(n, p int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := tree.NewRand(seed)
	X := mat.NewDense(n, p, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			X.Set(i, j, rng.Float64())
		}
		y.Set(i, 0, 3*X.At(i, 0)+0.5*X.At(i, 1))
	}
	return X, y
}

func TestGradientBoostingRegressor_FitPredict(t *testing.T) {
	X, y := linearData(200, 4, 1)

	gbr := NewGradientBoostingRegressor(
		WithNEstimators(200),
		WithRandomState(19951212),
	)
	require.NoError(t, gbr.Fit(X, y))
	assert.True(t, gbr.IsFitted())
	assert.Equal(t, 200, gbr.NEstimatorsFitted())

	score, err := gbr.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.98)

	// 損失は学習とともに減少する
	ts := gbr.TrainScore()
	require.Len(t, ts, 200)
	assert.Less(t, ts[len(ts)-1], ts[0])

	imp, err := gbr.FeatureImportances()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, imp[0]+imp[1]+imp[2]+imp[3], 1e-9)
	assert.Greater(t, imp[0], 0.9)
	assert.Greater(t, imp[1], imp[2])
	assert.Greater(t, imp[1], imp[3])
}

func TestGradientBoostingRegressor_FeatureImportancesWeighting(t *testing.T) {
	X, y := linearData(120, 3, 5)
	gbr := NewGradientBoostingRegressor(WithNEstimators(40), WithSubsample(0.5), WithRandomState(11))
	require.NoError(t, gbr.Fit(X, y))

	// 木ごとに正規化せず、根のサンプル数で割った減少量を合計してから正規化する
	want := make([]float64, 3)
	for _, tr := range gbr.estimators {
		nodes := tr.Nodes()
		if len(nodes) <= 1 {
			continue
		}
		for j, v := range tr.ImpurityDecrease() {
			want[j] += v / float64(nodes[0].NSamples)
		}
	}
	total := want[0] + want[1] + want[2]
	require.Greater(t, total, 0.0)

	got, err := gbr.FeatureImportances()
	require.NoError(t, err)
	for j := range want {
		assert.InDelta(t, want[j]/total, got[j], 1e-12, "feature %d", j)
	}
}

func TestGradientBoostingRegressor_FeatureImportancesSkipsStumps(t *testing.T) {
	// 定数の目的変数では全ての木が単一ノード
	X := mat.NewDense(10, 2, []float64{1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 9, 1, 1, 2})
	y := mat.NewDense(10, 1, []float64{4, 4, 4, 4, 4, 4, 4, 4, 4, 4})
	gbr := NewGradientBoostingRegressor(WithNEstimators(5))
	require.NoError(t, gbr.Fit(X, y))

	imp, err := gbr.FeatureImportances()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, imp)
}

func TestGradientBoostingRegressor_InitIsMean(t *testing.T) {
	X, y := linearData(50, 2, 2)
	gbr := NewGradientBoostingRegressor(WithNEstimators(1))
	require.NoError(t, gbr.Fit(X, y))

	var sum float64
	for i := 0; i < 50; i++ {
		sum += y.At(i, 0)
	}
	assert.InDelta(t, sum/50, gbr.InitValue(), 1e-12)
}

func TestGradientBoostingRegressor_Subsample(t *testing.T) {
	X, y := linearData(120, 8, 3)

	fit := func(seed int64) mat.Matrix {
		gbr := NewGradientBoostingRegressor(
			WithNEstimators(30),
			WithSubsample(0.5),
			WithMaxFeatures(tree.Log2Features()),
			WithRandomState(seed),
		)
		require.NoError(t, gbr.Fit(X, y))
		pred, err := gbr.Predict(X)
		require.NoError(t, err)
		return pred
	}

	a, b := fit(19951212), fit(19951212)
	assert.True(t, mat.Equal(a, b), "same seed must give identical models")

	c := fit(7)
	assert.False(t, mat.Equal(a, c), "different seeds should differ with subsampling")
}

func TestGradientBoostingRegressor_DrawSamples(t *testing.T) {
	gbr := NewGradientBoostingRegressor()
	rng := tree.NewRand(1)

	s := gbr.drawSamples(rng, 10, 5)
	require.Len(t, s, 5)
	seen := map[int]bool{}
	for i, v := range s {
		assert.False(t, seen[v])
		seen[v] = true
		if i > 0 {
			assert.Less(t, s[i-1], v)
		}
	}
	assert.Len(t, gbr.drawSamples(rng, 4, 4), 4)
}

func TestGradientBoostingRegressor_ParallelPredictMatchesSerial(t *testing.T) {
	X, y := linearData(600, 3, 4)
	gbr := NewGradientBoostingRegressor(WithNEstimators(20), WithNJobs(1))
	require.NoError(t, gbr.Fit(X, y))

	serial, err := gbr.Predict(X)
	require.NoError(t, err)

	gbr.NJobs = 4
	par, err := gbr.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(serial, par))
}

func TestGradientBoostingRegressor_Validation(t *testing.T) {
	X, y := linearData(20, 2, 5)

	tests := []struct {
		name string
		opt  Option
	}{
		{"zero learning rate", WithLearningRate(0)},
		{"zero estimators", WithNEstimators(0)},
		{"subsample above one", WithSubsample(1.5)},
		{"zero subsample", WithSubsample(0)},
		{"bad leaf size", WithMinSamplesLeaf(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewGradientBoostingRegressor(WithNEstimators(2), tt.opt).Fit(X, y)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}

	t.Run("not fitted", func(t *testing.T) {
		_, err := NewGradientBoostingRegressor().Predict(X)
		var nf *errors.NotFittedError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("row mismatch", func(t *testing.T) {
		err := NewGradientBoostingRegressor().Fit(X, mat.NewDense(3, 1, nil))
		var de *errors.DimensionError
		assert.True(t, errors.As(err, &de))
	})
}

func TestGradientBoostingRegressor_FitContextCancelled(t *testing.T) {
	X, y := linearData(20, 2, 6)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gbr := NewGradientBoostingRegressor()
	err := gbr.FitContext(ctx, X, y)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, gbr.IsFitted())
}

func TestGradientBoostingRegressor_ParamsAndClone(t *testing.T) {
	gbr := NewGradientBoostingRegressor()
	require.NoError(t, gbr.SetParams(map[string]interface{}{
		"n_estimators":     float64(7500),
		"max_features":     "log2",
		"subsample":        0.5,
		"learning_rate":    1,
		"min_samples_leaf": 10,
		"random_state":     19951212,
	}))

	p := gbr.GetParams()
	assert.Equal(t, 7500, p["n_estimators"])
	assert.Equal(t, "log2", p["max_features"])
	assert.Equal(t, 0.5, p["subsample"])
	assert.Equal(t, 1.0, p["learning_rate"])
	assert.Equal(t, int64(19951212), p["random_state"])

	X, y := linearData(30, 2, 7)
	gbr.NEstimators = 3
	require.NoError(t, gbr.Fit(X, y))

	clone := gbr.Clone()
	assert.False(t, clone.IsFitted())
	assert.Equal(t, gbr.GetParams(), clone.GetParams())
	assert.True(t, gbr.IsFitted(), "cloning must not reset the original")

	assert.Error(t, gbr.SetParams(map[string]interface{}{"bogus": 1}))
	assert.Error(t, gbr.SetParams(map[string]interface{}{"max_features": "cube"}))
}

func TestGradientBoostingRegressor_SaveLoad(t *testing.T) {
	X, y := linearData(60, 3, 8)
	gbr := NewGradientBoostingRegressor(WithNEstimators(10), WithSubsample(0.5), WithRandomState(3))
	require.NoError(t, gbr.Fit(X, y))
	want, err := gbr.Predict(X)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "gbr.gob")
	require.NoError(t, gbr.Save(path))

	loaded := NewGradientBoostingRegressor()
	require.NoError(t, loaded.Load(path))
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
	assert.Equal(t, gbr.GetParams()["subsample"], loaded.GetParams()["subsample"])

	var buf bytes.Buffer
	require.NoError(t, gbr.Encode(&buf))
	decoded := NewGradientBoostingRegressor()
	require.NoError(t, decoded.Decode(&buf))
	assert.Equal(t, gbr.TrainScore(), decoded.TrainScore())

	assert.Error(t, NewGradientBoostingRegressor().Save(path))
}

func TestGradientBoostingRegressor_DecodeCorruptKeepsModel(t *testing.T) {
	X, y := linearData(40, 2, 4)
	gbr := NewGradientBoostingRegressor(WithNEstimators(3), WithLearningRate(0.3), WithRandomState(1))
	require.NoError(t, gbr.Fit(X, y))
	want, err := gbr.Predict(X)
	require.NoError(t, err)

	// 2本目の木が空のスナップショット
	s := gbr.snapshot()
	s.Trees[1] = nil
	s.Params.LearningRate = 0.9
	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(s, &buf))

	require.Error(t, gbr.Decode(&buf))
	assert.True(t, gbr.IsFitted())
	assert.Equal(t, 0.3, gbr.LearningRate)
	assert.Equal(t, 3, gbr.NEstimatorsFitted())

	got, err := gbr.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}
