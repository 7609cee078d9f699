package inspection

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/sklearn/ensemble"
	"github.com/YuminosukeSato/erkboost/sklearn/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// identityModel predicts column 0 unchanged.
type identityModel struct{}

func (identityModel) Predict(X mat.Matrix) (mat.Matrix, error) {
	n, _ := X.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, X.At(i, 0))
	}
	return out, nil
}

func data(n, p int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := tree.NewRand(seed)
	X := mat.NewDense(n, p, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			X.Set(i, j, rng.Float64())
		}
		y.Set(i, 0, X.At(i, 0))
	}
	return X, y
}

func TestPermutationImportance_IdentityModel(t *testing.T) {
	X, y := data(100, 3, 1)

	res, err := PermutationImportance(identityModel{}, X, y, Options{RandomState: 19951212})
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Baseline)
	assert.Equal(t, 5, res.NRepeats())
	assert.Equal(t, "r2", res.Scoring)

	// 無関係な特徴量は入れ替えてもスコアが変わらない
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, res.Importances[1])
	assert.Equal(t, 0.0, res.Means[2])
	assert.Equal(t, 0.0, res.Stds[2])

	// 予測に使う特徴量を壊すとR²は大きく下がる
	assert.Greater(t, res.Means[0], 1.0)
	for _, v := range res.Importances[0] {
		assert.Greater(t, v, 0.5)
	}

	sems := res.SEMs()
	assert.InDelta(t, math.Sqrt(0.2)*res.Stds[0], sems[0], 1e-15)
}

func TestPermutationImportance_IndependentOfNJobs(t *testing.T) {
	X, y := data(80, 6, 2)
	gbr := ensemble.NewGradientBoostingRegressor(ensemble.WithNEstimators(30), ensemble.WithRandomState(1))
	require.NoError(t, gbr.Fit(X, y))

	a, err := PermutationImportance(gbr, X, y, Options{RandomState: 7, NJobs: 1})
	require.NoError(t, err)
	b, err := PermutationImportance(gbr, X, y, Options{RandomState: 7, NJobs: 4})
	require.NoError(t, err)
	assert.Equal(t, a.Importances, b.Importances)

	c, err := PermutationImportance(gbr, X, y, Options{RandomState: 8, NJobs: 4})
	require.NoError(t, err)
	assert.NotEqual(t, a.Importances[0], c.Importances[0])

	for f := 1; f < 6; f++ {
		assert.Greater(t, a.Means[0], a.Means[f])
	}
}

func TestPermutationImportance_DoesNotModifyInput(t *testing.T) {
	X, y := data(30, 2, 3)
	before := mat.DenseCopyOf(X)
	_, err := PermutationImportance(identityModel{}, X, y, Options{NRepeats: 3})
	require.NoError(t, err)
	assert.True(t, mat.Equal(before, X))
}

func TestPermutationImportance_Errors(t *testing.T) {
	X, y := data(30, 2, 4)

	_, err := PermutationImportance(identityModel{}, X, y, Options{NRepeats: -1})
	assert.Error(t, err)

	_, err = PermutationImportance(identityModel{}, X, y, Options{Scoring: "accuracy"})
	assert.Error(t, err)

	_, err = PermutationImportance(identityModel{}, X, mat.NewDense(3, 1, nil), Options{})
	assert.Error(t, err)

	_, err = PermutationImportance(ensemble.NewGradientBoostingRegressor(), X, y, Options{})
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}
