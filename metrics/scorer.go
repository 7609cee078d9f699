package metrics

import (
	"sort"

	"github.com/YuminosukeSato/erkboost/core/model"
	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ScoreFunc computes a metric from true and predicted values.
type ScoreFunc func(yTrue, yPred *mat.VecDense) (float64, error)

// Scorer wraps a metric so that greater is always better, following the
// scikit-learn scoring-string convention ("neg_" prefixes flip the sign).
type Scorer struct {
	Name string
	fn   ScoreFunc
	sign float64
}

// NewScorer builds a Scorer. greaterIsBetter=false negates the metric.
func NewScorer(name string, fn ScoreFunc, greaterIsBetter bool) Scorer {
	sign := 1.0
	if !greaterIsBetter {
		sign = -1.0
	}
	return Scorer{Name: name, fn: fn, sign: sign}
}

var scorers = map[string]Scorer{
	"r2":                          NewScorer("r2", R2Score, true),
	"explained_variance":          NewScorer("explained_variance", ExplainedVarianceScore, true),
	"neg_mean_absolute_error":     NewScorer("neg_mean_absolute_error", MAE, false),
	"neg_mean_squared_error":      NewScorer("neg_mean_squared_error", MSE, false),
	"neg_root_mean_squared_error": NewScorer("neg_root_mean_squared_error", RMSE, false),
}

// GetScorer looks up a scorer by its scikit-learn scoring name.
func GetScorer(name string) (Scorer, error) {
	s, ok := scorers[name]
	if !ok {
		return Scorer{}, errors.NewValidationError("scoring", "unknown scorer, expected one of "+joinNames(), name)
	}
	return s, nil
}

// GetScorers resolves several names at once, preserving order.
func GetScorers(names ...string) ([]Scorer, error) {
	out := make([]Scorer, 0, len(names))
	for _, name := range names {
		s, err := GetScorer(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ScorerNames returns the registered scorer names in sorted order.
func ScorerNames() []string {
	names := make([]string, 0, len(scorers))
	for name := range scorers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func joinNames() string {
	out := ""
	for i, n := range ScorerNames() {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

// ScoreValues applies the scorer to already computed predictions.
//
// When yTrue is constant the R² and explained-variance scores are undefined;
// like scikit-learn they become 1.0 for a perfect prediction and 0.0
// otherwise, and an UndefinedMetricWarning is emitted.
func (s Scorer) ScoreValues(yTrue, yPred *mat.VecDense) (float64, error) {
	v, err := s.fn(yTrue, yPred)
	if err != nil {
		if !errors.Is(err, ErrNoVariance) {
			return 0, err
		}
		mse, mseErr := MSE(yTrue, yPred)
		if mseErr != nil {
			return 0, mseErr
		}
		v = 0
		if mse == 0 {
			v = 1
		}
		errors.Warn(errors.NewUndefinedMetricWarning(s.Name, "constant y_true", v))
	}
	return s.sign * v, nil
}

// Score predicts X with est and scores the predictions against y.
func (s Scorer) Score(est model.Predictor, X, y mat.Matrix) (float64, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return 0, err
	}
	return s.ScoreValues(VecFromMatrix(y), VecFromMatrix(pred))
}

// VecFromMatrix returns the first column of m as a vector, without copying
// when m already is a *mat.VecDense.
func VecFromMatrix(m mat.Matrix) *mat.VecDense {
	if v, ok := m.(*mat.VecDense); ok {
		return v
	}
	r, _ := m.Dims()
	if r == 0 {
		return &mat.VecDense{}
	}
	return mat.NewVecDense(r, mat.Col(nil, 0, m))
}
