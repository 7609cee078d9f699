// Package stats turns repeated importance measurements into one-sided
// significance scores.
//
// The t statistic for parameter i is mean[i]/sem[i]; its p-value is the
// survival function of Student's t distribution with DefaultDF degrees of
// freedom (five cross-validation folds minus one). No multiple-comparison
// correction is applied.
package stats

import (
	"math"

	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultDF は5分割交差検証に対応する自由度
const DefaultDF = 4.0

// Mean は標本平均を返す
func Mean(x []float64) float64 {
	return stat.Mean(x, nil)
}

// PopStd は母標準偏差（ddof=0）を返す
func PopStd(x []float64) float64 {
	_, std := stat.PopMeanStdDev(x, nil)
	return std
}

// SEM は平均の標準誤差を返す
//
//	SEM = sqrt(1/n) * std(x, ddof=0)
//
// 空スライスの場合はNaN。
func SEM(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return math.Sqrt(1/float64(len(x))) * PopStd(x)
}

// MeanSEM は平均と標準誤差をまとめて返す
func MeanSEM(x []float64) (mean, sem float64) {
	return Mean(x), SEM(x)
}

// CheckAligned verifies that names, means and sems describe the same
// parameters position by position.
func CheckAligned(names []string, means, sems []float64) error {
	if len(means) != len(names) {
		return errors.NewDimensionError("CheckAligned", len(names), len(means), 0)
	}
	if len(sems) != len(names) {
		return errors.NewDimensionError("CheckAligned", len(names), len(sems), 0)
	}
	return nil
}

// Significance はパラメータごとの有意性を保持する
type Significance struct {
	TScores []float64
	PValues []float64
}

// Calculator computes t-scores and one-sided p-values.
type Calculator struct {
	// DF is the degrees of freedom of the t distribution.
	DF float64
	// Names labels warnings; may be nil.
	Names []string
}

// NewCalculator は自由度dfの計算器を返す。df<=0ならDefaultDF
func NewCalculator(df float64, names []string) *Calculator {
	if df <= 0 {
		df = DefaultDF
	}
	return &Calculator{DF: df, Names: names}
}

// TScore returns mean/sem. A zero standard error yields ±Inf for a non-zero
// mean and 0 for a zero mean; ok is false in both cases.
func TScore(mean, sem float64) (t float64, ok bool) {
	if sem == 0 {
		if mean == 0 {
			return 0, false
		}
		return math.Copysign(math.Inf(1), mean), false
	}
	return mean / sem, true
}

// Compute derives t-scores and p-values for each parameter.
func (c *Calculator) Compute(means, sems []float64) (*Significance, error) {
	if len(means) != len(sems) {
		return nil, errors.NewDimensionError("Compute", len(means), len(sems), 0)
	}
	if c.Names != nil {
		if err := CheckAligned(c.Names, means, sems); err != nil {
			return nil, err
		}
	}
	if c.DF <= 0 || math.IsNaN(c.DF) {
		return nil, errors.NewValidationError("df", "must be positive", c.DF)
	}
	if err := errors.CheckNumericalStability("Compute", means, 0); err != nil {
		return nil, err
	}
	for _, s := range sems {
		if s < 0 || math.IsNaN(s) {
			return nil, errors.NewValidationError("sem", "must be non-negative", s)
		}
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: c.DF}
	out := &Significance{
		TScores: make([]float64, len(means)),
		PValues: make([]float64, len(means)),
	}
	for i := range means {
		t, ok := TScore(means[i], sems[i])
		if !ok {
			errors.Warn(errors.NewZeroStandardErrorWarning(i, c.name(i), means[i], t))
		}
		out.TScores[i] = t
		out.PValues[i] = survival(dist, t)
	}
	return out, nil
}

func (c *Calculator) name(i int) string {
	if i < len(c.Names) {
		return c.Names[i]
	}
	return ""
}

// survival handles the infinite limits explicitly.
func survival(dist distuv.StudentsT, t float64) float64 {
	switch {
	case math.IsInf(t, 1):
		return 0
	case math.IsInf(t, -1):
		return 1
	}
	return dist.Survival(t)
}

// PValues is a shorthand for NewCalculator(df, nil).Compute.
func PValues(means, sems []float64, df float64) ([]float64, error) {
	sig, err := NewCalculator(df, nil).Compute(means, sems)
	if err != nil {
		return nil, err
	}
	return sig.PValues, nil
}

// Significant returns the indices whose p-value is strictly below alpha.
func Significant(pValues []float64, alpha float64) []int {
	var idx []int
	for i, p := range pValues {
		if p < alpha {
			idx = append(idx, i)
		}
	}
	return idx
}

// Rank returns parameter indices ordered by descending mean importance.
func Rank(means []float64) []int {
	idx := make([]int, len(means))
	sorted := make([]float64, len(means))
	copy(sorted, means)
	floats.Argsort(sorted, idx)
	// Argsortは昇順なので反転する
	for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx
}
