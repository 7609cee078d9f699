package tree

import (
	"fmt"
	"math"
	"strconv"

	"github.com/YuminosukeSato/erkboost/pkg/errors"
)

// MaxFeatures は分割ごとに検討する特徴量数の指定
//
// scikit-learnのmax_featuresと同じく、全特徴量・"log2"・"sqrt"・
// 整数（個数）・小数（割合）のいずれかを取る。
type MaxFeatures struct {
	Kind  string  // "all", "log2", "sqrt", "count", "fraction"
	Value float64 // countまたはfractionの値
}

// AllFeatures considers every feature at each split.
func AllFeatures() MaxFeatures { return MaxFeatures{Kind: "all"} }

// Log2Features considers max(1, floor(log2(n))) features at each split.
func Log2Features() MaxFeatures { return MaxFeatures{Kind: "log2"} }

// SqrtFeatures considers max(1, floor(sqrt(n))) features at each split.
func SqrtFeatures() MaxFeatures { return MaxFeatures{Kind: "sqrt"} }

// NFeatures considers exactly k features at each split.
func NFeatures(k int) MaxFeatures { return MaxFeatures{Kind: "count", Value: float64(k)} }

// FractionFeatures considers max(1, floor(f*n)) features at each split.
func FractionFeatures(f float64) MaxFeatures { return MaxFeatures{Kind: "fraction", Value: f} }

// ParseMaxFeatures converts a scikit-learn style value: nil, "log2", "sqrt",
// an int count or a float fraction in (0, 1].
func ParseMaxFeatures(v interface{}) (MaxFeatures, error) {
	switch x := v.(type) {
	case nil:
		return AllFeatures(), nil
	case MaxFeatures:
		return x, x.validate()
	case string:
		switch x {
		case "log2":
			return Log2Features(), nil
		case "sqrt":
			return SqrtFeatures(), nil
		case "", "none", "all":
			return AllFeatures(), nil
		}
		if k, err := strconv.Atoi(x); err == nil {
			m := NFeatures(k)
			return m, m.validate()
		}
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			m := FractionFeatures(f)
			return m, m.validate()
		}
		return MaxFeatures{}, errors.NewValidationError("max_features", "unknown value", x)
	case int:
		m := NFeatures(x)
		return m, m.validate()
	case int64:
		m := NFeatures(int(x))
		return m, m.validate()
	case float64:
		m := FractionFeatures(x)
		return m, m.validate()
	default:
		return MaxFeatures{}, errors.NewValidationError("max_features", fmt.Sprintf("unsupported type %T", v), v)
	}
}

func (m MaxFeatures) validate() error {
	switch m.Kind {
	case "all", "log2", "sqrt":
		return nil
	case "count":
		if m.Value < 1 {
			return errors.NewValidationError("max_features", "must be >= 1", int(m.Value))
		}
		return nil
	case "fraction":
		if m.Value <= 0 || m.Value > 1 {
			return errors.NewValidationError("max_features", "fraction must be in (0, 1]", m.Value)
		}
		return nil
	}
	return errors.NewValidationError("max_features", "unknown kind", m.Kind)
}

// Param returns the value in the form GetParams reports it.
func (m MaxFeatures) Param() interface{} {
	switch m.Kind {
	case "log2", "sqrt":
		return m.Kind
	case "count":
		return int(m.Value)
	case "fraction":
		return m.Value
	}
	return nil
}

func (m MaxFeatures) String() string {
	switch m.Kind {
	case "count":
		return strconv.Itoa(int(m.Value))
	case "fraction":
		return strconv.FormatFloat(m.Value, 'g', -1, 64)
	case "":
		return "all"
	}
	return m.Kind
}

// Resolve returns the number of features to draw for nFeatures columns.
func (m MaxFeatures) Resolve(nFeatures int) (int, error) {
	if nFeatures < 1 {
		return 0, errors.NewValueError("MaxFeatures.Resolve", "no features")
	}
	var k int
	switch m.Kind {
	case "", "all":
		k = nFeatures
	case "log2":
		k = int(math.Log2(float64(nFeatures)))
	case "sqrt":
		k = int(math.Sqrt(float64(nFeatures)))
	case "count":
		k = int(m.Value)
		if k > nFeatures {
			return 0, errors.NewValidationError("max_features",
				fmt.Sprintf("must be <= n_features (%d)", nFeatures), k)
		}
	case "fraction":
		k = int(m.Value * float64(nFeatures))
	default:
		return 0, m.validate()
	}
	if k < 1 {
		k = 1
	}
	return k, nil
}
