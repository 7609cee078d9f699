package model

import (
	"fmt"
	"math"
)

// パラメータ値の型変換ヘルパー
//
// GetParams/SetParamsの値はYAML設定やグリッド定義から来るため、
// intとfloat64が混在する。SetParamsの実装はここを経由して正規化する。

// ParamFloat converts a numeric parameter value to float64.
func ParamFloat(name string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("parameter %q: expected a number, got %T", name, value)
	}
}

// ParamInt converts a numeric parameter value to int. Floats are accepted
// only when they hold an integral value.
func ParamInt(name string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("parameter %q: expected an integer, got %v", name, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("parameter %q: expected an integer, got %T", name, value)
	}
}

// ParamString converts a parameter value to string.
func ParamString(name string, value interface{}) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q: expected a string, got %T", name, value)
	}
	return s, nil
}
