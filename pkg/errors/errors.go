// Package errors はerkboost全体のエラーハンドリングと警告システムを提供します。
// scikit-learnの警告・例外システムにインスパイアされており、構造化されたエラー情報を提供します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("erkboost-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler は警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nilを渡すとフォールバックのハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// UndefinedMetricWarning は評価指標が計算できない場合に発生する警告です。
// 例えば、分割後のテスト集合で目的変数が定数になりR²の分母が0になる場合など。
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // この条件で返される値
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning は新しいUndefinedMetricWarningを作成します。
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ZeroStandardErrorWarning は標準誤差が0のためt値が有限でない場合の警告です。
type ZeroStandardErrorWarning struct {
	Index  int     // パラメータの位置
	Name   string  // パラメータ名（分かる場合）
	Mean   float64 // 重要度の平均
	TScore float64 // 代わりに使用したt値
}

func (w *ZeroStandardErrorWarning) Error() string {
	label := fmt.Sprintf("#%d", w.Index)
	if w.Name != "" {
		label = fmt.Sprintf("%s (#%d)", w.Name, w.Index)
	}
	return fmt.Sprintf("standard error of %s is zero (mean=%g); t-score set to %g", label, w.Mean, w.TScore)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ZeroStandardErrorWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("index", w.Index).
		Str("name", w.Name).
		Float64("mean", w.Mean).
		Float64("t_score", w.TScore).
		Str("type", "ZeroStandardErrorWarning")
}

// NewZeroStandardErrorWarning は新しいZeroStandardErrorWarningを作成します。
func NewZeroStandardErrorWarning(index int, name string, mean, tScore float64) *ZeroStandardErrorWarning {
	return &ZeroStandardErrorWarning{Index: index, Name: name, Mean: mean, TScore: tScore}
}

// SchemaAliasWarning は列名がスキーマの別名（過去の表記揺れ）で一致した場合の警告です。
type SchemaAliasWarning struct {
	Position  int
	Got       string
	Canonical string
}

func (w *SchemaAliasWarning) Error() string {
	return fmt.Sprintf("column %d uses legacy name %q; canonical name is %q", w.Position, w.Got, w.Canonical)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *SchemaAliasWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("position", w.Position).
		Str("got", w.Got).
		Str("canonical", w.Canonical).
		Str("type", "SchemaAliasWarning")
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` などを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("erkboost: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("erkboost: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("erkboost: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("erkboost: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("erkboost: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("erkboost: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// SchemaError はパラメータ名のスキーマと入力データの列が一致しない場合のエラーです。
// 位置がずれたまま処理を続けるとラベル付けが黙って崩れるため、読み込み時に検出します。
type SchemaError struct {
	Source   string // 入力元（ファイル名など）
	Version  string // スキーマのバージョン
	Position int    // 最初に不一致となった位置（長さ不一致の場合は-1）
	Expected string
	Got      string
}

func (e *SchemaError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("erkboost: %s: schema %s mismatch: expected %s columns, got %s", e.Source, e.Version, e.Expected, e.Got)
	}
	return fmt.Sprintf("erkboost: %s: schema %s mismatch at column %d: expected %q, got %q", e.Source, e.Version, e.Position, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SchemaError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("source", e.Source).
		Str("schema_version", e.Version).
		Int("position", e.Position).
		Str("expected", e.Expected).
		Str("got", e.Got).
		Str("type", "SchemaError")
}

// NewSchemaLengthError は列数の不一致を表すSchemaErrorを作成します。
func NewSchemaLengthError(source, version string, expected, got int) error {
	err := &SchemaError{
		Source:   source,
		Version:  version,
		Position: -1,
		Expected: fmt.Sprint(expected),
		Got:      fmt.Sprint(got),
	}
	return errors.WithStack(err)
}

// NewSchemaNameError は列名の不一致を表すSchemaErrorを作成します。
func NewSchemaNameError(source, version string, position int, expected, got string) error {
	err := &SchemaError{Source: source, Version: version, Position: position, Expected: expected, Got: got}
	return errors.WithStack(err)
}

// DataFormatError は表形式データのセルが解釈できない場合のエラーです。
type DataFormatError struct {
	Source string
	Row    int // 1始まり（ヘッダー行を含む）
	Column int // 1始まり
	Value  string
	Reason string
}

func (e *DataFormatError) Error() string {
	return fmt.Sprintf("erkboost: %s: row %d, column %d: %s (got %q)", e.Source, e.Row, e.Column, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DataFormatError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("source", e.Source).
		Int("row", e.Row).
		Int("column", e.Column).
		Str("value", e.Value).
		Str("reason", e.Reason).
		Str("type", "DataFormatError")
}

// NewDataFormatError は新しいDataFormatErrorを作成し、スタックトレースを付与します。
func NewDataFormatError(source string, row, column int, value, reason string) error {
	err := &DataFormatError{Source: source, Row: row, Column: column, Value: value, Reason: reason}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	数値計算のエラー型
//
// ===========================================================================

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaN、Inf などを検出します。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "boosting_update", "residuals"）
	Values    []float64 // 問題のある値
	Iteration int       // 発生したイテレーション番号
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("erkboost: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrUnsupportedFormat は読み込めないファイル形式の場合のエラーです。
	ErrUnsupportedFormat = New("unsupported file format")
)
