package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。yはn×1の列ベクトル
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測をn×1行列で返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator は学習と予測が可能なモデル
type Estimator interface {
	Fitter
	Predictor
}
