// Package model defines the estimator contracts shared by the tree, ensemble,
// model-selection and inspection packages.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Scorer is the interface for models that can compute a default score.
type Scorer interface {
	// Score returns the coefficient of determination R^2 of the prediction.
	Score(X mat.Matrix, y mat.Matrix) (float64, error)
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters keyed by their
	// scikit-learn names (e.g. "learning_rate", "max_features").
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters and resets the fitted state.
	SetParams(params map[string]interface{}) error
}

// Cloner creates an unfitted copy with identical hyperparameters.
type Cloner interface {
	Clone() Regressor
}

// Regressor combines interfaces for regression models. Cross-validation and
// grid search only need this contract.
type Regressor interface {
	Estimator
	Scorer
	ParameterGetter
	ParameterSetter
	Cloner
	IsFitted() bool
}

// Persistable is the interface for models that can be saved and loaded.
type Persistable interface {
	// Save saves the model to a file.
	Save(path string) error

	// Load loads the model from a file.
	Load(path string) error
}
