package ensemble

import (
	"github.com/YuminosukeSato/erkboost/core/model"
	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/sklearn/tree"
)

// GetParams returns the hyperparameters keyed by scikit-learn name.
func (g *GradientBoostingRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"loss":                  g.Loss,
		"learning_rate":         g.LearningRate,
		"n_estimators":          g.NEstimators,
		"subsample":             g.Subsample,
		"criterion":             g.Criterion,
		"min_samples_split":     g.MinSamplesSplit,
		"min_samples_leaf":      g.MinSamplesLeaf,
		"min_impurity_decrease": g.MinImpurityDecrease,
		"max_depth":             g.MaxDepth,
		"max_features":          g.MaxFeatures.Param(),
		"random_state":          g.RandomState,
		"n_jobs":                g.NJobs,
		"verbose":               g.Verbose,
	}
}

// SetParams sets hyperparameters and resets the fitted state. Integer and
// float values are accepted interchangeably where the meaning is unambiguous.
func (g *GradientBoostingRegressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "loss":
			g.Loss, err = model.ParamString(key, value)
		case "learning_rate":
			g.LearningRate, err = model.ParamFloat(key, value)
		case "n_estimators":
			g.NEstimators, err = model.ParamInt(key, value)
		case "subsample":
			g.Subsample, err = model.ParamFloat(key, value)
		case "criterion":
			g.Criterion, err = model.ParamString(key, value)
		case "min_samples_split":
			g.MinSamplesSplit, err = model.ParamInt(key, value)
		case "min_samples_leaf":
			g.MinSamplesLeaf, err = model.ParamInt(key, value)
		case "min_impurity_decrease":
			g.MinImpurityDecrease, err = model.ParamFloat(key, value)
		case "max_depth":
			if value == nil {
				g.MaxDepth = 0
				continue
			}
			g.MaxDepth, err = model.ParamInt(key, value)
		case "max_features":
			g.MaxFeatures, err = tree.ParseMaxFeatures(value)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(key, value)
			g.RandomState = int64(seed)
		case "n_jobs":
			g.NJobs, err = model.ParamInt(key, value)
		case "verbose":
			g.Verbose, err = model.ParamInt(key, value)
		default:
			return errors.NewValidationError(key, "unknown parameter for GradientBoostingRegressor", value)
		}
		if err != nil {
			return errors.NewValidationError(key, err.Error(), value)
		}
	}
	g.Reset()
	g.estimators = nil
	g.trainScore = nil
	return nil
}

// Clone returns an unfitted copy with the same hyperparameters.
func (g *GradientBoostingRegressor) Clone() model.Regressor {
	c := *g
	c.Reset()
	c.estimators = nil
	c.trainScore = nil
	c.init = 0
	c.nFeatures = 0
	return &c
}
