// Package pipeline wires the three analyses (fit and importance, grid
// search, significance) from configuration to console output.
package pipeline

import (
	"github.com/YuminosukeSato/erkboost/config"
	"github.com/YuminosukeSato/erkboost/sklearn/ensemble"
	"github.com/YuminosukeSato/erkboost/sklearn/tree"
)

// NewEstimator builds an unfitted regressor from the model section.
func NewEstimator(m config.ModelConfig, seed int64, nJobs int) (*ensemble.GradientBoostingRegressor, error) {
	mf, err := tree.ParseMaxFeatures(m.MaxFeatures)
	if err != nil {
		return nil, err
	}
	return ensemble.NewGradientBoostingRegressor(
		ensemble.WithNEstimators(m.NEstimators),
		ensemble.WithLearningRate(m.LearningRate),
		ensemble.WithMaxDepth(m.MaxDepth),
		ensemble.WithMaxFeatures(mf),
		ensemble.WithSubsample(m.Subsample),
		ensemble.WithMinSamplesLeaf(m.MinSamplesLeaf),
		ensemble.WithMinSamplesSplit(m.MinSamplesSplit),
		ensemble.WithRandomState(seed),
		ensemble.WithNJobs(nJobs),
	), nil
}
