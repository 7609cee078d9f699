// Package log defines standard attribute keys for erkboost operations.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so that log lines from the three pipelines can be filtered uniformly.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model.
	// Examples: "GradientBoostingRegressor", "DecisionTreeRegressor"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "score", "cross_validate"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "component"

	// PipelineKey identifies one of the three analysis pipelines.
	PipelineKey = "pipeline"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// SourceKey is the dataset file name.
	SourceKey = "data.source"

	// SchemaVersionKey is the parameter-name schema version.
	SchemaVersionKey = "schema.version"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records R² coefficient of determination for regression.
	R2ScoreKey = "metrics.r2_score"

	// ScoreKey records a generic scorer value.
	ScoreKey = "metrics.score"

	// ScorerKey names the scorer that produced ScoreKey.
	ScorerKey = "metrics.scorer"

	// LossKey records training loss.
	LossKey = "metrics.loss"

	// IterationKey records the current boosting iteration.
	IterationKey = "training.iteration"

	// FoldKey records the cross-validation fold index.
	FoldKey = "cv.fold"

	// CandidateKey records the grid-search candidate index.
	CandidateKey = "search.candidate"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// JobsKey records the number of parallel workers.
	JobsKey = "config.n_jobs"
)

// Standard attribute value constants.
const (
	OperationFit           = "fit"
	OperationPredict       = "predict"
	OperationScore         = "score"
	OperationCrossValidate = "cross_validate"
	OperationGridSearch    = "grid_search"
	OperationPermutation   = "permutation_importance"

	PipelineFit          = "fit"
	PipelineTune         = "tune"
	PipelineSignificance = "significance"
)
