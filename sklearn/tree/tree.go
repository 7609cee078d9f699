// Package tree implements CART regression trees, the base learner of the
// gradient boosting ensemble.
package tree

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/erkboost/core/model"
	"github.com/YuminosukeSato/erkboost/metrics"
	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Node is one node of a fitted tree stored in a flat slice. Leaves have
// Feature == -1 and no children.
type Node struct {
	Feature   int     // 分割に使う特徴量（葉は-1）
	Threshold float64 // x[Feature] <= Threshold なら左
	Left      int
	Right     int
	Value     float64 // ノード内の目的変数の平均
	NSamples  int
	Impurity  float64
	Depth     int
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.Feature < 0
}

// DecisionTreeRegressor is a CART regression tree with squared-error
// splitting.
type DecisionTreeRegressor struct {
	model.BaseEstimator

	Criterion           string // "squared_error" or "friedman_mse"
	MaxDepth            int    // 0以下は無制限
	MinSamplesSplit     int
	MinSamplesLeaf      int
	MinImpurityDecrease float64
	MaxFeatures         MaxFeatures
	RandomState         int64

	nodes       []Node
	nFeatures   int
	importances []float64
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithCriterion sets the split criterion.
func WithCriterion(c string) Option { return func(t *DecisionTreeRegressor) { t.Criterion = c } }

// WithMaxDepth sets the maximum depth (root depth = 0).
func WithMaxDepth(d int) Option { return func(t *DecisionTreeRegressor) { t.MaxDepth = d } }

// WithMinSamplesSplit sets the minimum samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples required in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesLeaf = n }
}

// WithMinImpurityDecrease sets the minimal weighted impurity decrease to accept a split.
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeRegressor) { t.MinImpurityDecrease = v }
}

// WithMaxFeatures sets the number of features considered per split.
func WithMaxFeatures(m MaxFeatures) Option {
	return func(t *DecisionTreeRegressor) { t.MaxFeatures = m }
}

// WithRandomState seeds the feature sampling.
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeRegressor) { t.RandomState = seed }
}

// NewDecisionTreeRegressor returns a regressor with scikit-learn defaults.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		Criterion:       "squared_error",
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     AllFeatures(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// NewRand returns the generator used for a given seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
}

// Columns copies X into column-major slices, the layout Grow works on.
func Columns(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = make([]float64, r)
		for i := 0; i < r; i++ {
			cols[j][i] = X.At(i, j)
		}
	}
	return cols
}

func (t *DecisionTreeRegressor) validateParams() error {
	switch t.Criterion {
	case "squared_error", "friedman_mse":
	default:
		return errors.NewValidationError("criterion", "must be squared_error or friedman_mse", t.Criterion)
	}
	if t.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", t.MinSamplesSplit)
	}
	if t.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", t.MinSamplesLeaf)
	}
	if t.MinImpurityDecrease < 0 {
		return errors.NewValidationError("min_impurity_decrease", "must be >= 0", t.MinImpurityDecrease)
	}
	return t.MaxFeatures.validate()
}

// Fit grows the tree on X (n×p) and y (n×1).
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Fit")

	rows, _ := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("Fit", 1, yCols, 1)
	}
	if rows == 0 {
		return errors.ErrEmptyData
	}

	samples := make([]int, rows)
	for i := range samples {
		samples[i] = i
	}
	return t.Grow(Columns(X), mat.Col(nil, 0, y), samples, NewRand(t.RandomState))
}

// Grow fits the tree on the rows listed in samples, reading features from
// column-major cols and targets from y (both indexed by row). samples is
// reordered in place. The ensemble calls this directly with residuals and
// a row subsample.
func (t *DecisionTreeRegressor) Grow(cols [][]float64, y []float64, samples []int, rng *rand.Rand) error {
	if err := t.validateParams(); err != nil {
		return err
	}
	if len(cols) == 0 {
		return errors.NewValueError("Grow", "no features")
	}
	if len(samples) == 0 {
		return errors.ErrEmptyData
	}
	maxFeat, err := t.MaxFeatures.Resolve(len(cols))
	if err != nil {
		return err
	}

	t.Reset()
	t.nFeatures = len(cols)
	t.nodes = nil
	t.importances = make([]float64, len(cols))

	b := &builder{
		t:       t,
		cols:    cols,
		y:       y,
		rng:     rng,
		maxFeat: maxFeat,
		nRoot:   float64(len(samples)),
		scratch: make([]int, len(samples)),
	}
	b.grow(samples, 0)

	t.SetFitted()
	return nil
}

// PredictRow returns the leaf value for one sample.
func (t *DecisionTreeRegressor) PredictRow(x []float64) float64 {
	return t.nodes[t.apply(func(f int) float64 { return x[f] })].Value
}

func (t *DecisionTreeRegressor) apply(at func(f int) float64) int {
	id := 0
	for {
		n := &t.nodes[id]
		if n.IsLeaf() {
			return id
		}
		if at(n.Feature) <= n.Threshold {
			id = n.Left
		} else {
			id = n.Right
		}
	}
}

// Predict returns an n×1 matrix of predictions.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !t.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != t.nFeatures {
		return nil, errors.NewDimensionError("Predict", t.nFeatures, cols, 1)
	}
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		leaf := t.apply(func(f int) float64 { return X.At(i, f) })
		out.Set(i, 0, t.nodes[leaf].Value)
	}
	return out, nil
}

// Score returns the coefficient of determination R^2 of the prediction.
func (t *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := t.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(metrics.VecFromMatrix(y), metrics.VecFromMatrix(pred))
}

// Nodes returns the fitted nodes; index 0 is the root.
func (t *DecisionTreeRegressor) Nodes() []Node { return t.nodes }

// NFeatures returns the number of features seen during fit.
func (t *DecisionTreeRegressor) NFeatures() int { return t.nFeatures }

// LeafCount returns the number of leaves.
func (t *DecisionTreeRegressor) LeafCount() int {
	c := 0
	for i := range t.nodes {
		if t.nodes[i].IsLeaf() {
			c++
		}
	}
	return c
}

// Depth returns the depth of the deepest leaf.
func (t *DecisionTreeRegressor) Depth() int {
	d := 0
	for i := range t.nodes {
		if t.nodes[i].Depth > d {
			d = t.nodes[i].Depth
		}
	}
	return d
}

// ImpurityDecrease returns the unnormalised total impurity decrease per
// feature, weighted by node sample counts.
func (t *DecisionTreeRegressor) ImpurityDecrease() []float64 {
	out := make([]float64, len(t.importances))
	copy(out, t.importances)
	return out
}

// FeatureImportances returns the impurity-based importances normalised to
// sum to one (all zeros for a single-leaf tree).
func (t *DecisionTreeRegressor) FeatureImportances() []float64 {
	out := t.ImpurityDecrease()
	var sum float64
	for _, v := range out {
		sum += v
	}
	if sum > 0 {
		for i := range out {
			out[i] /= sum
		}
	}
	return out
}

// Restore installs previously fitted nodes, e.g. from a saved ensemble.
func (t *DecisionTreeRegressor) Restore(nodes []Node, nFeatures int, importances []float64) error {
	if len(nodes) == 0 {
		return errors.NewValueError("Restore", "empty tree")
	}
	for i, n := range nodes {
		if n.IsLeaf() {
			continue
		}
		if n.Feature >= nFeatures || n.Left <= i || n.Right <= i || n.Left >= len(nodes) || n.Right >= len(nodes) {
			return errors.NewModelError("Restore", "corrupt tree", errors.Newf("node %d", i))
		}
	}
	t.nodes = nodes
	t.nFeatures = nFeatures
	t.importances = importances
	t.SetFitted()
	return nil
}

// GetParams returns the hyperparameters keyed by scikit-learn name.
func (t *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             t.Criterion,
		"max_depth":             t.MaxDepth,
		"min_samples_split":     t.MinSamplesSplit,
		"min_samples_leaf":      t.MinSamplesLeaf,
		"min_impurity_decrease": t.MinImpurityDecrease,
		"max_features":          t.MaxFeatures.Param(),
		"random_state":          t.RandomState,
	}
}

// SetParams sets hyperparameters and resets the fitted state.
func (t *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "criterion":
			t.Criterion, err = model.ParamString(key, value)
		case "max_depth":
			if value == nil {
				t.MaxDepth = 0
				continue
			}
			t.MaxDepth, err = model.ParamInt(key, value)
		case "min_samples_split":
			t.MinSamplesSplit, err = model.ParamInt(key, value)
		case "min_samples_leaf":
			t.MinSamplesLeaf, err = model.ParamInt(key, value)
		case "min_impurity_decrease":
			t.MinImpurityDecrease, err = model.ParamFloat(key, value)
		case "max_features":
			t.MaxFeatures, err = ParseMaxFeatures(value)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(key, value)
			t.RandomState = int64(seed)
		default:
			return errors.NewValidationError(key, "unknown parameter for DecisionTreeRegressor", value)
		}
		if err != nil {
			return errors.NewValidationError(key, err.Error(), value)
		}
	}
	t.Reset()
	return nil
}

// Clone returns an unfitted copy with the same hyperparameters.
func (t *DecisionTreeRegressor) Clone() model.Regressor {
	return &DecisionTreeRegressor{
		Criterion:           t.Criterion,
		MaxDepth:            t.MaxDepth,
		MinSamplesSplit:     t.MinSamplesSplit,
		MinSamplesLeaf:      t.MinSamplesLeaf,
		MinImpurityDecrease: t.MinImpurityDecrease,
		MaxFeatures:         t.MaxFeatures,
		RandomState:         t.RandomState,
	}
}
