package ensemble

import (
	"io"

	"github.com/YuminosukeSato/erkboost/core/model"
	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/sklearn/tree"
)

// snapshot は保存用の状態。gobでエンコードするためフィールドは全て公開
type snapshot struct {
	Version     int
	Params      gbrParams
	Init        float64
	NFeatures   int
	Trees       [][]tree.Node
	Importances [][]float64
	TrainScore  []float64
}

type gbrParams struct {
	Loss                string
	LearningRate        float64
	NEstimators         int
	Subsample           float64
	Criterion           string
	MinSamplesSplit     int
	MinSamplesLeaf      int
	MinImpurityDecrease float64
	MaxDepth            int
	MaxFeatures         tree.MaxFeatures
	RandomState         int64
}

const snapshotVersion = 1

func (g *GradientBoostingRegressor) snapshot() *snapshot {
	s := &snapshot{
		Version: snapshotVersion,
		Params: gbrParams{
			Loss:                g.Loss,
			LearningRate:        g.LearningRate,
			NEstimators:         g.NEstimators,
			Subsample:           g.Subsample,
			Criterion:           g.Criterion,
			MinSamplesSplit:     g.MinSamplesSplit,
			MinSamplesLeaf:      g.MinSamplesLeaf,
			MinImpurityDecrease: g.MinImpurityDecrease,
			MaxDepth:            g.MaxDepth,
			MaxFeatures:         g.MaxFeatures,
			RandomState:         g.RandomState,
		},
		Init:       g.init,
		NFeatures:  g.nFeatures,
		TrainScore: g.trainScore,
	}
	for _, t := range g.estimators {
		s.Trees = append(s.Trees, t.Nodes())
		s.Importances = append(s.Importances, t.ImpurityDecrease())
	}
	return s
}

func (g *GradientBoostingRegressor) restore(s *snapshot) error {
	if s.Version != snapshotVersion {
		return errors.NewModelError("Load", "version", errors.Newf("unsupported snapshot version %d", s.Version))
	}
	if len(s.Trees) != len(s.Importances) {
		return errors.NewModelError("Load", "corrupt", errors.New("tree and importance counts differ"))
	}
	// 全ての木が復元できてから受け手を書き換える
	estimators := make([]*tree.DecisionTreeRegressor, len(s.Trees))
	for i, nodes := range s.Trees {
		t := tree.NewDecisionTreeRegressor(
			tree.WithCriterion(s.Params.Criterion),
			tree.WithMaxDepth(s.Params.MaxDepth),
			tree.WithMinSamplesSplit(s.Params.MinSamplesSplit),
			tree.WithMinSamplesLeaf(s.Params.MinSamplesLeaf),
			tree.WithMinImpurityDecrease(s.Params.MinImpurityDecrease),
			tree.WithMaxFeatures(s.Params.MaxFeatures),
		)
		if err := t.Restore(nodes, s.NFeatures, s.Importances[i]); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
		estimators[i] = t
	}

	p := s.Params
	g.Loss = p.Loss
	g.LearningRate = p.LearningRate
	g.NEstimators = p.NEstimators
	g.Subsample = p.Subsample
	g.Criterion = p.Criterion
	g.MinSamplesSplit = p.MinSamplesSplit
	g.MinSamplesLeaf = p.MinSamplesLeaf
	g.MinImpurityDecrease = p.MinImpurityDecrease
	g.MaxDepth = p.MaxDepth
	g.MaxFeatures = p.MaxFeatures
	g.RandomState = p.RandomState
	g.estimators = estimators
	g.init = s.Init
	g.nFeatures = s.NFeatures
	g.trainScore = s.TrainScore
	g.SetFitted()
	return nil
}

// Save writes the fitted ensemble to path in gob format.
func (g *GradientBoostingRegressor) Save(path string) error {
	if !g.IsFitted() {
		return errors.NewNotFittedError("GradientBoostingRegressor", "Save")
	}
	return model.SaveModel(g.snapshot(), path)
}

// Load replaces the receiver with the ensemble stored at path.
func (g *GradientBoostingRegressor) Load(path string) error {
	var s snapshot
	if err := model.LoadModel(&s, path); err != nil {
		return err
	}
	return g.restore(&s)
}

// Encode writes the fitted ensemble to w.
func (g *GradientBoostingRegressor) Encode(w io.Writer) error {
	if !g.IsFitted() {
		return errors.NewNotFittedError("GradientBoostingRegressor", "Encode")
	}
	return model.SaveModelToWriter(g.snapshot(), w)
}

// Decode reads an ensemble written by Encode.
func (g *GradientBoostingRegressor) Decode(r io.Reader) error {
	var s snapshot
	if err := model.LoadModelFromReader(&s, r); err != nil {
		return err
	}
	return g.restore(&s)
}
