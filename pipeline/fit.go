package pipeline

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/YuminosukeSato/erkboost/config"
	"github.com/YuminosukeSato/erkboost/dataset"
	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/pkg/log"
	"github.com/YuminosukeSato/erkboost/report"
	"github.com/YuminosukeSato/erkboost/schema"
	"github.com/YuminosukeSato/erkboost/sklearn/ensemble"
	"github.com/YuminosukeSato/erkboost/sklearn/inspection"
	"github.com/YuminosukeSato/erkboost/sklearn/model_selection"
	"github.com/YuminosukeSato/erkboost/stats"
)

// FitScorers are evaluated on every cross-validation fold.
var FitScorers = []string{"r2", "neg_mean_absolute_error", "explained_variance"}

// FitResult is the outcome of FitAndImportance for one dataset.
type FitResult struct {
	Source     string
	Names      []string
	CV         *model_selection.CVResult
	Model      *ensemble.GradientBoostingRegressor
	Importance *inspection.Result
	PValues    []float64
}

// Scores returns the console lines for the cross-validation summary. MAE is
// reported as a positive error.
func (r *FitResult) Scores() []report.ScoreLine {
	return []report.ScoreLine{
		{Label: "Rsq", Mean: r.CV.Mean("r2"), SEM: r.CV.SEM("r2")},
		{Label: "MAE", Mean: -r.CV.Mean("neg_mean_absolute_error"), SEM: r.CV.SEM("neg_mean_absolute_error")},
		{Label: "EV", Mean: r.CV.Mean("explained_variance"), SEM: r.CV.SEM("explained_variance")},
	}
}

// Fixture converts the result into the form the significance pipeline reads.
func (r *FitResult) Fixture() *report.Fixture {
	return &report.Fixture{
		Name:   strings.TrimSuffix(filepath.Base(r.Source), filepath.Ext(r.Source)),
		Source: filepath.Base(r.Source),
		Style:  report.FixtureStyle{Markers: report.DefaultStyle().Markers},
		Summary: report.Summary{
			R2Mean: r.CV.Mean("r2"),
			R2SEM:  r.CV.SEM("r2"),
			EVMean: r.CV.Mean("explained_variance"),
			EVSEM:  r.CV.SEM("explained_variance"),
		},
		Means: r.Importance.Means,
		SEMs:  r.Importance.SEMs(),
	}
}

// FitAndImportance cross-validates the configured model on one dataset, fits
// it on all rows and measures permutation importance of every parameter.
// Results are printed to w as they become available.
func FitAndImportance(ctx context.Context, cfg *config.Config, path string, w io.Writer) (*FitResult, error) {
	logger := log.GetLoggerWithName("pipeline").With(log.PipelineKey, log.PipelineFit, log.SourceKey, path)
	start := time.Now()

	ds, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}
	sch := schema.Default()
	if cfg.SchemaCheck {
		if err := ds.ValidateSchema(sch); err != nil {
			return nil, err
		}
	}
	logger.Info("dataset loaded",
		log.SamplesKey, ds.NSamples(),
		log.FeaturesKey, ds.NFeatures(),
		log.SchemaVersionKey, sch.Version)

	est, err := NewEstimator(cfg.Model, cfg.Seed, cfg.NJobs)
	if err != nil {
		return nil, err
	}

	cv := model_selection.NewKFold(cfg.CVFolds, false, 0)
	cvRes, err := model_selection.CrossValidate(ctx, est, ds.X, ds.Y, cv, model_selection.CVOptions{
		Scoring: FitScorers,
		NJobs:   cfg.NJobs,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cross-validate %s", ds.Source)
	}
	res := &FitResult{Source: ds.Source, Names: ds.FeatureNames, CV: cvRes}
	logger.Info("cross-validation finished", log.R2ScoreKey, cvRes.Mean("r2"))

	if _, err := io.WriteString(w, "Source File: "+filepath.Base(ds.Source)+"\n"); err != nil {
		return nil, err
	}
	if err := report.WriteScores(w, res.Scores()); err != nil {
		return nil, err
	}

	full, ok := est.Clone().(*ensemble.GradientBoostingRegressor)
	if !ok {
		return nil, errors.NewValueError("FitAndImportance", "unexpected estimator type")
	}
	if err := full.FitContext(ctx, ds.X, ds.Y); err != nil {
		return nil, errors.Wrapf(err, "fit %s", ds.Source)
	}
	res.Model = full

	imp, err := inspection.PermutationImportance(full, ds.X, ds.Y, inspection.Options{
		NRepeats:    cfg.Importance.NRepeats,
		Scoring:     cfg.Importance.Scoring,
		RandomState: cfg.Seed,
		NJobs:       cfg.NJobs,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "permutation importance %s", ds.Source)
	}
	res.Importance = imp
	sems := imp.SEMs()
	if err := stats.CheckAligned(ds.FeatureNames, imp.Means, sems); err != nil {
		return nil, err
	}
	if err := report.WriteImportance(w, imp.Means, sems); err != nil {
		return nil, err
	}

	sig, err := stats.NewCalculator(cfg.Significance.DF, ds.FeatureNames).Compute(imp.Means, sems)
	if err != nil {
		return nil, err
	}
	res.PValues = sig.PValues

	if cfg.PlotDir != "" {
		if err := drawFixture(res.Fixture(), res.PValues, ds.FeatureNames, cfg); err != nil {
			return nil, err
		}
	}
	if cfg.Model.SavePath != "" {
		if err := full.Save(cfg.Model.SavePath); err != nil {
			return nil, err
		}
		logger.Info("model saved", "path", cfg.Model.SavePath)
	}

	logger.Info("fit pipeline finished", log.DurationMsKey, time.Since(start).Milliseconds())
	return res, nil
}
