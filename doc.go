// Package erkboost ranks the parameters of a T-cell signalling model by how
// strongly they drive ERK response time.
//
// Simulated response times are fitted with gradient boosted regression
// trees, the fit is checked with k-fold cross-validation, and every one of
// the 48 model parameters is scored by permutation importance. A one-sided
// t-test on the importance means then tells which parameters matter.
//
// # Pipelines
//
// Three independent pipelines are exposed by package pipeline and by the
// erkboost command:
//
//   - fit: cross-validate, fit on all rows, permutation importance
//   - tune: exhaustive grid search over learning_rate, max_features,
//     subsample and min_samples_leaf
//   - significance: p-values and bar charts for stored importance vectors
//
// # Quick Start
//
//	cfg := config.Default()
//	cfg.PlotDir = "charts"
//
//	res, err := pipeline.FitAndImportance(ctx, cfg, "ERK_times_CD28_low.xlsx", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.CV.Mean("r2"))
//
// # Packages
//
//   - schema: the versioned list of 48 parameter names
//   - dataset: xlsx and csv loading
//   - sklearn/tree, sklearn/ensemble: regression trees and gradient boosting
//   - sklearn/model_selection: KFold, CrossValidate, GridSearchCV
//   - sklearn/inspection: permutation importance
//   - metrics: regression metrics and named scorers
//   - stats: standard errors, t-scores and p-values
//   - report: charts, console output and the embedded importance fixtures
//   - config: YAML configuration
//   - core/model, core/parallel: estimator interfaces and worker helpers
//   - pkg/errors, pkg/log: error types and structured logging
//
// The estimators follow scikit-learn's parameter names and defaults, so a
// configuration written for the Python tools carries over unchanged.
package erkboost
