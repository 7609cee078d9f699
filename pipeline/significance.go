package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/erkboost/config"
	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/pkg/log"
	"github.com/YuminosukeSato/erkboost/report"
	"github.com/YuminosukeSato/erkboost/schema"
	"github.com/YuminosukeSato/erkboost/stats"
)

// SignificanceResult holds the t-scores and p-values of one condition.
type SignificanceResult struct {
	Name      string
	TScores   []float64
	PValues   []float64
	ChartPath string // 空ならチャート未出力
}

// SelectFixtures returns the embedded fixtures named in names, in the given
// order. An empty list selects all of them.
func SelectFixtures(names []string) ([]*report.Fixture, error) {
	all, err := report.LoadFixtures()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]*report.Fixture, len(all))
	for _, f := range all {
		byName[f.Name] = f
	}
	out := make([]*report.Fixture, 0, len(names))
	for _, n := range names {
		f, ok := byName[n]
		if !ok {
			return nil, errors.NewValidationError("significance.fixtures", "unknown fixture", n)
		}
		out = append(out, f)
	}
	return out, nil
}

// Significance computes one-sided p-values for each fixture, renders its
// chart when a plot directory is configured and prints the stored
// cross-validation summary followed by the significant parameters.
func Significance(ctx context.Context, cfg *config.Config, fixtures []*report.Fixture, w io.Writer) ([]SignificanceResult, error) {
	logger := log.GetLoggerWithName("pipeline").With(log.PipelineKey, log.PipelineSignificance)
	names := schema.Names()
	calc := stats.NewCalculator(cfg.Significance.DF, names)

	results := make([]SignificanceResult, 0, len(fixtures))
	for _, f := range fixtures {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		sig, err := calc.Compute(f.Means, f.SEMs)
		if err != nil {
			return results, errors.Wrapf(err, "fixture %s", f.Name)
		}
		res := SignificanceResult{Name: f.Name, TScores: sig.TScores, PValues: sig.PValues}

		if cfg.PlotDir != "" {
			if err := drawFixture(f, sig.PValues, names, cfg); err != nil {
				return results, err
			}
			res.ChartPath = chartPath(cfg.PlotDir, f.Name)
		}

		if err := report.WriteSummary(w, f.Source, f.Summary); err != nil {
			return results, err
		}
		sigIdx := stats.Significant(sig.PValues, cfg.Significance.Alpha)
		if _, err := fmt.Fprintf(w, "Significant (p < %g): %d of %d\n", cfg.Significance.Alpha, len(sigIdx), len(names)); err != nil {
			return results, err
		}
		// 有意なパラメータを重要度の降順に並べる
		order := stats.Rank(subsetF(f.Means, sigIdx))
		if err := report.WritePValues(w, subset(names, sigIdx), subsetF(sig.PValues, sigIdx), order); err != nil {
			return results, err
		}
		if _, err := fmt.Fprintln(w, report.Separator); err != nil {
			return results, err
		}

		logger.Info("significance computed", log.SourceKey, f.Source, "significant", len(sigIdx))
		results = append(results, res)
	}
	return results, nil
}

func chartPath(dir, name string) string {
	return filepath.Join(dir, name+".png")
}

// drawFixture renders f into the configured plot directory.
func drawFixture(f *report.Fixture, pValues []float64, names []string, cfg *config.Config) error {
	style, err := f.ChartStyle(report.DefaultStyle())
	if err != nil {
		return err
	}
	if cfg.Significance.Markers {
		style.Markers.Enabled = true
		if style.Markers.Alpha == 0 {
			style.Markers.Alpha = cfg.Significance.Alpha
		}
	}
	p, err := report.BarChart(names, f.Means, f.SEMs, style)
	if err != nil {
		return err
	}
	if err := report.AddSignificanceMarkers(p, f.Means, pValues, style.Markers); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.PlotDir, 0o755); err != nil {
		return errors.Wrapf(err, "create plot dir %s", cfg.PlotDir)
	}
	return report.SaveChart(p, style, chartPath(cfg.PlotDir, f.Name))
}

func subset(names []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = names[j]
	}
	return out
}

func subsetF(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}
