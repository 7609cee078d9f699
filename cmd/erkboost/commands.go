package main

import (
	"github.com/YuminosukeSato/erkboost/pipeline"
	"github.com/spf13/cobra"
)

func newFitCmd(opts *options) *cobra.Command {
	var savePath string
	cmd := &cobra.Command{
		Use:   "fit [dataset...]",
		Short: "Cross-validate the model and compute permutation importance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("save") {
				opts.cfg.Model.SavePath = savePath
			}
			for _, path := range opts.datasets(args) {
				if _, err := pipeline.FitAndImportance(cmd.Context(), opts.cfg, path, cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&savePath, "save", "", "write the fitted model to this file")
	return cmd
}

func newTuneCmd(opts *options) *cobra.Command {
	var noRefit bool
	cmd := &cobra.Command{
		Use:   "tune [dataset...]",
		Short: "Grid search over the boosting hyperparameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if noRefit {
				opts.cfg.Tune.Refit = false
			}
			for _, path := range opts.datasets(args) {
				if _, err := pipeline.Tune(cmd.Context(), opts.cfg, path, cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noRefit, "no-refit", false, "skip refitting the best candidate on all rows")
	return cmd
}

func newSignificanceCmd(opts *options) *cobra.Command {
	var markers bool
	cmd := &cobra.Command{
		Use:   "significance [fixture...]",
		Short: "Test the stored importance vectors and draw their charts",
		Long:  "significance computes one-sided t-test p-values for the embedded\nimportance vectors (cd28_low, cd3z_low, cd28_high, cd3z_high).",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				names = opts.cfg.Significance.Fixtures
			}
			if cmd.Flags().Changed("markers") {
				opts.cfg.Significance.Markers = markers
			}
			fixtures, err := pipeline.SelectFixtures(names)
			if err != nil {
				return err
			}
			_, err = pipeline.Significance(cmd.Context(), opts.cfg, fixtures, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().BoolVar(&markers, "markers", false, "mark bars with p below alpha")
	return cmd
}
