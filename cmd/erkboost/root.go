package main

import (
	"github.com/YuminosukeSato/erkboost/config"
	"github.com/YuminosukeSato/erkboost/pkg/log"
	"github.com/spf13/cobra"
)

// options are the global flags shared by every subcommand.
type options struct {
	configPath string
	logLevel   string
	plotDir    string
	jobs       int

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "erkboost",
		Short:         "Gradient boosting analysis of ERK response times",
		Long:          "erkboost fits gradient boosted trees to simulated ERK response times,\nranks the 48 model parameters by permutation importance and tests\nwhich of them matter.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "config file (default: erkboost.yaml or configs/erkboost.yaml)")
	f.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	f.StringVar(&opts.plotDir, "plot-dir", "", "directory for chart files (overrides config)")
	f.IntVar(&opts.jobs, "jobs", 0, "parallel workers, 0 for all cores (overrides config)")

	root.AddCommand(newFitCmd(opts), newTuneCmd(opts), newSignificanceCmd(opts))
	return root
}

// load reads the config file and applies flag overrides on top of it.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("plot-dir") {
		cfg.PlotDir = o.plotDir
	}
	if flags.Changed("jobs") {
		cfg.NJobs = o.jobs
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := log.SetupLogger(cfg.LogLevel, cmd.ErrOrStderr()); err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

// datasets returns the positional arguments, or the configured datasets.
func (o *options) datasets(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return o.cfg.Datasets
}
