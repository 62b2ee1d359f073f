package cli

import (
	"github.com/arthur-debert/dotup/pkg/config"
	"github.com/arthur-debert/dotup/pkg/executor"
	"github.com/arthur-debert/dotup/pkg/logging"
	"github.com/arthur-debert/dotup/pkg/paths"
	"github.com/arthur-debert/dotup/pkg/report"
	"github.com/arthur-debert/dotup/pkg/types"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		configPath string
		format     string
		jobs       int
		failFast   bool
	)

	cmd := &cobra.Command{
		Use:     "run",
		Short:   MsgRunShort,
		Example: MsgRunExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer, err := rendererFor(cmd, format)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				a.exitCode = report.ExitCode(nil, err)
				return renderer.Error(err)
			}
			if cmd.Flags().Changed("jobs") {
				cfg.Jobs = jobs
			}
			if failFast {
				cfg.FailFast = true
			}

			done := logging.LogOperationStart(logging.GetLogger("cli"), "run")
			rep, err := executor.New(executor.Options{}).Run(cmd.Context(), *cfg)
			done()
			a.exitCode = report.ExitCode(rep, err)
			if err != nil {
				return renderer.Error(err)
			}
			return renderer.Report(rep)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&format, "format", "auto", MsgFlagFormat)
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, MsgFlagJobs)
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, MsgFlagFailFast)
	return cmd
}

func newPlanCmd(a *app) *cobra.Command {
	var (
		configPath string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: MsgPlanShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer, err := rendererFor(cmd, format)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				a.exitCode = report.ExitCode(nil, err)
				return renderer.Error(err)
			}

			plans, err := executor.New(executor.Options{}).Preview(*cfg)
			if err != nil {
				a.exitCode = report.ExitCode(nil, err)
				return renderer.Error(err)
			}
			return renderer.Plan(plans)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&format, "format", "auto", MsgFlagFormat)
	return cmd
}

func addConfigFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "config", "c", "", MsgFlagConfig)
}

func loadConfig(path string) (*types.Config, error) {
	if path == "" {
		path = paths.DefaultConfigPath()
	}
	cliLogger := logging.GetLogger("cli")
	cliLogger.Info().Str("config", path).Msg("Loading configuration")
	return config.Load(path)
}
