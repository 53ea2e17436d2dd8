package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/akupila/vcr"
)

type options struct {
	configPath string
	match      []string

	cfg    *vcr.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "vcr",
		Short: "Inspect recorded HTTP interaction fixtures",
		Long: `vcr works with the YAML fixture files written by the vcr recorder.

Configuration is read from a YAML file (--config), then from VCR_ environment
variables. A .env file in the working directory is loaded first if present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := vcr.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("match") {
				cfg.MatchRequestsOn = opts.match
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			opts.cfg = cfg
			opts.logger = cfg.Logger()
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "vcr.yaml", "Path to the configuration file")
	cmd.PersistentFlags().StringSliceVar(&opts.match, "match", nil, "Match attributes, e.g. method,uri (overrides config)")

	cmd.AddCommand(
		newCheckCmd(opts),
		newMatchCmd(opts),
		newImportCmd(opts),
	)
	return cmd
}

// store loads a fixture file into a new store.
func (o *options) store(fixture string) (*vcr.Store, error) {
	interactions, err := vcr.LoadFixture(fixture)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("loaded fixture", "file", fixture, "interactions", len(interactions))
	return vcr.NewStore(interactions...), nil
}
