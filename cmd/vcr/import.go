package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akupila/vcr"
)

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <cassette> <fixture>",
		Short: "Convert a go-vcr cassette into a fixture",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			interactions, err := vcr.LoadCassette(strings.TrimSuffix(args[0], ".yaml"))
			if err != nil {
				return err
			}
			if err := vcr.WriteFixture(args[1], interactions); err != nil {
				return err
			}
			opts.logger.Info("imported cassette", "cassette", args[0], "fixture", args[1], "interactions", len(interactions))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d interactions to %s\n", len(interactions), args[1])
			return nil
		},
	}
}
