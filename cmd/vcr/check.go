package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <fixture>",
		Short: "Validate a fixture and list its replay groups",
		Long: `Check loads a fixture and groups its interactions the way they are
replayed under the configured match attributes. Requests in the same group
replay their responses in order, repeating the last one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := opts.cfg.Attributes()
			if err != nil {
				return err
			}
			store, err := opts.store(args[0])
			if err != nil {
				return err
			}
			groups, err := store.Groups(set)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d interactions in %d groups (match on %s)\n", store.Len(), len(groups), set)
			for _, g := range groups {
				req := g[0].Request
				fmt.Fprintf(w, "%3d  %s %s\n", len(g), req.Method, req.URI)
			}
			return nil
		},
	}
}
