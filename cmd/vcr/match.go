package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akupila/vcr"
)

func newMatchCmd(opts *options) *cobra.Command {
	var times int

	cmd := &cobra.Command{
		Use:   "match <fixture> <method> <url>",
		Short: "Show which recorded response a request replays",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := opts.cfg.Attributes()
			if err != nil {
				return err
			}
			store, err := opts.store(args[0])
			if err != nil {
				return err
			}
			req, err := vcr.NewRequest(args[1], args[2], nil, nil)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			stubbed, err := store.RequestStubbed(req, set)
			if err != nil {
				return err
			}
			if !stubbed {
				fmt.Fprintf(w, "%s: not stubbed\n", req)
				return nil
			}
			for n := 1; n <= times; n++ {
				resp, _, err := store.FindAndConsume(req, set)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "#%d %d %s (%d bytes)\n", n, resp.StatusCode, resp.Status, len(resp.Body))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&times, "times", "n", 1, "Number of consecutive requests to simulate")
	return cmd
}
