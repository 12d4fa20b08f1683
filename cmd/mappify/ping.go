package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPingCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the configured database is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, cfg, err := root.connect(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.Ping(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s (%s)\n", client.Dialect(), cfg.Name)
			return nil
		},
	}
}
