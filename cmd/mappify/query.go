package main

import (
	"github.com/spf13/cobra"
)

func newQueryCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query SQL [ARGS...]",
		Short: "Run a raw statement and print the rows as YAML",
		Long: `Run a raw statement through the configured database. Extra arguments are
bound to the statement placeholders in order.

  mappify query 'SELECT id, name FROM products WHERE price > ?' 100`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, _, err := root.connect(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer client.Close()
			binds := make([]any, len(args)-1)
			for i, a := range args[1:] {
				binds[i] = a
			}
			rows, err := client.Query(ctx, args[0], binds...)
			if err != nil {
				return err
			}
			for _, row := range rows {
				for k, v := range row {
					if b, ok := v.([]byte); ok {
						row[k] = string(b)
					}
				}
			}
			return writeYAML(cmd.OutOrStdout(), rows)
		},
	}
}
