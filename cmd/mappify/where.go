package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/syssam/mappify/dialect"
	"github.com/syssam/mappify/dialect/sql"
	"github.com/syssam/mappify/where"
)

type whereOptions struct {
	dialect string
	table   string
}

// compiled is the output of the where command.
type compiled struct {
	SQL  string `yaml:"sql"`
	Args []any  `yaml:"args"`
}

func newWhereCmd() *cobra.Command {
	opts := &whereOptions{}
	cmd := &cobra.Command{
		Use:   "where [FILTER]",
		Short: "Compile a YAML or JSON filter to SQL",
		Long: `Compile a filter to a parameterized SQL condition. The filter is read
from the argument, or from stdin when no argument is given.

  mappify where '{price: {gt: 100}, or: [{name: A}, {name: B}]}'
  mappify where --table products --dialect postgres < filter.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 {
				data = []byte(args[0])
			} else if data, err = io.ReadAll(cmd.InOrStdin()); err != nil {
				return fmt.Errorf("reading filter: %w", err)
			}
			out, err := opts.compile(data)
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&opts.dialect, "dialect", dialect.MySQL, "placeholder style: mysql, postgres or sqlite")
	cmd.Flags().StringVar(&opts.table, "table", "", "print a full SELECT on this table")
	return cmd
}

func (o *whereOptions) compile(data []byte) (*compiled, error) {
	if !dialect.Valid(o.dialect) {
		return nil, fmt.Errorf("unknown dialect %q", o.dialect)
	}
	f, err := where.Parse(data)
	if err != nil {
		return nil, err
	}
	clause, err := where.Compile(f)
	if err != nil {
		return nil, err
	}
	out := &compiled{Args: clause.Args}
	switch {
	case o.table != "":
		if !sql.IsValidIdentifier(o.table) {
			return nil, fmt.Errorf("invalid table name %q", o.table)
		}
		out.SQL, out.Args = sql.Dialect(o.dialect).Select().From(o.table).Where(clause.SQL, clause.Args...).Query()
	default:
		out.SQL = sql.Rebind(o.dialect, clause.SQL)
	}
	if out.Args == nil {
		out.Args = []any{}
	}
	return out, nil
}
