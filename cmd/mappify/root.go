package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syssam/mappify"
	"github.com/syssam/mappify/config"
)

type rootOptions struct {
	envFiles []string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "mappify",
		Short: "Filter compiler and query runner for mappify",
		Long: `mappify compiles where filters to SQL and runs statements against the
database described by the DB_* environment variables (DB_DIALECT, DB_HOST,
DB_NAME, ...). Variables can also come from dotenv files.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log connection and statement events to stderr")

	cmd.AddCommand(
		newWhereCmd(),
		newPingCmd(opts),
		newQueryCmd(opts),
	)
	return cmd
}

// connect loads the configuration and opens a client.
func (o *rootOptions) connect(ctx context.Context, stderr io.Writer) (*mappify.Client, *config.Config, error) {
	cfg, err := config.Load(o.envFiles...)
	if err != nil {
		return nil, nil, err
	}
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
		cfg.Debug = true
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	client, err := mappify.Open(ctx, cfg, mappify.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
