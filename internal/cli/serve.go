package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mailroom/internal/app"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Load templates, open the configured transport and serve the HTTP API until SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log, flush := newLogger(cfg, cmd.OutOrStdout())
			defer func() { _ = flush(cmd.Context()) }()

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				log.Error("startup failed", slog.String("error", err.Error()))
				return err
			}
			return a.Server().Run(cmd.Context())
		},
	}
}
