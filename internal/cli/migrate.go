package cli

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mailroom/internal/store"
	"github.com/dmitrymomot/mailroom/pkg/db"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Create or upgrade the email_templates table in the database named by DATABASE_CONN_URL.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log, flush := newLogger(cfg, cmd.ErrOrStderr())
			defer func() { _ = flush(cmd.Context()) }()

			pool, err := db.Connect(cmd.Context(), cfg.DB)
			if err != nil {
				return err
			}
			defer pool.Close()

			return db.Migrate(cmd.Context(), db.Open(pool), store.Migrations, cfg.DB.MigrationsTable, log)
		},
	}
}
