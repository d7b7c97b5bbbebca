package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mailroom/internal/app"
	"github.com/dmitrymomot/mailroom/internal/config"
	"github.com/dmitrymomot/mailroom/internal/store"
	"github.com/dmitrymomot/mailroom/pkg/db"
	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

func newTemplatesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List available templates",
		Long:  "List the templates of the configured source with their descriptions.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			var templates []mailer.Template
			err = withDB(cmd.Context(), cfg, func(sqlDB *sql.DB) error {
				templates, err = app.LoadTemplates(cmd.Context(), cfg.Templates, sqlDB)
				return err
			})
			if err != nil {
				return err
			}
			registry, err := mailer.NewRegistry(templates...)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDESCRIPTION")
			for _, t := range registry.Templates() {
				fmt.Fprintf(tw, "%s\t%s\n", t.Name, t.Description)
			}
			return tw.Flush()
		},
	}
	cmd.AddCommand(newTemplatesImportCmd(opts))
	return cmd
}

func newTemplatesImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Copy .mjml templates from a directory into PostgreSQL",
		Long:  "Parse every .mjml file in dir and upsert it into the email_templates table in one transaction.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.DB.ConnectionString == "" {
				return fmt.Errorf("%w: DATABASE_CONN_URL is required", config.ErrInvalid)
			}

			templates, err := mailer.LoadFS(os.DirFS(args[0]), ".")
			if err != nil {
				return err
			}
			if _, err := mailer.NewRegistry(templates...); err != nil {
				return err
			}

			return withDB(cmd.Context(), cfg, func(sqlDB *sql.DB) error {
				if err := store.New(sqlDB).Save(cmd.Context(), templates...); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d templates\n", len(templates))
				return nil
			})
		},
	}
}

// withDB calls fn with a database handle when one is configured, or nil.
func withDB(ctx context.Context, cfg config.Config, fn func(*sql.DB) error) error {
	if !cfg.UseDB() {
		return fn(nil)
	}
	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(db.Open(pool))
}
