// Package cli implements the mailroom command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mailroom/internal/config"
	"github.com/dmitrymomot/mailroom/internal/httpserver"
	"github.com/dmitrymomot/mailroom/pkg/logger"
)

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

type rootOptions struct {
	envFile string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "mailroom",
		Short:         "Render MJML email templates and send them",
		Long:          "mailroom renders named MJML templates with JSON parameters and delivers them over SMTP or a provider API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded outside production")

	root.AddCommand(
		newServeCmd(opts),
		newTemplatesCmd(opts),
		newSendCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}

func (o *rootOptions) load() (config.Config, error) {
	return config.Load(o.envFile)
}

// newLogger writes logs to w so command output on stdout stays clean.
func newLogger(cfg config.Config, w io.Writer) (*slog.Logger, logger.FlushFunc) {
	return logger.New(cfg.Log, w, httpserver.RequestIDExtractor())
}
