package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mailroom/internal/app"
	"github.com/dmitrymomot/mailroom/pkg/mailer"
	"github.com/dmitrymomot/mailroom/pkg/params"
)

type sendOptions struct {
	from       string
	to         string
	paramsFile string
	paramsJSON string
	attach     []string
	dryRun     bool
}

func newSendCmd(opts *rootOptions) *cobra.Command {
	so := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send <template>",
		Short: "Render a template and send it once",
		Long: `Render a template with JSON parameters and send it through the configured transport.

Attachments are given as path or path:content/type and keep their order.
With --dry-run the MIME message is printed instead of sent.`,
		Example: `  mailroom send user-login --from noreply@example.com --to bob@example.com --params-json '{"name":"bob"}'
  mailroom send invoice --from billing@example.com --to bob@example.com --params params.json --attach invoice.pdf:application/pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := so.request(cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log, flush := newLogger(cfg, cmd.ErrOrStderr())
			defer func() { _ = flush(cmd.Context()) }()

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(cmd.Context()) }()

			if so.dryRun {
				msg, err := a.Mailer.Prepare(args[0], req)
				if err != nil {
					return err
				}
				raw, err := msg.Bytes()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(raw)
				return err
			}

			return a.Mailer.Send(cmd.Context(), args[0], req)
		},
	}

	f := cmd.Flags()
	f.StringVar(&so.from, "from", "", "sender address")
	f.StringVar(&so.to, "to", "", "recipient address")
	f.StringVar(&so.paramsFile, "params", "", "JSON parameters file, - for stdin")
	f.StringVar(&so.paramsJSON, "params-json", "", "inline JSON parameters")
	f.StringArrayVar(&so.attach, "attach", nil, "attachment path[:content/type], repeatable")
	f.BoolVar(&so.dryRun, "dry-run", false, "print the message instead of sending it")
	cmd.MarkFlagsMutuallyExclusive("params", "params-json")

	return cmd
}

func (o *sendOptions) request(stdin io.Reader) (mailer.Request, error) {
	req := mailer.Request{From: o.from, To: o.to}

	var raw []byte
	switch {
	case o.paramsJSON != "":
		raw = []byte(o.paramsJSON)
	case o.paramsFile == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return req, fmt.Errorf("read params: %w", err)
		}
		raw = data
	case o.paramsFile != "":
		data, err := os.ReadFile(o.paramsFile)
		if err != nil {
			return req, fmt.Errorf("read params: %w", err)
		}
		raw = data
	}
	if len(raw) > 0 {
		p, err := params.Parse(raw)
		if err != nil {
			return req, mailer.BadRequest(fmt.Errorf("invalid params: %w", err))
		}
		req.Params = p
	}

	for _, a := range o.attach {
		req.Attachments = append(req.Attachments, parseAttachment(a))
	}
	return req, nil
}

// parseAttachment splits "path:type/subtype". A suffix without a slash is
// part of the path.
func parseAttachment(s string) mailer.AttachmentRef {
	path, contentType := s, ""
	if i := strings.LastIndexByte(s, ':'); i > 0 && strings.Contains(s[i+1:], "/") {
		path, contentType = s[:i], s[i+1:]
	}
	return mailer.AttachmentRef{
		Path:        path,
		Filename:    baseName(path),
		ContentType: contentType,
	}
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
