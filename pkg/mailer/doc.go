// Package mailer turns a named MJML template and a JSON parameter tree into an
// email and sends it through a pooled transport.
//
// # Architecture
//
// The package consists of these components:
//
//   - Registry: read-only name to Template lookup, built once from a loader
//   - Template: two-stage rendering, Interpolate (mustache) then Compile (MJML)
//   - Assemble: adds addresses and attachment files to rendered Content
//   - Pool/Conn: transport connections checked out per send
//   - Mailer: runs the pipeline and classifies every failure
//
// # Usage
//
//	templates, err := mailer.LoadFS(os.DirFS("templates"), ".")
//	if err != nil {
//		return err
//	}
//	registry, err := mailer.NewRegistry(templates...)
//	if err != nil {
//		return err
//	}
//
//	sender, err := resend.New(resend.Config{APIKey: key})
//	if err != nil {
//		return err
//	}
//	m := mailer.New(registry, mailer.NewSenderPool(sender), mailer.Config{FallbackSubject: "Notification"})
//
//	p, _ := params.Parse([]byte(`{"name":"bob","token":"abc"}`))
//	err = m.Send(ctx, "user-login", mailer.Request{
//		From:   "noreply@example.com",
//		To:     "bob@example.com",
//		Params: p,
//	})
//
// # Templates
//
// Templates are .mjml files with optional YAML frontmatter:
//
//	---
//	description: One-click sign in link
//	---
//	<mjml>
//	  <mj-head><mj-title>Sign in</mj-title></mj-head>
//	  <mj-body>
//	    <mj-section><mj-column>
//	      <mj-text>Hello {{name}}!</mj-text>
//	      <mj-button href="https://example.com/login?token={{token}}">Sign in</mj-button>
//	    </mj-column></mj-section>
//	  </mj-body>
//	</mjml>
//
// Placeholders use mustache syntax. Missing values render empty; values are
// HTML-escaped unless written as {{{triple}}}. The mj-title becomes the subject,
// falling back to Config.FallbackSubject.
//
// # Errors
//
// Send returns *Error whose Kind tells the caller who is at fault:
//
//	KindBadRequest  invalid request, interpolation failure
//	KindNotFound    unknown template
//	KindInternal    compilation, attachment, connection or send failure
//
// The stage sentinel stays reachable with errors.Is:
//
//	if errors.Is(err, mailer.ErrTemplateNotFound) {
//		// ...
//	}
package mailer
