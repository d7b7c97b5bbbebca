// Package mjml compiles a subset of the MJML email markup language into a
// responsive HTML body and a plain-text alternative.
//
// Documents are parsed as XML (HTML named entities are accepted) and
// validated against a fixed table of allowed parents, so an unknown tag or a
// component in the wrong place is reported as an *Error carrying the source
// line:
//
//	res, err := mjml.Compile(src)
//	var me *mjml.Error
//	if errors.As(err, &me) {
//		log.Printf("template broken at line %d: %s", me.Line, me.Msg)
//	}
//
// # Supported tags
//
//	mjml
//	  mj-head: mj-title, mj-preview, mj-style, mj-font, mj-breakpoint,
//	           mj-attributes (mj-all, mj-class, per-tag defaults)
//	  mj-body: mj-wrapper, mj-section, mj-raw
//	    mj-section: mj-column, mj-group, mj-raw
//	      mj-column: mj-text, mj-button, mj-image, mj-divider, mj-spacer,
//	                 mj-table, mj-raw, mj-markdown
//
// mj-title becomes Result.Subject and mj-preview becomes Result.Preview.
//
// Content of mj-text, mj-button, mj-table, mj-raw and mj-markdown is copied
// verbatim and is not parsed as XML, so plain HTML such as <br> works there.
//
// # Markdown
//
// mj-markdown renders its body with goldmark. Call-to-action links use the
// button syntax:
//
//	<mj-markdown>
//	  Welcome aboard.
//
//	  [!button|Confirm email](https://example.com/confirm)
//	</mj-markdown>
package mjml
