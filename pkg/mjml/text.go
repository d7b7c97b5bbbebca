package mjml

import (
	"html"
	"regexp"
	"strings"
)

var (
	blockBreak = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|h[1-6]|li|tr|table|blockquote)>`)
	blockStart = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|blockquote)(\s[^>]*)?>`)
	cellBreak  = regexp.MustCompile(`(?i)</t[dh]>`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// renderText produces the plain-text alternative of the body.
// Blocks are separated by a blank line.
func (d *document) renderText() string {
	var blocks []string
	d.walkComponents(d.body, func(n *node) {
		if s := d.textBlock(n); s != "" {
			blocks = append(blocks, s)
		}
	})
	return strings.Join(blocks, "\n\n")
}

// walkComponents calls fn for every column component in document order.
func (d *document) walkComponents(n *node, fn func(*node)) {
	for _, c := range n.children {
		switch c.name {
		case "mj-wrapper", "mj-section", "mj-group", "mj-column":
			d.walkComponents(c, fn)
		default:
			fn(c)
		}
	}
}

func (d *document) textBlock(n *node) string {
	switch n.name {
	case "mj-text", "mj-table", "mj-raw":
		return d.htmlToText(n.content)
	case "mj-markdown":
		return strings.TrimSpace(dedent(html.UnescapeString(n.content)))
	case "mj-button":
		label := d.htmlToText(n.content)
		if href := d.attr(n, "href", ""); href != "" {
			if label == "" {
				return href
			}
			return label + ": " + href
		}
		return label
	case "mj-divider":
		return "---"
	}
	return ""
}

func (d *document) htmlToText(s string) string {
	s = blockStart.ReplaceAllStringFunc(s, func(m string) string { return "\n" + m })
	s = blockBreak.ReplaceAllStringFunc(s, func(m string) string { return m + "\n" })
	s = cellBreak.ReplaceAllStringFunc(s, func(m string) string { return m + " " })
	s = html.UnescapeString(d.c.textPol.Sanitize(s))

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
