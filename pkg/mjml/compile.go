package mjml

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// Result is the compiled form of a markup document.
type Result struct {
	Subject string // mj-title
	Preview string // mj-preview
	HTML    string
	Text    string
}

// compiler holds no per-document state and is safe for concurrent use.
type compiler struct {
	md         goldmark.Markdown
	textPol    *bluemonday.Policy
	breakpoint string
}

var defaultCompiler = &compiler{
	md:         goldmark.New(goldmark.WithExtensions(NewButtonExtension())),
	textPol:    bluemonday.StrictPolicy(),
	breakpoint: "480px",
}

// Compile parses and validates src and renders its HTML and plain text bodies.
// Structural problems are reported as *Error.
func Compile(src string) (*Result, error) {
	return defaultCompiler.compile(src)
}

func (c *compiler) compile(src string) (*Result, error) {
	root, err := parse(src)
	if err != nil {
		return nil, err
	}

	doc := newDocument(c, root)

	return &Result{
		Subject: doc.title,
		Preview: doc.preview,
		HTML:    doc.renderHTML(),
		Text:    doc.renderText(),
	}, nil
}

// document carries the head settings collected before rendering the body.
type document struct {
	c          *compiler
	root       *node
	body       *node
	tagDefault map[string]map[string]string
	classes    map[string]map[string]string
	title      string
	preview    string
	breakpoint string
	styles     []string
	fonts      []string
}

func newDocument(c *compiler, root *node) *document {
	d := &document{
		c:          c,
		root:       root,
		body:       root.child("mj-body"),
		tagDefault: make(map[string]map[string]string),
		classes:    make(map[string]map[string]string),
		breakpoint: c.breakpoint,
	}

	head := root.child("mj-head")
	if head == nil {
		return d
	}

	for _, n := range head.children {
		switch n.name {
		case "mj-title":
			d.title = inlineText(n.content)
		case "mj-preview":
			d.preview = inlineText(n.content)
		case "mj-style":
			d.styles = append(d.styles, strings.TrimSpace(n.content))
		case "mj-font":
			if href := n.attrs["href"]; href != "" {
				d.fonts = append(d.fonts, href)
			}
		case "mj-breakpoint":
			if w := n.attrs["width"]; w != "" {
				d.breakpoint = w
			}
		case "mj-attributes":
			for _, a := range n.children {
				switch a.name {
				case "mj-class":
					if name := a.attrs["name"]; name != "" {
						d.classes[name] = withoutKey(a.attrs, "name")
					}
				case "mj-all":
					d.tagDefault["*"] = a.attrs
				default:
					d.tagDefault[a.name] = a.attrs
				}
			}
		}
	}
	return d
}

// attr resolves an attribute: element, mj-class, per-tag default, mj-all, fallback.
func (d *document) attr(n *node, name, fallback string) string {
	if v, ok := n.attrs[name]; ok {
		return v
	}
	for _, class := range strings.Fields(n.attrs["mj-class"]) {
		if v, ok := d.classes[class][name]; ok {
			return v
		}
	}
	if v, ok := d.tagDefault[n.name][name]; ok {
		return v
	}
	if v, ok := d.tagDefault["*"][name]; ok {
		return v
	}
	return fallback
}

func withoutKey(m map[string]string, key string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}

// inlineText decodes entities and collapses whitespace of a short text
// such as a title.
func inlineText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}
