package mjml

import (
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"
)

// node is one element of the parsed document.
// Ending tags keep their inner markup verbatim in content and have no children.
type node struct {
	attrs    map[string]string
	name     string
	content  string
	children []*node
	line     int
}

func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// endingTags hold raw content instead of child components.
var endingTags = map[string]bool{
	"mj-text":     true,
	"mj-button":   true,
	"mj-table":    true,
	"mj-raw":      true,
	"mj-title":    true,
	"mj-preview":  true,
	"mj-style":    true,
	"mj-markdown": true,
}

// columnComponents may appear inside mj-column.
var columnComponents = []string{
	"mj-text", "mj-button", "mj-image", "mj-divider",
	"mj-spacer", "mj-table", "mj-raw", "mj-markdown",
}

// allowedChildren maps a parent tag to the tags it may contain.
// The empty key is the document root.
var allowedChildren = map[string][]string{
	"":              {"mjml"},
	"mjml":          {"mj-head", "mj-body"},
	"mj-head":       {"mj-title", "mj-preview", "mj-style", "mj-font", "mj-breakpoint", "mj-attributes"},
	"mj-attributes": append([]string{"mj-all", "mj-class", "mj-section", "mj-column"}, columnComponents...),
	"mj-body":       {"mj-wrapper", "mj-section", "mj-raw"},
	"mj-wrapper":    {"mj-section", "mj-raw"},
	"mj-section":    {"mj-column", "mj-group", "mj-raw"},
	"mj-group":      {"mj-column"},
	"mj-column":     columnComponents,
}

func allowed(parent, child string) bool {
	for _, name := range allowedChildren[parent] {
		if name == child {
			return true
		}
	}
	return false
}

func known(name string) bool {
	if name == "mjml" {
		return true
	}
	for _, children := range allowedChildren {
		for _, c := range children {
			if c == name {
				return true
			}
		}
	}
	return false
}

// parse decodes src into an element tree and validates tag placement.
func parse(src string) (*node, error) {
	masked, contents := mask(src)

	dec := xml.NewDecoder(strings.NewReader(masked))
	dec.Strict = true
	dec.Entity = xml.HTMLEntity

	var (
		root  *node
		stack []*node
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, syntaxError(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			line, _ := dec.InputPos()
			n := &node{name: t.Name.Local, attrs: attrMap(t.Attr), line: line}

			parentName := ""
			var parent *node
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
				parentName = parent.name
			} else if root != nil {
				return nil, errorf(line, "unexpected <%s> after the root element", n.name)
			}

			if !known(n.name) {
				return nil, errorf(line, "unknown tag <%s>", n.name)
			}
			if !allowed(parentName, n.name) {
				if parent == nil {
					return nil, errorf(line, "root element must be <mjml>, got <%s>", n.name)
				}
				return nil, errorf(line, "<%s> is not allowed inside <%s>", n.name, parentName)
			}

			if parent == nil {
				root = n
			} else {
				parent.children = append(parent.children, n)
			}

			if endingTags[n.name] {
				if err := skipContent(dec, n); err != nil {
					return nil, err
				}
				if len(contents) > 0 {
					n.content = contents[0]
					contents = contents[1:]
				}
				continue
			}
			stack = append(stack, n)

		case xml.EndElement:
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if strings.TrimSpace(string(t)) == "" {
				continue
			}
			line, _ := dec.InputPos()
			if len(stack) == 0 {
				return nil, errorf(line, "text outside of the root element")
			}
			return nil, errorf(line, "unexpected text inside <%s>", stack[len(stack)-1].name)
		}
	}

	if root == nil {
		return nil, &Error{Msg: "document is empty"}
	}
	if root.child("mj-body") == nil {
		return nil, errorf(root.line, "<mjml> has no <mj-body>")
	}
	return root, nil
}

// skipContent consumes tokens up to the end tag of n.
// The inner markup was already cut out by mask, only line breaks remain.
func skipContent(dec *xml.Decoder, n *node) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return errorf(n.line, "<%s> is never closed", n.name)
		}
		if err != nil {
			return syntaxError(err)
		}
		if _, ok := tok.(xml.EndElement); ok {
			return nil
		}
	}
}

// mask returns src prepared for the XML decoder, and the inner markup of
// every ending tag in document order. Ending tag content is copied verbatim
// and replaced by its line breaks, so HTML such as <br> or an unclosed <p>
// never reaches the decoder and line numbers stay correct. Attribute values
// get bare '&' and '<' escaped.
func mask(src string) (string, []string) {
	var (
		b        strings.Builder
		contents []string
	)
	b.Grow(len(src))

	i := 0
	for i < len(src) {
		j := strings.IndexByte(src[i:], '<')
		if j < 0 {
			b.WriteString(escapeAmp(src[i:]))
			break
		}
		b.WriteString(escapeAmp(src[i : i+j]))
		i += j

		rest := src[i:]
		switch {
		case strings.HasPrefix(rest, "<!--"):
			i += copyThrough(&b, rest, "-->")
			continue
		case strings.HasPrefix(rest, "<![CDATA["):
			i += copyThrough(&b, rest, "]]>")
			continue
		case strings.HasPrefix(rest, "<!"), strings.HasPrefix(rest, "<?"), strings.HasPrefix(rest, "</"):
			i += copyThrough(&b, rest, ">")
			continue
		}

		name := tagName(rest[1:])
		n, selfClosing := copyStartTag(&b, rest)
		i += n
		if n == len(rest) || !endingTags[name] {
			continue
		}
		if selfClosing {
			contents = append(contents, "")
			continue
		}

		end := closingTag(src[i:], name)
		if end < 0 {
			b.WriteString(src[i:])
			break
		}
		content := src[i : i+end]
		contents = append(contents, content)
		b.WriteString(strings.Repeat("\n", strings.Count(content, "\n")))
		i += end
	}
	return b.String(), contents
}

// copyThrough writes s up to and including the first sep and returns the
// number of bytes consumed. Without sep the rest of s is written.
func copyThrough(b *strings.Builder, s, sep string) int {
	k := strings.Index(s, sep)
	if k < 0 {
		b.WriteString(s)
		return len(s)
	}
	b.WriteString(s[:k+len(sep)])
	return k + len(sep)
}

// copyStartTag writes the start tag at the head of s with quoted attribute
// values escaped. It returns the bytes consumed and whether the tag ends in "/>".
func copyStartTag(b *strings.Builder, s string) (int, bool) {
	var quote byte
	for k := 0; k < len(s); k++ {
		c := s[k]
		switch {
		case quote != 0:
			switch c {
			case quote:
				quote = 0
				b.WriteByte(c)
			case '<':
				b.WriteString("&lt;")
			case '&':
				if entityLen(s[k:]) == 0 {
					b.WriteString("&amp;")
				} else {
					b.WriteByte(c)
				}
			default:
				b.WriteByte(c)
			}
		case c == '"' || c == '\'':
			quote = c
			b.WriteByte(c)
		case c == '>':
			b.WriteByte(c)
			return k + 1, strings.HasSuffix(strings.TrimRight(s[:k], " \t\r\n"), "/")
		default:
			b.WriteByte(c)
		}
	}
	return len(s), false
}

// closingTag returns the offset of the "</name>" that ends an element, or -1.
func closingTag(s, name string) int {
	open := "</" + name
	off := 0
	for {
		k := strings.Index(s[off:], open)
		if k < 0 {
			return -1
		}
		at := off + k
		after := strings.TrimLeft(s[at+len(open):], " \t\r\n")
		if strings.HasPrefix(after, ">") {
			return at
		}
		off = at + len(open)
	}
}

func tagName(s string) string {
	end := strings.IndexAny(s, " \t\r\n/>")
	if end < 0 {
		return s
	}
	return s[:end]
}

var entityRef = regexp.MustCompile(`^&(#[0-9]+|#[xX][0-9a-fA-F]+|[A-Za-z][A-Za-z0-9]*);`)

// entityLen returns the length of the character reference at the head of s,
// or zero when the '&' does not start one the decoder understands.
func entityLen(s string) int {
	m := entityRef.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	name := m[1]
	if name[0] != '#' && !xmlEntities[name] {
		if _, ok := xml.HTMLEntity[name]; !ok {
			return 0
		}
	}
	return len(m[0])
}

var xmlEntities = map[string]bool{"amp": true, "lt": true, "gt": true, "quot": true, "apos": true}

func escapeAmp(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var b strings.Builder
	for k := 0; k < len(s); k++ {
		if s[k] == '&' && entityLen(s[k:]) == 0 {
			b.WriteString("&amp;")
			continue
		}
		b.WriteByte(s[k])
	}
	return b.String()
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}
