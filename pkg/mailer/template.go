package mailer

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/mailroom/pkg/mjml"
	"github.com/dmitrymomot/mailroom/pkg/params"
)

// Template is a named markup source. It is immutable once loaded.
type Template struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Markup      string `json:"-"`
}

// Render interpolates p into the template and compiles the result.
func (t Template) Render(p params.Value) (Content, error) {
	markup, err := t.Interpolate(p)
	if err != nil {
		return Content{}, err
	}
	return Compile(markup)
}

// Compile turns interpolated markup into subject, text and HTML bodies.
// Structural defects fail with ErrCompilation; the *mjml.Error stays reachable via errors.As.
func Compile(markup string) (Content, error) {
	res, err := mjml.Compile(markup)
	if err != nil {
		return Content{}, fmt.Errorf("%w: %w", ErrCompilation, err)
	}
	return Content{
		Subject: res.Subject,
		Preview: res.Preview,
		Text:    res.Text,
		HTML:    res.HTML,
	}, nil
}

type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// ParseTemplate builds a Template from file content with optional YAML frontmatter:
//
//	---
//	description: One-click sign in link
//	---
//	<mjml>...</mjml>
//
// A name in the frontmatter overrides the given name.
func ParseTemplate(name string, content []byte) (Template, error) {
	delimiter := []byte("---")

	if !bytes.HasPrefix(content, delimiter) {
		return Template{Name: name, Markup: string(content)}, nil
	}

	afterFirst := bytes.TrimPrefix(content, delimiter)
	afterFirst = bytes.TrimLeft(afterFirst, "\n\r")

	if len(afterFirst) == 0 {
		return Template{}, fmt.Errorf("%w: no content after opening delimiter", ErrInvalidFrontmatter)
	}

	endIdx := bytes.Index(afterFirst, delimiter)
	if endIdx == -1 {
		return Template{}, fmt.Errorf("%w: closing delimiter not found", ErrInvalidFrontmatter)
	}

	meta := afterFirst[:endIdx]
	bodyStart := endIdx + len(delimiter)
	// Skip one newline after closing delimiter (handles both \r\n and \n)
	if bodyStart < len(afterFirst) {
		if afterFirst[bodyStart] == '\r' && bodyStart+1 < len(afterFirst) && afterFirst[bodyStart+1] == '\n' {
			bodyStart += 2
		} else if afterFirst[bodyStart] == '\n' {
			bodyStart++
		}
	}

	var fm frontmatter
	if len(bytes.TrimSpace(meta)) > 0 {
		if err := yaml.Unmarshal(meta, &fm); err != nil {
			return Template{}, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
		}
	}
	if fm.Name != "" {
		name = fm.Name
	}

	return Template{
		Name:        name,
		Description: fm.Description,
		Markup:      string(afterFirst[bodyStart:]),
	}, nil
}
