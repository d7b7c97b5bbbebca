package mailer

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// TemplateExt is the file extension LoadFS picks up.
const TemplateExt = ".mjml"

// LoadFS reads every *.mjml file in dir. The template name is the file name
// without extension unless the frontmatter sets one.
func LoadFS(fsys fs.FS, dir string) ([]Template, error) {
	if dir == "" {
		dir = "."
	}
	matches, err := fs.Glob(fsys, path.Join(dir, "*"+TemplateExt))
	if err != nil {
		return nil, fmt.Errorf("list templates in %s: %w", dir, err)
	}

	templates := make([]Template, 0, len(matches))
	for _, file := range matches {
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", file, err)
		}
		t, err := ParseTemplate(strings.TrimSuffix(path.Base(file), TemplateExt), content)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", file, err)
		}
		templates = append(templates, t)
	}
	return templates, nil
}
