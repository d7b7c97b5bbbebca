package mailer

import (
	"fmt"
	"sort"
)

// TemplateFinder resolves templates by name.
type TemplateFinder interface {
	FindByName(name string) (Template, error)
}

// Registry is a read-only set of templates keyed by name.
// It is built once and safe for concurrent use.
type Registry struct {
	byName map[string]Template
	sorted []Template
}

// NewRegistry builds a registry. Empty or repeated names fail with ErrDuplicateTemplate.
func NewRegistry(templates ...Template) (*Registry, error) {
	r := &Registry{byName: make(map[string]Template, len(templates))}
	for _, t := range templates {
		if t.Name == "" {
			return nil, fmt.Errorf("%w: template with empty name", ErrDuplicateTemplate)
		}
		if _, ok := r.byName[t.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTemplate, t.Name)
		}
		r.byName[t.Name] = t
		r.sorted = append(r.sorted, t)
	}
	sort.Slice(r.sorted, func(i, j int) bool { return r.sorted[i].Name < r.sorted[j].Name })
	return r, nil
}

// FindByName returns the template registered under name or ErrTemplateNotFound.
func (r *Registry) FindByName(name string) (Template, error) {
	t, ok := r.byName[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return t, nil
}

// Templates returns all templates sorted by name.
func (r *Registry) Templates() []Template {
	return append([]Template(nil), r.sorted...)
}

// Len returns the number of templates.
func (r *Registry) Len() int {
	return len(r.byName)
}
