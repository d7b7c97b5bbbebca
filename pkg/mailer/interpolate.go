package mailer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cbroglie/mustache"

	"github.com/dmitrymomot/mailroom/pkg/params"
)

// Interpolate resolves {{placeholders}} in the markup against p.
// Paths are dotted and numeric segments index into lists, as in
// params.Value.Lookup: {{items.0.name}}. Missing paths render as empty
// strings and values are HTML-escaped.
// Malformed placeholder syntax fails with ErrInterpolation.
func (t Template) Interpolate(p params.Value) (string, error) {
	markup, aliases := indexAliases(t.Markup)

	tmpl, err := mustache.ParseString(markup)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInterpolation, err)
	}

	var out string
	if p.IsNull() {
		out, err = tmpl.Render()
	} else {
		out, err = tmpl.Render(renderView(p, aliases))
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInterpolation, err)
	}
	return out, nil
}

var tagPattern = regexp.MustCompile(`(\{\{\{?[#^/&]?\s*)([^\s{}]+)(\s*\}?\}\})`)

// indexAliases rewrites list indices in tag paths into single keys that
// renderView provides, so {{items.0.name}} becomes {{items[0].name}}.
// It returns the rewritten markup and, per alias, the relative path it stands for.
func indexAliases(markup string) (string, map[string]string) {
	aliases := make(map[string]string)
	out := tagPattern.ReplaceAllStringFunc(markup, func(tag string) string {
		m := tagPattern.FindStringSubmatch(tag)
		name, changed := aliasPath(m[2], aliases)
		if !changed {
			return tag
		}
		return m[1] + name + m[3]
	})
	return out, aliases
}

func aliasPath(path string, aliases map[string]string) (string, bool) {
	if !strings.Contains(path, ".") {
		return path, false
	}

	var names, paths []string
	changed := false
	for seg := range strings.SplitSeq(path, ".") {
		if last := len(names) - 1; last >= 0 && isIndex(seg) {
			names[last] += "[" + seg + "]"
			paths[last] += "." + seg
			changed = true
			continue
		}
		names = append(names, seg)
		paths = append(paths, seg)
	}
	if !changed {
		return path, false
	}

	for i, name := range names {
		if name != paths[i] {
			aliases[name] = paths[i]
		}
	}
	return strings.Join(names, "."), true
}

func isIndex(seg string) bool {
	if seg == "" {
		return false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// renderView converts v into the plain values mustache walks.
// Every map also carries the alias keys that resolve through Lookup,
// unless the map already has a real member of that name.
func renderView(v params.Value, aliases map[string]string) any {
	switch v.Kind() {
	case params.KindMap:
		m := make(map[string]any, v.Len()+len(aliases))
		for _, k := range v.Keys() {
			f, _ := v.Get(k)
			m[k] = renderView(f, aliases)
		}
		for alias, path := range aliases {
			if _, taken := m[alias]; taken {
				continue
			}
			if r, ok := v.Lookup(path); ok {
				m[alias] = renderView(r, aliases)
			}
		}
		return m
	case params.KindList:
		items := v.Items()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = renderView(item, aliases)
		}
		return out
	case params.KindNull:
		return ""
	default:
		return v.Interface()
	}
}
