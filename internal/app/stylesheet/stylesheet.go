// Package stylesheet finds url() references in CSS text.
package stylesheet

import (
	"fmt"
	"regexp"

	"spyder/internal/app/resolver"
)

// templates is the CSS 2.1 url() grammar. {{name}} refers to another
// template. Only string1, string2 and the unquoted branch of uri capture.
var templates = map[string]string{
	"h":        `[0-9a-f]`,
	"nonascii": `[^\x00-\x7f]`,
	"unicode":  `\\{{h}}{1,6}(?:\r\n|[ \t\r\n\f])?`,
	"escape":   `(?:{{unicode}}|\\[^\r\n\f0-9a-f])`,
	"nl":       `(?:\n|\r\n|\r|\f)`,
	"w":        `[ \t\r\n\f]*`,
	"string1":  `"((?:[^\n\r\f\\"]|\\{{nl}}|{{escape}})*)"`,
	"string2":  `'((?:[^\n\r\f\\']|\\{{nl}}|{{escape}})*)'`,
	"urlchar":  `(?:[!#$%&*-\[\]-~]|{{nonascii}}|{{escape}})`,
	"uri":      `url\({{w}}(?:{{string1}}|{{string2}}|({{urlchar}}*)){{w}}\)`,
}

var (
	refRegex = regexp.MustCompile(`\{\{(\w+)\}\}`)
	uriRegex = regexp.MustCompile(`(?i)` + mustExpand(templates, "uri"))
)

// Extract returns the url() references of css resolved against baseURL, in
// source order. Empty url() calls and malformed ones contribute nothing.
func Extract(css, baseURL string) []string {
	var urls []string
	for _, m := range uriRegex.FindAllStringSubmatch(css, -1) {
		for _, ref := range m[1:] {
			if ref != "" {
				urls = append(urls, resolver.Resolve(baseURL, ref))
				break
			}
		}
	}
	return urls
}

// Pattern returns the fully expanded url() expression.
func Pattern() string {
	return uriRegex.String()
}

// expand substitutes template references until none is left and returns
// the text of root.
func expand(tmpl map[string]string, root string) (string, error) {
	cur := make(map[string]string, len(tmpl))
	for k, v := range tmpl {
		cur[k] = v
	}

	var missing string
	for round := 0; round <= len(cur); round++ {
		pending := false
		next := make(map[string]string, len(cur))
		for name, text := range cur {
			if refRegex.MatchString(text) {
				pending = true
			}
			next[name] = refRegex.ReplaceAllStringFunc(text, func(ref string) string {
				sub := ref[2 : len(ref)-2]
				v, ok := cur[sub]
				if !ok {
					missing = sub
					return ref
				}
				return v
			})
		}
		if missing != "" {
			return "", fmt.Errorf("unknown sub-pattern %q", missing)
		}
		cur = next
		if !pending {
			out, ok := cur[root]
			if !ok {
				return "", fmt.Errorf("unknown sub-pattern %q", root)
			}
			return out, nil
		}
	}
	return "", fmt.Errorf("cyclic sub-pattern references under %q", root)
}

func mustExpand(tmpl map[string]string, root string) string {
	s, err := expand(tmpl, root)
	if err != nil {
		panic("stylesheet: " + err.Error())
	}
	return s
}
