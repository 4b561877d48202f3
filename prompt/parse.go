package prompt

import (
	"regexp"
	"strings"

	"poemchain/apperr"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// placeholders lists the distinct names referenced by text in order of first
// appearance. Doubled braces are skipped. Malformed braces other than an
// unclosed '{' are left for the renderer to report.
func placeholders(text string) ([]string, error) {
	seen := make(map[string]struct{})
	var names []string

	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		if i+1 < len(text) && text[i+1] == '{' {
			i++
			continue
		}
		end := strings.IndexByte(text[i+1:], '}')
		if end < 0 {
			return nil, apperr.Configuration("unclosed '{' at offset %d", i)
		}
		name := strings.TrimSpace(text[i+1 : i+1+end])
		i += end + 1
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	return names, nil
}

// Placeholders returns the distinct placeholder names used by text.
func Placeholders(text string) ([]string, error) {
	return placeholders(text)
}
