package annotation

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Title returns a display title for the document: the frontmatter
// "title" field when present and parseable, otherwise the first H1
// heading, otherwise empty. The frontmatter stays an opaque block in
// the Bundle; this is a read-only peek for listings and search.
func Title(b *Bundle) string {
	if inner := frontmatterInner(b.Frontmatter); inner != "" {
		var fm map[string]any
		if err := yaml.Unmarshal([]byte(inner), &fm); err == nil {
			if t, ok := fm["title"].(string); ok && t != "" {
				return t
			}
		}
	}
	for _, line := range strings.Split(b.Body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// frontmatterInner strips the --- fences from a captured frontmatter
// block.
func frontmatterInner(fm string) string {
	lines := strings.Split(fm, "\n")
	if len(lines) < 2 {
		return ""
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}
