package annotation

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	quotedAttrRe = regexp.MustCompile(`([A-Za-z][A-Za-z0-9]*)="([^"]*)"`)
	numAttrRe    = regexp.MustCompile(`([A-Za-z][A-Za-z0-9]*)=([0-9]+)(?:\s|$)`)
)

// parseAttrs collects key="value" pairs from one or more lines of a
// comment block. Later occurrences of a key overwrite earlier ones.
func parseAttrs(lines []string) map[string]string {
	out := make(map[string]string)
	for _, line := range lines {
		for _, m := range quotedAttrRe.FindAllStringSubmatch(line, -1) {
			out[m[1]] = unescapeAttr(m[2])
		}
	}
	return out
}

// parseNumAttrs collects bare numeric key=N pairs (checkpoint counts).
// Quoted attributes are blanked first so digits inside e.g. the note
// value cannot be mistaken for counts.
func parseNumAttrs(line string) map[string]int {
	line = quotedAttrRe.ReplaceAllString(line, "")
	out := make(map[string]int)
	for _, m := range numAttrRe.FindAllStringSubmatch(line, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		out[m[1]] = n
	}
	return out
}

// escapeAttr makes a value safe inside a double-quoted attribute.
// Double quotes become &quot; per the on-disk grammar; newlines become
// &#10; so multi-line feedback survives the one-key-per-line format.
func escapeAttr(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "\n", "&#10;")
	return s
}

func unescapeAttr(s string) string {
	s = strings.ReplaceAll(s, "&#10;", "\n")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	return s
}

// splitCSV splits a comma-separated attribute into trimmed, non-empty
// items. An empty string yields an empty (non-nil) list.
func splitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
