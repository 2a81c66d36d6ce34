package annotation

import (
	"regexp"
	"strings"
	"time"
)

// Counts summarizes annotations by kind.
type Counts struct {
	Fixes      int `json:"fixes"`
	Questions  int `json:"questions"`
	Highlights int `json:"highlights"`
}

var (
	// Inline highlight markup: <mark> spans carrying a background color,
	// and ==text== ranges. A data-memo-id attribute means the span is
	// owned by a memo and already counted through that memo.
	markTagRe = regexp.MustCompile(`<mark\b[^>]*>`)
	eqMarkRe  = regexp.MustCompile(`==[^=\n]+==`)
)

// CountAnnotations derives {fixes, questions, highlights} directly from
// raw text, without building a Bundle: memo comments are classified by
// type/color, and inline highlight markup outside fenced code blocks is
// counted when it has no attached memo. Cheap enough for status-bar
// polling.
func CountAnnotations(text string) Counts {
	var c Counts
	lines := strings.Split(text, "\n")
	inFence := false

	i := 0
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			i++
			continue
		}
		if inFence {
			i++
			continue
		}
		switch {
		case strings.HasPrefix(trimmed, memoOpen+" ") && strings.HasSuffix(trimmed, blockClose):
			if m, ok := parseSingleMemo(trimmed); ok {
				c.bump(m.Type)
			}
			i++
		case trimmed == memoOpen:
			inner, next, ok := scanBlock(lines, i)
			if !ok {
				i++
				continue
			}
			c.bump(memoFromAttrs(parseAttrs(inner)).Type)
			i = next
		case strings.HasPrefix(trimmed, memoLegacyOpen+" ") && strings.HasSuffix(trimmed, blockClose):
			m, next, ok := scanLegacyMemo(lines, i)
			if !ok {
				i++
				continue
			}
			c.bump(m.Type)
			i = next
		case trimmed == gateOpen || trimmed == cursorOpen:
			if _, next, ok := scanBlock(lines, i); ok {
				i = next
			} else {
				i++
			}
		case strings.HasPrefix(trimmed, checkpointOpen+" ") && strings.HasSuffix(trimmed, blockClose):
			i++
		case trimmed == "<!--" && i+1 < len(lines) && strings.Contains(lines[i+1], bannerMarker):
			if next, ok := scanBanner(lines, i); ok {
				i = next
			} else {
				i++
			}
		default:
			c.Highlights += countInlineHighlights(lines[i])
			i++
		}
	}
	return c
}

func (c *Counts) bump(typ string) {
	switch typ {
	case TypeQuestion:
		c.Questions++
	case TypeHighlight:
		c.Highlights++
	default:
		c.Fixes++
	}
}

func countInlineHighlights(line string) int {
	n := 0
	for _, tag := range markTagRe.FindAllString(line, -1) {
		if strings.Contains(tag, "background-color") && !strings.Contains(tag, "data-memo-id") {
			n++
		}
	}
	return n + len(eqMarkRe.FindAllString(line, -1))
}

// AllSections returns every ##-level heading title, in document order.
func AllSections(text string) []string {
	out := []string{}
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(trimmed, "## ") {
			out = append(out, strings.TrimSpace(trimmed[3:]))
		}
	}
	return out
}

// SectionsWithAnnotations returns the titles of ##-level sections that
// contain at least one annotation marker (memo comment or inline
// highlight markup) before the next heading. Content above the first
// heading belongs to no section.
func SectionsWithAnnotations(text string) []string {
	lines := strings.Split(text, "\n")
	var order []string
	flagged := make(map[string]bool)
	current := ""
	inFence := false

	mark := func() {
		if current != "" {
			flagged[current] = true
		}
	}

	i := 0
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			i++
			continue
		}
		if inFence {
			i++
			continue
		}
		if strings.HasPrefix(trimmed, "## ") {
			current = strings.TrimSpace(trimmed[3:])
			order = append(order, current)
			i++
			continue
		}
		switch {
		case strings.HasPrefix(trimmed, memoOpen+" ") && strings.HasSuffix(trimmed, blockClose):
			mark()
			i++
		case trimmed == memoOpen:
			next, consumed := consumeBlock(lines, i)
			if consumed {
				mark()
			}
			i = next
		case strings.HasPrefix(trimmed, memoLegacyOpen+" ") && strings.HasSuffix(trimmed, blockClose):
			if _, next, ok := scanLegacyMemo(lines, i); ok {
				mark()
				i = next
			} else {
				i++
			}
		case trimmed == gateOpen || trimmed == cursorOpen:
			next, _ := consumeBlock(lines, i)
			i = next
		case strings.HasPrefix(trimmed, checkpointOpen+" ") && strings.HasSuffix(trimmed, blockClose):
			i++
		default:
			if countInlineHighlights(lines[i]) > 0 {
				mark()
			}
			i++
		}
	}

	out := []string{}
	for _, h := range order {
		if flagged[h] {
			out = append(out, h)
			flagged[h] = false // emit duplicates once
		}
	}
	return out
}

func consumeBlock(lines []string, i int) (next int, ok bool) {
	if _, n, found := scanBlock(lines, i); found {
		return n, true
	}
	return i + 1, false
}

// CreateCheckpoint snapshots the document's current counts and section
// coverage, appends the canonical checkpoint line at the end of the
// text, and returns both the record and the updated text. The id and
// clock come from the caller; the core never generates identity.
func CreateCheckpoint(text, id, note string, now time.Time) (Checkpoint, string) {
	counts := CountAnnotations(text)
	cp := Checkpoint{
		ID:         id,
		Time:       now.UTC().Format(time.RFC3339),
		Note:       note,
		Fixes:      counts.Fixes,
		Questions:  counts.Questions,
		Highlights: counts.Highlights,
		Sections:   SectionsWithAnnotations(text),
	}
	line := FormatCheckpoint(cp)
	trimmed := strings.TrimRight(text, "\n")
	if trimmed == "" {
		return cp, line + "\n"
	}
	return cp, trimmed + "\n" + line + "\n"
}
