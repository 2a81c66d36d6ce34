package annotation

import (
	"strings"
)

// Comment dialect markers. USER_MEMO appears in two read dialects (the
// v0.3 single-line form and the v0.4 block form); only the v0.4 form is
// ever written back.
const (
	memoOpen        = "<!-- USER_MEMO"
	memoLegacyOpen  = "<!-- @memo"
	memoLegacyClose = "<!-- @/memo -->"
	gateOpen        = "<!-- GATE"
	cursorOpen      = "<!-- PLAN_CURSOR"
	checkpointOpen  = "<!-- CHECKPOINT"
	blockClose      = "-->"
	wrapperOpen     = "<!-- FEEDBACK_NOTES -->"
	wrapperClose    = "<!-- /FEEDBACK_NOTES -->"
)

// bannerMarker identifies the product boilerplate comment old clients
// prepended to annotated files. Banner blocks are discarded on read and
// never written back.
const bannerMarker = "md-feedback"

// Split parses raw document text into a Bundle. It never fails:
// anything that does not parse as a known annotation comment stays in
// the body verbatim, including truncated blocks whose closer is
// missing. Memo order is the order of first appearance.
func Split(text string) *Bundle {
	b := &Bundle{
		Memos:       []Memo{},
		Gates:       []Gate{},
		Checkpoints: []Checkpoint{},
	}
	lines := strings.Split(text, "\n")
	var body []string

	i := 0
	// Frontmatter is captured once, at the very start only.
	if len(lines) > 0 && strings.TrimRight(lines[0], " \t\r") == "---" {
		for j := 1; j < len(lines); j++ {
			if strings.TrimRight(lines[j], " \t\r") == "---" {
				b.Frontmatter = strings.Join(lines[:j+1], "\n")
				i = j + 1
				break
			}
		}
		// Skip blank lines after the closing delimiter so the separator
		// Merge writes between frontmatter and body never leaks into the
		// body (which would shift every anchor by one on each save).
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
	}

	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		// Single-line memo (v0.3).
		case strings.HasPrefix(trimmed, memoOpen+" ") && strings.HasSuffix(trimmed, blockClose):
			m, ok := parseSingleMemo(trimmed)
			if !ok {
				body = append(body, line)
				i++
				continue
			}
			attachDerivedAnchor(&m, body)
			b.Memos = append(b.Memos, m)
			i++

		// Multi-line memo (v0.4).
		case trimmed == memoOpen:
			inner, next, ok := scanBlock(lines, i)
			if !ok {
				body = append(body, line)
				i++
				continue
			}
			b.Memos = append(b.Memos, memoFromAttrs(parseAttrs(inner)))
			i = next

		// Legacy @memo block.
		case strings.HasPrefix(trimmed, memoLegacyOpen+" ") && strings.HasSuffix(trimmed, blockClose):
			m, next, ok := scanLegacyMemo(lines, i)
			if !ok {
				body = append(body, line)
				i++
				continue
			}
			attachDerivedAnchor(&m, body)
			b.Memos = append(b.Memos, m)
			i = next

		// Gate block.
		case trimmed == gateOpen:
			inner, next, ok := scanBlock(lines, i)
			if !ok {
				body = append(body, line)
				i++
				continue
			}
			b.Gates = append(b.Gates, gateFromAttrs(parseAttrs(inner)))
			i = next

		// Cursor block; last one in document order wins.
		case trimmed == cursorOpen:
			inner, next, ok := scanBlock(lines, i)
			if !ok {
				body = append(body, line)
				i++
				continue
			}
			c := cursorFromAttrs(parseAttrs(inner))
			b.Cursor = &c
			i = next

		// Checkpoint line.
		case strings.HasPrefix(trimmed, checkpointOpen+" ") && strings.HasSuffix(trimmed, blockClose):
			cp, ok := parseCheckpoint(trimmed)
			if !ok {
				body = append(body, line)
				i++
				continue
			}
			b.Checkpoints = append(b.Checkpoints, cp)
			i++

		// Product banner block: `<!--` followed by a marker line.
		case trimmed == "<!--" && i+1 < len(lines) && strings.Contains(lines[i+1], bannerMarker):
			next, ok := scanBanner(lines, i)
			if !ok {
				body = append(body, line)
				i++
				continue
			}
			i = next

		// Wrapper tags around feedback sections: discarded, no body.
		case trimmed == wrapperOpen || trimmed == wrapperClose:
			i++

		default:
			body = append(body, line)
			i++
		}
	}

	for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
		body = body[:len(body)-1]
	}
	b.Body = strings.Join(body, "\n")
	return b
}

// scanBlock consumes a key="value" block opened at lines[i]: inner
// lines up to the first line that is exactly `-->`. Returns the inner
// lines and the index after the closer, or ok=false when the block is
// truncated (no closer before end of document).
func scanBlock(lines []string, i int) (inner []string, next int, ok bool) {
	for j := i + 1; j < len(lines); j++ {
		if strings.TrimSpace(lines[j]) == blockClose {
			return lines[i+1 : j], j + 1, true
		}
	}
	return nil, 0, false
}

// scanBanner consumes a banner block from its `<!--` opener through the
// first line containing the closing delimiter.
func scanBanner(lines []string, i int) (next int, ok bool) {
	for j := i + 1; j < len(lines); j++ {
		if strings.Contains(lines[j], blockClose) {
			return j + 1, true
		}
	}
	return 0, false
}

// parseSingleMemo parses the v0.3 one-line dialect:
//
//	<!-- USER_MEMO id="ID" [color="C"] [status="S"] : TEXT -->
//
// The colon separating attributes from text is the first colon outside
// double quotes. Color defaults to the historical red; status to open.
func parseSingleMemo(trimmed string) (Memo, bool) {
	inner := strings.TrimSuffix(strings.TrimPrefix(trimmed, "<!--"), blockClose)
	inner = strings.TrimSpace(inner)
	rest := strings.TrimSpace(strings.TrimPrefix(inner, "USER_MEMO"))

	colon := -1
	inQuote := false
	for k := 0; k < len(rest) && colon < 0; k++ {
		switch rest[k] {
		case '"':
			inQuote = !inQuote
		case ':':
			if !inQuote {
				colon = k
			}
		}
	}
	if colon < 0 {
		return Memo{}, false
	}

	attrs := parseAttrs([]string{rest[:colon]})
	if attrs["id"] == "" {
		return Memo{}, false
	}
	m := Memo{
		ID:     attrs["id"],
		Color:  attrs["color"],
		Status: attrs["status"],
		Text:   unescapeAttr(strings.TrimSpace(rest[colon+1:])),
	}
	if m.Color == "" {
		m.Color = legacyRedHex
	}
	m.normalize()
	return m, true
}

// memoFromAttrs builds a memo from a v0.4 block's attributes. No anchor
// is derived here: the block carries its own anchor/anchorText, and a
// memo that has neither stays unanchored (it re-appears at the document
// end rather than guessing a position it never had).
func memoFromAttrs(attrs map[string]string) Memo {
	m := Memo{
		ID:         attrs["id"],
		Type:       attrs["type"],
		Status:     attrs["status"],
		Owner:      attrs["owner"],
		Source:     attrs["source"],
		Color:      attrs["color"],
		Text:       attrs["text"],
		AnchorText: attrs["anchorText"],
		Anchor:     attrs["anchor"],
		CreatedAt:  attrs["createdAt"],
		UpdatedAt:  attrs["updatedAt"],
	}
	if m.Color == "" && m.Type != "" {
		m.Color = ColorForType(m.Type)
	}
	m.normalize()
	return m
}

// scanLegacyMemo consumes the legacy block dialect:
//
//	<!-- @memo id="ID" [color="C"] [date="D"] -->
//	free text, possibly itself comment-wrapped
//	<!-- @/memo -->
func scanLegacyMemo(lines []string, i int) (Memo, int, bool) {
	attrs := parseAttrs([]string{lines[i]})
	if attrs["id"] == "" {
		return Memo{}, 0, false
	}
	for j := i + 1; j < len(lines); j++ {
		if strings.TrimSpace(lines[j]) != memoLegacyClose {
			continue
		}
		var parts []string
		for _, raw := range lines[i+1 : j] {
			parts = append(parts, stripCommentDelims(raw))
		}
		m := Memo{
			ID:        attrs["id"],
			Color:     attrs["color"],
			CreatedAt: attrs["date"],
			Text:      strings.TrimSpace(strings.Join(parts, "\n")),
		}
		m.normalize()
		return m, j + 1, true
	}
	return Memo{}, 0, false
}

func gateFromAttrs(attrs map[string]string) Gate {
	g := Gate{
		ID:             attrs["id"],
		Type:           attrs["type"],
		Status:         attrs["status"],
		BlockedBy:      splitCSV(attrs["blockedBy"]),
		CanProceedIf:   attrs["canProceedIf"],
		DoneDefinition: attrs["doneDefinition"],
	}
	g.normalize()
	return g
}

func cursorFromAttrs(attrs map[string]string) Cursor {
	return Cursor{
		TaskID:       attrs["taskId"],
		Step:         attrs["step"],
		NextAction:   attrs["nextAction"],
		LastSeenHash: attrs["lastSeenHash"],
		UpdatedAt:    attrs["updatedAt"],
	}
}

func parseCheckpoint(trimmed string) (Checkpoint, bool) {
	attrs := parseAttrs([]string{trimmed})
	if attrs["id"] == "" {
		return Checkpoint{}, false
	}
	nums := parseNumAttrs(trimmed)
	return Checkpoint{
		ID:         attrs["id"],
		Time:       attrs["time"],
		Note:       attrs["note"],
		Fixes:      nums["fixes"],
		Questions:  nums["questions"],
		Highlights: nums["highlights"],
		Sections:   splitCSV(attrs["sections"]),
	}, true
}

// attachDerivedAnchor anchors a memo recovered from an anchorless
// dialect to the nearest preceding non-blank body line already scanned.
func attachDerivedAnchor(m *Memo, body []string) {
	for idx := len(body) - 1; idx >= 0; idx-- {
		if strings.TrimSpace(body[idx]) == "" {
			continue
		}
		m.Anchor = NewAnchor(idx, body[idx])
		if m.AnchorText == "" {
			m.AnchorText = excerpt(body[idx])
		}
		return
	}
}

// stripCommentDelims removes a line's own comment delimiters, if any.
func stripCommentDelims(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<!--")
	s = strings.TrimSuffix(s, blockClose)
	return strings.TrimSpace(s)
}

// excerpt returns a short human-readable slice of a prose line, used as
// the anchorText fallback for migrated memos.
func excerpt(line string) string {
	const maxRunes = 60
	t := strings.TrimSpace(line)
	r := []rune(t)
	if len(r) <= maxRunes {
		return t
	}
	return string(r[:maxRunes])
}
