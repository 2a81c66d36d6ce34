package annotation

import (
	"fmt"
	"strings"
)

// Merge serializes a Bundle back to document text. Deterministic and
// pure; the left inverse of Split up to whitespace canonicalization.
//
// Layout: frontmatter, body with each memo re-inserted immediately
// after its resolved anchor line (bundle order for co-anchored memos),
// unresolved memos after the body, then gates, checkpoints, and the
// cursor. Sections are separated by one blank line and the document
// ends with exactly one trailing newline. Only canonical dialects are
// written, so loading a legacy document and saving it migrates it.
func Merge(b *Bundle) string {
	var sections []string

	if fm := strings.TrimRight(b.Frontmatter, " \t\r\n"); fm != "" {
		sections = append(sections, fm)
	}

	var bodyLines []string
	if b.Body != "" {
		bodyLines = strings.Split(b.Body, "\n")
	}

	byLine := make(map[int][]Memo)
	var unresolved []Memo
	for _, m := range b.Memos {
		m.normalize()
		if idx, ok := ResolveAnchor(m.Anchor, m.AnchorText, bodyLines); ok {
			byLine[idx] = append(byLine[idx], m)
		} else {
			unresolved = append(unresolved, m)
		}
	}

	if len(bodyLines) > 0 {
		var out []string
		for i, line := range bodyLines {
			out = append(out, line)
			for _, m := range byLine[i] {
				out = append(out, formatMemo(m))
			}
		}
		sections = append(sections, strings.Join(out, "\n"))
	}

	for _, m := range unresolved {
		sections = append(sections, formatMemo(m))
	}
	for _, g := range b.Gates {
		g.normalize()
		sections = append(sections, formatGate(g))
	}
	if len(b.Checkpoints) > 0 {
		lines := make([]string, len(b.Checkpoints))
		for i, cp := range b.Checkpoints {
			lines[i] = FormatCheckpoint(cp)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if b.Cursor != nil {
		sections = append(sections, formatCursor(*b.Cursor))
	}

	if len(sections) == 0 {
		return ""
	}
	return strings.Join(sections, "\n\n") + "\n"
}

// formatMemo writes the canonical v0.4 block. Identity and workflow
// fields are always present; locator and timestamp fields only when
// set, so an anchorless memo stays anchorless across round trips.
func formatMemo(m Memo) string {
	var sb strings.Builder
	sb.WriteString(memoOpen)
	sb.WriteByte('\n')
	writeAttr(&sb, "id", m.ID)
	writeAttr(&sb, "type", m.Type)
	writeAttr(&sb, "status", m.Status)
	writeAttr(&sb, "owner", m.Owner)
	writeAttr(&sb, "source", m.Source)
	writeAttr(&sb, "color", m.Color)
	writeAttr(&sb, "text", m.Text)
	writeOptAttr(&sb, "anchorText", m.AnchorText)
	writeOptAttr(&sb, "anchor", m.Anchor)
	writeOptAttr(&sb, "createdAt", m.CreatedAt)
	writeOptAttr(&sb, "updatedAt", m.UpdatedAt)
	sb.WriteString(blockClose)
	return sb.String()
}

func formatGate(g Gate) string {
	var sb strings.Builder
	sb.WriteString(gateOpen)
	sb.WriteByte('\n')
	writeAttr(&sb, "id", g.ID)
	writeAttr(&sb, "type", g.Type)
	writeAttr(&sb, "status", g.Status)
	writeOptAttr(&sb, "blockedBy", strings.Join(g.BlockedBy, ","))
	writeOptAttr(&sb, "canProceedIf", g.CanProceedIf)
	writeOptAttr(&sb, "doneDefinition", g.DoneDefinition)
	sb.WriteString(blockClose)
	return sb.String()
}

func formatCursor(c Cursor) string {
	var sb strings.Builder
	sb.WriteString(cursorOpen)
	sb.WriteByte('\n')
	writeAttr(&sb, "taskId", c.TaskID)
	writeAttr(&sb, "step", c.Step)
	writeAttr(&sb, "nextAction", c.NextAction)
	writeOptAttr(&sb, "lastSeenHash", c.LastSeenHash)
	writeOptAttr(&sb, "updatedAt", c.UpdatedAt)
	sb.WriteString(blockClose)
	return sb.String()
}

// FormatCheckpoint writes the canonical single-line checkpoint form.
// Exported because checkpoint creation appends this line directly to
// raw text without a full Split/Merge round trip.
func FormatCheckpoint(cp Checkpoint) string {
	return fmt.Sprintf(`%s id="%s" time="%s" note="%s" fixes=%d questions=%d highlights=%d sections="%s" %s`,
		checkpointOpen,
		escapeAttr(cp.ID),
		escapeAttr(cp.Time),
		escapeAttr(cp.Note),
		cp.Fixes,
		cp.Questions,
		cp.Highlights,
		escapeAttr(strings.Join(cp.Sections, ",")),
		blockClose)
}

func writeAttr(sb *strings.Builder, key, value string) {
	sb.WriteString("  ")
	sb.WriteString(key)
	sb.WriteString(`="`)
	sb.WriteString(escapeAttr(value))
	sb.WriteString("\"\n")
}

func writeOptAttr(sb *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	writeAttr(sb, key, value)
}
