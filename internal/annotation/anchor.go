package annotation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/seonyeomin-rgb/md-feedback/internal/checksum"
)

// probeRadius bounds how far the resolver searches around the stale
// line number for a hash match.
const probeRadius = 10

// NewAnchor encodes a machine anchor for the body line at lineIdx
// (0-based): "L<n>|<hash8>" with n 1-based.
func NewAnchor(lineIdx int, line string) string {
	return fmt.Sprintf("L%d|%s", lineIdx+1, checksum.Line(line))
}

// parseAnchorRef parses "L<n>(:L<m>)?|<hash8>" and returns the 0-based
// start line index and the hash.
func parseAnchorRef(anchor string) (idx int, hash string, ok bool) {
	bar := strings.IndexByte(anchor, '|')
	if bar <= 0 || bar == len(anchor)-1 {
		return 0, "", false
	}
	ref := anchor[:bar]
	hash = anchor[bar+1:]
	// Range form: the start line is authoritative.
	if colon := strings.IndexByte(ref, ':'); colon >= 0 {
		ref = ref[:colon]
	}
	if !strings.HasPrefix(ref, "L") {
		return 0, "", false
	}
	n, err := strconv.Atoi(ref[1:])
	if err != nil || n < 1 {
		return 0, "", false
	}
	return n - 1, hash, true
}

// AnchorAt builds the anchor for the 1-based body line n, plus the
// excerpt used as the anchorText fallback. ok is false when n is out
// of range.
func AnchorAt(body string, n int) (anchor, anchorText string, ok bool) {
	lines := strings.Split(body, "\n")
	if n < 1 || n > len(lines) {
		return "", "", false
	}
	return NewAnchor(n-1, lines[n-1]), excerpt(lines[n-1]), true
}

// ResolveAnchor re-locates a memo's attachment line in the current
// body. Resolution order:
//
//  1. exact: the stale line number still hashes to the stored hash
//  2. probe: outward from the stale position at distance 1..10,
//     nearer-first, minus side before plus side
//  3. text: first body line containing anchorText as a substring
//
// Returns ok=false when the memo cannot be re-attached; callers emit
// such memos at the document end, never drop them.
func ResolveAnchor(anchor, anchorText string, lines []string) (int, bool) {
	if idx, hash, ok := parseAnchorRef(anchor); ok {
		if idx < len(lines) && checksum.Line(lines[idx]) == hash {
			return idx, true
		}
		for d := 1; d <= probeRadius; d++ {
			if j := idx - d; j >= 0 && j < len(lines) && checksum.Line(lines[j]) == hash {
				return j, true
			}
			if j := idx + d; j >= 0 && j < len(lines) && checksum.Line(lines[j]) == hash {
				return j, true
			}
		}
	}
	if anchorText != "" {
		for j, line := range lines {
			if strings.Contains(line, anchorText) {
				return j, true
			}
		}
	}
	return 0, false
}
