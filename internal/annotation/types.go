// Package annotation implements the round-trip model for feedback
// annotations stored as HTML comments inside plain Markdown documents.
//
// Split parses raw document text into a Bundle (body plus typed
// annotation collections) and Merge serializes a Bundle back to text.
// Both are pure functions over in-memory strings: no I/O, no shared
// state, safe to call concurrently. The surrounding host owns file
// access and must serialize read → Split → mutate → Merge → write as
// one logical operation per document.
package annotation

import "strings"

// Memo types.
const (
	TypeFix       = "fix"
	TypeQuestion  = "question"
	TypeHighlight = "highlight"
)

// Memo statuses.
const (
	StatusOpen     = "open"
	StatusAnswered = "answered"
	StatusDone     = "done"
	StatusWontfix  = "wontfix"
)

// Memo owners.
const (
	OwnerHuman = "human"
	OwnerAgent = "agent"
	OwnerTool  = "tool"
)

// Memo colors.
const (
	ColorYellow = "yellow"
	ColorRed    = "red"
	ColorBlue   = "blue"
)

// Gate types.
const (
	GateMerge     = "merge"
	GateRelease   = "release"
	GateImplement = "implement"
	GateCustom    = "custom"
)

// Gate statuses.
const (
	GateBlocked = "blocked"
	GateProceed = "proceed"
	GateDone    = "done"
)

// SourceGeneric is the default origin tag filled in when a legacy
// comment carried no source field.
const SourceGeneric = "generic"

// Memo is one reviewer or agent annotation attached to a point in the
// document. ID is the join key for cascading operations; Anchor is the
// machine locator ("L<n>|<hash8>", optionally "L<n>:L<m>|<hash8>") and
// AnchorText the human-readable fallback excerpt. Timestamps are kept
// as opaque ISO-8601 strings so serialization is byte-stable.
type Memo struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Owner      string `json:"owner"`
	Source     string `json:"source"`
	Color      string `json:"color"`
	Text       string `json:"text"`
	AnchorText string `json:"anchorText,omitempty"`
	Anchor     string `json:"anchor,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

// Gate derives merge/release/implement readiness from memo statuses.
// Status is a cache of the last evaluation; Evaluate always recomputes.
type Gate struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	Status         string   `json:"status"`
	BlockedBy      []string `json:"blockedBy,omitempty"`
	CanProceedIf   string   `json:"canProceedIf,omitempty"`
	DoneDefinition string   `json:"doneDefinition,omitempty"`
}

// Cursor records "current task/step" for session continuity. Singleton
// per document; when a document contains several, the last one wins.
type Cursor struct {
	TaskID       string `json:"taskId"`
	Step         string `json:"step"`
	NextAction   string `json:"nextAction"`
	LastSeenHash string `json:"lastSeenHash,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// Checkpoint is an immutable snapshot of annotation counts and reviewed
// sections. Append-only: Merge never mutates or drops existing ones.
type Checkpoint struct {
	ID         string   `json:"id"`
	Time       string   `json:"time"`
	Note       string   `json:"note"`
	Fixes      int      `json:"fixes"`
	Questions  int      `json:"questions"`
	Highlights int      `json:"highlights"`
	Sections   []string `json:"sectionsReviewed"`
}

// Bundle is the structured form of one annotated document: the unit
// passed between Split and Merge.
type Bundle struct {
	Frontmatter string       `json:"frontmatter,omitempty"`
	Body        string       `json:"body"`
	Memos       []Memo       `json:"memos"`
	Gates       []Gate       `json:"gates"`
	Cursor      *Cursor      `json:"cursor,omitempty"`
	Checkpoints []Checkpoint `json:"checkpoints"`
}

// legacyRedHex is the hex value single-line v0.3 memos used before
// named colors existed; it is also the default when color is absent.
const legacyRedHex = "#ff6b6b"

// Hex values written by old clients, mapped to canonical color names.
var legacyHexColors = map[string]string{
	"#ff6b6b": ColorRed,
	"#ffd93d": ColorYellow,
	"#6bcbff": ColorBlue,
}

// NormalizeColor maps any historical color spelling to one of the three
// canonical names. Unknown values fall back to red so that the memo
// still classifies as a fix rather than disappearing from counts.
func NormalizeColor(c string) string {
	switch c {
	case ColorYellow, ColorRed, ColorBlue:
		return c
	case "":
		return ColorRed
	}
	if name, ok := legacyHexColors[strings.ToLower(c)]; ok {
		return name
	}
	return ColorRed
}

// TypeForColor derives the memo type when the comment carried none.
func TypeForColor(color string) string {
	switch NormalizeColor(color) {
	case ColorBlue:
		return TypeQuestion
	case ColorYellow:
		return TypeHighlight
	default:
		return TypeFix
	}
}

// ColorForType is the reverse mapping, used when a collaborator hands
// in a memo with a type but no color.
func ColorForType(typ string) string {
	switch typ {
	case TypeQuestion:
		return ColorBlue
	case TypeHighlight:
		return ColorYellow
	default:
		return ColorRed
	}
}

// normalize fills the defaults a legacy or partially-populated memo is
// missing. Applied on parse and again before serialization so that
// Split∘Merge is stable on the field level.
func (m *Memo) normalize() {
	m.Color = NormalizeColor(m.Color)
	if m.Type == "" {
		m.Type = TypeForColor(m.Color)
	}
	if m.Status == "" {
		m.Status = StatusOpen
	}
	if m.Owner == "" {
		m.Owner = OwnerHuman
	}
	if m.Source == "" {
		m.Source = SourceGeneric
	}
}

func (g *Gate) normalize() {
	if g.Type == "" {
		g.Type = GateCustom
	}
	if g.Status == "" {
		g.Status = GateProceed
	}
}

// FindMemo returns the first memo with the given id, or nil. Duplicate
// ids are not validated; first match wins.
func FindMemo(memos []Memo, id string) *Memo {
	for i := range memos {
		if memos[i].ID == id {
			return &memos[i]
		}
	}
	return nil
}
