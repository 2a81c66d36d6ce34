package mcpserver

// FeedbackFormatContract describes the canonical annotation comment
// format that LLM consumers must follow when writing feedback into
// Markdown documents.
const FeedbackFormatContract = `# md-feedback Annotation Format Contract

Feedback lives inside the Markdown document itself, as HTML comments.
A document with every annotation removed is still valid plain Markdown.

## Memo (canonical block form)

` + "```" + `markdown
Some prose line being reviewed.
<!-- USER_MEMO
  id="9f1c2a34"
  type="fix"
  status="open"
  owner="human"
  source="generic"
  color="red"
  text="Tighten this paragraph"
  anchorText="Some prose line being reviewed."
  anchor="L12|a3f29c01"
-->
` + "```" + `

- ` + "`" + `id` + "`" + ` is REQUIRED and unique within the document.
- ` + "`" + `type` + "`" + ` is one of ` + "`" + `fix` + "`" + ` / ` + "`" + `question` + "`" + ` / ` + "`" + `highlight` + "`" + `;
  colors map red/blue/yellow to those types.
- ` + "`" + `status` + "`" + ` is one of ` + "`" + `open` + "`" + ` / ` + "`" + `answered` + "`" + ` / ` + "`" + `done` + "`" + ` / ` + "`" + `wontfix` + "`" + `.
- ` + "`" + `anchor` + "`" + ` is ` + "`" + `L<line>|<hash8>` + "`" + `: 1-based body line plus an 8-hex line hash.
  When the document changes, the host re-resolves anchors; memos that cannot be
  re-attached are appended at the end of the document, never dropped.
- Attribute values escape ` + "`" + `"` + "`" + ` as ` + "`" + `&quot;` + "`" + ` and newlines as ` + "`" + `&#10;` + "`" + `.

Older dialects (single-line ` + "`" + `<!-- USER_MEMO id="..." color="..." : text -->` + "`" + `
and ` + "`" + `@memo` + "`" + ` blocks) are read for compatibility but always rewritten to the
block form above on save. Do not write them.

## Gate

` + "```" + `markdown
<!-- GATE
  id="gate-merge"
  type="merge"
  status="blocked"
  blockedBy="9f1c2a34,7bb0d2ee"
  canProceedIf="All blocking memos resolved"
  doneDefinition="No open memos in the document"
-->
` + "```" + `

Gate status is derived, not authored: ` + "`" + `blocked` + "`" + ` while any memo listed in
` + "`" + `blockedBy` + "`" + ` is open, ` + "`" + `done` + "`" + ` when the document has no open memos at all,
` + "`" + `proceed` + "`" + ` otherwise. Whatever status you write will be recomputed on save.

## Plan cursor (one per document, last wins)

` + "```" + `markdown
<!-- PLAN_CURSOR
  taskId="task-42"
  step="3"
  nextAction="Verify the token refresh path"
  lastSeenHash="<sha256 of the content last seen>"
  updatedAt="2026-08-27T10:00:00Z"
-->
` + "```" + `

## Checkpoint (single line, append-only)

` + "```" + `markdown
<!-- CHECKPOINT id="cp-1" time="2026-08-27T10:00:00Z" note="end of session" fixes=2 questions=1 highlights=0 sections="Auth,API" -->
` + "```" + `

Checkpoints are an immutable history at the end of the document. Append new
ones with the ` + "`" + `create_checkpoint` + "`" + ` tool; never edit or remove existing ones.

## Screenshots

- Upload via the ` + "`" + `upload_asset` + "`" + ` tool; it returns a ` + "`" + `markdownImage` + "`" + ` field
  ready to paste into memo text or the document body.
- Reference with the absolute path: ` + "`" + `![description](/attachments/file.png)` + "`" + `.
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.
`
