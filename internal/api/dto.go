package api

import (
	"github.com/seonyeomin-rgb/md-feedback/internal/annotation"
	"github.com/seonyeomin-rgb/md-feedback/internal/docservice"
)

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// UpdateDocumentRequest is the request body for updating a document.
type UpdateDocumentRequest struct {
	Content string `json:"content"`
}

// AddMemoRequest attaches a memo to a document. Line is the 1-based
// body line to anchor to; zero leaves the memo unanchored.
type AddMemoRequest struct {
	Path string          `json:"path"`
	Memo annotation.Memo `json:"memo"`
	Line int             `json:"line,omitempty"`
}

// SetMemoStatusRequest updates the status of one memo.
type SetMemoStatusRequest struct {
	Path   string `json:"path"`
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SetCursorRequest replaces the document's plan cursor.
type SetCursorRequest struct {
	Path   string            `json:"path"`
	Cursor annotation.Cursor `json:"cursor"`
}

// CreateCheckpointRequest appends a review checkpoint.
type CreateCheckpointRequest struct {
	Path string `json:"path"`
	ID   string `json:"id,omitempty"`
	Note string `json:"note,omitempty"`
}

// MoveDocumentRequest renames a document.
type MoveDocumentRequest struct {
	OldPath string `json:"oldPath"`
	NewPath string `json:"newPath"`
}

// EvaluateGatesRequest recomputes gate statuses for a document.
type EvaluateGatesRequest struct {
	Path string `json:"path"`
}

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = docservice.DocumentDetail

// DocListItem is a lightweight item in a list response (aliased from the domain layer).
type DocListItem = docservice.DocListItem

// DocListResponse wraps paginated document listings.
type DocListResponse struct {
	Documents []DocListItem `json:"documents"`
	Total     int           `json:"total"`
}
