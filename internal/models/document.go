// Package models defines the domain types shared across md-feedback.
package models

import "time"

// DocMetadata is a lightweight representation of one reviewed Markdown
// document, returned by storage listings and used for sync decisions.
type DocMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
