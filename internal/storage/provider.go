// Package storage defines the docs-root file-system abstraction.
//
// The annotation core never touches storage; every read and write of an
// annotated document goes through a Provider so the service layer can
// serialize the read → split → mutate → merge → write cycle.
package storage

import "github.com/seonyeomin-rgb/md-feedback/internal/models"

// Provider is the interface for document file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to the docs root).
	List(dir string) ([]models.DocMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the docs root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the docs root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the docs root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to the docs root).
	Move(oldPath, newPath string) error
}
