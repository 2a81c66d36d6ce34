package index

import "github.com/seonyeomin-rgb/md-feedback/internal/annotation"

// DocIndex defines the interface for document indexing operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type DocIndex interface {
	UpsertDocument(d DocRow, body, memoText string, memos []annotation.Memo, gates []annotation.Gate) error
	DeleteDocument(path string) error
	GetDocument(path string) (*DocRow, error)
	ListDocuments(limit, offset int, filter, sort string) ([]DocRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	AllPaths() (map[string]struct{}, error)
	OpenMemoDocs() ([]string, error)
	Close() error
}

// Verify *DB satisfies DocIndex at compile time.
var _ DocIndex = (*DB)(nil)
