// Package docservice coordinates storage, the annotation round trip,
// and the index. Every mutation is one read → Split → mutate → Merge →
// write cycle; gates are re-evaluated on the way out so the serialized
// document never carries a stale gate status.
package docservice

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/seonyeomin-rgb/md-feedback/internal/annotation"
	"github.com/seonyeomin-rgb/md-feedback/internal/apperr"
	"github.com/seonyeomin-rgb/md-feedback/internal/checksum"
	"github.com/seonyeomin-rgb/md-feedback/internal/index"
	"github.com/seonyeomin-rgb/md-feedback/internal/storage"
)

// DocumentDetail is the full representation of an annotated document.
type DocumentDetail struct {
	Path        string                  `json:"path"`
	Title       string                  `json:"title"`
	Content     string                  `json:"content"`
	Checksum    string                  `json:"checksum"`
	Memos       []annotation.Memo       `json:"memos"`
	Gates       []annotation.Gate       `json:"gates"`
	Cursor      *annotation.Cursor      `json:"cursor,omitempty"`
	Checkpoints []annotation.Checkpoint `json:"checkpoints"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// DocListItem is a lightweight item in a list response.
type DocListItem struct {
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Checksum   string    `json:"checksum"`
	Fixes      int       `json:"fixes"`
	Questions  int       `json:"questions"`
	Highlights int       `json:"highlights"`
	OpenMemos  int       `json:"open_memos"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StatusReport is the review state of one document: live counters plus
// the current annotation set.
type StatusReport struct {
	Path      string             `json:"path"`
	Title     string             `json:"title"`
	Counts    annotation.Counts  `json:"counts"`
	OpenMemos int                `json:"open_memos"`
	Memos     []annotation.Memo  `json:"memos"`
	Gates     []annotation.Gate  `json:"gates"`
	Cursor    *annotation.Cursor `json:"cursor,omitempty"`
	Sections  []string           `json:"sections_with_annotations"`
}

// Service coordinates storage and index operations.
type Service struct {
	store storage.Provider
	db    *index.DB
}

// NewService creates a new document service.
func NewService(store storage.Provider, db *index.DB) *Service {
	return &Service{store: store, db: db}
}

// GetDocument reads a document from storage and splits it into its
// annotation bundle.
func (s *Service) GetDocument(_ context.Context, path string) (*DocumentDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return buildDetail(path, data), nil
}

// CreateDocument writes a new document and indexes it.
func (s *Service) CreateDocument(_ context.Context, path string, content []byte) (*DocumentDetail, error) {
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := index.IndexFile(s.db, path, content, time.Now().UTC()); err != nil {
		return nil, err
	}
	return buildDetail(path, content), nil
}

// UpdateDocument writes updated content with optimistic concurrency.
// The new content passes through a Split/Merge cycle so annotations are
// normalized to the canonical dialect on every save.
func (s *Service) UpdateDocument(_ context.Context, path string, content []byte, ifMatch string) (*DocumentDetail, error) {
	existing, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	b := annotation.Split(string(content))
	b.Gates = annotation.EvaluateAll(b.Gates, b.Memos)
	merged := []byte(annotation.Merge(b))
	if err := s.store.Write(path, merged); err != nil {
		return nil, err
	}
	if err := index.IndexFile(s.db, path, merged, time.Now().UTC()); err != nil {
		return nil, err
	}
	return buildDetail(path, merged), nil
}

// DeleteDocument removes a document from storage and index.
func (s *Service) DeleteDocument(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeleteDocument(path)
}

// MoveDocument renames a document, carrying its annotations along and
// re-homing its index entry.
func (s *Service) MoveDocument(_ context.Context, oldPath, newPath string) (*DocumentDetail, error) {
	data, err := s.store.Read(oldPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if _, err := s.store.Read(newPath); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Move(oldPath, newPath); err != nil {
		return nil, err
	}
	if err := s.db.DeleteDocument(oldPath); err != nil {
		return nil, err
	}
	if err := index.IndexFile(s.db, newPath, data, time.Now().UTC()); err != nil {
		return nil, err
	}
	return buildDetail(newPath, data), nil
}

// ListDocuments returns paginated documents with an optional "open"
// filter (only documents with open memos).
func (s *Service) ListDocuments(_ context.Context, limit, offset int, filter, sort string) ([]DocListItem, int, error) {
	rows, total, err := s.db.ListDocuments(limit, offset, filter, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]DocListItem, len(rows))
	for i, r := range rows {
		items[i] = DocListItem{
			Path:       r.Path,
			Title:      r.Title,
			Checksum:   r.Checksum,
			Fixes:      r.Fixes,
			Questions:  r.Questions,
			Highlights: r.Highlights,
			OpenMemos:  r.OpenMemos,
			UpdatedAt:  r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// AddMemo appends a memo to the document. A missing id is generated;
// line > 0 anchors the memo to that 1-based body line, line 0 leaves it
// unanchored (Merge appends it at the end).
func (s *Service) AddMemo(_ context.Context, path string, m annotation.Memo, line int) (*DocumentDetail, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := nowStamp()
	if m.CreatedAt == "" {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	return s.mutate(path, func(b *annotation.Bundle) error {
		if annotation.FindMemo(b.Memos, m.ID) != nil {
			return apperr.ErrAlreadyExists
		}
		if line > 0 {
			anchor, anchorText, ok := annotation.AnchorAt(b.Body, line)
			if !ok {
				return apperr.ErrNotFound
			}
			m.Anchor = anchor
			if m.AnchorText == "" {
				m.AnchorText = anchorText
			}
		}
		b.Memos = append(b.Memos, m)
		return nil
	})
}

// SetMemoStatus updates the status of one memo by id.
func (s *Service) SetMemoStatus(_ context.Context, path, memoID, status string) (*DocumentDetail, error) {
	return s.mutate(path, func(b *annotation.Bundle) error {
		m := annotation.FindMemo(b.Memos, memoID)
		if m == nil {
			return apperr.ErrNotFound
		}
		m.Status = status
		m.UpdatedAt = nowStamp()
		return nil
	})
}

// DeleteMemo removes one memo by id.
func (s *Service) DeleteMemo(_ context.Context, path, memoID string) (*DocumentDetail, error) {
	return s.mutate(path, func(b *annotation.Bundle) error {
		for i := range b.Memos {
			if b.Memos[i].ID == memoID {
				b.Memos = append(b.Memos[:i], b.Memos[i+1:]...)
				return nil
			}
		}
		return apperr.ErrNotFound
	})
}

// SetCursor replaces the document's plan cursor. An empty LastSeenHash
// is filled with the checksum of the content the caller last saw.
func (s *Service) SetCursor(_ context.Context, path string, c annotation.Cursor) (*DocumentDetail, error) {
	var preHash string
	detail, err := s.mutateWithPre(path, func(data []byte) {
		preHash = checksum.Sum(data)
	}, func(b *annotation.Bundle) error {
		c.UpdatedAt = nowStamp()
		if c.LastSeenHash == "" {
			c.LastSeenHash = preHash
		}
		b.Cursor = &c
		return nil
	})
	return detail, err
}

// CreateCheckpoint snapshots the document's current counters and
// appends a checkpoint line at the end. A missing id is generated.
func (s *Service) CreateCheckpoint(_ context.Context, path, id, note string) (*annotation.Checkpoint, error) {
	if id == "" {
		id = uuid.NewString()
	}
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	cp, updated := annotation.CreateCheckpoint(string(data), id, note, time.Now())
	if err := s.store.Write(path, []byte(updated)); err != nil {
		return nil, err
	}
	if err := index.IndexFile(s.db, path, []byte(updated), time.Now().UTC()); err != nil {
		return nil, err
	}
	return &cp, nil
}

// EvaluateGates recomputes every gate from the live memo set, persists
// the updated statuses, and returns them.
func (s *Service) EvaluateGates(_ context.Context, path string) ([]annotation.Gate, error) {
	detail, err := s.mutate(path, func(*annotation.Bundle) error { return nil })
	if err != nil {
		return nil, err
	}
	return detail.Gates, nil
}

// Status reports the live review state of a document without mutating it.
func (s *Service) Status(_ context.Context, path string) (*StatusReport, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	text := string(data)
	b := annotation.Split(text)
	open := 0
	for _, m := range b.Memos {
		if m.Status == annotation.StatusOpen {
			open++
		}
	}
	return &StatusReport{
		Path:      path,
		Title:     annotation.Title(b),
		Counts:    annotation.CountAnnotations(text),
		OpenMemos: open,
		Memos:     nonNilSlice(b.Memos),
		Gates:     nonNilSlice(annotation.EvaluateAll(b.Gates, b.Memos)),
		Cursor:    b.Cursor,
		Sections:  annotation.SectionsWithAnnotations(text),
	}, nil
}

// mutate runs one read → Split → fn → Merge → write cycle against a
// document, re-evaluating gates before serialization.
func (s *Service) mutate(path string, fn func(*annotation.Bundle) error) (*DocumentDetail, error) {
	return s.mutateWithPre(path, nil, fn)
}

func (s *Service) mutateWithPre(path string, pre func([]byte), fn func(*annotation.Bundle) error) (*DocumentDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if pre != nil {
		pre(data)
	}
	b := annotation.Split(string(data))
	if err := fn(b); err != nil {
		return nil, err
	}
	b.Gates = annotation.EvaluateAll(b.Gates, b.Memos)
	merged := []byte(annotation.Merge(b))
	if err := s.store.Write(path, merged); err != nil {
		return nil, err
	}
	if err := index.IndexFile(s.db, path, merged, time.Now().UTC()); err != nil {
		return nil, err
	}
	return buildDetail(path, merged), nil
}

// buildDetail constructs a DocumentDetail from raw data without
// re-reading the file.
func buildDetail(path string, data []byte) *DocumentDetail {
	b := annotation.Split(string(data))
	return &DocumentDetail{
		Path:        path,
		Title:       annotation.Title(b),
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Memos:       nonNilSlice(b.Memos),
		Gates:       nonNilSlice(b.Gates),
		Cursor:      b.Cursor,
		Checkpoints: nonNilSlice(b.Checkpoints),
		UpdatedAt:   time.Now().UTC(),
	}
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
