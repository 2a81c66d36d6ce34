package index

import (
	"log/slog"
	"strings"
	"time"

	"github.com/seonyeomin-rgb/md-feedback/internal/annotation"
	"github.com/seonyeomin-rgb/md-feedback/internal/checksum"
	"github.com/seonyeomin-rgb/md-feedback/internal/storage"
)

// Sync walks the docs root and brings the index up to date:
//   - new/changed documents are split and upserted
//   - documents removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile splits data into its annotation bundle and upserts the
// document row, memo rows, and evaluated gate rows. The stored gate
// statuses reflect the memo set at index time, not the statuses written
// in the file.
func IndexFile(db *DB, path string, data []byte, updatedAt time.Time) error {
	text := string(data)
	b := annotation.Split(text)
	counts := annotation.CountAnnotations(text)

	open := 0
	memoTexts := make([]string, 0, len(b.Memos))
	for _, m := range b.Memos {
		if m.Status == annotation.StatusOpen {
			open++
		}
		memoTexts = append(memoTexts, m.Text)
	}

	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	row := DocRow{
		Path:       path,
		Title:      annotation.Title(b),
		Checksum:   checksum.Sum(data),
		Fixes:      counts.Fixes,
		Questions:  counts.Questions,
		Highlights: counts.Highlights,
		OpenMemos:  open,
		UpdatedAt:  updatedAt,
	}
	gates := annotation.EvaluateAll(b.Gates, b.Memos)
	return db.UpsertDocument(row, b.Body, strings.Join(memoTexts, "\n"), b.Memos, gates)
}
