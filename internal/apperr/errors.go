// Package apperr defines sentinel errors shared by the service and
// transport layers.
package apperr

import "errors"

var (
	// ErrNotFound signals a missing document or annotation record.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals an If-Match checksum mismatch on update.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyExists signals a create targeting an existing path.
	ErrAlreadyExists = errors.New("already exists")
)
