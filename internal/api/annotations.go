package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/seonyeomin-rgb/md-feedback/internal/apperr"
)

// Annotation routes take the document path in the request body or query
// string rather than the URL: chi wildcards must be terminal, so
// /documents/*/memos cannot route slash-bearing paths.

// AddMemo handles POST /api/memos.
func (h *Handler) AddMemo(w http.ResponseWriter, r *http.Request) {
	var req AddMemoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Memo.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and memo.text are required"))
		return
	}
	doc, err := h.svc.AddMemo(r.Context(), req.Path, req.Memo, req.Line)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("document or line not found"))
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("memo id already exists"))
		default:
			slog.Error("add memo failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// SetMemoStatus handles PUT /api/memos/status.
func (h *Handler) SetMemoStatus(w http.ResponseWriter, r *http.Request) {
	var req SetMemoStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.ID == "" || req.Status == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path, id, and status are required"))
		return
	}
	doc, err := h.svc.SetMemoStatus(r.Context(), req.Path, req.ID, req.Status)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("set memo status failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteMemo handles DELETE /api/memos?path=...&id=...
func (h *Handler) DeleteMemo(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path, id := q.Get("path"), q.Get("id")
	if path == "" || id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and id are required"))
		return
	}
	doc, err := h.svc.DeleteMemo(r.Context(), path, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete memo failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// SetCursor handles PUT /api/cursor.
func (h *Handler) SetCursor(w http.ResponseWriter, r *http.Request) {
	var req SetCursorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Cursor.TaskID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and cursor.taskId are required"))
		return
	}
	doc, err := h.svc.SetCursor(r.Context(), req.Path, req.Cursor)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("set cursor failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// CreateCheckpoint handles POST /api/checkpoints.
func (h *Handler) CreateCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req CreateCheckpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	cp, err := h.svc.CreateCheckpoint(r.Context(), req.Path, req.ID, req.Note)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("create checkpoint failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, cp)
}

// EvaluateGates handles POST /api/gates/evaluate.
func (h *Handler) EvaluateGates(w http.ResponseWriter, r *http.Request) {
	var req EvaluateGatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	gates, err := h.svc.EvaluateGates(r.Context(), req.Path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("evaluate gates failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gates": gates})
}

// Status handles GET /api/status?path=...
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	st, err := h.svc.Status(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("status failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, st)
}
