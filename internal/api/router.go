package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seonyeomin-rgb/md-feedback/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// docsRoot is used to resolve the attachments directory.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler, docsRoot string) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(docsRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents CRUD.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Post("/documents/move", h.MoveDocument)
	r.Get("/documents/*", h.GetDocument)
	r.Put("/documents/*", h.UpdateDocument)
	r.Delete("/documents/*", h.DeleteDocument)

	// Annotation operations (document path travels in body/query).
	r.Post("/memos", h.AddMemo)
	r.Put("/memos/status", h.SetMemoStatus)
	r.Delete("/memos", h.DeleteMemo)
	r.Put("/cursor", h.SetCursor)
	r.Post("/checkpoints", h.CreateCheckpoint)
	r.Post("/gates/evaluate", h.EvaluateGates)
	r.Get("/status", h.Status)

	// Search.
	r.Get("/search", h.Search)

	// Attachments upload (auth-protected).
	r.Post("/attachments", ah.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
