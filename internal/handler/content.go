package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/catwalkhq/catwalk/internal/directory"
	"github.com/catwalkhq/catwalk/internal/model"
	"github.com/catwalkhq/catwalk/internal/server/middleware"
)

// ContentHandler is the moderation queue over the directory's content store.
type ContentHandler struct {
	dir *directory.Client
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(dir *directory.Client) *ContentHandler {
	return &ContentHandler{dir: dir}
}

// Flagged returns all content awaiting review.
// GET /api/content/flagged/
func (h *ContentHandler) Flagged(w http.ResponseWriter, r *http.Request) {
	content, err := h.dir.FlaggedContent(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list flagged content: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{"content": content, "count": len(content)})
}

// Details returns one content item, joining the author's account info when
// the directory still has it.
// GET /api/content/{id}/details/
func (h *ContentHandler) Details(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	content, err := h.dir.GetContent(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Content not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load content: "+err.Error())
		return
	}

	out := model.Envelope{"content": content}
	if content.UserID != "" {
		// Author lookup is best effort; deleted accounts leave orphaned posts.
		if user, err := h.dir.GetUser(r.Context(), content.UserID); err == nil {
			out["author"] = user
		}
	}

	writeOK(w, http.StatusOK, out)
}

// Approve clears a content item's flag and records the reviewing admin.
// POST /api/content/{id}/approve/
func (h *ContentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.dir.ApproveContent(r.Context(), id, principal.Username); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Content not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to approve content: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{"message": "Content approved"})
}

// Remove takes a content item down and records the reviewing admin.
// POST /api/content/{id}/remove/
func (h *ContentHandler) Remove(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.dir.RemoveContent(r.Context(), id, principal.Username); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Content not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to remove content: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{"message": "Content removed"})
}
