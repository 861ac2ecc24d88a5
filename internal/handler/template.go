package handler

import (
	"errors"
	"net/http"

	"github.com/catwalkhq/catwalk/internal/config"
	"github.com/catwalkhq/catwalk/internal/model"
	"github.com/catwalkhq/catwalk/internal/server/middleware"
)

// TemplateHandler manages the daily prompt templates that drive the mobile
// app's voting rounds.
type TemplateHandler struct {
	store *config.Store
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(store *config.Store) *TemplateHandler {
	return &TemplateHandler{store: store}
}

// List returns templates newest first, optionally filtered by category and a
// case-insensitive title search.
// GET /api/templates/?category=&search=
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	category := queryString(r, "category")
	if category != "" && !model.ValidTemplateCategory(category) {
		writeFieldErrors(w, map[string][]string{
			"category": {"Invalid category."},
		})
		return
	}

	templates, err := h.store.ListTemplates(r.Context(), category, queryString(r, "search"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{"templates": templates, "count": len(templates)})
}

// templateRequest carries the writable template fields. Pointers distinguish
// absent fields so Update can be partial; Create requires them all.
type templateRequest struct {
	Title    *string `json:"title"`
	Category *string `json:"category"`
	Text     *string `json:"text"`
	IsActive *bool   `json:"is_active"`
}

func (req *templateRequest) validateRequired() map[string][]string {
	errs := map[string][]string{}
	if req.Title == nil || *req.Title == "" {
		errs["title"] = append(errs["title"], "This field is required.")
	}
	if req.Category == nil || *req.Category == "" {
		errs["category"] = append(errs["category"], "This field is required.")
	} else if !model.ValidTemplateCategory(*req.Category) {
		errs["category"] = append(errs["category"], "Invalid category.")
	}
	if req.Text == nil || *req.Text == "" {
		errs["text"] = append(errs["text"], "This field is required.")
	}
	return errs
}

// Create adds a new prompt template owned by the calling admin.
// POST /api/templates/create/
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	var req templateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if errs := req.validateRequired(); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	tpl := &model.PromptTemplate{
		Title:     *req.Title,
		Category:  *req.Category,
		Text:      *req.Text,
		IsActive:  true,
		CreatedBy: principal.AdminID,
	}
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}

	if err := h.store.CreateTemplate(r.Context(), tpl); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create template: "+err.Error())
		return
	}
	tpl.CreatedByName = principal.Username

	writeOK(w, http.StatusCreated, model.Envelope{"template": tpl})
}

// Get returns a single template by ID.
// GET /api/templates/{id}/
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid template id")
		return
	}

	tpl, err := h.store.GetTemplate(r.Context(), id)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load template: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{"template": tpl})
}

// Update applies a partial update to a template.
// PUT /api/templates/{id}/update/
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid template id")
		return
	}

	var req templateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	errs := map[string][]string{}
	if req.Title != nil && *req.Title == "" {
		errs["title"] = append(errs["title"], "This field may not be blank.")
	}
	if req.Category != nil && !model.ValidTemplateCategory(*req.Category) {
		errs["category"] = append(errs["category"], "Invalid category.")
	}
	if req.Text != nil && *req.Text == "" {
		errs["text"] = append(errs["text"], "This field may not be blank.")
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	tpl, err := h.store.GetTemplate(r.Context(), id)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load template: "+err.Error())
		return
	}

	if req.Title != nil {
		tpl.Title = *req.Title
	}
	if req.Category != nil {
		tpl.Category = *req.Category
	}
	if req.Text != nil {
		tpl.Text = *req.Text
	}
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}

	if err := h.store.UpdateTemplate(r.Context(), tpl); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update template: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{"template": tpl})
}

// Delete removes a template.
// POST /api/templates/{id}/delete/
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid template id")
		return
	}

	if err := h.store.DeleteTemplate(r.Context(), id); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete template: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{"message": "Template deleted"})
}
