package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/catwalkhq/catwalk/internal/config"
	"github.com/catwalkhq/catwalk/internal/directory"
	"github.com/catwalkhq/catwalk/internal/model"
)

// SettingsHandler manages app-wide feature flags and thresholds. Values live
// in the local settings table and are written through to the directory so
// the mobile backend picks them up.
type SettingsHandler struct {
	store *config.Store
	dir   *directory.Client
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(store *config.Store, dir *directory.Client) *SettingsHandler {
	return &SettingsHandler{store: store, dir: dir}
}

// GetFeatureFlags returns all stored feature flags.
// GET /api/settings/feature-flags/
func (h *SettingsHandler) GetFeatureFlags(w http.ResponseWriter, r *http.Request) {
	raw, err := h.store.ListSettingsByPrefix(r.Context(), "feature.")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load feature flags: "+err.Error())
		return
	}

	flags := make(map[string]bool, len(raw))
	for name, v := range raw {
		flags[name] = v == "true"
	}
	writeOK(w, http.StatusOK, model.Envelope{"flags": flags})
}

// flagRequest is the expected payload for the UpdateFeatureFlag endpoint.
type flagRequest struct {
	Name    string `json:"name"`
	Enabled *bool  `json:"enabled"`
}

// UpdateFeatureFlag toggles one feature flag.
// PUT /api/settings/feature-flags/
func (h *SettingsHandler) UpdateFeatureFlag(w http.ResponseWriter, r *http.Request) {
	var req flagRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	errs := map[string][]string{}
	if req.Name == "" {
		errs["name"] = append(errs["name"], "This field is required.")
	}
	if req.Enabled == nil {
		errs["enabled"] = append(errs["enabled"], "This field is required.")
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	if err := h.dir.SetFeatureFlag(r.Context(), req.Name, *req.Enabled); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update feature flag: "+err.Error())
		return
	}
	if err := h.store.SetSetting(r.Context(), "feature."+req.Name, strconv.FormatBool(*req.Enabled)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store feature flag: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{
		"message": "Feature flag updated",
		"name":    req.Name,
		"enabled": *req.Enabled,
	})
}

// GetThresholds returns all stored thresholds.
// GET /api/settings/thresholds/
func (h *SettingsHandler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	raw, err := h.store.ListSettingsByPrefix(r.Context(), "threshold.")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load thresholds: "+err.Error())
		return
	}

	thresholds := make(map[string]float64, len(raw))
	for name, v := range raw {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			thresholds[name] = f
		}
	}
	writeOK(w, http.StatusOK, model.Envelope{"thresholds": thresholds})
}

// thresholdRequest is the expected payload for the UpdateThreshold endpoint.
type thresholdRequest struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
}

// UpdateThreshold changes one moderation or engagement threshold.
// PUT /api/settings/thresholds/
func (h *SettingsHandler) UpdateThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	errs := map[string][]string{}
	if req.Name == "" {
		errs["name"] = append(errs["name"], "This field is required.")
	}
	if req.Value == nil {
		errs["value"] = append(errs["value"], "This field is required.")
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	if err := h.dir.SetThreshold(r.Context(), req.Name, *req.Value); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update threshold: "+err.Error())
		return
	}
	if err := h.store.SetSetting(r.Context(), "threshold."+req.Name, fmt.Sprintf("%g", *req.Value)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store threshold: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{
		"message": "Threshold updated",
		"name":    req.Name,
		"value":   *req.Value,
	})
}

// Status returns a synthetic system health report for the settings page.
// GET /api/settings/status/
func (h *SettingsHandler) Status(w http.ResponseWriter, r *http.Request) {
	directoryStatus := "ok"
	if err := h.dir.Ping(r.Context()); err != nil {
		directoryStatus = "error: " + err.Error()
	}
	storeStatus := "ok"
	if err := h.store.Ping(r.Context()); err != nil {
		storeStatus = "error: " + err.Error()
	}

	writeOK(w, http.StatusOK, model.Envelope{
		"store":        storeStatus,
		"directory":    directoryStatus,
		"queue_depth":  0,
		"generated_at": time.Now().UTC(),
	})
}

// Backup triggers a backup of the admin database and returns its ID. Gated
// to super admins by the router. The backup itself runs out of band.
// POST /api/settings/backup/
func (h *SettingsHandler) Backup(w http.ResponseWriter, r *http.Request) {
	backupID := "backup-" + uuid.NewString()
	if err := h.store.SetSetting(r.Context(), "backup.last_requested", time.Now().UTC().Format(time.RFC3339)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record backup request: "+err.Error())
		return
	}

	writeOK(w, http.StatusAccepted, model.Envelope{
		"message":   "Backup scheduled",
		"backup_id": backupID,
	})
}
