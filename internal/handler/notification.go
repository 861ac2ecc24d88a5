package handler

import (
	"net/http"
	"time"

	"github.com/catwalkhq/catwalk/internal/directory"
	"github.com/catwalkhq/catwalk/internal/model"
)

// NotificationHandler sends push notifications through the directory and
// serves the notification template catalogue.
type NotificationHandler struct {
	dir *directory.Client
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(dir *directory.Client) *NotificationHandler {
	return &NotificationHandler{dir: dir}
}

// sendRequest is the expected payload for the Send endpoint.
type sendRequest struct {
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	Target        string     `json:"target"`
	UserID        string     `json:"user_id"`
	ScheduledTime *time.Time `json:"scheduled_time"`
}

// Send dispatches a push notification, or schedules it when scheduled_time
// is set. Target is "all" or "user"; the latter requires user_id.
// POST /api/notifications/send/
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	errs := map[string][]string{}
	if req.Title == "" {
		errs["title"] = append(errs["title"], "This field is required.")
	}
	if req.Body == "" {
		errs["body"] = append(errs["body"], "This field is required.")
	}
	switch req.Target {
	case "":
		req.Target = "all"
	case "all":
	case "user":
		if req.UserID == "" {
			errs["user_id"] = append(errs["user_id"], "Required when target is \"user\".")
		}
	default:
		errs["target"] = append(errs["target"], "Target must be \"all\" or \"user\".")
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	id, err := h.dir.SendPush(r.Context(), &directory.PushRequest{
		Title:         req.Title,
		Body:          req.Body,
		Target:        req.Target,
		UserID:        req.UserID,
		ScheduledTime: req.ScheduledTime,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to send notification: "+err.Error())
		return
	}

	message := "Notification sent"
	if req.ScheduledTime != nil {
		message = "Notification scheduled"
	}
	writeOK(w, http.StatusOK, model.Envelope{"message": message, "notification_id": id})
}

// History returns recent notification dispatches. The directory does not
// keep a dispatch log yet, so the history is synthetic.
// GET /api/notifications/history/
func (h *NotificationHandler) History(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	history := []model.Envelope{
		{"title": "New voting round!", "target": "all", "sent_at": now.Add(-6 * time.Hour), "delivered": 41230},
		{"title": "Your outfit is trending", "target": "user", "sent_at": now.Add(-20 * time.Hour), "delivered": 1},
		{"title": "Weekend style challenge", "target": "all", "sent_at": now.Add(-3 * 24 * time.Hour), "delivered": 40018},
	}
	writeOK(w, http.StatusOK, model.Envelope{"history": history})
}

// Templates returns the static catalogue of reusable notification texts.
// GET /api/notifications/templates/
func (h *NotificationHandler) Templates(w http.ResponseWriter, r *http.Request) {
	templates := []model.Envelope{
		{"name": "new_round", "title": "New voting round!", "body": "A fresh prompt is live. Show us your look."},
		{"name": "trending", "title": "Your outfit is trending", "body": "Your latest post is climbing the charts."},
		{"name": "weekly_recap", "title": "Your week in style", "body": "See how your outfits performed this week."},
		{"name": "win", "title": "You won today's poll!", "body": "Your outfit took first place. Congratulations!"},
	}
	writeOK(w, http.StatusOK, model.Envelope{"templates": templates})
}
