package handler

import (
	"net/http"

	"github.com/catwalkhq/catwalk/internal/directory"
	"github.com/catwalkhq/catwalk/internal/model"
)

// AnalyticsHandler serves the deeper analytics pages. Like the dashboard,
// anything the directory cannot aggregate yet is synthetic but stable.
type AnalyticsHandler struct {
	dir *directory.Client
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(dir *directory.Client) *AnalyticsHandler {
	return &AnalyticsHandler{dir: dir}
}

// Closet returns closet-feature usage figures.
// GET /api/analytics/closet/
func (h *AnalyticsHandler) Closet(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, model.Envelope{
		"items_uploaded":     18432,
		"outfits_assembled":  6210,
		"avg_items_per_user": 14.2,
		"top_categories": []model.Envelope{
			{"category": "tops", "count": 6120},
			{"category": "shoes", "count": 4480},
			{"category": "dresses", "count": 3390},
			{"category": "accessories", "count": 2505},
		},
	})
}

// Polls returns poll participation figures with a 7-day trend.
// GET /api/analytics/polls/
func (h *AnalyticsHandler) Polls(w http.ResponseWriter, r *http.Request) {
	engagement, err := h.dir.EngagementCounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load engagement counts: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{
		"total_polls":        engagement.Polls,
		"total_votes":        engagement.Votes,
		"participation_rate": 0.63,
		"daily":              dailySeries(7, 420, 180, "polls"),
	})
}

// TopOutfits returns the current top-voted outfits.
// GET /api/analytics/top-outfits/
func (h *AnalyticsHandler) TopOutfits(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, model.Envelope{
		"outfits": []model.Envelope{
			{"rank": 1, "title": "Neutral layers", "votes": 12840, "category": "style"},
			{"rank": 2, "title": "Festival fringe", "votes": 11002, "category": "occasion"},
			{"rank": 3, "title": "Rainy day chic", "votes": 9877, "category": "weather"},
			{"rank": 4, "title": "Monochrome Monday", "votes": 9214, "category": "color"},
			{"rank": 5, "title": "Autumn knits", "votes": 8590, "category": "season"},
		},
	})
}

// AdRevenue returns ad revenue figures alongside subscription revenue.
// GET /api/analytics/ad-revenue/
func (h *AnalyticsHandler) AdRevenue(w http.ResponseWriter, r *http.Request) {
	revenue, err := h.dir.RevenueTotals(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load revenue totals: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{
		"subscription_monthly": revenue.Monthly,
		"currency":             revenue.Currency,
		"ad_impressions":       1204500,
		"ad_clicks":            36135,
		"ad_revenue_monthly":   4820.50,
		"ecpm":                 4.00,
	})
}

// UserEngagement returns session and retention figures.
// GET /api/analytics/user-engagement/
func (h *AnalyticsHandler) UserEngagement(w http.ResponseWriter, r *http.Request) {
	users, err := h.dir.UserCounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load user counts: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{
		"dau":                 users.Active,
		"mau":                 users.Total,
		"avg_session_minutes": 7.4,
		"retention_d1":        0.46,
		"retention_d7":        0.24,
		"retention_d30":       0.12,
		"sessions_per_day":    dailySeries(7, 15200, 4800, "sessions"),
	})
}
