package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/catwalkhq/catwalk/internal/directory"
)

// fakeDirectory builds a chi router standing in for the external directory
// service in handler tests.
func fakeDirectory(t *testing.T) http.Handler {
	t.Helper()
	r := chi.NewRouter()

	users := []directory.User{
		{UID: "u1", Email: "ana@example.com", DisplayName: "Ana", CreatedAt: time.Now().UTC()},
		{UID: "u2", Email: "ben@example.com", DisplayName: "Ben", CreatedAt: time.Now().UTC()},
		{UID: "u3", Email: "cho@example.com", DisplayName: "Cho", Premium: true, CreatedAt: time.Now().UTC()},
	}

	r.Get("/v1/users", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(directory.UserPage{Users: users})
	})
	r.Get("/v1/users/{uid}", func(w http.ResponseWriter, r *http.Request) {
		for _, u := range users {
			if u.UID == chi.URLParam(r, "uid") {
				json.NewEncoder(w).Encode(u)
				return
			}
		}
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	})
	r.Post("/v1/users/{uid}/disable", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/v1/content/flagged", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []directory.Content{
				{ID: "c1", UserID: "u1", Flagged: true, FlagReason: "spam", FlagCount: 4},
			},
		})
	})
	r.Post("/v1/content/{id}/approve", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != "c1" {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["reviewed_by"] == "" {
			t.Error("expected reviewed_by in approve request")
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Put("/v1/plans/{plan}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Put("/v1/flags/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/v1/notifications", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "notif-1"})
	})

	return r
}

func TestUserListSearchAndPaging(t *testing.T) {
	env := newTestEnv(t, fakeDirectory(t))
	env.seedAdmin(t, "alice", false)
	access, _ := env.login(t, "alice")

	rr := env.do(t, "GET", "/api/users/?page_size=2", access, nil)
	assertStatus(t, rr, http.StatusOK)
	var resp struct {
		Users []directory.User `json:"users"`
		Total int              `json:"total"`
		Page  int              `json:"page"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Total != 3 {
		t.Errorf("total: got %d, want 3", resp.Total)
	}
	if len(resp.Users) != 2 {
		t.Errorf("page 1 size: got %d, want 2", len(resp.Users))
	}

	rr = env.do(t, "GET", "/api/users/?page=2&page_size=2", access, nil)
	decodeJSON(t, rr, &resp)
	if len(resp.Users) != 1 {
		t.Errorf("page 2 size: got %d, want 1", len(resp.Users))
	}

	// Search filters by email and display name, case-insensitive.
	rr = env.do(t, "GET", "/api/users/?search=BEN", access, nil)
	decodeJSON(t, rr, &resp)
	if resp.Total != 1 || resp.Users[0].UID != "u2" {
		t.Errorf("search: got %+v", resp.Users)
	}
}

func TestUserGetAndDisable(t *testing.T) {
	env := newTestEnv(t, fakeDirectory(t))
	env.seedAdmin(t, "alice", false)
	access, _ := env.login(t, "alice")

	rr := env.do(t, "GET", "/api/users/u1/", access, nil)
	assertStatus(t, rr, http.StatusOK)
	e := envelope(t, rr)
	if _, ok := e["activity"]; !ok {
		t.Error("expected activity block in user detail")
	}

	rr = env.do(t, "GET", "/api/users/nobody/", access, nil)
	assertStatus(t, rr, http.StatusNotFound)

	rr = env.do(t, "POST", "/api/users/u1/disable/", access, nil)
	assertStatus(t, rr, http.StatusOK)
}

func TestContentFlaggedAndApprove(t *testing.T) {
	env := newTestEnv(t, fakeDirectory(t))
	env.seedAdmin(t, "alice", false)
	access, _ := env.login(t, "alice")

	rr := env.do(t, "GET", "/api/content/flagged/", access, nil)
	assertStatus(t, rr, http.StatusOK)
	var resp struct {
		Content []directory.Content `json:"content"`
		Count   int                 `json:"count"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Count != 1 || resp.Content[0].FlagReason != "spam" {
		t.Errorf("flagged: got %+v", resp)
	}

	rr = env.do(t, "POST", "/api/content/c1/approve/", access, nil)
	assertStatus(t, rr, http.StatusOK)

	rr = env.do(t, "POST", "/api/content/missing/approve/", access, nil)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestPricingWriteThrough(t *testing.T) {
	env := newTestEnv(t, fakeDirectory(t))
	env.seedAdmin(t, "alice", false)
	access, _ := env.login(t, "alice")

	rr := env.do(t, "PUT", "/api/subscriptions/pricing/", access, toJSON(t, map[string]interface{}{
		"plan_type": "monthly",
		"amount":    9.99,
	}))
	assertStatus(t, rr, http.StatusOK)

	// The local mirror serves the pricing page.
	rr = env.do(t, "GET", "/api/subscriptions/pricing/", access, nil)
	assertStatus(t, rr, http.StatusOK)
	var resp struct {
		Plans []struct {
			PlanType string  `json:"plan_type"`
			Amount   float64 `json:"amount"`
		} `json:"plans"`
	}
	decodeJSON(t, rr, &resp)
	found := false
	for _, p := range resp.Plans {
		if p.PlanType == "monthly" && p.Amount == 9.99 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected monthly plan at 9.99, got %+v", resp.Plans)
	}

	// Unknown plan type is a validation error.
	rr = env.do(t, "PUT", "/api/subscriptions/pricing/", access, toJSON(t, map[string]interface{}{
		"plan_type": "lifetime",
		"amount":    99.0,
	}))
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestFeatureFlagWriteThrough(t *testing.T) {
	env := newTestEnv(t, fakeDirectory(t))
	env.seedAdmin(t, "alice", false)
	access, _ := env.login(t, "alice")

	rr := env.do(t, "PUT", "/api/settings/feature-flags/", access, toJSON(t, map[string]interface{}{
		"name":    "dark_mode",
		"enabled": true,
	}))
	assertStatus(t, rr, http.StatusOK)

	rr = env.do(t, "GET", "/api/settings/feature-flags/", access, nil)
	assertStatus(t, rr, http.StatusOK)
	var resp struct {
		Flags map[string]bool `json:"flags"`
	}
	decodeJSON(t, rr, &resp)
	if !resp.Flags["dark_mode"] {
		t.Errorf("expected dark_mode=true, got %v", resp.Flags)
	}
}

func TestNotificationSendValidation(t *testing.T) {
	env := newTestEnv(t, fakeDirectory(t))
	env.seedAdmin(t, "alice", false)
	access, _ := env.login(t, "alice")

	// Valid broadcast
	rr := env.do(t, "POST", "/api/notifications/send/", access, toJSON(t, map[string]interface{}{
		"title": "Sale",
		"body":  "Everything must go",
	}))
	assertStatus(t, rr, http.StatusOK)
	e := envelope(t, rr)
	if e["notification_id"] != "notif-1" {
		t.Errorf("notification_id: got %v", e["notification_id"])
	}

	// target=user requires user_id
	rr = env.do(t, "POST", "/api/notifications/send/", access, toJSON(t, map[string]interface{}{
		"title":  "Hi",
		"body":   "there",
		"target": "user",
	}))
	assertStatus(t, rr, http.StatusBadRequest)

	// Missing title and body
	rr = env.do(t, "POST", "/api/notifications/send/", access, toJSON(t, map[string]interface{}{}))
	assertStatus(t, rr, http.StatusBadRequest)
	var resp struct {
		Errors map[string][]string `json:"errors"`
	}
	decodeJSON(t, rr, &resp)
	if len(resp.Errors["title"]) == 0 || len(resp.Errors["body"]) == 0 {
		t.Errorf("expected title and body errors, got %v", resp.Errors)
	}
}

func TestDirectoryFailureSurfacesAs500(t *testing.T) {
	env := newTestEnv(t, nil) // directory always 502s
	env.seedAdmin(t, "alice", false)
	access, _ := env.login(t, "alice")

	rr := env.do(t, "GET", "/api/content/flagged/", access, nil)
	assertStatus(t, rr, http.StatusInternalServerError)
	e := envelope(t, rr)
	if e["success"] != false {
		t.Error("expected failure envelope")
	}
}
