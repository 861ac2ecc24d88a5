package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/catwalkhq/catwalk/internal/config"
	"github.com/catwalkhq/catwalk/internal/directory"
	"github.com/catwalkhq/catwalk/internal/model"
	"github.com/catwalkhq/catwalk/internal/server/middleware"
	"github.com/catwalkhq/catwalk/internal/service"
)

const (
	testJWTSecret = "test-secret-for-handler-tests"
	testPassword  = "supersecretpassword"
)

// testEnv holds shared state for handler integration tests: an in-memory
// store, real services, a fake directory server, and a router with the same
// middleware layout as production.
type testEnv struct {
	store    *config.Store
	auth     *service.AuthService
	sessions *service.SessionService
	dir      *directory.Client
	router   chi.Router
}

// newTestEnv creates a fresh test environment. dirHandler serves as the fake
// directory; pass nil for tests that never touch it.
func newTestEnv(t *testing.T, dirHandler http.Handler) *testEnv {
	t.Helper()

	store, err := config.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("config.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if dirHandler == nil {
		dirHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"directory not faked in this test"}`, http.StatusBadGateway)
		})
	}
	dirSrv := httptest.NewServer(dirHandler)
	t.Cleanup(dirSrv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auth := service.NewAuthService(store, testJWTSecret, 15*time.Minute, 7*24*time.Hour)
	sessions := service.NewSessionService(store, logger)
	dir := directory.NewClient(dirSrv.URL, "test-key", 5*time.Second)

	authHandler := NewAuthHandler(store, auth, sessions)
	templateHandler := NewTemplateHandler(store)
	userHandler := NewUserHandler(dir)
	contentHandler := NewContentHandler(dir)
	subscriptionHandler := NewSubscriptionHandler(store, dir)
	notificationHandler := NewNotificationHandler(dir)
	settingsHandler := NewSettingsHandler(store, dir)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login/", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(auth, sessions))

			r.Route("/auth", func(r chi.Router) {
				r.Post("/logout/", authHandler.Logout)
				r.Post("/refresh-token/", authHandler.RefreshToken)
				r.Get("/profile/", authHandler.Profile)
				r.Put("/profile/update/", authHandler.UpdateProfile)
				r.Post("/change-password/", authHandler.ChangePassword)
				r.Get("/sessions/", authHandler.ListSessions)
				r.Post("/sessions/{id}/terminate/", authHandler.TerminateSession)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireSuperAdmin())
					r.Get("/login-attempts/", authHandler.ListLoginAttempts)
				})
			})

			r.Route("/templates", func(r chi.Router) {
				r.Get("/", templateHandler.List)
				r.Post("/create/", templateHandler.Create)
				r.Get("/{id}/", templateHandler.Get)
				r.Put("/{id}/update/", templateHandler.Update)
				r.Post("/{id}/delete/", templateHandler.Delete)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.Get("/{uid}/", userHandler.Get)
				r.Post("/{uid}/disable/", userHandler.Disable)
			})

			r.Route("/content", func(r chi.Router) {
				r.Get("/flagged/", contentHandler.Flagged)
				r.Post("/{id}/approve/", contentHandler.Approve)
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Get("/pricing/", subscriptionHandler.GetPricing)
				r.Put("/pricing/", subscriptionHandler.UpdatePricing)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Post("/send/", notificationHandler.Send)
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/feature-flags/", settingsHandler.GetFeatureFlags)
				r.Put("/feature-flags/", settingsHandler.UpdateFeatureFlag)
			})
		})
	})

	return &testEnv{
		store:    store,
		auth:     auth,
		sessions: sessions,
		dir:      dir,
		router:   r,
	}
}

// seedAdmin creates an admin account with the test password.
func (e *testEnv) seedAdmin(t *testing.T, username string, super bool) *model.Admin {
	t.Helper()
	hash, err := service.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	admin := &model.Admin{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		IsActive:     true,
		IsSuperAdmin: super,
	}
	if err := e.store.CreateAdmin(context.Background(), admin); err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	return admin
}

// login performs a real login and returns the token pair.
func (e *testEnv) login(t *testing.T, username string) (access, refresh string) {
	t.Helper()
	rr := e.do(t, "POST", "/api/auth/login/", "", toJSON(t, map[string]string{
		"username": username,
		"password": testPassword,
	}))
	assertStatus(t, rr, http.StatusOK)

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decodeJSON(t, rr, &resp)
	return resp.AccessToken, resp.RefreshToken
}

// do executes an HTTP request against the test router. token, when non-empty,
// is sent as a Bearer credential.
func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func toJSON(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// envelope decodes the response body into a generic envelope map.
func envelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var e map[string]interface{}
	decodeJSON(t, rr, &e)
	return e
}
