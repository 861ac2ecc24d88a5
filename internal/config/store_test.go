package config

import (
	"context"
	"testing"
	"time"

	"github.com/catwalkhq/catwalk/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("") // in-memory
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAdminCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// HasAnyAdmin - should be false initially
	has, err := s.HasAnyAdmin(ctx)
	if err != nil {
		t.Fatalf("HasAnyAdmin: %v", err)
	}
	if has {
		t.Error("expected no admins initially")
	}

	admin := &model.Admin{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$fakehash",
		FirstName:    "Alice",
		LastName:     "Anders",
		IsActive:     true,
		IsSuperAdmin: true,
	}
	if err := s.CreateAdmin(ctx, admin); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if admin.ID == 0 {
		t.Fatal("expected non-zero ID after create")
	}

	has, err = s.HasAnyAdmin(ctx)
	if err != nil {
		t.Fatalf("HasAnyAdmin: %v", err)
	}
	if !has {
		t.Error("expected admin to exist")
	}

	// GetAdminByUsername
	got, err := s.GetAdminByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAdminByUsername: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("got email %q, want %q", got.Email, "alice@example.com")
	}
	if !got.IsSuperAdmin {
		t.Error("expected is_super_admin = true")
	}

	_, err = s.GetAdminByUsername(ctx, "nobody")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// UpdateAdminProfile
	got.FirstName = "Alicia"
	got.ProfilePicture = "https://cdn.example.com/alicia.png"
	if err := s.UpdateAdminProfile(ctx, got); err != nil {
		t.Fatalf("UpdateAdminProfile: %v", err)
	}
	got2, _ := s.GetAdmin(ctx, admin.ID)
	if got2.FirstName != "Alicia" {
		t.Errorf("got first name %q, want %q", got2.FirstName, "Alicia")
	}

	// UpdateAdminLastLogin
	if err := s.UpdateAdminLastLogin(ctx, admin.ID, "10.0.0.1"); err != nil {
		t.Fatalf("UpdateAdminLastLogin: %v", err)
	}
	got3, _ := s.GetAdmin(ctx, admin.ID)
	if got3.LastLoginAt == nil {
		t.Error("expected last_login_at to be set")
	}
	if got3.LastLoginIP != "10.0.0.1" {
		t.Errorf("got last login ip %q, want %q", got3.LastLoginIP, "10.0.0.1")
	}

	// ListAdmins
	admins, err := s.ListAdmins(ctx)
	if err != nil {
		t.Fatalf("ListAdmins: %v", err)
	}
	if len(admins) != 1 {
		t.Errorf("got %d admins, want 1", len(admins))
	}
}

func TestUpdateAdminPassword(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	admin := &model.Admin{Username: "alice", PasswordHash: "old-hash", IsActive: true}
	if err := s.CreateAdmin(ctx, admin); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if admin.TokensValidAfter != nil {
		t.Error("expected no tokens_valid_after on a fresh admin")
	}

	if err := s.UpdateAdminPassword(ctx, admin.ID, "new-hash"); err != nil {
		t.Fatalf("UpdateAdminPassword: %v", err)
	}

	got, err := s.GetAdmin(ctx, admin.ID)
	if err != nil {
		t.Fatalf("GetAdmin: %v", err)
	}
	if got.PasswordHash != "new-hash" {
		t.Errorf("got hash %q, want %q", got.PasswordHash, "new-hash")
	}
	if got.TokensValidAfter == nil {
		t.Error("expected tokens_valid_after to be stamped")
	}

	if err := s.UpdateAdminPassword(ctx, 9999, "x"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for unknown admin, got %v", err)
	}
}

func TestSessionCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	admin := &model.Admin{Username: "alice", PasswordHash: "h", IsActive: true}
	if err := s.CreateAdmin(ctx, admin); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	sess := &model.AdminSession{
		AdminID:    admin.ID,
		SessionKey: "key-1",
		IPAddress:  "10.0.0.1",
		UserAgent:  "TestAgent/1.0",
		RefreshJTI: "jti-1",
	}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.ID == 0 {
		t.Fatal("expected non-zero session ID")
	}

	// GetSessionByKey
	got, err := s.GetSessionByKey(ctx, admin.ID, "key-1")
	if err != nil {
		t.Fatalf("GetSessionByKey: %v", err)
	}
	if got.RefreshJTI != "jti-1" {
		t.Errorf("got jti %q, want %q", got.RefreshJTI, "jti-1")
	}

	// Wrong admin scope
	_, err = s.GetSessionByKey(ctx, admin.ID+1, "key-1")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound for other admin, got %v", err)
	}

	// GetActiveSession
	got2, err := s.GetActiveSession(ctx, admin.ID, sess.ID)
	if err != nil {
		t.Fatalf("GetActiveSession: %v", err)
	}
	if got2.SessionKey != "key-1" {
		t.Errorf("got key %q, want %q", got2.SessionKey, "key-1")
	}

	// TouchSession
	if err := s.TouchSession(ctx, admin.ID, "key-1"); err != nil {
		t.Fatalf("TouchSession: %v", err)
	}

	// Deactivate
	if err := s.DeactivateSession(ctx, sess.ID); err != nil {
		t.Fatalf("DeactivateSession: %v", err)
	}
	_, err = s.GetActiveSession(ctx, admin.ID, sess.ID)
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound after deactivate, got %v", err)
	}

	list, err := s.ListActiveSessions(ctx, admin.ID)
	if err != nil {
		t.Fatalf("ListActiveSessions: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("got %d active sessions, want 0", len(list))
	}
}

func TestLoginAttempts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		attempt := &model.LoginAttempt{
			Username:  "alice",
			IPAddress: "10.0.0.1",
			UserAgent: "TestAgent/1.0",
			Success:   i == 4,
		}
		if err := s.CreateLoginAttempt(ctx, attempt); err != nil {
			t.Fatalf("CreateLoginAttempt: %v", err)
		}
	}

	attempts, err := s.ListLoginAttempts(ctx, 3)
	if err != nil {
		t.Fatalf("ListLoginAttempts: %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("got %d attempts, want 3", len(attempts))
	}
	// Newest first: the last insert was the success.
	if !attempts[0].Success {
		t.Error("expected newest attempt first")
	}
}

func TestRevokedTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	revoked, err := s.IsTokenRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsTokenRevoked: %v", err)
	}
	if revoked {
		t.Error("expected token not revoked initially")
	}

	if err := s.RevokeToken(ctx, "jti-1", 1, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	// Double revoke is a no-op.
	if err := s.RevokeToken(ctx, "jti-1", 1, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeToken twice: %v", err)
	}

	revoked, err = s.IsTokenRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsTokenRevoked: %v", err)
	}
	if !revoked {
		t.Error("expected token to be revoked")
	}

	// An already-expired row is purged; a live one survives.
	if err := s.RevokeToken(ctx, "jti-old", 1, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	n, err := s.PurgeExpiredTokens(ctx)
	if err != nil {
		t.Fatalf("PurgeExpiredTokens: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d rows, want 1", n)
	}
	revoked, _ = s.IsTokenRevoked(ctx, "jti-1")
	if !revoked {
		t.Error("live blacklist row should survive purge")
	}
}

func TestTemplateCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	admin := &model.Admin{Username: "alice", PasswordHash: "h", IsActive: true}
	if err := s.CreateAdmin(ctx, admin); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	tpl := &model.PromptTemplate{
		Title:     "Rainy Day Fits",
		Category:  "weather",
		Text:      "Show us your best rainy day outfit!",
		IsActive:  true,
		CreatedBy: admin.ID,
	}
	if err := s.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if tpl.ID == 0 {
		t.Fatal("expected non-zero ID")
	}

	// GetTemplate resolves the creator's username.
	got, err := s.GetTemplate(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if got.CreatedByName != "alice" {
		t.Errorf("got creator %q, want %q", got.CreatedByName, "alice")
	}

	// Filtered list
	tpl2 := &model.PromptTemplate{
		Title:     "Date Night",
		Category:  "occasion",
		Text:      "What are you wearing tonight?",
		IsActive:  true,
		CreatedBy: admin.ID,
	}
	if err := s.CreateTemplate(ctx, tpl2); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	list, err := s.ListTemplates(ctx, "weather", "")
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d templates, want 1", len(list))
	}
	if list[0].Title != "Rainy Day Fits" {
		t.Errorf("got title %q, want %q", list[0].Title, "Rainy Day Fits")
	}

	// Case-insensitive title search
	list, err = s.ListTemplates(ctx, "", "rainy")
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("search: got %d templates, want 1", len(list))
	}

	// Update
	got.Title = "Rainy Day Looks"
	got.IsActive = false
	if err := s.UpdateTemplate(ctx, got); err != nil {
		t.Fatalf("UpdateTemplate: %v", err)
	}
	got3, _ := s.GetTemplate(ctx, tpl.ID)
	if got3.Title != "Rainy Day Looks" {
		t.Errorf("got title %q, want %q", got3.Title, "Rainy Day Looks")
	}
	if got3.IsActive {
		t.Error("expected template to be inactive")
	}

	// Counts
	n, err := s.CountTemplates(ctx)
	if err != nil {
		t.Fatalf("CountTemplates: %v", err)
	}
	if n != 2 {
		t.Errorf("got %d templates, want 2", n)
	}

	// Delete
	if err := s.DeleteTemplate(ctx, tpl.ID); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	_, err = s.GetTemplate(ctx, tpl.ID)
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteTemplate(ctx, tpl.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetSetting(ctx, "plan.premium.price")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.SetSetting(ctx, "plan.premium.price", "9.99"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	// Upsert
	if err := s.SetSetting(ctx, "plan.premium.price", "12.99"); err != nil {
		t.Fatalf("SetSetting upsert: %v", err)
	}

	v, err := s.GetSetting(ctx, "plan.premium.price")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if v != "12.99" {
		t.Errorf("got %q, want %q", v, "12.99")
	}

	if err := s.SetSetting(ctx, "plan.free.price", "0"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := s.SetSetting(ctx, "feature.dark_mode", "true"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}

	plans, err := s.ListSettingsByPrefix(ctx, "plan.")
	if err != nil {
		t.Fatalf("ListSettingsByPrefix: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("got %d plan settings, want 2", len(plans))
	}
	if plans["premium.price"] != "12.99" {
		t.Errorf("got %q, want %q", plans["premium.price"], "12.99")
	}
}
