package config

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/catwalkhq/catwalk/internal/model"
)

// Store manages Catwalk's durable state backed by SQLite: admin accounts,
// sessions, login attempts, prompt templates, the refresh-token blacklist,
// and key-value settings.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new store. Pass empty string for in-memory.
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "catwalk.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---------------------------------------------------------------------------
// Admins
// ---------------------------------------------------------------------------

// CreateAdmin inserts a new admin account. The ID, CreatedAt, and UpdatedAt
// fields on admin are populated after a successful insert.
func (s *Store) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	now := time.Now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	const q = `INSERT INTO admins
		(username, email, password_hash, first_name, last_name, is_active, is_super_admin,
		 profile_picture, last_login_ip, created_at, updated_at)
		VALUES
		(:username, :email, :password_hash, :first_name, :last_name, :is_active, :is_super_admin,
		 :profile_picture, :last_login_ip, :created_at, :updated_at)`

	result, err := s.db.NamedExecContext(ctx, q, admin)
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get admin id: %w", err)
	}
	admin.ID = id
	return nil
}

// GetAdmin returns an admin by ID.
func (s *Store) GetAdmin(ctx context.Context, id int64) (*model.Admin, error) {
	var admin model.Admin
	if err := s.db.GetContext(ctx, &admin, "SELECT * FROM admins WHERE id = ?", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &admin, nil
}

// GetAdminByUsername returns an admin by its unique username. The lookup is
// case-sensitive.
func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error) {
	var admin model.Admin
	if err := s.db.GetContext(ctx, &admin, "SELECT * FROM admins WHERE username = ?", username); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin by username: %w", err)
	}
	return &admin, nil
}

// ListAdmins returns all admin accounts ordered by username.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	var admins []model.Admin
	if err := s.db.SelectContext(ctx, &admins, "SELECT * FROM admins ORDER BY username"); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// HasAnyAdmin reports whether at least one admin account exists.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM admins"); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return n > 0, nil
}

// UpdateAdminProfile updates the mutable profile fields of an admin. The
// UpdatedAt field is refreshed automatically.
func (s *Store) UpdateAdminProfile(ctx context.Context, admin *model.Admin) error {
	admin.UpdatedAt = time.Now().UTC()

	const q = `UPDATE admins SET
		email = :email, first_name = :first_name, last_name = :last_name,
		profile_picture = :profile_picture, updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, admin)
	if err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update admin rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAdminPassword replaces the stored password hash and stamps
// tokens_valid_after so tokens issued before the change are rejected.
func (s *Store) UpdateAdminPassword(ctx context.Context, id int64, passwordHash string) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		"UPDATE admins SET password_hash = ?, tokens_valid_after = ?, updated_at = ? WHERE id = ?",
		passwordHash, now, now, id)
	if err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update admin password rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAdminActive enables or disables an admin account.
func (s *Store) SetAdminActive(ctx context.Context, id int64, active bool) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE admins SET is_active = ?, updated_at = ? WHERE id = ?", active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set admin active: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set admin active rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAdminLastLogin records the time and origin address of a successful login.
func (s *Store) UpdateAdminLastLogin(ctx context.Context, id int64, ip string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		"UPDATE admins SET last_login_at = ?, last_login_ip = ? WHERE id = ?", now, ip, id)
	if err != nil {
		return fmt.Errorf("update admin last login: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

// CreateSession inserts a new active session row. The ID, CreatedAt, and
// LastActivity fields on sess are populated after a successful insert.
func (s *Store) CreateSession(ctx context.Context, sess *model.AdminSession) error {
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.LastActivity = now
	sess.IsActive = true

	const q = `INSERT INTO admin_sessions
		(admin_id, session_key, ip_address, user_agent, refresh_jti, is_active, created_at, last_activity)
		VALUES
		(:admin_id, :session_key, :ip_address, :user_agent, :refresh_jti, :is_active, :created_at, :last_activity)`

	result, err := s.db.NamedExecContext(ctx, q, sess)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get session id: %w", err)
	}
	sess.ID = id
	return nil
}

// GetSessionByKey returns the session with the given key scoped to an admin.
func (s *Store) GetSessionByKey(ctx context.Context, adminID int64, key string) (*model.AdminSession, error) {
	var sess model.AdminSession
	err := s.db.GetContext(ctx, &sess,
		"SELECT * FROM admin_sessions WHERE admin_id = ? AND session_key = ?", adminID, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session by key: %w", err)
	}
	return &sess, nil
}

// GetActiveSession returns an active session by row ID scoped to an admin.
// The scoping means a caller can never learn whether the row exists for
// someone else.
func (s *Store) GetActiveSession(ctx context.Context, adminID, sessionID int64) (*model.AdminSession, error) {
	var sess model.AdminSession
	err := s.db.GetContext(ctx, &sess,
		"SELECT * FROM admin_sessions WHERE id = ? AND admin_id = ? AND is_active = 1", sessionID, adminID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return &sess, nil
}

// DeactivateSession sets is_active=false on a session row. Deactivating an
// already-inactive row is not an error.
func (s *Store) DeactivateSession(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE admin_sessions SET is_active = 0 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	return nil
}

// ListActiveSessions returns an admin's active sessions, most recent activity first.
func (s *Store) ListActiveSessions(ctx context.Context, adminID int64) ([]model.AdminSession, error) {
	var sessions []model.AdminSession
	err := s.db.SelectContext(ctx, &sessions,
		"SELECT * FROM admin_sessions WHERE admin_id = ? AND is_active = 1 ORDER BY last_activity DESC", adminID)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return sessions, nil
}

// TouchSession refreshes a session's last-activity timestamp.
func (s *Store) TouchSession(ctx context.Context, adminID int64, key string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE admin_sessions SET last_activity = ? WHERE admin_id = ? AND session_key = ? AND is_active = 1",
		time.Now().UTC(), adminID, key)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Login attempts
// ---------------------------------------------------------------------------

// CreateLoginAttempt appends one audit row. Attempts are never mutated or
// deleted.
func (s *Store) CreateLoginAttempt(ctx context.Context, attempt *model.LoginAttempt) error {
	attempt.Timestamp = time.Now().UTC()

	const q = `INSERT INTO login_attempts (username, ip_address, user_agent, success, timestamp)
		VALUES (:username, :ip_address, :user_agent, :success, :timestamp)`

	result, err := s.db.NamedExecContext(ctx, q, attempt)
	if err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get login attempt id: %w", err)
	}
	attempt.ID = id
	return nil
}

// ListLoginAttempts returns the most recent attempts, newest first, bounded
// by limit.
func (s *Store) ListLoginAttempts(ctx context.Context, limit int) ([]model.LoginAttempt, error) {
	var attempts []model.LoginAttempt
	err := s.db.SelectContext(ctx, &attempts,
		"SELECT * FROM login_attempts ORDER BY timestamp DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list login attempts: %w", err)
	}
	return attempts, nil
}

// ---------------------------------------------------------------------------
// Revoked tokens (refresh-token blacklist)
// ---------------------------------------------------------------------------

// RevokeToken adds a refresh token's JTI to the blacklist. Revoking an
// already-revoked token is a no-op.
func (s *Store) RevokeToken(ctx context.Context, jti string, adminID int64, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO revoked_tokens (jti, admin_id, expires_at) VALUES (?, ?, ?)",
		jti, adminID, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether a JTI is on the blacklist.
func (s *Store) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?", jti); err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

// PurgeExpiredTokens removes blacklist rows whose tokens have expired anyway.
func (s *Store) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM revoked_tokens WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens rows affected: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Prompt templates
// ---------------------------------------------------------------------------

// templateSelect resolves the creator's username in the same query so list
// and get never need a second round trip.
const templateSelect = `SELECT t.*, a.username AS created_by_name
	FROM prompt_templates t JOIN admins a ON a.id = t.created_by`

// CreateTemplate inserts a new prompt template. The ID, CreatedAt, and
// UpdatedAt fields on tpl are populated after a successful insert.
func (s *Store) CreateTemplate(ctx context.Context, tpl *model.PromptTemplate) error {
	now := time.Now().UTC()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	const q = `INSERT INTO prompt_templates
		(title, category, text, is_active, created_by, usage_count, created_at, updated_at)
		VALUES
		(:title, :category, :text, :is_active, :created_by, :usage_count, :created_at, :updated_at)`

	result, err := s.db.NamedExecContext(ctx, q, tpl)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get template id: %w", err)
	}
	tpl.ID = id
	return nil
}

// GetTemplate returns a template by ID with the creator's username resolved.
func (s *Store) GetTemplate(ctx context.Context, id int64) (*model.PromptTemplate, error) {
	var tpl model.PromptTemplate
	if err := s.db.GetContext(ctx, &tpl, templateSelect+" WHERE t.id = ?", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	return &tpl, nil
}

// ListTemplates returns templates newest first, optionally filtered by
// category and a case-insensitive title substring.
func (s *Store) ListTemplates(ctx context.Context, category, search string) ([]model.PromptTemplate, error) {
	q := templateSelect
	var args []interface{}
	var where []string

	if category != "" {
		where = append(where, "t.category = ?")
		args = append(args, category)
	}
	if search != "" {
		where = append(where, "t.title LIKE ? COLLATE NOCASE")
		args = append(args, "%"+search+"%")
	}
	for i, w := range where {
		if i == 0 {
			q += " WHERE " + w
		} else {
			q += " AND " + w
		}
	}
	q += " ORDER BY t.created_at DESC, t.id DESC"

	var templates []model.PromptTemplate
	if err := s.db.SelectContext(ctx, &templates, q, args...); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// UpdateTemplate updates an existing template. The UpdatedAt field is
// refreshed automatically.
func (s *Store) UpdateTemplate(ctx context.Context, tpl *model.PromptTemplate) error {
	tpl.UpdatedAt = time.Now().UTC()

	const q = `UPDATE prompt_templates SET
		title = :title, category = :category, text = :text, is_active = :is_active,
		updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, tpl)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update template rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTemplate removes a template by ID.
func (s *Store) DeleteTemplate(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM prompt_templates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete template rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountTemplates returns the number of prompt templates.
func (s *Store) CountTemplates(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM prompt_templates"); err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	return n, nil
}

// CountAdmins returns the number of admin accounts.
func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM admins"); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

// CountActiveSessions returns the number of currently active admin sessions.
func (s *Store) CountActiveSessions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM admin_sessions WHERE is_active = 1"); err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// GetSetting returns the value for a settings key, or ErrNotFound.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	if err := s.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = ?", key); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

// SetSetting upserts a settings key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

// ListSettingsByPrefix returns all settings whose key starts with prefix,
// with the prefix stripped from the returned keys.
func (s *Store) ListSettingsByPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	type kv struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	var rows []kv
	err := s.db.SelectContext(ctx, &rows,
		"SELECT key, value FROM settings WHERE key LIKE ? ORDER BY key", prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key[len(prefix):]] = r.Value
	}
	return out, nil
}
