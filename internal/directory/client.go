// Package directory is the HTTP client for the external identity and
// document store that holds the mobile app's users, content, and
// subscription records. The admin backend treats it as an opaque JSON API:
// no caching, no retries, no cross-call coordination.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrNotFound is returned when the directory reports 404 for a resource.
var ErrNotFound = errors.New("directory: not found")

// Client talks to the directory service. Construct it once at startup and
// inject it; it is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a directory client. baseURL must not have a trailing
// slash requirement; one is stripped if present.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// User is a mobile-app account as the directory reports it.
type User struct {
	UID         string     `json:"uid"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	PhotoURL    string     `json:"photo_url,omitempty"`
	Disabled    bool       `json:"disabled"`
	Premium     bool       `json:"premium"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// UserPage is one page of the user listing.
type UserPage struct {
	Users         []User `json:"users"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

// UserCounts are the directory's aggregate account statistics.
type UserCounts struct {
	Total       int64 `json:"total"`
	Active      int64 `json:"active"`
	Premium     int64 `json:"premium"`
	NewThisWeek int64 `json:"new_this_week"`
}

// EngagementCounts are the directory's aggregate activity statistics.
type EngagementCounts struct {
	Posts    int64 `json:"posts"`
	Votes    int64 `json:"votes"`
	Polls    int64 `json:"polls"`
	Comments int64 `json:"comments"`
}

// RevenueTotals are the directory's aggregate revenue figures.
type RevenueTotals struct {
	Monthly  float64 `json:"monthly"`
	Annual   float64 `json:"annual"`
	Currency string  `json:"currency"`
}

// Content is a user post as the directory reports it.
type Content struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	Type       string    `json:"type"`
	URL        string    `json:"url,omitempty"`
	Caption    string    `json:"caption,omitempty"`
	Flagged    bool      `json:"flagged"`
	FlagReason string    `json:"flag_reason,omitempty"`
	FlagCount  int       `json:"flag_count"`
	ReviewedBy string    `json:"reviewed_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Subscription is a billing record as the directory reports it.
type Subscription struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	PlanType  string     `json:"plan_type"`
	Amount    float64    `json:"amount"`
	Status    string     `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// PushRequest is a push-notification dispatch or schedule request. When
// ScheduledTime is set the directory stores the notification instead of
// dispatching it.
type PushRequest struct {
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	Target        string     `json:"target"`
	UserID        string     `json:"user_id,omitempty"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
}

// Ping checks that the directory is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v1/healthz", nil, nil)
}

// ListUsers returns one page of users. pageToken is opaque and passed
// through from a previous page's NextPageToken; empty means the first page.
func (c *Client) ListUsers(ctx context.Context, pageToken string, pageSize int) (*UserPage, error) {
	q := url.Values{}
	if pageToken != "" {
		q.Set("page_token", pageToken)
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	path := "/v1/users"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page UserPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetUser returns a single user by UID.
func (c *Client) GetUser(ctx context.Context, uid string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(uid), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DisableUser marks an account disabled. The account's data is retained.
func (c *Client) DisableUser(ctx context.Context, uid string) error {
	return c.do(ctx, http.MethodPost, "/v1/users/"+url.PathEscape(uid)+"/disable", nil, nil)
}

// EnableUser re-enables a disabled account.
func (c *Client) EnableUser(ctx context.Context, uid string) error {
	return c.do(ctx, http.MethodPost, "/v1/users/"+url.PathEscape(uid)+"/enable", nil, nil)
}

// DeleteUser permanently removes an account and its data.
func (c *Client) DeleteUser(ctx context.Context, uid string) error {
	return c.do(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(uid), nil, nil)
}

// UserCounts returns aggregate account statistics.
func (c *Client) UserCounts(ctx context.Context) (*UserCounts, error) {
	var counts UserCounts
	if err := c.do(ctx, http.MethodGet, "/v1/stats/users", nil, &counts); err != nil {
		return nil, err
	}
	return &counts, nil
}

// EngagementCounts returns aggregate activity statistics.
func (c *Client) EngagementCounts(ctx context.Context) (*EngagementCounts, error) {
	var counts EngagementCounts
	if err := c.do(ctx, http.MethodGet, "/v1/stats/engagement", nil, &counts); err != nil {
		return nil, err
	}
	return &counts, nil
}

// RevenueTotals returns aggregate revenue figures.
func (c *Client) RevenueTotals(ctx context.Context) (*RevenueTotals, error) {
	var totals RevenueTotals
	if err := c.do(ctx, http.MethodGet, "/v1/stats/revenue", nil, &totals); err != nil {
		return nil, err
	}
	return &totals, nil
}

// FlaggedContent returns all content currently flagged for review.
func (c *Client) FlaggedContent(ctx context.Context) ([]Content, error) {
	var out struct {
		Content []Content `json:"content"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/content/flagged", nil, &out); err != nil {
		return nil, err
	}
	return out.Content, nil
}

// GetContent returns a single content item by ID.
func (c *Client) GetContent(ctx context.Context, id string) (*Content, error) {
	var content Content
	if err := c.do(ctx, http.MethodGet, "/v1/content/"+url.PathEscape(id), nil, &content); err != nil {
		return nil, err
	}
	return &content, nil
}

// ApproveContent clears a content item's flag and records the reviewer.
func (c *Client) ApproveContent(ctx context.Context, id, reviewer string) error {
	body := map[string]string{"reviewed_by": reviewer}
	return c.do(ctx, http.MethodPost, "/v1/content/"+url.PathEscape(id)+"/approve", body, nil)
}

// RemoveContent takes a content item down and records the reviewer.
func (c *Client) RemoveContent(ctx context.Context, id, reviewer string) error {
	body := map[string]string{"reviewed_by": reviewer}
	return c.do(ctx, http.MethodPost, "/v1/content/"+url.PathEscape(id)+"/remove", body, nil)
}

// ListSubscriptions returns all subscription records.
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var out struct {
		Subscriptions []Subscription `json:"subscriptions"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/subscriptions", nil, &out); err != nil {
		return nil, err
	}
	return out.Subscriptions, nil
}

// SetPlanPrice updates the price of a subscription plan.
func (c *Client) SetPlanPrice(ctx context.Context, planType string, amount float64) error {
	body := map[string]float64{"amount": amount}
	return c.do(ctx, http.MethodPut, "/v1/plans/"+url.PathEscape(planType), body, nil)
}

// SetFeatureFlag toggles a feature flag for the mobile app.
func (c *Client) SetFeatureFlag(ctx context.Context, name string, enabled bool) error {
	body := map[string]bool{"enabled": enabled}
	return c.do(ctx, http.MethodPut, "/v1/flags/"+url.PathEscape(name), body, nil)
}

// SetThreshold updates a moderation or engagement threshold.
func (c *Client) SetThreshold(ctx context.Context, name string, value float64) error {
	body := map[string]float64{"value": value}
	return c.do(ctx, http.MethodPut, "/v1/thresholds/"+url.PathEscape(name), body, nil)
}

// SendPush dispatches (or schedules) a push notification and returns the
// directory's notification ID.
func (c *Client) SendPush(ctx context.Context, req *PushRequest) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/notifications", req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// do issues one request and decodes the JSON response into out when non-nil.
// 404 maps to ErrNotFound; other non-2xx statuses surface the directory's
// error message verbatim.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	var req *http.Request
	var err error
	if reqBody != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("directory: %s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("directory: unexpected status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
