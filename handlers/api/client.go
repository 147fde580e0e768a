// handlers/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gatewatch/models"
	"gatewatch/utils"
)

// Client is the typed HTTP client for the access-control backend. Every
// call funnels through one request path: bearer auth, a shared 401 check
// before any body interpretation, and best-effort {error}/{detail}
// extraction on failures. Calls take a context so a superseded search (or a
// torn-down panel) can abort its in-flight request.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	metrics *utils.Metrics
}

// NewClient creates a backend client. metrics may be nil in tests.
func NewClient(baseURL string, timeout time.Duration, metrics *utils.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		metrics: metrics,
	}
}

// WithToken returns a shallow copy bound to the operator's backend token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// apiError carries the backend's error payload for non-2xx responses.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return e.Message
}

// errorPayload is the backend's best-effort error body shape.
type errorPayload struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// do executes one backend call. fallback is the generic per-action message
// used when a failure body carries nothing parseable.
func (c *Client) do(ctx context.Context, action, method, path string, query url.Values, body, out interface{}, fallback string) error {
	start := time.Now()
	err := c.doOnce(ctx, method, path, query, body, out, fallback)
	c.observe(action, start, err)
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body, out interface{}, fallback string) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// A cancelled context means the caller superseded this request;
		// its outcome must never surface.
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			return utils.ErrRequestSuperseded
		}
		return fmt.Errorf("%s: %w", fallback, err)
	}
	defer resp.Body.Close()

	// The 401 funnel runs before any body interpretation.
	if resp.StatusCode == http.StatusUnauthorized {
		return utils.ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apiError{Status: resp.StatusCode, Message: extractError(resp.Body, fallback)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: %w", fallback, err)
		}
	}
	return nil
}

// extractError pulls {error} or {detail} out of a failure body, falling
// back to the per-action message.
func extractError(body io.Reader, fallback string) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(raw) == 0 {
		return fallback
	}
	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fallback
	}
	if payload.Error != "" {
		return payload.Error
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	return fallback
}

func (c *Client) observe(action string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case utils.IsUnauthorized(err):
		outcome = "unauthorized"
	case utils.IsSuperseded(err):
		outcome = "superseded"
	case err != nil:
		outcome = "error"
	}
	c.metrics.BackendRequests.WithLabelValues(action, outcome).Inc()
	c.metrics.BackendDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
}

// Login authenticates the operator against the backend.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.do(ctx, "login", http.MethodPost, "/auth/login", nil,
		models.LoginRequest{Username: username, Password: password}, &resp,
		"login failed")
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSMTPSettings reads the mail configuration. The response never carries
// a password.
func (c *Client) GetSMTPSettings(ctx context.Context) (*models.SMTPSettings, error) {
	var settings models.SMTPSettings
	err := c.do(ctx, "smtp_get", http.MethodGet, "/admin/smtp-settings", nil, nil, &settings,
		"failed to load SMTP settings")
	if err != nil {
		return nil, err
	}
	settings.BlankPassword()
	return &settings, nil
}

// SaveSMTPSettings writes the full settings buffer. An empty password means
// "leave unchanged"; the backend interprets it.
func (c *Client) SaveSMTPSettings(ctx context.Context, settings models.SMTPSettings) (*models.SMTPSettings, error) {
	var saved models.SMTPSettings
	err := c.do(ctx, "smtp_save", http.MethodPut, "/admin/smtp-settings", nil, settings, &saved,
		"failed to save SMTP settings")
	if err != nil {
		return nil, err
	}
	saved.BlankPassword()
	return &saved, nil
}

// ListUsers fetches the full user collection.
func (c *Client) ListUsers(ctx context.Context) ([]models.UserItem, error) {
	var list models.UserList
	err := c.do(ctx, "users_list", http.MethodGet, "/users", nil, nil, &list,
		"failed to load users")
	if err != nil {
		return nil, err
	}
	return list.Users, nil
}

// CreateUser adds a user to the collection.
func (c *Client) CreateUser(ctx context.Context, user models.UserCreate) error {
	return c.do(ctx, "user_create", http.MethodPost, "/users", nil, user, nil,
		"failed to create user")
}

// PatchUser is the shared partial-update helper every user mutation goes
// through: true only on 2xx, false with ErrUnauthorized when the 401 funnel
// fired, and false with a message-bearing error otherwise, so callers share
// identical error extraction.
func (c *Client) PatchUser(ctx context.Context, id string, patch models.UserPatch) (bool, error) {
	err := c.do(ctx, "user_patch", http.MethodPatch, "/users/"+url.PathEscape(id), nil, patch, nil,
		"failed to update user")
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, "user_delete", http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, nil,
		"failed to delete user")
}

// GenerateResetLink asks the backend for a one-time password reset link.
func (c *Client) GenerateResetLink(ctx context.Context, id string) (*models.ResetLink, error) {
	var link models.ResetLink
	err := c.do(ctx, "user_reset_link", http.MethodPost, "/users/"+url.PathEscape(id)+"/reset-link", nil, nil, &link,
		"failed to generate reset link")
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// SearchEmployees runs a scoped employee search. An empty query returns the
// backend's full (capped) active list. The context must be cancellable so a
// superseding search can abort this one.
func (c *Client) SearchEmployees(ctx context.Context, search string) ([]models.Employee, error) {
	query := url.Values{}
	query.Set("search", search)
	var list models.EmployeeList
	err := c.do(ctx, "employee_search", http.MethodGet, "/employees", query, nil, &list,
		"employee search failed")
	if err != nil {
		return nil, err
	}
	return list.Employees, nil
}

// RunNotifications triggers a dispatch for the given date, optionally
// scoped to one card number. Parameters travel as query values; there is no
// request body.
func (c *Client) RunNotifications(ctx context.Context, date, cardNo string) (*models.NotificationRunResponse, error) {
	query := url.Values{}
	query.Set("date", date)
	if cardNo != "" {
		query.Set("card_no", cardNo)
	}
	var report models.NotificationRunResponse
	err := c.do(ctx, "notifications_run", http.MethodPost, "/notifications/run", query, nil, &report,
		"failed to run notifications")
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// DashboardSummary fetches today's attendance headline numbers.
func (c *Client) DashboardSummary(ctx context.Context) (*models.DashboardSummary, error) {
	var summary models.DashboardSummary
	err := c.do(ctx, "dashboard_summary", http.MethodGet, "/dashboard/summary", nil, nil, &summary,
		"failed to load dashboard summary")
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
