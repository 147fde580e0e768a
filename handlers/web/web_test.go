// handlers/web/web_test.go
package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/template/html/v2"
	"github.com/stretchr/testify/require"

	"gatewatch/config"
	"gatewatch/handlers/api"
	"gatewatch/models"
	"gatewatch/utils"
)

// testEnv wires the panel handlers against a fake backend, with the session
// middleware replaced by a stub that resolves a fixed admin identity.
type testEnv struct {
	app           *fiber.App
	store         *session.Store
	notifications *NotificationsHandler
	smtp          *SMTPHandler

	mu        sync.Mutex
	loggedOut []string
}

func newTestEnv(t *testing.T, backend http.Handler) *testEnv {
	t.Helper()
	require.NoError(t, utils.InitI18n())

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	engine := html.New("../../templates", ".html")
	engine.AddFunc("lower", strings.ToLower)
	engine.AddFunc("upper", strings.ToUpper)
	engine.AddFunc("trim", strings.TrimSpace)
	engine.AddFunc("hasPrefix", strings.HasPrefix)
	engine.AddFunc("t", func(messageID string) string {
		return utils.T(utils.Localizer, messageID)
	})
	engine.AddFunc("tWithData", func(messageID string, data map[string]interface{}) string {
		return utils.TWithData(utils.Localizer, messageID, data)
	})
	engine.AddFunc("formatDate", func(v interface{}) string {
		switch tv := v.(type) {
		case time.Time:
			return tv.Format("Jan 02, 2006 15:04")
		case *time.Time:
			if tv == nil {
				return ""
			}
			return tv.Format("Jan 02, 2006 15:04")
		}
		return ""
	})
	engine.AddFunc("sanitize", utils.SanitizeText)

	app := fiber.New(fiber.Config{Views: engine})
	store := session.New()

	cfg := &config.Config{}
	cfg.Backend.BaseURL = srv.URL
	cfg.Backend.TimeoutSeconds = 5
	cfg.Backend.SearchDebounceMS = 1
	cfg.Backend.SearchWaitSecs = 5
	cfg.Session.Secret = "test-jwt-secret"
	cfg.Session.EncryptionKey = "test-encryption-key"
	cfg.Session.ExpiryHours = 1

	client := api.NewClient(srv.URL, 5*time.Second, nil)

	// Stands in for the session middleware. X-Test-Role overrides the role
	// for access control tests.
	app.Use(func(c *fiber.Ctx) error {
		role := c.Get("X-Test-Role")
		if role == "" {
			role = models.RoleAdmin
		}
		c.Locals("identity", models.Identity{Username: "gatekeeper", Role: role})
		c.Locals("backendToken", "test-token")
		return c.Next()
	})

	// Establishes a persistent session cookie, standing in for login.
	app.Post("/test/session", func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		return sess.Save()
	})

	env := &testEnv{store: store}

	authHandler := NewAuthHandler(store, cfg, client, func(sessionID string) {
		env.mu.Lock()
		env.loggedOut = append(env.loggedOut, sessionID)
		env.mu.Unlock()
	})
	settingsHandler := NewSettingsHandler(store, cfg)
	dashboardHandler := NewDashboardHandler(store, cfg, client)
	smtpHandler := NewSMTPHandler(store, cfg, client)
	usersHandler := NewUsersHandler(store, cfg, client)
	notificationsHandler := NewNotificationsHandler(store, cfg, client, nil)

	app.Get("/login", authHandler.ShowLogin)
	app.Post("/login", authHandler.HandleLogin)
	app.Get("/logout", authHandler.HandleLogout)

	app.Get("/", dashboardHandler.ShowDashboard)
	app.Get("/settings", AdminGate(), settingsHandler.ShowSettings)

	app.Get("/htmx/settings/smtp", smtpHandler.ShowPanel)
	app.Post("/htmx/settings/smtp", smtpHandler.HandleSave)

	app.Get("/htmx/settings/users", usersHandler.ShowPanel)
	app.Post("/htmx/settings/users", usersHandler.HandleCreate)
	app.Post("/htmx/settings/users/:id/role", usersHandler.HandleRoleChange)
	app.Post("/htmx/settings/users/:id/active", usersHandler.HandleToggleActive)
	app.Post("/htmx/settings/users/:id/password", usersHandler.HandleTempPassword)
	app.Post("/htmx/settings/users/:id/reset-link", usersHandler.HandleResetLink)
	app.Delete("/htmx/settings/users/:id", usersHandler.HandleDelete)

	app.Get("/htmx/settings/notifications", notificationsHandler.ShowPanel)
	app.Get("/htmx/settings/notifications/search", notificationsHandler.HandleSearch)
	app.Post("/htmx/settings/notifications/select", notificationsHandler.HandleSelect)
	app.Post("/htmx/settings/notifications/run/selected", notificationsHandler.HandleRunSelected)
	app.Post("/htmx/settings/notifications/run/all", notificationsHandler.HandleRunAll)
	app.Get("/htmx/settings/notifications/export", notificationsHandler.HandleExportReport)

	env.app = app
	env.notifications = notificationsHandler
	env.smtp = smtpHandler
	return env
}

// session creates a stable session and returns its cookie, so panel state
// survives across requests the way it does after a real login.
func (e *testEnv) session(t *testing.T) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/test/session", nil)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "session_id" {
			return cookie
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) (*http.Response, string) {
	t.Helper()
	req.Header.Set("HX-Request", "true")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

// getPage issues a plain navigation request, without the fragment header.
func (e *testEnv) getPage(t *testing.T, target string, header map[string]string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func (e *testEnv) get(t *testing.T, target string, cookies ...*http.Cookie) (*http.Response, string) {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, target, nil), cookies...)
}

func (e *testEnv) postForm(t *testing.T, target string, form url.Values, cookies ...*http.Cookie) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req, cookies...)
}

func (e *testEnv) delete(t *testing.T, target string, cookies ...*http.Cookie) (*http.Response, string) {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodDelete, target, nil), cookies...)
}
