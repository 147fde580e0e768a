// handlers/web/auth.go
package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"gatewatch/config"
	"gatewatch/handlers/api"
	"gatewatch/utils"
)

// AuthHandler runs the operator login flow against the backend and owns the
// console session lifecycle.
type AuthHandler struct {
	store    *session.Store
	config   *config.Config
	client   *api.Client
	onLogout func(sessionID string)
}

// NewAuthHandler creates a new instance of AuthHandler. onLogout is called
// with the session ID whenever a session ends, so per-session panel state
// (search coordinators in particular) is torn down with it.
func NewAuthHandler(store *session.Store, cfg *config.Config, client *api.Client, onLogout func(sessionID string)) *AuthHandler {
	return &AuthHandler{
		store:    store,
		config:   cfg,
		client:   client,
		onLogout: onLogout,
	}
}

// ShowLogin renders the login page
func (h *AuthHandler) ShowLogin(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err == nil {
		if token, _ := sess.Get("token").(string); token != "" {
			return c.Redirect("/")
		}
	}
	return c.Render("login", fiber.Map{
		"Username":  "",
		"CSRFToken": c.Locals("csrf"),
	})
}

// HandleLogin processes the login form
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		return utils.InternalServerError("Session error", err)
	}

	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")

	if username == "" || password == "" {
		return c.Status(fiber.StatusBadRequest).Render("login", fiber.Map{
			"Error":     msg(c, "login_required_fields"),
			"Username":  username,
			"CSRFToken": c.Locals("csrf"),
		})
	}

	login, err := h.client.Login(c.UserContext(), username, password)
	if err != nil {
		utils.Log.Info("Login rejected for %s: %v", username, err)
		return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{
			"Error":     msg(c, "login_failed"),
			"Username":  username,
			"CSRFToken": c.Locals("csrf"),
		})
	}

	token, err := api.GenerateToken(login.Username, login.Role, h.config.Session.Secret, h.config.SessionExpiry())
	if err != nil {
		return utils.InternalServerError("Failed to create session token", err)
	}

	sealed, err := api.SealToken(login.Token, h.config.Session.EncryptionKey)
	if err != nil {
		return utils.InternalServerError("Failed to secure backend token", err)
	}

	sess.Set("token", token)
	sess.Set("backendToken", sealed)
	sess.Set("username", login.Username)
	sess.Set("role", login.Role)
	sess.SetExpiry(h.config.SessionExpiry())

	if err := sess.Save(); err != nil {
		return utils.InternalServerError("Failed to create session", err)
	}

	utils.Log.WithField("user", login.Username).Info("Operator logged in")
	return c.Redirect("/")
}

// HandleLogout processes operator logout
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		return c.Redirect("/login")
	}

	if h.onLogout != nil {
		h.onLogout(sess.ID())
	}

	if err := sess.Destroy(); err != nil {
		utils.Log.Warn("Failed to destroy session: %v", err)
	}

	return c.Redirect("/login")
}
