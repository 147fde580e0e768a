// handlers/web/users.go
package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"gatewatch/config"
	"gatewatch/handlers/api"
	"gatewatch/models"
	"gatewatch/utils"
)

// UsersHandler is the user-management panel: list, create, role change,
// enable/disable, temporary password, reset link, delete. The displayed
// list is never patched locally; every successful mutation is followed by
// one unconditional re-fetch of the whole collection, so the table can
// never show a change the backend rejected.
type UsersHandler struct {
	store  *session.Store
	config *config.Config
	client *api.Client
}

func NewUsersHandler(store *session.Store, cfg *config.Config, client *api.Client) *UsersHandler {
	return &UsersHandler{
		store:  store,
		config: cfg,
		client: client,
	}
}

// ShowPanel fetches and renders the user table with the creation form.
func (h *UsersHandler) ShowPanel(c *fiber.Ctx) error {
	return h.reload(c, "", "", nil)
}

// HandleCreate validates the creation form and creates the user. On
// failure the form keeps the entered values so the operator can correct
// and resubmit; on success the form is cleared and the list reloaded.
func (h *UsersHandler) HandleCreate(c *fiber.Ctx) error {
	create := models.UserCreate{
		Email:    strings.TrimSpace(c.FormValue("email")),
		Username: strings.TrimSpace(c.FormValue("username")),
		Password: c.FormValue("password"),
		Role:     c.FormValue("role", models.RoleInspector),
	}

	if create.Email == "" || create.Username == "" || create.Password == "" {
		return h.reload(c, msg(c, "user_fields_required"), "error", &create)
	}

	client := h.client.WithToken(api.BackendToken(c))
	if err := client.CreateUser(c.UserContext(), create); err != nil {
		if utils.IsUnauthorized(err) {
			return api.HandleUnauthorized(c, h.store)
		}
		return h.reload(c, utils.SanitizeText(err.Error()), "error", &create)
	}

	return h.reload(c, msg(c, "user_created"), "success", nil)
}

// HandleRoleChange fires as soon as the role selector changes; there is no
// separate confirm step.
func (h *UsersHandler) HandleRoleChange(c *fiber.Ctx) error {
	role := c.FormValue("role")
	patch := models.UserPatch{Role: &role}
	return h.patch(c, c.Params("id"), patch, msg(c, "user_updated"))
}

// HandleToggleActive re-sends the inverse of the currently displayed value.
// Clicking again reverses it.
func (h *UsersHandler) HandleToggleActive(c *fiber.Ctx) error {
	current := c.FormValue("is_active") == "true"
	inverted := !current
	patch := models.UserPatch{IsActive: &inverted}
	return h.patch(c, c.Params("id"), patch, msg(c, "user_updated"))
}

// HandleTempPassword sets a temporary password collected by the prompt
// capability, which arrives in the HX-Prompt header. Empty or cancelled
// input aborts with no request sent.
func (h *UsersHandler) HandleTempPassword(c *fiber.Ctx) error {
	password := strings.TrimSpace(c.Get("HX-Prompt"))
	if password == "" {
		password = strings.TrimSpace(c.FormValue("password"))
	}
	if password == "" {
		return h.reload(c, msg(c, "temp_password_required"), "error", nil)
	}
	patch := models.UserPatch{Password: &password}
	return h.patch(c, c.Params("id"), patch, msg(c, "temp_password_set"))
}

// HandleResetLink asks the backend for a one-time reset link and surfaces
// it as plain text in the panel status line; the operator copies it
// manually.
func (h *UsersHandler) HandleResetLink(c *fiber.Ctx) error {
	client := h.client.WithToken(api.BackendToken(c))

	link, err := client.GenerateResetLink(c.UserContext(), c.Params("id"))
	if err != nil {
		if utils.IsUnauthorized(err) {
			return api.HandleUnauthorized(c, h.store)
		}
		return h.reload(c, utils.SanitizeText(err.Error()), "error", nil)
	}

	message := msgWithData(c, "reset_link_ready", map[string]interface{}{
		"URL": utils.SanitizeText(link.ResetURL),
	})
	return h.reload(c, message, "success", nil)
}

// HandleDelete removes a user. Confirmation happens in the confirm
// capability before the request reaches this handler.
func (h *UsersHandler) HandleDelete(c *fiber.Ctx) error {
	client := h.client.WithToken(api.BackendToken(c))

	if err := client.DeleteUser(c.UserContext(), c.Params("id")); err != nil {
		if utils.IsUnauthorized(err) {
			return api.HandleUnauthorized(c, h.store)
		}
		return h.reload(c, utils.SanitizeText(err.Error()), "error", nil)
	}

	return h.reload(c, msg(c, "user_deleted"), "success", nil)
}

// patch funnels every partial update through the client's shared PATCH
// helper so error extraction is identical across mutations.
func (h *UsersHandler) patch(c *fiber.Ctx, id string, patch models.UserPatch, successMsg string) error {
	client := h.client.WithToken(api.BackendToken(c))

	ok, err := client.PatchUser(c.UserContext(), id, patch)
	if err != nil {
		if utils.IsUnauthorized(err) {
			return api.HandleUnauthorized(c, h.store)
		}
		return h.reload(c, utils.SanitizeText(err.Error()), "error", nil)
	}
	if !ok {
		return h.reload(c, msg(c, "user_update_failed"), "error", nil)
	}

	return h.reload(c, successMsg, "success", nil)
}

// reload re-fetches the full collection and renders the panel fragment.
// form, when non-nil, repopulates the creation form after a failure.
func (h *UsersHandler) reload(c *fiber.Ctx, message, kind string, form *models.UserCreate) error {
	client := h.client.WithToken(api.BackendToken(c))

	users, err := client.ListUsers(c.UserContext())
	if err != nil {
		if utils.IsUnauthorized(err) {
			return api.HandleUnauthorized(c, h.store)
		}
		utils.Log.Error("User list reload failed: %v", err)
		if message == "" {
			message, kind = msg(c, "users_load_failed"), "error"
		}
		users = nil
	}

	if form == nil {
		form = &models.UserCreate{Role: models.RoleInspector}
	}

	return c.Render("partials/users_panel", fiber.Map{
		"Users":       users,
		"CreateForm":  form,
		"Message":     message,
		"MessageKind": kind,
		"Roles":       []string{models.RoleAdmin, models.RoleInspector},
		"CSRFToken":   c.Locals("csrf"),
	}, "")
}
