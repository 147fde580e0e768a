// handlers/web/settings.go
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"gatewatch/config"
	"gatewatch/handlers/api"
)

// SettingsHandler renders the settings page shell: tab navigation over the
// three panels. The panels themselves are independent fragments; the shell
// knows only which tab is active.
type SettingsHandler struct {
	store  *session.Store
	config *config.Config
}

func NewSettingsHandler(store *session.Store, cfg *config.Config) *SettingsHandler {
	return &SettingsHandler{
		store:  store,
		config: cfg,
	}
}

var settingsTabs = map[string]bool{
	"smtp":          true,
	"users":         true,
	"notifications": true,
}

// ShowSettings renders the settings page with the requested tab active.
func (h *SettingsHandler) ShowSettings(c *fiber.Ctx) error {
	identity := api.CurrentIdentity(c)

	tab := c.Query("tab", "smtp")
	if !settingsTabs[tab] {
		tab = "smtp"
	}

	return c.Render("settings", fiber.Map{
		"Identity":  identity,
		"ActiveTab": tab,
		"Path":      c.Path(),
		"CSRFToken": c.Locals("csrf"),
	}, "layouts/main")
}
