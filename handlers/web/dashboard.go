// handlers/web/dashboard.go
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"gatewatch/config"
	"gatewatch/handlers/api"
	"gatewatch/utils"
)

// DashboardHandler renders the landing page with today's attendance
// headline numbers. Both roles may see it.
type DashboardHandler struct {
	store  *session.Store
	config *config.Config
	client *api.Client
}

func NewDashboardHandler(store *session.Store, cfg *config.Config, client *api.Client) *DashboardHandler {
	return &DashboardHandler{
		store:  store,
		config: cfg,
		client: client,
	}
}

// ShowDashboard renders the summary page; a failed summary load degrades to
// an empty page with a message rather than an error page.
func (h *DashboardHandler) ShowDashboard(c *fiber.Ctx) error {
	identity := api.CurrentIdentity(c)
	client := h.client.WithToken(api.BackendToken(c))

	summary, err := client.DashboardSummary(c.UserContext())
	if err != nil {
		if utils.IsUnauthorized(err) {
			return api.HandleUnauthorized(c, h.store)
		}
		utils.Log.Warn("Dashboard summary load failed: %v", err)
		summary = nil
	}

	return c.Render("dashboard", fiber.Map{
		"Identity":  identity,
		"Summary":   summary,
		"Path":      c.Path(),
		"CSRFToken": c.Locals("csrf"),
	}, "layouts/main")
}
