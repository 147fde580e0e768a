// handlers/web/helpers.go
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/nicksnyder/go-i18n/v2/i18n"

	"gatewatch/handlers/api"
	"gatewatch/utils"
)

// msg resolves a localized panel message for this request.
func msg(c *fiber.Ctx, messageID string) string {
	if localizer, ok := c.Locals("localizer").(*i18n.Localizer); ok {
		return utils.T(localizer, messageID)
	}
	return utils.T(utils.Localizer, messageID)
}

// msgWithData resolves a localized message with template data.
func msgWithData(c *fiber.Ctx, messageID string, data map[string]interface{}) string {
	if localizer, ok := c.Locals("localizer").(*i18n.Localizer); ok {
		return utils.TWithData(localizer, messageID, data)
	}
	return utils.TWithData(utils.Localizer, messageID, data)
}

// AdminGate restricts a route group to admins. Non-admins get the
// access-denied page, or a 403 JSON body on fragment requests.
func AdminGate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := api.CurrentIdentity(c)
		if !identity.Resolved() {
			return api.RedirectToLogin(c)
		}
		if identity.IsAdmin() {
			return c.Next()
		}

		if api.IsPartialRequest(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": msg(c, "access_denied"),
			})
		}
		return c.Status(fiber.StatusForbidden).Render("denied", fiber.Map{
			"Identity":  identity,
			"Message":   msg(c, "access_denied"),
			"Path":      c.Path(),
			"CSRFToken": c.Locals("csrf"),
		}, "layouts/main")
	}
}
