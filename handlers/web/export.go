// handlers/web/export.go
package web

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"gatewatch/utils"
)

// HandleExportReport downloads the last notification run report as an
// .xlsx workbook. With no run yet it answers with the panel message.
func (h *NotificationsHandler) HandleExportReport(c *fiber.Ctx) error {
	p, err := h.panel(c)
	if err != nil {
		return err
	}

	report := h.lastReport(p)
	if report == nil {
		return h.renderReport(c, nil, msg(c, "no_report_yet"), "error")
	}

	buf, err := utils.GenerateRunReport(report)
	if err != nil {
		utils.Log.Error("Run report export failed: %v", err)
		return utils.InternalServerError("Failed to export report", err)
	}

	filename := fmt.Sprintf("notification-run-%s.xlsx", report.Date)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	return c.Send(buf.Bytes())
}
