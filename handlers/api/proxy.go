// handlers/api/proxy.go
package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/valyala/fasthttp"

	"gatewatch/utils"
)

// ProxyHandler forwards /api/proxy/* to the backend as-is: same method,
// body and query, with the operator's bearer token attached and the
// console's own cookies stripped. A backend 401 goes through the shared
// unauthorized funnel instead of reaching the page.
type ProxyHandler struct {
	store   *session.Store
	backend string
	client  *fasthttp.Client
	timeout time.Duration
	metrics *utils.Metrics
}

// NewProxyHandler creates a proxy bound to the backend base URL.
func NewProxyHandler(store *session.Store, backendBase string, timeout time.Duration, metrics *utils.Metrics) *ProxyHandler {
	return &ProxyHandler{
		store:   store,
		backend: strings.TrimRight(backendBase, "/"),
		client:  &fasthttp.Client{},
		timeout: timeout,
		metrics: metrics,
	}
}

// Forward relays one request to the backend.
func (h *ProxyHandler) Forward(c *fiber.Ctx) error {
	path := c.Params("*")
	if path == "" {
		return utils.BadRequestError("Missing proxy path", nil)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	c.Request().CopyTo(req)

	target := h.backend + "/" + path
	if qs := string(c.Request().URI().QueryString()); qs != "" {
		target += "?" + qs
	}
	req.SetRequestURI(target)

	// The console session cookie stays on this side of the boundary.
	req.Header.DelCookie("session_id")
	req.Header.Del(fiber.HeaderCookie)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+BackendToken(c))

	start := time.Now()
	if err := h.client.DoTimeout(req, resp, h.timeout); err != nil {
		h.observe("error", start)
		utils.Log.Error("Proxy request to %s failed: %v", path, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "backend unreachable",
		})
	}

	if resp.StatusCode() == fiber.StatusUnauthorized {
		h.observe("unauthorized", start)
		return HandleUnauthorized(c, h.store)
	}
	h.observe("ok", start)

	resp.Header.CopyTo(&c.Response().Header)
	c.Response().SetStatusCode(resp.StatusCode())
	c.Response().SetBody(resp.Body())
	return nil
}

func (h *ProxyHandler) observe(outcome string, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.BackendRequests.WithLabelValues("proxy", outcome).Inc()
	h.metrics.BackendDuration.WithLabelValues("proxy").Observe(time.Since(start).Seconds())
}
