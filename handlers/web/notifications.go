// handlers/web/notifications.go
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"gatewatch/config"
	"gatewatch/handlers/api"
	"gatewatch/models"
	"gatewatch/utils"
)

// NotificationsHandler is the dispatch panel: a debounced, cancellable
// employee search feeding a selection, and two dispatch actions producing a
// tabular run report. Panel state is per operator session and torn down
// with it.
type NotificationsHandler struct {
	store        *session.Store
	config       *config.Config
	client       *api.Client
	metrics      *utils.Metrics
	timerFactory utils.TimerFactory

	mu     sync.Mutex
	panels map[string]*notificationsPanel
}

// notificationsPanel is one session's panel state. dispatch is a
// single-flight guard: only one run at a time. lastSeen is guarded by the
// handler's mu.
type notificationsPanel struct {
	coord    *api.SearchCoordinator
	dispatch sync.Mutex
	lastSeen time.Time

	mu     sync.Mutex
	report *models.NotificationRunResponse
}

func NewNotificationsHandler(store *session.Store, cfg *config.Config, client *api.Client, metrics *utils.Metrics) *NotificationsHandler {
	h := &NotificationsHandler{
		store:   store,
		config:  cfg,
		client:  client,
		metrics: metrics,
		panels:  make(map[string]*notificationsPanel),
	}
	go h.evictLoop(cfg.SessionExpiry())
	return h
}

// evictLoop drops panels whose session can no longer come back: logout
// tears them down explicitly, but sessions that expire or browsers that
// just close leave theirs behind.
func (h *NotificationsHandler) evictLoop(idle time.Duration) {
	if idle < time.Minute {
		idle = time.Minute
	}
	for {
		time.Sleep(idle / 2)
		h.evictIdle(idle)
	}
}

func (h *NotificationsHandler) evictIdle(idle time.Duration) {
	h.mu.Lock()
	var evicted []*notificationsPanel
	for id, p := range h.panels {
		if time.Since(p.lastSeen) > idle {
			delete(h.panels, id)
			evicted = append(evicted, p)
		}
	}
	h.mu.Unlock()
	for _, p := range evicted {
		p.coord.Close()
	}
}

// panel returns the session's panel state, creating it on first use. The
// coordinator's fetcher is bound to the session's backend token.
func (h *NotificationsHandler) panel(c *fiber.Ctx) (*notificationsPanel, error) {
	sess, err := h.store.Get(c)
	if err != nil {
		return nil, utils.InternalServerError("Session error", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.panels[sess.ID()]
	if !ok {
		fetcher := h.client.WithToken(api.BackendToken(c))
		p = &notificationsPanel{
			coord: api.NewSearchCoordinator(fetcher, h.config.SearchDebounce(), h.timerFactory),
		}
		h.panels[sess.ID()] = p
	}
	p.lastSeen = time.Now()
	return p, nil
}

// CloseSession tears down a session's panel: the debounce timer stops and
// any in-flight search is aborted, so nothing fires after logout.
func (h *NotificationsHandler) CloseSession(sessionID string) {
	h.mu.Lock()
	p, ok := h.panels[sessionID]
	delete(h.panels, sessionID)
	h.mu.Unlock()
	if ok {
		p.coord.Close()
	}
}

// ShowPanel renders the panel fragment: date picker, search box, current
// result set with selection, and the last run report if any.
func (h *NotificationsHandler) ShowPanel(c *fiber.Ctx) error {
	p, err := h.panel(c)
	if err != nil {
		return err
	}

	p.mu.Lock()
	report := p.report
	p.mu.Unlock()

	return c.Render("partials/notifications_panel", fiber.Map{
		"Date":      time.Now().Format("2006-01-02"),
		"Employees": p.coord.Results(),
		"Selected":  p.coord.Selected(),
		"Report":    report,
		"CSRFToken": c.Locals("csrf"),
	}, "")
}

// HandleSearch registers a keystroke with the coordinator and waits for the
// debounced outcome. Superseded requests answer 204 so the fragment swap is
// a no-op; their results never reach the page.
func (h *NotificationsHandler) HandleSearch(c *fiber.Ctx) error {
	p, err := h.panel(c)
	if err != nil {
		return err
	}

	query := c.Query("q")
	ch := p.coord.Search(query)

	timeout := time.NewTimer(h.config.SearchWait())
	defer timeout.Stop()

	select {
	case res, ok := <-ch:
		if !ok {
			return c.SendStatus(fiber.StatusNoContent)
		}
		if res.Err != nil {
			if utils.IsUnauthorized(res.Err) {
				return api.HandleUnauthorized(c, h.store)
			}
			return h.renderResults(c, p.coord.Results(), p.coord.Selected(), msg(c, "search_failed"))
		}
		return h.renderResults(c, res.Employees, res.Selected, "")
	case <-timeout.C:
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// HandleSelect records the operator's explicit pick from the result list.
func (h *NotificationsHandler) HandleSelect(c *fiber.Ctx) error {
	p, err := h.panel(c)
	if err != nil {
		return err
	}
	p.coord.Select(c.FormValue("card_no"))
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleRunSelected dispatches notices for the currently selected employee.
// With no selection it fails locally: a validation message, no request.
func (h *NotificationsHandler) HandleRunSelected(c *fiber.Ctx) error {
	p, err := h.panel(c)
	if err != nil {
		return err
	}

	cardNo := p.coord.Selected()
	if cardNo == "" {
		return h.renderReport(c, nil, msg(c, "no_employee_selected"), "error")
	}
	return h.dispatch(c, p, "selected", cardNo)
}

// HandleRunAll dispatches notices for every employee on the chosen date.
func (h *NotificationsHandler) HandleRunAll(c *fiber.Ctx) error {
	p, err := h.panel(c)
	if err != nil {
		return err
	}
	return h.dispatch(c, p, "all", "")
}

func (h *NotificationsHandler) dispatch(c *fiber.Ctx, p *notificationsPanel, scope, cardNo string) error {
	if !p.dispatch.TryLock() {
		return h.renderReport(c, h.lastReport(p), msg(c, "dispatch_running"), "error")
	}
	defer p.dispatch.Unlock()

	date := c.FormValue("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		date = time.Now().Format("2006-01-02")
	}

	client := h.client.WithToken(api.BackendToken(c))
	report, err := client.RunNotifications(c.UserContext(), date, cardNo)
	if err != nil {
		if utils.IsUnauthorized(err) {
			return api.HandleUnauthorized(c, h.store)
		}
		return h.renderReport(c, h.lastReport(p), utils.SanitizeText(err.Error()), "error")
	}

	if h.metrics != nil {
		h.metrics.NotificationsRuns.WithLabelValues(scope).Inc()
	}

	// The new report replaces any prior one wholesale.
	p.mu.Lock()
	p.report = report
	p.mu.Unlock()

	return h.renderReport(c, report, "", "")
}

func (h *NotificationsHandler) lastReport(p *notificationsPanel) *models.NotificationRunResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.report
}

func (h *NotificationsHandler) renderResults(c *fiber.Ctx, employees []models.Employee, selected, message string) error {
	return c.Render("partials/employee_results", fiber.Map{
		"Employees": employees,
		"Selected":  selected,
		"Message":   message,
		"CSRFToken": c.Locals("csrf"),
	}, "")
}

func (h *NotificationsHandler) renderReport(c *fiber.Ctx, report *models.NotificationRunResponse, message, kind string) error {
	return c.Render("partials/run_report", fiber.Map{
		"Report":      report,
		"Message":     message,
		"MessageKind": kind,
	}, "")
}
