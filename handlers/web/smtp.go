// handlers/web/smtp.go
package web

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"gatewatch/config"
	"gatewatch/handlers/api"
	"gatewatch/models"
	"gatewatch/utils"
)

// SMTPHandler drives the load-then-edit-then-save panel over the backend's
// single mail settings resource. The password field is blanked after every
// load and save; a failed save keeps the operator's in-progress edits.
type SMTPHandler struct {
	store  *session.Store
	config *config.Config
	client *api.Client

	// one save in flight per session
	mu     sync.Mutex
	saving map[string]*saveGuard
}

// saveGuard serializes saves for one session. lastSeen is guarded by the
// handler's mu.
type saveGuard struct {
	lock     sync.Mutex
	lastSeen time.Time
}

func NewSMTPHandler(store *session.Store, cfg *config.Config, client *api.Client) *SMTPHandler {
	h := &SMTPHandler{
		store:  store,
		config: cfg,
		client: client,
		saving: make(map[string]*saveGuard),
	}
	go h.evictLoop(cfg.SessionExpiry())
	return h
}

// evictLoop drops guards for sessions that expired without a logout.
func (h *SMTPHandler) evictLoop(idle time.Duration) {
	if idle < time.Minute {
		idle = time.Minute
	}
	for {
		time.Sleep(idle / 2)
		h.evictIdle(idle)
	}
}

func (h *SMTPHandler) evictIdle(idle time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, g := range h.saving {
		if time.Since(g.lastSeen) > idle {
			delete(h.saving, id)
		}
	}
}

func (h *SMTPHandler) saveLock(sessionID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.saving[sessionID]
	if !ok {
		g = &saveGuard{}
		h.saving[sessionID] = g
	}
	g.lastSeen = time.Now()
	return &g.lock
}

// CloseSession drops the session's save guard.
func (h *SMTPHandler) CloseSession(sessionID string) {
	h.mu.Lock()
	delete(h.saving, sessionID)
	h.mu.Unlock()
}

// ShowPanel loads the settings resource and renders the form. On failure
// the panel stays in a safe idle state: an empty form plus the message.
func (h *SMTPHandler) ShowPanel(c *fiber.Ctx) error {
	client := h.client.WithToken(api.BackendToken(c))

	settings, err := client.GetSMTPSettings(c.UserContext())
	if err != nil {
		if utils.IsUnauthorized(err) {
			return api.HandleUnauthorized(c, h.store)
		}
		utils.Log.Error("SMTP settings load failed: %v", err)
		return h.renderForm(c, &models.SMTPSettings{}, msg(c, "smtp_load_failed"), "error")
	}

	return h.renderForm(c, settings, "", "")
}

// HandleSave submits the entire form buffer, blank password included; the
// backend treats an empty password as "leave unchanged".
func (h *SMTPHandler) HandleSave(c *fiber.Ctx) error {
	form := h.parseForm(c)

	sess, err := h.store.Get(c)
	if err != nil {
		return utils.InternalServerError("Session error", err)
	}

	lock := h.saveLock(sess.ID())
	if !lock.TryLock() {
		return h.renderForm(c, form, msg(c, "smtp_save_failed"), "error")
	}
	defer lock.Unlock()

	client := h.client.WithToken(api.BackendToken(c))
	saved, err := client.SaveSMTPSettings(c.UserContext(), *form)
	if err != nil {
		if utils.IsUnauthorized(err) {
			return api.HandleUnauthorized(c, h.store)
		}
		// Keep the operator's edits; the form re-renders from the
		// submitted buffer, not from the backend.
		utils.Log.Error("SMTP settings save failed: %v", err)
		return h.renderForm(c, form, utils.SanitizeText(err.Error()), "error")
	}

	return h.renderForm(c, saved, msg(c, "smtp_saved"), "success")
}

// parseForm builds the settings buffer from the submitted fields. Numeric
// fields coerce invalid or empty input to 0 instead of rejecting it.
func (h *SMTPHandler) parseForm(c *fiber.Ctx) *models.SMTPSettings {
	port, err := strconv.Atoi(c.FormValue("port"))
	if err != nil {
		port = 0
	}

	return &models.SMTPSettings{
		Host:      c.FormValue("host"),
		Port:      port,
		Username:  c.FormValue("username"),
		Password:  c.FormValue("password"),
		FromEmail: c.FormValue("from_email"),
		FromName:  c.FormValue("from_name"),
		UseTLS:    c.FormValue("use_tls") != "",
		UseSSL:    c.FormValue("use_ssl") != "",
		CCList:    c.FormValue("cc_list"),
	}
}

func (h *SMTPHandler) renderForm(c *fiber.Ctx, form *models.SMTPSettings, message, kind string) error {
	return c.Render("partials/smtp_form", fiber.Map{
		"Form":        form,
		"Message":     message,
		"MessageKind": kind,
		"CSRFToken":   c.Locals("csrf"),
	}, "")
}
