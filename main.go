package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/template/html/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gatewatch/config"
	"gatewatch/handlers/api"
	"gatewatch/handlers/web"
	"gatewatch/middleware"
	"gatewatch/storage"
	"gatewatch/utils"
)

func main() {
	utils.Log.Info("Initializing Gatewatch admin console...")

	// Load configuration
	cfg, err := config.LoadConfig("config.toml")
	if err != nil {
		utils.Log.Error("Failed to load config: %v", err)
		return
	}

	// Initialize i18n system
	if err := utils.InitI18n(); err != nil {
		utils.Log.Error("Failed to initialize i18n: %v", err)
		return
	}

	// Session store on bbolt
	sessionStorage, err := storage.NewSessionStorage(cfg.Session.DataDir)
	if err != nil {
		utils.Log.Error("Failed to initialize session storage: %v", err)
		return
	}
	defer sessionStorage.Close()

	store := session.New(session.Config{
		Storage:        sessionStorage,
		Expiration:     cfg.SessionExpiry(),
		CookieSecure:   cfg.SSL.Enabled,
		CookieHTTPOnly: true,
		CookieSameSite: "Strict",
		KeyGenerator:   uuid.NewString,
	})

	// Metrics registry and backend client
	registry := prometheus.NewRegistry()
	metrics := utils.NewMetrics(registry)
	backend := api.NewClient(cfg.Backend.BaseURL, cfg.BackendTimeout(), metrics)

	// Initialize template engine with custom functions
	engine := html.New("./templates", ".html")
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
		switch t := v.(type) {
		case time.Time:
			return t.Format("Jan 02, 2006 15:04")
		case *time.Time:
			if t == nil {
				return ""
			}
			return t.Format("Jan 02, 2006 15:04")
		}
		return ""
	})
	engine.AddFunc("sanitize", utils.SanitizeText)

	// Initialize Fiber with template engine
	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError

			if appErr, ok := err.(*utils.AppError); ok {
				code = appErr.Code
				utils.Log.Error("Application error: %v", appErr)
			} else if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			if api.IsPartialRequest(c) {
				return c.Status(code).JSON(fiber.Map{
					"error": err.Error(),
				})
			}

			return c.Status(code).Render("error", fiber.Map{
				"Error":     err.Error(),
				"Code":      code,
				"CSRFToken": c.Locals("csrf"),
			}, "layouts/main")
		},
	})

	// Add global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())
	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-inline' https://unpkg.com; style-src 'self' 'unsafe-inline';",
	}))
	app.Use(middleware.LocaleMiddleware())
	app.Use(middleware.RateLimiter(100, time.Minute))
	app.Use(middleware.CSRFProtection(middleware.CSRFConfig{
		TokenLength:  32,
		CookieName:   "csrf_token",
		HeaderName:   "X-CSRF-Token",
		FormField:    "_csrf",
		ContextKey:   "csrf",
		CookieMaxAge: 3600,
	}))

	// Serve static files
	app.Static("/assets", "./assets", fiber.Static{
		Compress:      true,
		CacheDuration: 24 * time.Hour,
	})

	// Initialize handlers
	smtpHandler := web.NewSMTPHandler(store, cfg, backend)
	usersHandler := web.NewUsersHandler(store, cfg, backend)
	notificationsHandler := web.NewNotificationsHandler(store, cfg, backend, metrics)
	settingsHandler := web.NewSettingsHandler(store, cfg)
	dashboardHandler := web.NewDashboardHandler(store, cfg, backend)
	proxyHandler := api.NewProxyHandler(store, cfg.Backend.BaseURL, cfg.BackendTimeout(), metrics)

	authHandler := web.NewAuthHandler(store, cfg, backend, func(sessionID string) {
		notificationsHandler.CloseSession(sessionID)
		smtpHandler.CloseSession(sessionID)
	})

	// Public routes
	app.Get("/login", authHandler.ShowLogin)
	app.Post("/login", authHandler.HandleLogin)
	app.Get("/logout", authHandler.HandleLogout)

	// Protected routes group
	protected := app.Group("", api.SessionMiddleware(store, cfg.Session.Secret, cfg.Session.EncryptionKey))

	protected.Get("/", dashboardHandler.ShowDashboard)

	// Settings page and its panel fragments are admin-only
	admin := protected.Group("", web.AdminGate())
	admin.Get("/settings", settingsHandler.ShowSettings)

	htmx := admin.Group("/htmx/settings")
	{
		htmx.Get("/smtp", smtpHandler.ShowPanel)
		htmx.Post("/smtp", smtpHandler.HandleSave)

		htmx.Get("/users", usersHandler.ShowPanel)
		htmx.Post("/users", usersHandler.HandleCreate)
		htmx.Post("/users/:id/role", usersHandler.HandleRoleChange)
		htmx.Post("/users/:id/active", usersHandler.HandleToggleActive)
		htmx.Post("/users/:id/password", usersHandler.HandleTempPassword)
		htmx.Post("/users/:id/reset-link", usersHandler.HandleResetLink)
		htmx.Delete("/users/:id", usersHandler.HandleDelete)

		htmx.Get("/notifications", notificationsHandler.ShowPanel)
		htmx.Get("/notifications/search", notificationsHandler.HandleSearch)
		htmx.Post("/notifications/select", notificationsHandler.HandleSelect)
		htmx.Post("/notifications/run/selected", notificationsHandler.HandleRunSelected)
		htmx.Post("/notifications/run/all", notificationsHandler.HandleRunAll)
		htmx.Get("/notifications/export", notificationsHandler.HandleExportReport)
	}

	// Same-origin proxy to the backend
	protected.All("/api/proxy/*", proxyHandler.Forward)

	// Metrics and health
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// 404 Handler for undefined routes
	app.Use(func(c *fiber.Ctx) error {
		if api.IsPartialRequest(c) {
			return c.Status(404).JSON(fiber.Map{
				"error": utils.T(utils.Localizer, "error_404"),
			})
		}
		return c.Status(404).Render("error", fiber.Map{
			"Error":     utils.T(utils.Localizer, "error_404"),
			"Code":      404,
			"CSRFToken": c.Locals("csrf"),
		}, "layouts/main")
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	utils.Log.Info("Starting server on %s...", addr)
	if cfg.SSL.Enabled {
		err = app.ListenTLS(addr, cfg.SSL.CertFile, cfg.SSL.KeyFile)
	} else {
		err = app.Listen(addr)
	}
	if err != nil {
		utils.Log.Error("Error starting server: %v", err)
	}
}
