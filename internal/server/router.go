// Package server assembles the fiber application: middleware, handlers and
// routes.
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"petani-backend/internal/auth"
	"petani-backend/internal/config"
	"petani-backend/internal/dashboard"
	"petani-backend/internal/petani"
	"petani-backend/internal/records"
	"petani-backend/internal/store"
	"petani-backend/internal/websession"
)

// Deps are the collaborators main wires into the application.
type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	Users    store.UserStore
	Farmers  store.FarmerStore
	Records  store.RecordStore
	Activity dashboard.ActivityLister
	Hasher   auth.PasswordHasher
	Sessions *websession.Manager
	Tokens   *auth.TokenIssuer
	Ping     func(ctx context.Context) error
}

func New(d Deps) (*fiber.App, error) {
	authHandler, err := auth.NewHandler(d.Users, d.Hasher, d.Sessions, d.Tokens, d.Log)
	if err != nil {
		return nil, err
	}
	petaniHandler := petani.NewHandler(d.Farmers, d.Sessions, d.Log)
	recordHandler := records.NewHandler(d.Farmers, d.Records, d.Sessions, d.Log)
	dashboardHandler := dashboard.NewHandler(d.Farmers, d.Activity, d.Sessions, d.Log)

	app := fiber.New(fiber.Config{
		AppName:      "petani-backend",
		ErrorHandler: errorHandler(d.Log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(requestLogger(d.Log))
	origins := corsOrigins(d.Config.CORSOrigins)
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,OPTIONS",
		// fiber refuses credentials with a wildcard origin
		AllowCredentials: origins != "" && origins != "*",
	}))
	app.Use(encryptcookie.New(encryptcookie.Config{
		Key: websession.CookieKey(d.Config.SecretKey),
	}))
	app.Use(d.Sessions.Middleware())

	app.Get("/healthz", health(d.Ping, d.Log))

	// Public
	app.Get("/", authHandler.LoginPageHandler())
	app.Get("/login", authHandler.LoginPageHandler())
	app.Post("/login", authHandler.LoginHandler())
	app.Post("/register", authHandler.RegisterHandler())
	app.Get("/logout", authHandler.LogoutHandler())
	app.Post("/api/token", authHandler.TokenHandler())

	// Session or bearer token
	protected := app.Group("", auth.RequireSession(d.Sessions, d.Tokens, d.Log))

	protected.Get("/dashboard", dashboardHandler.DashboardHandler())
	protected.Get("/log_aktivitas", dashboardHandler.ActivityHandler())

	protected.Get("/form_petani", petaniHandler.FormHandler())
	protected.Post("/form_petani", petaniHandler.CreateHandler())
	protected.Get("/edit_petani/:id", petaniHandler.EditFormHandler())
	protected.Post("/edit_petani/:id", petaniHandler.UpdateHandler())
	protected.Get("/hapus_petani/:id", petaniHandler.DeleteHandler())
	protected.Get("/riwayat_petani", petaniHandler.HistoryHandler())
	protected.Get("/riwayat_petani/export", petaniHandler.ExportHandler())
	protected.Post("/riwayat_petani/import", petaniHandler.ImportHandler())
	protected.Get("/api/lahan", petaniHandler.ParcelsHandler())

	for _, kind := range []records.Kind{records.Komoditas, records.HasilPanen} {
		protected.Get(kind.Path, recordHandler.PageHandler(kind))
		protected.Post(kind.Path, recordHandler.SubmitHandler(kind))
	}

	return app, nil
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var e *fiber.Error
		if errors.As(err, &e) {
			return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
		}
		log.Error("unexpected error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Terjadi kesalahan pada server.",
		})
	}
}

func health(ping func(ctx context.Context) error, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ping != nil {
			if err := ping(c.UserContext()); err != nil {
				log.Warn("health check failed", zap.Error(err))
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

func corsOrigins(raw string) string {
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
