package hosting

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/contre95/snapsaver/src/features/config"
	"github.com/contre95/snapsaver/src/features/metrics"
	"github.com/contre95/snapsaver/src/features/notifying"
	"github.com/contre95/snapsaver/src/features/resolving"
	"github.com/contre95/snapsaver/src/features/settings"
	"github.com/contre95/snapsaver/src/features/ui"
	"github.com/contre95/snapsaver/src/features/watching"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
)

//go:embed views
var viewsFS embed.FS

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Manager, hub *notifying.Hub, settingsService *settings.Service, watchingService *watching.Service, resolvingService *resolving.Service, recorder *metrics.Recorder) (*Server, error) {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, fmt.Errorf("failed to load views: %w", err)
	}
	engine := html.NewFileSystem(http.FS(views), ".html")
	engine.Debug(cfg.Get().Logger.Level == "debug")

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("Internal Server Error", "error", err)
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
		AppName:               "SnapSaver",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
	})

	app.Use(recover.New())
	app.Use(RequestLogMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	ui.RegisterRoutes(app, ui.NewHandler(cfg, settingsService, watchingService))
	settings.RegisterRoutes(app, settingsService)
	watching.RegisterRoutes(app, watchingService)
	resolving.RegisterRoutes(app, resolvingService)
	notifying.RegisterRoutes(app, hub)
	if cfg.Get().Metrics.Enabled {
		metrics.RegisterRoutes(app, recorder)
	}

	return &Server{app: app, port: cfg.Get().Server.Port}, nil
}

// App exposes the Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "port", s.port)
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
