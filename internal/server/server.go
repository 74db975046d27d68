// Package server exposes the memory service over HTTP.
package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mnemoshq/mnemos/internal/compose"
	"github.com/mnemoshq/mnemos/internal/config"
	"github.com/mnemoshq/mnemos/internal/distill"
	"github.com/mnemoshq/mnemos/internal/embedding"
	"github.com/mnemoshq/mnemos/internal/index"
	"github.com/mnemoshq/mnemos/internal/memerr"
	"github.com/mnemoshq/mnemos/internal/store"
	"github.com/mnemoshq/mnemos/internal/usage"
)

// Deps are the wired components the HTTP surface serves.
type Deps struct {
	Store    store.TierStore
	Session  store.SessionStore
	Index    index.SemanticIndex
	Embedder embedding.Embedder
	Composer *compose.Composer
	Engine   *distill.Engine
	Meter    *usage.Meter
}

// Server is the fiber application plus its dependencies.
type Server struct {
	app  *fiber.App
	cfg  config.Config
	deps Deps
	log  *slog.Logger
}

func New(cfg config.Config, deps Deps, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "mnemos",
			DisableStartupMessage: true,
		}),
		cfg:  cfg,
		deps: deps,
		log:  log.With("component", "server"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.health)

	mem := s.app.Group("/memory", s.requireOwner)
	mem.Post("/store", s.storeMemory)
	mem.Get("/retrieve/:id", s.retrieveMemory)
	mem.Get("/list", s.listMemories)
	mem.Post("/search", s.searchMemories)
	mem.Patch("/update/:id", s.updateMemory)
	mem.Post("/promote/:id", s.promoteMemory)
	mem.Delete("/delete/:id", s.deleteMemory)
	mem.Get("/stats", s.memoryStats)
	mem.Get("/context", s.composeContext)
	mem.Get("/knowledge", s.listKnowledge)

	mem.Post("/stm/store", s.stmStore)
	mem.Get("/stm/retrieve/:session_id", s.stmRetrieve)
	mem.Delete("/stm/clear/:session_id", s.stmClear)

	mem.Get("/itm/retrieve", s.itmReferences)

	mem.Get("/usage", s.ownerUsage)
	mem.Post("/distill", s.runDistillation)
}

// requireOwner authenticates the request: every memory route is scoped by
// the UUID in X-User-Id.
func (s *Server) requireOwner(c *fiber.Ctx) error {
	raw := c.Get("X-User-Id")
	if raw == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing user ID",
		})
	}
	ownerID, err := uuid.Parse(raw)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID format",
		})
	}
	c.Locals("owner_id", ownerID.String())
	c.Locals("plan", c.Get("X-Plan", usage.PlanFree))
	return c.Next()
}

func ownerOf(c *fiber.Ctx) string {
	v, _ := c.Locals("owner_id").(string)
	return v
}

func planOf(c *fiber.Ctx) string {
	v, _ := c.Locals("plan").(string)
	return v
}

// renderError maps the coded taxonomy onto HTTP statuses.
func renderError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch memerr.CodeOf(err) {
	case memerr.CodeNotFound:
		status = fiber.StatusNotFound
	case memerr.CodeValidationFailed:
		status = fiber.StatusBadRequest
	case memerr.CodeInvalidTransition, memerr.CodePolicyRejected:
		status = fiber.StatusConflict
	case memerr.CodeDependencyUnavailable:
		status = fiber.StatusServiceUnavailable
	case memerr.CodeQuotaExceeded:
		status = fiber.StatusTooManyRequests
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"code":  string(memerr.CodeOf(err)),
	})
}

// Listen serves until the listener fails or Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
