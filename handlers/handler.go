package handlers

import (
	"github.com/gofiber/fiber/v2"

	"lifequest-api/logger"
	"lifequest-api/middleware"
	"lifequest-api/services"
)

type Handler struct {
	Svc *services.Services
	Log *logger.Logger
}

func New(svc *services.Services, log *logger.Logger) *Handler {
	return &Handler{Svc: svc, Log: log.With("component", "http")}
}

// SetupRoutes mounts every ledger route behind user context. Gateway auth is
// applied by the caller on the app.
func SetupRoutes(app *fiber.App, h *Handler) {
	secured := app.Group("/", middleware.UserContextMiddleware(h.Log))

	SetupStatRoutes(secured, h)
	SetupFamilyRoutes(secured, h)
	SetupXPRoutes(secured, h)
	SetupJournalRoutes(secured, h)
	SetupTaskRoutes(secured, h)
	SetupQuestRoutes(secured, h)

	admin := secured.Group("/admin", middleware.RequireRole("admin"))
	admin.Post("/xp/audit", h.RunAudit)
}
