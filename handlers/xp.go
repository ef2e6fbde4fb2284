package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"lifequest-api/middleware"
	"lifequest-api/models"
	"lifequest-api/services"
)

type grantBody struct {
	EntityType models.EntityType `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Amount     int64             `json:"amount"`
	Reason     string            `json:"reason"`
}

func SetupXPRoutes(r fiber.Router, h *Handler) {
	r.Post("/xp/grant", h.GrantXP)
	r.Get("/xp/history", h.History)
	r.Post("/xp/export", h.ExportLedger)
	r.Get("/xp/:entityType/:entityId", h.GetProgression)
	r.Post("/xp/:entityType/:entityId/level-up", h.LevelUp)
}

func entityRef(c *fiber.Ctx) services.EntityRef {
	return services.EntityRef{Type: models.EntityType(c.Params("entityType")), ID: c.Params("entityId")}
}

// GrantXP is the manual grant path.
func (h *Handler) GrantXP(c *fiber.Ctx) error {
	var body grantBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body", err)
	}
	ref := services.EntityRef{Type: body.EntityType, ID: body.EntityID}
	res, err := h.Svc.Grants.GrantAdhoc(c.UserContext(), middleware.UserID(c), ref, body.Amount, body.Reason)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *Handler) GetProgression(c *fiber.Ctx) error {
	res, err := h.Svc.Progression.Progress(c.UserContext(), middleware.UserID(c), entityRef(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(res)
}

func (h *Handler) LevelUp(c *fiber.Ctx) error {
	res, err := h.Svc.Progression.LevelUp(c.UserContext(), middleware.UserID(c), entityRef(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(res)
}

func (h *Handler) History(c *fiber.Ctx) error {
	f := services.HistoryFilter{
		EntityType: models.EntityType(c.Query("entity_type")),
		EntityID:   c.Query("entity_id"),
		SourceType: models.SourceType(c.Query("source_type")),
		SourceID:   c.Query("source_id"),
		Limit:      c.QueryInt("limit", services.DefaultHistoryLimit),
		Offset:     c.QueryInt("offset", 0),
	}
	var err error
	if f.Since, err = queryTime(c, "since"); err != nil {
		return badRequest(c, "since must be RFC3339", err)
	}
	if f.Until, err = queryTime(c, "until"); err != nil {
		return badRequest(c, "until must be RFC3339", err)
	}

	page, err := h.Svc.History.History(c.UserContext(), middleware.UserID(c), f)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(page)
}

func (h *Handler) ExportLedger(c *fiber.Ctx) error {
	res, err := h.Svc.Exporter.Export(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *Handler) RunAudit(c *fiber.Ctx) error {
	report, err := h.Svc.Auditor.Audit(c.UserContext())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(report)
}

func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
