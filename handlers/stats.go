package handlers

import (
	"github.com/gofiber/fiber/v2"

	"lifequest-api/middleware"
	"lifequest-api/services"
)

func SetupStatRoutes(r fiber.Router, h *Handler) {
	r.Get("/stats", h.ListStats)
	r.Post("/stats", h.CreateStat)
	r.Get("/stats/:id", h.GetStat)
	r.Patch("/stats/:id", h.UpdateStat)
	r.Delete("/stats/:id", h.DeleteStat)
}

func (h *Handler) ListStats(c *fiber.Ctx) error {
	stats, err := h.Svc.Stats.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(stats)
}

func (h *Handler) CreateStat(c *fiber.Ctx) error {
	var in services.StatInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body", err)
	}
	stat, err := h.Svc.Stats.Create(c.UserContext(), middleware.UserID(c), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(stat)
}

func (h *Handler) GetStat(c *fiber.Ctx) error {
	stat, err := h.Svc.Stats.Get(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(stat)
}

func (h *Handler) UpdateStat(c *fiber.Ctx) error {
	var in services.StatUpdate
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body", err)
	}
	stat, err := h.Svc.Stats.Update(c.UserContext(), middleware.UserID(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(stat)
}

func (h *Handler) DeleteStat(c *fiber.Ctx) error {
	if err := h.Svc.Stats.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
