package handlers

import (
	"github.com/gofiber/fiber/v2"

	"lifequest-api/middleware"
	"lifequest-api/services"
)

func SetupFamilyRoutes(r fiber.Router, h *Handler) {
	r.Get("/family", h.ListFamily)
	r.Post("/family", h.CreateFamilyMember)
	r.Get("/family/:id", h.GetFamilyMember)
	r.Patch("/family/:id", h.UpdateFamilyMember)
	r.Delete("/family/:id", h.DeleteFamilyMember)

	r.Get("/family/:id/interactions", h.ListInteractions)
	r.Post("/family/:id/interactions", h.LogInteraction)
	r.Delete("/interactions/:id", h.DeleteInteraction)
}

func (h *Handler) ListFamily(c *fiber.Ctx) error {
	members, err := h.Svc.Family.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(members)
}

func (h *Handler) CreateFamilyMember(c *fiber.Ctx) error {
	var in services.FamilyInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body", err)
	}
	member, err := h.Svc.Family.Create(c.UserContext(), middleware.UserID(c), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(member)
}

func (h *Handler) GetFamilyMember(c *fiber.Ctx) error {
	member, err := h.Svc.Family.Get(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(member)
}

func (h *Handler) UpdateFamilyMember(c *fiber.Ctx) error {
	var in services.FamilyUpdate
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body", err)
	}
	member, err := h.Svc.Family.Update(c.UserContext(), middleware.UserID(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(member)
}

func (h *Handler) DeleteFamilyMember(c *fiber.Ctx) error {
	if err := h.Svc.Family.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ListInteractions(c *fiber.Ctx) error {
	out, err := h.Svc.Interactions.List(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(out)
}

func (h *Handler) LogInteraction(c *fiber.Ctx) error {
	var in services.InteractionInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body", err)
	}
	res, err := h.Svc.Interactions.Record(c.UserContext(), middleware.UserID(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *Handler) DeleteInteraction(c *fiber.Ctx) error {
	if err := h.Svc.Interactions.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
