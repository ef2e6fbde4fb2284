package handlers

import (
	"github.com/gofiber/fiber/v2"

	"lifequest-api/middleware"
	"lifequest-api/models"
	"lifequest-api/services"
)

func SetupJournalRoutes(r fiber.Router, h *Handler) {
	r.Get("/journals", h.ListJournals)
	r.Post("/journals", h.CreateJournal)
	r.Get("/journals/:id", h.GetJournal)
	r.Patch("/journals/:id", h.UpdateJournal)
	r.Delete("/journals/:id", h.DeleteJournal)
	r.Post("/journals/:id/finalize", h.FinalizeJournal)
}

func (h *Handler) ListJournals(c *fiber.Ctx) error {
	out, err := h.Svc.Journals.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(out)
}

func (h *Handler) CreateJournal(c *fiber.Ctx) error {
	var in services.JournalInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body", err)
	}
	j, err := h.Svc.Journals.Create(c.UserContext(), middleware.UserID(c), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(j)
}

func (h *Handler) GetJournal(c *fiber.Ctx) error {
	j, err := h.Svc.Journals.Get(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(j)
}

func (h *Handler) UpdateJournal(c *fiber.Ctx) error {
	var in services.JournalUpdate
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body", err)
	}
	j, err := h.Svc.Journals.Update(c.UserContext(), middleware.UserID(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(j)
}

func (h *Handler) DeleteJournal(c *fiber.Ctx) error {
	if err := h.Svc.Journals.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// FinalizeJournal accepts an optional awards body; without one the journal's
// stored suggestions are used.
func (h *Handler) FinalizeJournal(c *fiber.Ctx) error {
	var awards *models.JournalAwards
	if len(c.Body()) > 0 {
		awards = &models.JournalAwards{}
		if err := c.BodyParser(awards); err != nil {
			return badRequest(c, "invalid request body", err)
		}
	}
	res, err := h.Svc.Journals.Finalize(c.UserContext(), middleware.UserID(c), c.Params("id"), awards)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(res)
}
