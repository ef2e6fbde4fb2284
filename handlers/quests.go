package handlers

import (
	"github.com/gofiber/fiber/v2"

	"lifequest-api/middleware"
	"lifequest-api/services"
)

func SetupQuestRoutes(r fiber.Router, h *Handler) {
	r.Get("/quests", h.ListQuests)
	r.Post("/quests", h.CreateQuest)
	r.Get("/quests/:id", h.GetQuest)
	r.Delete("/quests/:id", h.DeleteQuest)
	r.Post("/quests/:id/complete", h.CompleteQuest)

	r.Get("/experiments", h.ListExperiments)
	r.Post("/experiments", h.CreateExperiment)
	r.Get("/experiments/:id", h.GetExperiment)
	r.Delete("/experiments/:id", h.DeleteExperiment)
	r.Post("/experiments/:id/complete", h.CompleteExperiment)
}

func (h *Handler) ListQuests(c *fiber.Ctx) error {
	out, err := h.Svc.Quests.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(out)
}

func (h *Handler) CreateQuest(c *fiber.Ctx) error {
	var in services.QuestInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body", err)
	}
	q, err := h.Svc.Quests.Create(c.UserContext(), middleware.UserID(c), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(q)
}

func (h *Handler) GetQuest(c *fiber.Ctx) error {
	q, err := h.Svc.Quests.Get(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(q)
}

func (h *Handler) DeleteQuest(c *fiber.Ctx) error {
	if err := h.Svc.Quests.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) CompleteQuest(c *fiber.Ctx) error {
	res, err := h.Svc.Quests.Complete(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(res)
}

func (h *Handler) ListExperiments(c *fiber.Ctx) error {
	out, err := h.Svc.Experiments.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(out)
}

func (h *Handler) CreateExperiment(c *fiber.Ctx) error {
	var in services.ExperimentInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body", err)
	}
	e, err := h.Svc.Experiments.Create(c.UserContext(), middleware.UserID(c), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(e)
}

func (h *Handler) GetExperiment(c *fiber.Ctx) error {
	e, err := h.Svc.Experiments.Get(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(e)
}

func (h *Handler) DeleteExperiment(c *fiber.Ctx) error {
	if err := h.Svc.Experiments.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) CompleteExperiment(c *fiber.Ctx) error {
	var body struct {
		Outcome string `json:"outcome"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, "invalid request body", err)
		}
	}
	res, err := h.Svc.Experiments.Complete(c.UserContext(), middleware.UserID(c), c.Params("id"), body.Outcome)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(res)
}
