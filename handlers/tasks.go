package handlers

import (
	"github.com/gofiber/fiber/v2"

	"lifequest-api/middleware"
	"lifequest-api/services"
)

func SetupTaskRoutes(r fiber.Router, h *Handler) {
	r.Get("/tasks", h.ListTasks)
	r.Post("/tasks", h.CreateTask)
	r.Get("/tasks/:id", h.GetTask)
	r.Delete("/tasks/:id", h.DeleteTask)
	r.Post("/tasks/:id/complete", h.CompleteTask)
	r.Post("/tasks/:id/reopen", h.ReopenTask)
}

func (h *Handler) ListTasks(c *fiber.Ctx) error {
	out, err := h.Svc.Tasks.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(out)
}

func (h *Handler) CreateTask(c *fiber.Ctx) error {
	var in services.TaskInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body", err)
	}
	t, err := h.Svc.Tasks.Create(c.UserContext(), middleware.UserID(c), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (h *Handler) GetTask(c *fiber.Ctx) error {
	t, err := h.Svc.Tasks.Get(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(t)
}

func (h *Handler) DeleteTask(c *fiber.Ctx) error {
	if err := h.Svc.Tasks.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) CompleteTask(c *fiber.Ctx) error {
	res, err := h.Svc.Tasks.Complete(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(res)
}

func (h *Handler) ReopenTask(c *fiber.Ctx) error {
	t, err := h.Svc.Tasks.Reopen(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(t)
}
