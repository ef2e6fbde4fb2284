package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"lifequest-api/logger"
	"lifequest-api/services"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{services.ErrNotFound, fiber.StatusNotFound, "not_found"},
	{services.ErrLevelUpNotEligible, fiber.StatusUnprocessableEntity, "level_up_not_eligible"},
	{services.ErrAlreadyCompleted, fiber.StatusConflict, "already_completed"},
	{services.ErrAlreadyProcessed, fiber.StatusConflict, "already_processed"},
	{services.ErrInvalidAmount, fiber.StatusBadRequest, "invalid_amount"},
	{services.ErrUnsupportedEntityType, fiber.StatusBadRequest, "unsupported_entity_type"},
	{services.ErrInvalidSource, fiber.StatusBadRequest, "invalid_source"},
	{services.ErrInvalidInput, fiber.StatusBadRequest, "invalid_input"},
	{services.ErrObjectStoreDisabled, fiber.StatusServiceUnavailable, "object_store_disabled"},
}

// respondError maps service errors onto status codes. Anything unmapped is a
// 500 and is logged.
func respondError(c *fiber.Ctx, log *logger.Logger, err error) error {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		body := fiber.Map{"error": m.target.Error(), "code": m.code, "cause": err.Error()}
		var notEligible *services.LevelUpNotEligibleError
		if errors.As(err, &notEligible) {
			body["shortfall"] = notEligible.Shortfall
			body["level"] = notEligible.Level
			body["total_xp"] = notEligible.TotalXP
		}
		return c.Status(m.status).JSON(body)
	}

	log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal error",
		"code":  "internal",
		"cause": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string, err error) error {
	body := fiber.Map{"error": msg, "code": "invalid_input"}
	if err != nil {
		body["cause"] = err.Error()
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}
