package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mnemoshq/mnemos/internal/memerr"
	"github.com/mnemoshq/mnemos/internal/model"
)

// stmStore handles POST /memory/stm/store: appends one interaction to the
// ephemeral session log. Never quota checked; the log is TTL-bounded.
func (s *Server) stmStore(c *fiber.Ctx) error {
	var req struct {
		SessionID string `json:"session_id"`
		Input     string `json:"input"`
		Output    string `json:"output"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}
	if req.Input == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "input is required",
		})
	}
	if s.deps.Session == nil {
		return renderError(c, memerr.Unavailable("session store", nil))
	}

	err := s.deps.Session.Append(c.Context(), ownerOf(c), req.SessionID, model.Interaction{
		Input:  req.Input,
		Output: req.Output,
	})
	if err != nil {
		return renderError(c, err)
	}
	return c.SendStatus(fiber.StatusCreated)
}

// stmRetrieve handles GET /memory/stm/retrieve/:session_id.
func (s *Server) stmRetrieve(c *fiber.Ctx) error {
	if s.deps.Session == nil {
		return renderError(c, memerr.Unavailable("session store", nil))
	}

	interactions, err := s.deps.Session.Interactions(c.Context(), ownerOf(c), c.Params("session_id"), c.QueryInt("limit"))
	if err != nil {
		return renderError(c, err)
	}
	if interactions == nil {
		interactions = []model.Interaction{}
	}
	return c.JSON(fiber.Map{
		"session_id":   c.Params("session_id"),
		"interactions": interactions,
		"count":        len(interactions),
	})
}

// stmClear handles DELETE /memory/stm/clear/:session_id.
func (s *Server) stmClear(c *fiber.Ctx) error {
	if s.deps.Session == nil {
		return renderError(c, memerr.Unavailable("session store", nil))
	}
	if err := s.deps.Session.Clear(c.Context(), ownerOf(c), c.Params("session_id")); err != nil {
		return renderError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
