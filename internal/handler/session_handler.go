package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/handler/middleware"
	"github.com/fitclub/club-service/internal/session"
	"github.com/fitclub/club-service/pkg/validator"
)

// SessionHandler exposes the live identity session: who the caller is,
// what tenant scope they resolved to, and the superadmin role simulation
// controls.
type SessionHandler struct {
	validator *validator.Validator
}

func NewSessionHandler(validator *validator.Validator) *SessionHandler {
	return &SessionHandler{validator: validator}
}

// Get returns the session and tenant state for the caller
// GET /api/v1/session
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	handle := middleware.HandleFromCtx(c)
	if handle == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "not authenticated",
		})
	}
	sess, resolver := handle.Session, handle.Resolver

	resp := fiber.Map{
		"loading":              sess.Loading() || resolver.Loading(),
		"effective_roles":      sess.EffectiveRoles(),
		"is_sysadmin":          sess.IsSysadmin(),
		"is_simulating":        sess.IsSimulating(),
		"is_blocked":           sess.IsBlocked(),
		"needs_reregistration": sess.NeedsReregistration(),
		"tenant_mode":          resolver.Mode().String(),
		"view_all_gyms":        resolver.ViewAll(),
	}
	if p := sess.Profile(); p != nil {
		resp["profile"] = p
	}
	if g := resolver.Current(); g != nil {
		resp["current_gym"] = g
	}
	if sess.IsSysadmin() {
		resp["available_gyms"] = resolver.Available()
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// Simulate narrows the session to a single role for UI verification
// POST /api/v1/session/simulate
func (h *SessionHandler) Simulate(c *fiber.Ctx) error {
	var req struct {
		Role string `json:"role" validate:"required"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	handle := middleware.HandleFromCtx(c)
	if handle == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "not authenticated",
		})
	}

	if err := handle.Session.StartRoleSimulation(domain.Role(req.Role)); err != nil {
		status := fiber.StatusForbidden
		if errors.Is(err, session.ErrInvalidRole) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"effective_roles": handle.Session.EffectiveRoles(),
		"is_simulating":   true,
	})
}

// StopSimulation restores the session's real roles
// DELETE /api/v1/session/simulate
func (h *SessionHandler) StopSimulation(c *fiber.Ctx) error {
	handle := middleware.HandleFromCtx(c)
	if handle == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "not authenticated",
		})
	}

	handle.Session.StopRoleSimulation()

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"effective_roles": handle.Session.EffectiveRoles(),
		"is_simulating":   false,
	})
}

// SelectGym switches the active gym for a superadmin session. "all"
// selects the every-gym view
// PUT /api/v1/session/gym
func (h *SessionHandler) SelectGym(c *fiber.Ctx) error {
	var req struct {
		GymID string `json:"gym_id" validate:"required"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	handle := middleware.HandleFromCtx(c)
	if handle == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "not authenticated",
		})
	}
	if !handle.Session.IsSysadmin() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "gym selection requires the superadmin role",
		})
	}

	handle.Resolver.Select(c.Context(), req.GymID)

	resp := fiber.Map{
		"view_all_gyms": handle.Resolver.ViewAll(),
	}
	if g := handle.Resolver.Current(); g != nil {
		resp["current_gym"] = g
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}
