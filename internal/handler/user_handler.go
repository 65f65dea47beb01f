package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/handler/middleware"
	"github.com/fitclub/club-service/internal/service"
	"github.com/fitclub/club-service/pkg/validator"
)

type UserHandler struct {
	userService *service.UserService
	validator   *validator.Validator
}

func NewUserHandler(userService *service.UserService, validator *validator.Validator) *UserHandler {
	return &UserHandler{
		userService: userService,
		validator:   validator,
	}
}

// GetMe returns the caller's own profile
// GET /api/v1/users/me
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	handle := middleware.HandleFromCtx(c)
	if handle == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "not authenticated",
		})
	}

	profile := handle.Session.Profile()
	if profile == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "profile not loaded",
		})
	}
	return c.Status(fiber.StatusOK).JSON(profile)
}

// List searches users across all gyms (superadmin only)
// GET /api/v1/users
func (h *UserHandler) List(c *fiber.Ctx) error {
	handle := middleware.HandleFromCtx(c)
	users, total, err := h.userService.List(
		c.Context(),
		handle.Session.Profile(),
		c.Query("search"),
		c.QueryInt("limit", 50),
		c.QueryInt("offset", 0),
	)
	if err != nil {
		return userError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"users": users,
		"total": total,
	})
}

// ListByGym returns a gym's members
// GET /api/v1/gyms/:id/users
func (h *UserHandler) ListByGym(c *fiber.Ctx) error {
	gymID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid gym id",
		})
	}

	handle := middleware.HandleFromCtx(c)
	users, total, err := h.userService.ListByGym(
		c.Context(),
		handle.Session.Profile(),
		gymID,
		c.QueryInt("limit", 50),
		c.QueryInt("offset", 0),
	)
	if err != nil {
		return userError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"users": users,
		"total": total,
	})
}

// GrantRole adds a role to a user
// POST /api/v1/users/:id/roles
func (h *UserHandler) GrantRole(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid user id",
		})
	}

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
	user, err := h.userService.GrantRole(c.Context(), handle.Session.Profile(), userID, domain.Role(req.Role))
	if err != nil {
		return userError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// RevokeRole removes a role from a user
// DELETE /api/v1/users/:id/roles/:role
func (h *UserHandler) RevokeRole(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid user id",
		})
	}

	handle := middleware.HandleFromCtx(c)
	user, err := h.userService.RevokeRole(c.Context(), handle.Session.Profile(), userID, domain.Role(c.Params("role")))
	if err != nil {
		return userError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// SetBlocked blocks or unblocks a user
// PUT /api/v1/users/:id/blocked
func (h *UserHandler) SetBlocked(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid user id",
		})
	}

	var req struct {
		Blocked *bool `json:"blocked" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil || req.Blocked == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	handle := middleware.HandleFromCtx(c)
	user, err := h.userService.SetBlocked(c.Context(), handle.Session.Profile(), userID, *req.Blocked)
	if err != nil {
		return userError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// ResetPassword issues a temporary password for a user
// POST /api/v1/users/:id/reset-password
func (h *UserHandler) ResetPassword(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid user id",
		})
	}

	handle := middleware.HandleFromCtx(c)
	temp, err := h.userService.AdminResetPassword(c.Context(), handle.Session.Profile(), userID)
	if err != nil {
		return userError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"temporary_password": temp,
	})
}

// ReassignGym moves a user to another gym, or detaches them
// PUT /api/v1/users/:id/gym
func (h *UserHandler) ReassignGym(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid user id",
		})
	}

	var req struct {
		GymID *string `json:"gym_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var gymID *uuid.UUID
	if req.GymID != nil && *req.GymID != "" {
		parsed, err := uuid.Parse(*req.GymID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid gym id",
			})
		}
		gymID = &parsed
	}

	handle := middleware.HandleFromCtx(c)
	user, err := h.userService.ReassignGym(c.Context(), handle.Session.Profile(), userID, gymID)
	if err != nil {
		return userError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

func userError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrPermissionDenied),
		errors.Is(err, service.ErrGymMismatch):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
