package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/fitclub/club-service/internal/guard"
	"github.com/fitclub/club-service/internal/handler/middleware"
	"github.com/fitclub/club-service/internal/service"
	"github.com/fitclub/club-service/pkg/validator"
)

type GymHandler struct {
	gymService *service.GymService
	validator  *validator.Validator
}

func NewGymHandler(gymService *service.GymService, validator *validator.Validator) *GymHandler {
	return &GymHandler{
		gymService: gymService,
		validator:  validator,
	}
}

type gymRequest struct {
	Name         string  `json:"name" validate:"required,min=2"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	LogoURL      *string `json:"logo_url,omitempty" validate:"omitempty,url"`
}

// List returns all active gyms
// GET /api/v1/gyms
func (h *GymHandler) List(c *fiber.Ctx) error {
	gyms, err := h.gymService.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list gyms",
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"gyms": gyms,
	})
}

// Get returns a single gym
// GET /api/v1/gyms/:id
func (h *GymHandler) Get(c *fiber.Ctx) error {
	gymID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid gym id",
		})
	}

	gym, err := h.gymService.Get(c.Context(), gymID)
	if err != nil {
		return gymError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(gym)
}

// GetBySlug binds a URL slug to the caller's tenant scope. When the slug
// names another available gym the selection is switched and the client is
// told to retry once the resolver has converged
// GET /api/v1/gyms/slug/:slug
func (h *GymHandler) GetBySlug(c *fiber.Ctx) error {
	handle := middleware.HandleFromCtx(c)
	if handle == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "not authenticated",
		})
	}

	decision, gym := guard.BindSlug(c.Context(), handle.Resolver, c.Params("slug"))
	switch decision {
	case guard.SlugBound:
		return c.Status(fiber.StatusOK).JSON(gym)
	case guard.SlugPending:
		c.Set("Retry-After", "1")
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message": "gym selection switching",
			"gym":     gym,
		})
	default:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":    "no accessible gym with this address",
			"redirect": "/select-gym",
		})
	}
}

// Create registers a new gym
// POST /api/v1/gyms
func (h *GymHandler) Create(c *fiber.Ctx) error {
	var req gymRequest
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
	gym, err := h.gymService.Create(c.Context(), handle.Session.Profile(), req.Name, req.ContactEmail, req.LogoURL)
	if err != nil {
		return gymError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(gym)
}

// Update edits a gym
// PUT /api/v1/gyms/:id
func (h *GymHandler) Update(c *fiber.Ctx) error {
	gymID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid gym id",
		})
	}

	var req gymRequest
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
	gym, err := h.gymService.Update(c.Context(), handle.Session.Profile(), gymID, req.Name, req.ContactEmail, req.LogoURL)
	if err != nil {
		return gymError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(gym)
}

// Suspend suspends a gym with a reason
// POST /api/v1/gyms/:id/suspend
func (h *GymHandler) Suspend(c *fiber.Ctx) error {
	gymID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid gym id",
		})
	}

	var req struct {
		Reason string `json:"reason" validate:"required"`
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
	if err := h.gymService.Suspend(c.Context(), handle.Session.Profile(), gymID, req.Reason); err != nil {
		return gymError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Gym suspended",
	})
}

// Unsuspend lifts a suspension
// POST /api/v1/gyms/:id/unsuspend
func (h *GymHandler) Unsuspend(c *fiber.Ctx) error {
	gymID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid gym id",
		})
	}

	handle := middleware.HandleFromCtx(c)
	if err := h.gymService.Unsuspend(c.Context(), handle.Session.Profile(), gymID); err != nil {
		return gymError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Gym reactivated",
	})
}

// Delete soft-deletes a gym
// DELETE /api/v1/gyms/:id
func (h *GymHandler) Delete(c *fiber.Ctx) error {
	gymID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid gym id",
		})
	}

	handle := middleware.HandleFromCtx(c)
	if err := h.gymService.Delete(c.Context(), handle.Session.Profile(), gymID); err != nil {
		return gymError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Gym deleted",
	})
}

func gymError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrGymNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrPermissionDenied):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
