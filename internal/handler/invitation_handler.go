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

type InvitationHandler struct {
	inviteService *service.InviteService
	validator     *validator.Validator
}

func NewInvitationHandler(inviteService *service.InviteService, validator *validator.Validator) *InvitationHandler {
	return &InvitationHandler{
		inviteService: inviteService,
		validator:     validator,
	}
}

type createInvitationRequest struct {
	GymID       string   `json:"gym_id" validate:"required,uuid"`
	Roles       []string `json:"roles" validate:"required,min=1"`
	Email       *string  `json:"email,omitempty" validate:"omitempty,email"`
	Description *string  `json:"description,omitempty"`
	TTLDays     int      `json:"ttl_days" validate:"omitempty,min=1,max=365"`
}

// Create issues a new invitation code for a gym
// POST /api/v1/invitations
func (h *InvitationHandler) Create(c *fiber.Ctx) error {
	var req createInvitationRequest
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

	gymID, err := uuid.Parse(req.GymID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid gym id",
		})
	}

	roles := make(domain.RoleSet, len(req.Roles))
	for i, r := range req.Roles {
		roles[i] = domain.Role(r)
	}

	handle := middleware.HandleFromCtx(c)
	inv, err := h.inviteService.Generate(
		c.Context(),
		handle.Session.Profile(),
		gymID,
		roles,
		req.Description,
		req.Email,
		req.TTLDays,
	)
	if err != nil {
		return invitationError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(inv)
}

// ListByGym returns a gym's invitations
// GET /api/v1/gyms/:id/invitations
func (h *InvitationHandler) ListByGym(c *fiber.Ctx) error {
	gymID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid gym id",
		})
	}

	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	handle := middleware.HandleFromCtx(c)
	invitations, total, err := h.inviteService.ListByGym(c.Context(), handle.Session.Profile(), gymID, limit, offset)
	if err != nil {
		return invitationError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"invitations": invitations,
		"total":       total,
		"limit":       limit,
		"offset":      offset,
	})
}

// Validate checks an invitation code before registration. Public: the
// registrant has no account yet
// GET /api/v1/invitations/:code
func (h *InvitationHandler) Validate(c *fiber.Ctx) error {
	inv, err := h.inviteService.Lookup(c.Context(), c.Params("code"))
	if err != nil {
		return invitationError(c, err)
	}

	status := h.inviteService.Validate(inv, c.Query("email"))
	if verr := service.StatusError(status); verr != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"valid": false,
			"error": verr.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"valid":      true,
		"gym_id":     inv.GymID,
		"roles":      inv.Roles,
		"expires_at": inv.ExpiresAt,
	})
}

func invitationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInviteNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrPermissionDenied),
		errors.Is(err, service.ErrGymMismatch):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrInviteAlreadyUsed),
		errors.Is(err, service.ErrInviteExpired),
		errors.Is(err, service.ErrInviteEmailMismatch):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
