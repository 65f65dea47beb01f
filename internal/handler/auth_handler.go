package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/fitclub/club-service/internal/authn"
	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/handler/middleware"
	"github.com/fitclub/club-service/internal/service"
	"github.com/fitclub/club-service/internal/session"
	"github.com/fitclub/club-service/pkg/validator"
)

type AuthHandler struct {
	authService *service.AuthService
	manager     *session.Manager
	validator   *validator.Validator
}

func NewAuthHandler(authService *service.AuthService, manager *session.Manager, validator *validator.Validator) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		manager:     manager,
		validator:   validator,
	}
}

type registerRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Name     string  `json:"name" validate:"required,min=2"`
	Phone    *string `json:"phone" validate:"omitempty,min=6"`
	Code     string  `json:"code"`
	GymID    *string `json:"gym_id" validate:"omitempty,uuid"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles credential sign-in
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
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

	principal, tokens, err := h.authService.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserBlocked) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":    err.Error(),
				"redirect": "/blocked",
			})
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"user_id": principal.ID,
		"email":   principal.Email,
		"tokens":  tokens,
	})
}

// Register handles open registration; with a code it registers through an
// invitation instead
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
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

	var (
		principal *authn.Principal
		tokens    *domain.TokenPair
		err       error
	)
	if req.Code != "" {
		principal, tokens, err = h.authService.RegisterWithInvite(c.Context(), req.Email, req.Password, req.Name, req.Code, req.Phone)
	} else {
		var gymID *uuid.UUID
		if req.GymID != nil && *req.GymID != "" {
			parsed, parseErr := uuid.Parse(*req.GymID)
			if parseErr != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "invalid gym id",
				})
			}
			gymID = &parsed
		}
		principal, tokens, err = h.authService.Register(c.Context(), req.Email, req.Password, req.Name, req.Phone, gymID)
	}
	if err != nil {
		return c.Status(registerStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user_id": principal.ID,
		"email":   principal.Email,
		"tokens":  tokens,
	})
}

func registerStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrAlreadyRegistered),
		errors.Is(err, authn.ErrEmailInUse):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrInviteNotFound),
		errors.Is(err, service.ErrGymNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInviteAlreadyUsed),
		errors.Is(err, service.ErrInviteExpired),
		errors.Is(err, service.ErrInviteEmailMismatch):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, authn.ErrInvalidEmail):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// RefreshToken handles token refresh
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
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

	tokens, err := h.authService.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(tokens)
}

// Logout revokes the caller's tokens and discards the live session
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
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

	token, _ := c.Locals(middleware.LocalToken).(string)
	if err := h.authService.Logout(c.Context(), token, req.RefreshToken); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if principal := middleware.PrincipalFromCtx(c); principal != nil {
		h.manager.Detach(principal.ID)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// ChangePassword verifies the current password and sets a new one
// POST /api/v1/auth/password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		OldPassword string `json:"old_password" validate:"required"`
		NewPassword string `json:"new_password" validate:"required,min=8"`
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

	principal := middleware.PrincipalFromCtx(c)
	if principal == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "not authenticated",
		})
	}

	if err := h.authService.ChangePassword(c.Context(), principal.ID, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, authn.ErrWrongCredential) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Password changed",
	})
}

// ForgotPassword starts a reset flow. Responds identically whether or not
// the email is known
// POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email" validate:"required,email"`
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

	if err := h.authService.RequestPasswordReset(c.Context(), req.Email); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to start password reset",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "If the email is registered, a reset link has been sent",
	})
}
