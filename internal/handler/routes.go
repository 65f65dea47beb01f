package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/guard"
	"github.com/fitclub/club-service/internal/handler/middleware"
)

func SetupRoutes(
	app *fiber.App,
	authHandler *AuthHandler,
	sessionHandler *SessionHandler,
	gymHandler *GymHandler,
	invitationHandler *InvitationHandler,
	userHandler *UserHandler,
	healthHandler *HealthHandler,
	authMiddleware fiber.Handler,
	routeGuard *guard.Guard,
) {
	// Health checks (public)
	app.Get("/health", healthHandler.Health)
	app.Get("/ready", healthHandler.Ready)

	// API v1
	api := app.Group("/api/v1")

	// Auth routes (public)
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/forgot-password", authHandler.ForgotPassword)
	auth.Post("/logout", authMiddleware, authHandler.Logout)
	auth.Post("/password", authMiddleware, authHandler.ChangePassword)

	// Invitation validation is public: the registrant has no account yet
	api.Get("/invitations/:code", invitationHandler.Validate)

	// Session state and controls
	sess := api.Group("/session", authMiddleware)
	sess.Get("/", sessionHandler.Get)
	sess.Post("/simulate", sessionHandler.Simulate)
	sess.Delete("/simulate", sessionHandler.StopSimulation)
	sess.Put("/gym", sessionHandler.SelectGym)

	// Role shorthands for the guard
	memberUp := middleware.RequireRoles(routeGuard)
	adminUp := middleware.RequireRoles(routeGuard, domain.RoleAdmin)
	superOnly := middleware.RequireRoles(routeGuard, domain.RoleSuperAdmin)

	// Gyms
	gyms := api.Group("/gyms", authMiddleware)
	gyms.Get("/", memberUp, gymHandler.List)
	gyms.Get("/slug/:slug", memberUp, gymHandler.GetBySlug)
	gyms.Get("/:id", memberUp, gymHandler.Get)
	gyms.Post("/", superOnly, gymHandler.Create)
	gyms.Put("/:id", superOnly, gymHandler.Update)
	gyms.Post("/:id/suspend", superOnly, gymHandler.Suspend)
	gyms.Post("/:id/unsuspend", superOnly, gymHandler.Unsuspend)
	gyms.Delete("/:id", superOnly, gymHandler.Delete)

	// Gym-scoped administration
	gyms.Get("/:id/users", adminUp, userHandler.ListByGym)
	gyms.Get("/:id/invitations", adminUp, invitationHandler.ListByGym)

	// Invitations
	api.Post("/invitations", authMiddleware, adminUp, invitationHandler.Create)

	// Users
	users := api.Group("/users", authMiddleware)
	users.Get("/me", userHandler.GetMe)
	users.Get("/", superOnly, userHandler.List)
	users.Post("/:id/roles", adminUp, userHandler.GrantRole)
	users.Delete("/:id/roles/:role", adminUp, userHandler.RevokeRole)
	users.Put("/:id/blocked", adminUp, userHandler.SetBlocked)
	users.Post("/:id/reset-password", adminUp, userHandler.ResetPassword)
	users.Put("/:id/gym", superOnly, userHandler.ReassignGym)
}
