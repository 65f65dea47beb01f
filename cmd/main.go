package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/fitclub/club-service/internal/authn/local"
	"github.com/fitclub/club-service/internal/claims"
	"github.com/fitclub/club-service/internal/config"
	"github.com/fitclub/club-service/internal/events"
	"github.com/fitclub/club-service/internal/guard"
	"github.com/fitclub/club-service/internal/handler"
	"github.com/fitclub/club-service/internal/handler/middleware"
	"github.com/fitclub/club-service/internal/repository/postgres"
	"github.com/fitclub/club-service/internal/repository/redisprefs"
	"github.com/fitclub/club-service/internal/service"
	"github.com/fitclub/club-service/internal/session"
	"github.com/fitclub/club-service/pkg/blacklist"
	"github.com/fitclub/club-service/pkg/email"
	"github.com/fitclub/club-service/pkg/jwt"
	"github.com/fitclub/club-service/pkg/validator"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
		}
	}()
	log.Println("✓ Database connection established")

	// Initialize Redis client
	redisClient, err := initRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}()
	log.Println("✓ Redis connection established")

	// Load RSA keys for JWT
	privateKey, publicKey, err := loadRSAKeys(cfg)
	if err != nil {
		log.Fatalf("Failed to load RSA keys: %v", err)
	}
	log.Println("✓ RSA keys loaded successfully")

	// Initialize validator
	validate := validator.NewValidator()

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	gymRepo := postgres.NewGymRepository(db)
	invitationRepo := postgres.NewInvitationRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	authSessionRepo := postgres.NewAuthSessionRepository(db)
	prefRepo := redisprefs.NewPreferenceRepository(redisClient)

	// Initialize JWT token service
	tokenService, err := jwt.NewTokenService(
		privateKey,
		publicKey,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
		cfg.JWT.Issuer,
	)
	if err != nil {
		log.Fatalf("Failed to initialize token service: %v", err)
	}

	// Initialize token blacklist service
	tokenBlacklist := blacklist.NewTokenBlacklist(redisClient)
	log.Println("✓ Token blacklist service initialized")

	// Initialize email service
	var emailService email.Service
	if cfg.Email.RelayURL != "" {
		emailService, err = email.NewRelayService(&email.Config{
			BaseURL: cfg.Email.RelayURL,
		})
		if err != nil {
			log.Printf("Warning: Failed to initialize email service: %v", err)
			log.Println("Email functionality will be disabled")
			emailService = nil
		} else {
			log.Printf("✓ Email relay initialized - %s", cfg.Email.RelayURL)
		}
	} else {
		log.Println("ℹ Email relay disabled (set EMAIL_RELAY_URL to enable)")
	}

	// Auth provider
	provider := local.NewProvider(
		accountRepo,
		authSessionRepo,
		tokenService,
		tokenBlacklist,
		emailService,
		cfg.JWT.RefreshTokenExpiry,
	)

	// Event bus and session manager
	bus := events.NewBus()
	manager := session.NewManager(userRepo, gymRepo, prefRepo, bus)

	// Claims projector runs for the life of the process
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	projector := claims.NewProjector(userRepo, provider, bus)
	projector.Start(ctx)
	log.Println("✓ Claims projector started")

	// Initialize services
	inviteService := service.NewInviteService(invitationRepo, gymRepo, emailService, cfg.Invite.CodeLength)
	authService := service.NewAuthService(provider, userRepo, gymRepo, inviteService, bus)
	gymService := service.NewGymService(gymRepo, bus)
	userService := service.NewUserService(userRepo, provider, emailService, bus)

	// Route guard. A blocked principal observed anywhere is force-logged out.
	routeGuard := &guard.Guard{
		OnBlocked: func(s *session.Session) {
			if p := s.Principal(); p != nil {
				log.Printf("[GUARD] Forcing logout of blocked user %s", p.ID)
				go manager.Detach(p.ID)
			}
		},
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, manager, validate)
	sessionHandler := handler.NewSessionHandler(validate)
	gymHandler := handler.NewGymHandler(gymService, validate)
	invitationHandler := handler.NewInvitationHandler(inviteService, validate)
	userHandler := handler.NewUserHandler(userService, validate)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Club Service v1.0",
		ErrorHandler: customErrorHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	// Setup global middlewares
	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.CORSMiddleware())

	// Setup routes
	authMiddleware := middleware.Authenticate(provider, manager)
	handler.SetupRoutes(
		app,
		authHandler,
		sessionHandler,
		gymHandler,
		invitationHandler,
		userHandler,
		healthHandler,
		authMiddleware,
		routeGuard,
	)

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Printf("🚀 Server starting on http://localhost%s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		if err := app.Listen(addr); err != nil {
			log.Printf("❌ Server failed to start: %v", err)
			stop()
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Println("⏳ Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✓ Server stopped")
}

// initDB initializes PostgreSQL database connection with retry logic
func initDB(cfg *config.Config) (*sqlx.DB, error) {
	dsn := cfg.Database.DSN()

	var db *sqlx.DB
	var err error

	maxRetries := 5
	retryInterval := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			break
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("Error closing database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// initRedis initializes Redis client and verifies connection
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			log.Printf("Error closing Redis after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// loadRSAKeys loads RSA private and public keys from files
func loadRSAKeys(cfg *config.Config) ([]byte, []byte, error) {
	privateKey, err := os.ReadFile(cfg.JWT.PrivateKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	publicKey, err := os.ReadFile(cfg.JWT.PublicKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read public key file: %w", err)
	}

	if len(privateKey) == 0 {
		return nil, nil, fmt.Errorf("private key file is empty")
	}
	if len(publicKey) == 0 {
		return nil, nil, fmt.Errorf("public key file is empty")
	}

	return privateKey, publicKey, nil
}

// customErrorHandler handles Fiber errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	log.Printf("Error handling request [%s %s]: %v", c.Method(), c.Path(), err)

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
