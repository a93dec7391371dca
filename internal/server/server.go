// Package server contains the HTTP handlers of the users service.
package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"usersvc/internal/auth"
	"usersvc/internal/bootstrap"
	"usersvc/internal/config"
	"usersvc/internal/database"
	"usersvc/internal/events"
	"usersvc/internal/featureflags"
	"usersvc/internal/middleware"
	"usersvc/internal/models"
	"usersvc/internal/repository"
	"usersvc/internal/service"
	"usersvc/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// localClaims holds the parsed session claims of an authenticated request.
const localClaims = "claims"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	featureFlags   *featureflags.Manager
	publisher      events.Publisher
	signer         storage.Signer
	userService    *service.UserService
	followService  *service.FollowService
	adminService   *service.AdminService
	authService    *service.AuthService
}

// Deps are the optional collaborators of a Server. Nil values fall back to
// no-op implementations.
type Deps struct {
	Publisher events.Publisher
	Signer    storage.Signer
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{DemoUsers: cfg.SeedDemoUsers})
	if err != nil {
		return nil, err
	}

	signer, err := storage.NewSigner(context.Background(), storage.Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("object storage setup failed: %w", err)
	}

	publisher := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers:  cfg.KafkaBrokerList(),
		Topic:    cfg.KafkaTopic,
		Username: cfg.KafkaUsername,
		Password: cfg.KafkaPassword,
	})

	return NewServerWithDeps(cfg, db, redisClient, Deps{Publisher: publisher, Signer: signer})
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Signer == nil {
		signer, err := storage.NewSigner(context.Background(), storage.Config{})
		if err != nil {
			return nil, err
		}
		deps.Signer = signer
	}

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	interestRepo := repository.NewInterestRepository(db)
	biometricRepo := repository.NewBiometricTokenRepository(db)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("usersvc"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		publisher:      deps.Publisher,
		signer:         deps.Signer,
	}
	server.userService = service.NewUserService(userRepo, interestRepo, biometricRepo, cfg.MaxSearchAmount)
	server.followService = service.NewFollowService(userRepo, followRepo)
	server.adminService = service.NewAdminService(server.userService, userRepo, deps.Signer, deps.Publisher)
	server.authService = service.NewAuthService(server.userService, tokens, deps.Publisher)

	return server, nil
}

// NewApp returns a Fiber app with the service's error handler.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "Users API",
		BodyLimit:    1 * 1024 * 1024,
		UnescapePath: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, err)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Propagates request id and trace id into the user context
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(middleware.TracingMiddleware())

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := strings.TrimSpace(s.config.AllowedOrigins)
	if origins == "" {
		origins = "*"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Token, Biometric-Token",
		AllowCredentials: origins != "*",
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	// Public auth routes
	api.Post("/register", middleware.RateLimit(s.redis, 3, 10*time.Minute, "register"), s.Register)
	api.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	api.Post("/login_with_biometrics", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login_biometrics"), s.LoginWithBiometrics)

	protected := api.Group("", s.AuthRequired())
	protected.Post("/logout", s.Logout)

	// Current user
	protected.Get("/get_user_by_token", s.GetUserByToken)
	protected.Get("/user", s.GetCurrentUser)
	protected.Get("/user/search/:query", middleware.RateLimit(s.redis, 30, time.Minute, "search"), s.SearchUsers)
	protected.Post("/user/biometric_token", s.AddBiometricToken)
	protected.Delete("/user/delete_biometric_token", s.DeleteBiometricToken)

	// Profile
	users := protected.Group("/users")
	users.Get("/interests", s.GetInterests)
	users.Put("/interests", s.SetInterests)
	users.Put("/password", s.UpdateProfileField(fieldPassword))
	users.Put("/bio", s.UpdateProfileField(fieldBio))
	users.Put("/name", s.UpdateProfileField(fieldName))
	users.Put("/last_name", s.UpdateProfileField(fieldLastName))
	users.Put("/date_of_birth", s.UpdateProfileField(fieldDateOfBirth))
	users.Put("/avatar", s.UpdateProfileField(fieldAvatar))
	users.Put("/location", s.UpdateProfileField(fieldLocation))
	users.Put("/privacy", s.UpdateProfileField(fieldPrivacy))
	users.Delete("/:email", s.DeleteUser)

	// Follow graph. Specific /:email/count routes BEFORE generic /:email routes
	protected.Get("/follow/:email/count", s.GetFollowersCount)
	protected.Post("/follow/:email", middleware.RateLimit(s.redis, 30, time.Minute, "follow"), s.Follow)
	protected.Delete("/unfollow", s.Unfollow)
	protected.Get("/followers/:email", s.GetFollowers)
	protected.Get("/following/:email/count", s.GetFollowingCount)
	protected.Get("/following/:email", s.GetFollowing)
	protected.Get("/is_following/:email", s.IsFollowing)
	protected.Get("/is_follower/:email", s.IsFollower)

	// Admin routes
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Get("/following", s.GetAllFollowRelations)
	adminUsers := admin.Group("/users")
	adminUsers.Get("/", s.ListUsers)
	adminUsers.Get("/admins", s.ListAdmins)
	adminUsers.Get("/find", s.FindUser)
	adminUsers.Get("/image", s.GetImageLink)
	adminUsers.Get("/search/:query", s.SearchUsersAsAdmin)
	adminUsers.Put("/block/:email", s.SetBlockedStatus)
	adminUsers.Post("/:email/promote", s.PromoteToAdmin)
	adminUsers.Post("/:email/demote", s.DemoteFromAdmin)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Redis backs token revocation, so it is required for readiness
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "usersvc",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware. The session token's
// subject is the user's email.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := middleware.BearerToken(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.authService.ParseToken(c.UserContext(), tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}

		c.Locals(middleware.LocalUserEmail, claims.Email)
		c.Locals(localClaims, claims)
		c.SetUserContext(middleware.WithUserEmail(c.UserContext(), claims.Email))

		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that the email is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, err := s.userService.IsAdmin(c.UserContext(), middleware.UserEmail(c))
		if err != nil {
			return s.respondServiceError(c, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		return c.Next()
	}
}

// Start builds the Fiber app and listens on the configured port.
func (s *Server) Start() error {
	app := NewApp()
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Printf("error closing metric publisher: %v", err)
		}
	}

	if err := database.Close(); err != nil {
		log.Printf("error closing database: %v", err)
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
