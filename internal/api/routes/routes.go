// Package routes handles the setup and configuration of API routes
package routes

import (
	"database/sql"

	_ "finwatch/docs" // Import swagger docs
	"finwatch/internal/api/handlers"
	"finwatch/internal/api/middleware"
	"finwatch/internal/auth"
	"finwatch/internal/config"
	"finwatch/internal/email"
	"finwatch/internal/repository/postgres"
	"finwatch/internal/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRoutes configures all API routes and their handlers
func SetupRoutes(cfg *config.Config, db *sql.DB) *gin.Engine {
	// Create router
	r := gin.Default()

	// Initialize health handler for basic routes
	healthHandler := handlers.NewHealthHandler(db)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	activityLogRepo := postgres.NewActivityLogRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	passwordResetRepo := postgres.NewPasswordResetRepository(db)

	// Initialize services
	authService := auth.NewService(cfg, refreshTokenRepo)
	emailService := email.NewService(cfg.Email)

	// Security core
	audit := security.NewAuditRecorder(activityLogRepo)
	state := security.NewAccountSecurityState(userRepo, audit, cfg.Security)
	coordinator := security.NewCoordinator(userRepo, state, audit, emailService, cfg.Security)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authService, userRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(
		userRepo,
		coordinator,
		state,
		audit,
		authService,
		emailService,
		passwordResetRepo,
		cfg,
	)
	userHandler := handlers.NewUserHandler(userRepo, state, audit, authService)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Health check (no authentication required)
		v1.GET("/health", healthHandler.Health)

		// Auth routes
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/logout", authMiddleware.AuthRequired(), authHandler.Logout)
			authRoutes.POST("/reset-password", authHandler.RequestPasswordReset)
			authRoutes.POST("/reset-password/complete", authHandler.CompletePasswordReset)
			authRoutes.POST("/refresh", authHandler.Refresh)
		}

		// User routes (require authentication; every request refreshes the
		// current-session snapshot)
		users := v1.Group("/users")
		users.Use(authMiddleware.AuthRequired(), middleware.TrackActivity(userRepo))
		{
			users.GET("/me", userHandler.Me)
			users.PUT("/me/password", userHandler.ChangePassword)

			// Admin-only routes
			adminUsers := users.Group("")
			adminUsers.Use(authMiddleware.AdminRequired())
			{
				adminUsers.GET("", userHandler.List)
				adminUsers.GET("/:id", userHandler.Get)
				adminUsers.PUT("/:id", userHandler.Update)
				adminUsers.DELETE("/:id", userHandler.Delete)
				adminUsers.POST("/:id/block", userHandler.Block)
				adminUsers.POST("/:id/unblock", userHandler.Unblock)
				adminUsers.POST("/:id/suspend", userHandler.Suspend)
				adminUsers.POST("/:id/terminate", userHandler.Terminate)
			}
		}
	}

	return r
}
