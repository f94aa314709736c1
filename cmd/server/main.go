package main

import (
	"log"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/buildfolio/construction-portal-api/internal/config"
	"github.com/buildfolio/construction-portal-api/internal/database"
	"github.com/buildfolio/construction-portal-api/internal/handlers"
	"github.com/buildfolio/construction-portal-api/internal/logger"
	"github.com/buildfolio/construction-portal-api/internal/middleware"
	"github.com/buildfolio/construction-portal-api/internal/repository"
	"github.com/buildfolio/construction-portal-api/internal/services"
	"github.com/buildfolio/construction-portal-api/internal/utils"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	zapLogger, err := logger.New(cfg.GinMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(zapLogger); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	db := database.GetDB()

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		zapLogger.Fatal("Failed to create Redis store", zap.Error(err))
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions("portal_session", store))

	// A second Redis connection deduplicates webhook deliveries before
	// they reach the database.
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	deduper := utils.NewDeduper(rdb, 24*time.Hour)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	billingRepo := repository.NewBillingRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	milestoneRepo := repository.NewMilestoneRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo)
	projectService := services.NewProjectService(projectRepo, billingRepo)
	taskService := services.NewTaskService(taskRepo, milestoneRepo, projectRepo, zapLogger)
	milestoneService := services.NewMilestoneService(milestoneRepo, projectRepo)
	invoiceService := services.NewInvoiceService(invoiceRepo, milestoneRepo, projectRepo, zapLogger)
	webhookService := services.NewWebhookService(invoiceRepo, eventRepo, invoiceService, deduper, zapLogger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	projectHandler := handlers.NewProjectHandler(projectService)
	taskHandler := handlers.NewTaskHandler(taskService)
	milestoneHandler := handlers.NewMilestoneHandler(milestoneService, invoiceService)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService)
	webhookHandler := handlers.NewWebhookHandler(webhookService, cfg.StripeWebhookSecret, zapLogger)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Client Portal API is running",
		})
	})

	// Stripe deliveries are authenticated by signature, not by session.
	r.POST("/webhooks/stripe", webhookHandler.HandleStripe)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth())
		{
			projects.POST("", middleware.RequireAdmin(), projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.GET("/:id/billing", projectHandler.GetBillingSummary)
			projects.GET("/:id/tasks", taskHandler.ListTasks)
			projects.GET("/:id/milestones", milestoneHandler.ListMilestones)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PATCH("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
		}

		// Milestone routes (protected)
		milestones := api.Group("/milestones")
		milestones.Use(middleware.RequireAuth())
		{
			milestones.POST("", milestoneHandler.CreateMilestone)
			milestones.GET("/:id", milestoneHandler.GetMilestone)
			milestones.PATCH("/:id", milestoneHandler.UpdateMilestone)
			milestones.DELETE("/:id", milestoneHandler.DeleteMilestone)
			milestones.POST("/:id/complete", milestoneHandler.CompleteMilestone)
			milestones.POST("/:id/invoice", milestoneHandler.CreateInvoice)
		}

		// Invoice routes (protected; listing and mutation are admin-only)
		invoices := api.Group("/invoices")
		invoices.Use(middleware.RequireAuth())
		{
			invoices.GET("", middleware.RequireAdmin(), invoiceHandler.ListInvoices)
			invoices.POST("", middleware.RequireAdmin(), invoiceHandler.CreateInvoice)
			invoices.GET("/:id", invoiceHandler.GetInvoice)
			invoices.PATCH("/:id", middleware.RequireAdmin(), invoiceHandler.UpdateInvoice)
			invoices.DELETE("/:id", middleware.RequireAdmin(), invoiceHandler.DeleteInvoice)
			invoices.POST("/:id/payments", middleware.RequireAdmin(), invoiceHandler.RecordPayment)
		}
	}

	// Start server
	zapLogger.Info("Server starting", zap.String("addr", ":8080"))
	if err := r.Run(":8080"); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
