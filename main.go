package main

import (
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"autoapply/config"
	"autoapply/controllers"
	"autoapply/database"
	"autoapply/middleware"
	"autoapply/models"
	"autoapply/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.GetAppConfig()

	db, err := database.Connect(
		cfg.Database.Host,
		fmt.Sprintf("%d", cfg.Database.Port),
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
	)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(db); err != nil {
		log.Fatalf("Could not create schema: %v", err)
	}

	userModel := models.NewUserModel(db)
	profileModel := models.NewApplicantProfileModel(db)
	appModel := models.NewJobApplicationModel(db)

	jwtService := services.NewJWTService(cfg.JWTSecret)
	emailService := services.NewEmailNotificationService()

	s3Service, err := services.NewS3Service()
	if err != nil {
		log.Printf("WARNING: S3 not available, audit artifacts stay local: %v", err)
		s3Service = nil
	}

	sessionOpts := services.SessionOptions{
		LoginPollInterval: cfg.Automation.LoginPollInterval,
		LoginPollBackoff:  cfg.Automation.LoginPollBackoff,
		LoginWaitTimeout:  cfg.Automation.LoginWaitTimeout,
		AutoSubmitDelay:   cfg.Automation.AutoSubmitDelay,
	}
	browser, err := services.NewBrowserAutomation(sessionOpts, cfg.Automation.Headless)
	if err != nil {
		log.Fatalf("Could not start browser automation: %v", err)
	}
	defer browser.Close()

	authController := controllers.NewAuthController(userModel, jwtService)
	automationController := controllers.NewAutomationController(
		browser, sessionOpts, userModel, profileModel, appModel, emailService, s3Service,
	)
	automationController.SetBulkDelayBounds(cfg.Automation.BulkDelayMin, cfg.Automation.BulkDelayMax)

	limiters := middleware.CreateRateLimiters()

	r := gin.Default()
	r.Use(cors.Default())
	r.Use(middleware.MaxRequestSize(10 << 20)) // 10 MB
	r.Use(middleware.ValidateJSON())
	r.Use(middleware.SanitizeInput())

	r.Static("/static", "./static")

	auth := r.Group("/api/auth", limiters["auth"].Limit())
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.GET("/me", middleware.RequireAuth(jwtService), authController.Me)
		auth.POST("/password", middleware.RequireAuth(jwtService), authController.ChangePassword)
	}

	api := r.Group("/api", limiters["general"].Limit(), middleware.RequireAuth(jwtService))
	{
		api.GET("/profile", automationController.GetProfile)
		api.PUT("/profile", automationController.SaveProfile)
		api.GET("/applications", automationController.ListApplications)
		api.GET("/applications/:code", automationController.GetApplication)
		api.DELETE("/applications/:code", automationController.DeleteApplication)
	}

	automation := r.Group("/api/automation", limiters["automation"].Limit(), middleware.RequireAuth(jwtService))
	{
		automation.POST("/sessions", automationController.StartSession)
		automation.GET("/sessions/:id", automationController.GetSession)
		automation.POST("/sessions/:id/submit", automationController.SubmitSession)
		automation.POST("/sessions/:id/cancel", automationController.CancelSession)

		automation.POST("/bulk", automationController.StartBulkRun)
		automation.GET("/bulk/:id", automationController.GetBulkRun)
		automation.POST("/bulk/:id/pause", automationController.PauseBulkRun)
		automation.POST("/bulk/:id/resume", automationController.ResumeBulkRun)
		automation.POST("/bulk/:id/retry", automationController.RetryBulkRun)
	}

	log.Printf("=== AutoApply listening on :%s ===", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
