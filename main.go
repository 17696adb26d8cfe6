package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"linklock-be/internal/cache"
	"linklock-be/internal/config"
	"linklock-be/internal/controllers"
	"linklock-be/internal/database"
	"linklock-be/internal/jwt"
	"linklock-be/internal/logger"
	"linklock-be/internal/middleware"
	"linklock-be/internal/repository"
	"linklock-be/internal/service"
	"linklock-be/internal/shortcode"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := logger.Init(cfg.LogFile)
	defer log.Sync()

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis cache (optional - continue if Redis is unavailable)
	var cacheClient cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Warnf("Failed to connect to Redis (%v). Continuing without cache.", err)
			cacheClient = nil
		} else {
			log.Info("connected to Redis cache")
		}
	}

	// Initialize repositories
	linkRepo := repository.NewLinkRepository(db)
	clickRepo := repository.NewClickRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize JWT service
	jwtService := jwt.NewJWTService(
		cfg.JWTSecret,
		time.Duration(cfg.JWTTTL)*time.Hour,
	)

	// Core wiring: generator and gate feed the link service; the
	// resolver owns the redirect state machine; the recorder drains
	// click events in the background.
	generator := shortcode.NewGenerator(linkRepo)
	gate := service.NewProtectionGate()

	clickRecorder := service.NewClickRecorder(clickRepo, cfg.ClickBufferSize, log)
	clickRecorder.Start()
	defer clickRecorder.Stop()

	linkService := service.NewLinkService(linkRepo, clickRepo, generator, gate, cacheClient, cfg.BaseURL, log)
	resolver := service.NewRedirectResolver(linkRepo, gate, clickRecorder, cacheClient, cfg.LookupTimeout, cfg.VerifyTimeout, log)
	authService := service.NewAuthService(userRepo, jwtService)

	// Initialize controllers
	linkController := controllers.NewLinkController(linkService)
	resolveController := controllers.NewResolveController(resolver)
	authController := controllers.NewAuthController(authService)
	qrcodeController := controllers.NewQRCodeController(cfg.BaseURL)

	// Initialize rate limiters
	generalRateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	authRateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitAuthRPS), cfg.RateLimitAuthBurst)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestLogger(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Browser-facing resolution. Unlock attempts are deliberately not
	// rate limited: retries are unlimited.
	router.GET("/:key", resolveController.Redirect)

	api := router.Group("/api/v1")
	api.Use(generalRateLimiter.LimitMiddleware())
	{
		auth := api.Group("/auth")
		auth.Use(authRateLimiter.LimitMiddleware())
		{
			auth.POST("/register", authController.Register)
			auth.POST("/login", authController.Login)
		}

		// Protected routes - require JWT authentication
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtService))
		{
			protected.POST("/links", linkController.CreateLink)
			protected.GET("/links", linkController.GetUserLinks)
			protected.DELETE("/links/:id", linkController.DeleteLink)
			protected.PATCH("/links/:id/protection", linkController.UpdateProtection)
			protected.GET("/links/:id/analytics", linkController.GetAnalytics)
		}

		// QR Code rendering collaborator
		api.GET("/qrcode/:key", qrcodeController.GenerateQRCode)
	}

	// JSON resolution surface for the frontend, outside the general
	// limiter group for the same reason as the redirect route.
	router.GET("/api/v1/resolve/:key", resolveController.Resolve)
	router.POST("/api/v1/resolve/:key/unlock", resolveController.Unlock)

	log.Info("server starting on http://localhost:8080")
	if err := router.Run(":8080"); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
