package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "ameenhub/api/swagger" // swagger docs
	"ameenhub/internal/auth"
	"ameenhub/internal/config"
	"ameenhub/internal/database"
	"ameenhub/internal/handler"
	"ameenhub/internal/middleware"
	"ameenhub/internal/repository"
	"ameenhub/internal/service"
	"ameenhub/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           AmeenHub Access API
// @version         1.0
// @description     Staff authentication, roles, permission grants and per-user overrides.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("Database connection failed", zap.Error(err))
	}
	logger.Info("Connected to PostgreSQL")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run(ctx)

	tokens := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	permRepo := repository.NewPermissionRepository(db)
	accessRepo := repository.NewAccessRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	accessService := service.NewAccessService(service.AccessServiceDeps{
		Tx:          txManager,
		Users:       userRepo,
		Roles:       roleRepo,
		Permissions: permRepo,
		Access:      accessRepo,
		Audit:       auditRepo,
		Notifier:    wsHub,
		Logger:      logger.Named("access"),
	})
	userService := service.NewUserService(txManager, userRepo, tokenRepo, auditRepo, tokens, wsHub)
	roleService := service.NewRoleService(txManager, roleRepo, permRepo, auditRepo, wsHub)
	catalogService := service.NewCatalogService(txManager, permRepo, roleRepo, auditRepo, wsHub, logger.Named("catalog"))
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(statsRepo)

	if cfg.SeedOnStart {
		if _, err := catalogService.Sync(ctx, false, ""); err != nil {
			logger.Fatal("Permission catalog seed failed", zap.Error(err))
		}
	}

	authMW := middleware.NewAuth(tokens, accessService, cfg.SecureCookies())

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, authMW)
	roleHandler := handler.NewRoleHandler(roleService, accessService, catalogService, authMW)
	accessHandler := handler.NewAccessHandler(accessService, authMW)
	auditHandler := handler.NewAuditHandler(auditService, authMW)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService, authMW)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(logger.Named("http")), gin.Recovery())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", wsHub.ServeWs(tokens, accessService))

	// API Routing
	userHandler.RegisterRoutes(router.Group(""))
	roleHandler.RegisterRoutes(router.Group(""))
	accessHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	statisticsHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
