package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"inventrack/internal/audit"
	"inventrack/internal/cache"
	"inventrack/internal/handler"
	"inventrack/internal/metrics"
	"inventrack/internal/middleware"
	"inventrack/internal/model"
	"inventrack/internal/repository"
	"inventrack/internal/service"
	"inventrack/internal/storage"
	"inventrack/internal/ws"
	"inventrack/pkg/config"
	"inventrack/pkg/database"
	"inventrack/pkg/jwt"
	"inventrack/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func main() {
	// 1. Config and logger
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zlog, err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, ServiceName: cfg.AppName})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Database
	db, err := database.ConnectDB(cfg.DB, zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	if err := model.AutoMigrate(db); err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}

	// 3. Repositories
	categoryRepo := repository.NewCategoryRepo(db)
	productRepo := repository.NewProductRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	logRepo := repository.NewActivityLogRepo(db)
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	// 4. Seed default privileges, roles, and admin user
	userService := service.NewUserService(userRepo, privilegeRepo, roleRepo)
	if err := userService.SeedDefaults(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		zlog.Warn("seeding defaults failed", zap.Error(err))
	}

	// 5. Side effects: websocket hub, dashboard cache, metrics
	wsHub := ws.NewHub(zlog)
	go wsHub.Run(ctx)

	stats := metrics.New(cfg.AppName)
	fx := service.Effects{Hub: wsHub, Cache: newCache(ctx, cfg, zlog), Metrics: stats}
	images := storage.NewImageStore(afero.NewOsFs(), cfg.ProductImagePath, storage.DefaultMaxImageBytes)

	// 6. Services and handlers
	recorder := audit.NewRecorder(logRepo)
	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpirationHours)
	authService := service.NewAuthService(userRepo, tokens)
	invService := service.NewInventoryService(db, productRepo, txRepo, recorder, fx)
	catalogService := service.NewCatalogService(db, categoryRepo, productRepo, txRepo, recorder, images, cfg.LowStockThreshold, fx)
	dashService := service.NewDashboardService(categoryRepo, productRepo, txRepo, fx.Cache, cfg.DashboardCacheTTL, cfg.LowStockThreshold)
	reportService := service.NewReportService(productRepo, txRepo, logRepo, cfg.LowStockThreshold)

	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		User:      handler.NewUserHandler(userService),
		Role:      handler.NewRoleHandler(userService),
		Category:  handler.NewCategoryHandler(catalogService),
		Product:   handler.NewProductHandler(catalogService),
		Inventory: handler.NewInventoryHandler(invService),
		Dashboard: handler.NewDashboardHandler(dashService),
		Report:    handler.NewReportHandler(reportService, logRepo),
	}

	loginLimiter := middleware.NewRateLimiter(1, 5, 5*time.Minute)
	go loginLimiter.Run(ctx, time.Minute)

	// 7. Fiber
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})

	app.Use(requestid.New())
	app.Use(logger.Middleware(zlog))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))
	app.Use(stats.Middleware())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok", "ws_clients": wsHub.ClientCount()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(stats.Handler()))
	app.Static("/storage/products", images.Dir())

	// 8. Routes
	handler.Register(app.Group("/api/v1"), handlers, authService, loginLimiter.Handler())

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(wsHub.Serve))

	// 9. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	zlog.Info("Server exited")
}

// newCache uses redis when REDIS_ADDR is set and reachable, memory otherwise
func newCache(ctx context.Context, cfg *config.Config, zlog *zap.Logger) cache.Cache {
	if cfg.Redis.Addr == "" {
		return cache.NewMemoryCache()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		zlog.Warn("redis unreachable, using in-memory cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = rdb.Close()
		return cache.NewMemoryCache()
	}
	zlog.Info("dashboard cache on redis", zap.String("addr", cfg.Redis.Addr))
	return cache.NewRedisCache(rdb, "inventrack:")
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		logger.FromFiber(c).Error("unhandled error", zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}

