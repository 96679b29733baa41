// Package bootstrap wires configuration, the document store, services,
// controllers and routes into a runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/sistempim/pimserver/internal/app/controllers"
	appMigrations "github.com/sistempim/pimserver/internal/app/migrations"
	appRoutes "github.com/sistempim/pimserver/internal/app/routes"
	appServices "github.com/sistempim/pimserver/internal/app/services"
	"github.com/sistempim/pimserver/internal/config"
	"github.com/sistempim/pimserver/internal/db"
	appMiddleware "github.com/sistempim/pimserver/internal/middleware"
	pkgAuth "github.com/sistempim/pimserver/internal/pkg/auth"
	"github.com/sistempim/pimserver/internal/pkg/docstore"
	"github.com/sistempim/pimserver/internal/pkg/docstore/memstore"
	"github.com/sistempim/pimserver/internal/pkg/docstore/pgstore"
	"github.com/sistempim/pimserver/internal/pkg/logger"
	"github.com/sistempim/pimserver/internal/pkg/websocket"
	"github.com/sistempim/pimserver/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Store                  docstore.Gateway
	AuthService            appServices.AuthService
	ProfileService         appServices.ProfileService
	RelationshipService    appServices.RelationshipService
	ChatService            appServices.ChatService
	NotificationService    appServices.NotificationService
	ClassroomService       appServices.ClassroomService
	FeedService            appServices.FeedService
	AuthController         *appControllers.AuthController
	ProfileController      *appControllers.ProfileController
	ChatController         *appControllers.ChatController
	NotificationController *appControllers.NotificationController
	ClassroomController    *appControllers.ClassroomController
	FeedController         *appControllers.FeedController
	WSHub                  *websocket.Hub
	WSHandler              *websocket.Handler
	AuthMiddleware         *appMiddleware.AuthMiddleware
	JWTService             *pkgAuth.JWTService
	Logger                 zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStore builds the document store gateway selected by the
// configuration. The returned pool is nil for the memory driver.
func SetupStore(cfg *config.Config, lgr zerolog.Logger) (docstore.Gateway, *pgxpool.Pool, error) {
	switch cfg.Store.Driver {
	case "memory":
		lgr.Warn().Msg("Using in-memory store, data is lost on restart")
		return docstore.WithTimeout(memstore.New(), cfg.StoreCallTimeout()), nil, nil

	case "postgres":
		lgr.Info().Msg("Establishing database connection...")
		database, err := db.NewPostgresDB(cfg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return nil, nil, err
		}
		dbPool := database.Pool

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := dbPool.Ping(ctx); err != nil {
			lgr.Error().Err(err).Msg("Failed to ping database")
			dbPool.Close()
			return nil, nil, err
		}
		lgr.Info().Msg("Database connection successfully established.")

		lgr.Info().Msg("Running database migrations...")
		migrator := appMigrations.NewMigrator(dbPool)

		migrationsDir := "migrations"
		if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
			dbPool.Close()
			return nil, nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
		}
		if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
			dbPool.Close()
			return nil, nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Msg("Database migrations successfully applied.")

		store := docstore.WithTimeout(pgstore.New(dbPool, lgr), cfg.StoreCallTimeout())
		return store, dbPool, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// BuildDependencies initializes application services and controllers.
func BuildDependencies(cfg *config.Config, store docstore.Gateway, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Store: store, Logger: lgr}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	accessExp, _ := time.ParseDuration(cfg.JWT.AccessTokenExpiration)
	refreshExp, _ := time.ParseDuration(cfg.JWT.RefreshTokenExpiration)
	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  accessExp,
		RefreshTokenExp: refreshExp,
		TokenIssuer:     cfg.JWT.Issuer,
	})

	// Services
	deps.ProfileService = appServices.NewProfileService(store, lgr)
	deps.RelationshipService = appServices.NewRelationshipService(store, lgr)
	deps.ChatService = appServices.NewChatService(store, lgr)
	deps.NotificationService = appServices.NewNotificationService(store, lgr)
	deps.ClassroomService = appServices.NewClassroomService(store, deps.NotificationService, lgr)
	deps.FeedService = appServices.NewFeedService(store, lgr)
	deps.AuthService = appServices.NewAuthService(store, deps.JWTService, lgr)

	// Controllers
	deps.AuthController = appControllers.NewAuthController(deps.AuthService)
	deps.ProfileController = appControllers.NewProfileController(deps.ProfileService, deps.RelationshipService)
	deps.ChatController = appControllers.NewChatController(deps.ChatService)
	deps.NotificationController = appControllers.NewNotificationController(deps.NotificationService)
	deps.ClassroomController = appControllers.NewClassroomController(deps.ClassroomService, deps.ProfileService)
	deps.FeedController = appControllers.NewFeedController(deps.FeedService, deps.ProfileService)

	// Realtime hub bridging store streams to WebSocket clients
	deps.WSHub = websocket.NewHub(lgr)
	deps.WSHandler = websocket.NewHandler(deps.WSHub, deps.ChatService, deps.NotificationService, lgr)
	go deps.WSHub.Run()

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	// Demo data in development mode
	if cfg.Server.Mode == "development" {
		if err := seed.CreateDefaultData(context.Background(), store, lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to seed demo data, proceeding anyway...")
		}
	}

	return deps, nil
}

// SetupRouter builds the gin engine with all routes registered.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(lgr))

	appRoutes.SetupRouter(
		router,
		deps.AuthController,
		deps.ProfileController,
		deps.ChatController,
		deps.NotificationController,
		deps.ClassroomController,
		deps.FeedController,
		deps.WSHandler,
		deps.AuthMiddleware,
	)
	return router
}

// requestLogger logs each request with zerolog.
func requestLogger(lgr zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		lgr.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("clientIP", c.ClientIP()).
			Msg("Request handled")
	}
}
