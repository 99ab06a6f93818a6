package server

import (
	"fmt"
	"io"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/paybridge/internal/infrastructure/config"
	"github.com/orris-inc/paybridge/internal/infrastructure/database"
	"github.com/orris-inc/paybridge/internal/infrastructure/migration"
	httpRouter "github.com/orris-inc/paybridge/internal/interfaces/http"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

// runtime is what both the server and the worker need before serving.
type runtime struct {
	cfg       *config.Config
	log       logger.Interface
	container *httpRouter.Container
}

func resolveEnv(flagValue string) string {
	if envVar := os.Getenv("ENV"); envVar != "" {
		return envVar
	}
	return flagValue
}

func bootstrap(environment, configPath string, autoMigrate bool) (*runtime, error) {
	cfg, err := config.Load(environment, configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.Mode = mapEnvToGinMode(environment)

	if err := logger.Init(&cfg.Logger, cfg.Server.Mode); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	if err := biztime.Init(cfg.Server.Timezone); err != nil {
		return nil, fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {}

	if err := database.Init(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := handleMigrations(environment, autoMigrate, log); err != nil {
		database.Close()
		return nil, err
	}

	container, err := httpRouter.NewContainer(database.Get(), cfg, log)
	if err != nil {
		database.Close()
		return nil, err
	}

	return &runtime{cfg: cfg, log: log, container: container}, nil
}

func handleMigrations(environment string, autoMigrate bool, log logger.Interface) error {
	if autoMigrate {
		if environment == "production" {
			log.Warnw("auto-migration is enabled in production environment")
		}
		if err := migration.NewManager(environment, "").Migrate(database.Get()); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
		return nil
	}

	version, err := migration.NewGooseStrategy("").GetVersion(database.Get())
	if err != nil {
		log.Warnw("failed to check migration status", "error", err)
		return nil
	}
	log.Infow("current migration version", "version", version)
	return nil
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return gin.ReleaseMode
	case "test", "testing":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
