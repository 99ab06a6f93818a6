package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	connectorApp "github.com/orris-inc/paybridge/internal/application/connector"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/infrastructure/auth"
	"github.com/orris-inc/paybridge/internal/infrastructure/cache"
	"github.com/orris-inc/paybridge/internal/infrastructure/config"
	"github.com/orris-inc/paybridge/internal/infrastructure/email"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway/mercadopago"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway/stripe"
	"github.com/orris-inc/paybridge/internal/infrastructure/pubsub"
	"github.com/orris-inc/paybridge/internal/infrastructure/ratelimit"
	"github.com/orris-inc/paybridge/internal/infrastructure/scheduler"
	"github.com/orris-inc/paybridge/internal/infrastructure/vault"
	"github.com/orris-inc/paybridge/internal/interfaces/http/middleware"
	"github.com/orris-inc/paybridge/internal/shared/goroutine"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

// Container holds all infrastructure components, repositories, use cases,
// handlers and background jobs, and owns their shutdown.
type Container struct {
	// Core infrastructure
	engine *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
	log    logger.Interface
	redis  *redis.Client

	// Repositories
	repos *repositories

	// Use cases
	ucs *allUseCases

	// Handlers
	hdlrs *allHandlers

	// Middlewares
	authMiddleware *middleware.AuthMiddleware
	webhookLimiter *middleware.RateLimiter

	// Billing infrastructure
	vault        *vault.Vault
	directory    *connectorApp.Directory
	connectorBus *pubsub.RedisConnectorEventBus
	gateways     *gateway.Factory
	chargeLock   *cache.ChargeLock
	notifier     email.Notifier

	schedulerManager *scheduler.SchedulerManager
	stopSync         context.CancelFunc
}

// NewContainer wires every component. A bad vault key or JWT secret is
// returned as an error so the process refuses to start.
func NewContainer(db *gorm.DB, cfg *config.Config, log logger.Interface) (*Container, error) {
	c := &Container{
		engine: gin.New(),
		db:     db,
		cfg:    cfg,
		log:    log,
		ucs:    &allUseCases{},
	}

	// Section 1: Infrastructure - Redis, vault, gateways, repositories
	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}

	// Section 2: Connectors - directory-backed admin use cases
	c.initConnectors()

	// Section 3: Billing - webhook ingestion, charging, sweeps
	c.initBilling()

	// Section 4: HTTP handlers
	c.initHandlers()

	c.startConnectorSync()

	return c, nil
}

func (c *Container) initInfrastructure() error {
	c.redis = redis.NewClient(&redis.Options{
		Addr:     c.cfg.Redis.GetAddr(),
		Password: c.cfg.Redis.Password,
		DB:       c.cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.redis.Ping(pingCtx).Err(); err != nil {
		// Charge locks and rate limiting degrade until Redis comes back
		c.log.Warnw("redis not reachable at startup", "addr", c.cfg.Redis.GetAddr(), "error", err)
	}

	v, err := vault.New(c.cfg.Vault.Key)
	if err != nil {
		return fmt.Errorf("failed to initialize credential vault: %w", err)
	}
	c.vault = v

	jwtSvc, err := auth.NewJWTService(c.cfg.Auth.JWTSecret, c.cfg.Auth.TokenExpMinutes)
	if err != nil {
		return fmt.Errorf("failed to initialize jwt service: %w", err)
	}
	c.authMiddleware = middleware.NewAuthMiddleware(jwtSvc, c.log)
	c.webhookLimiter = middleware.NewRateLimiter(
		ratelimit.NewRedisRateLimiter(c.redis),
		"webhook",
		ratelimit.RateLimitConfig{RequestsPerMinute: c.cfg.Server.WebhookRateLimit},
		c.log,
	)

	c.initRepositories()

	c.directory = connectorApp.NewDirectory(
		c.repos.connectorRepo,
		c.vault,
		c.cfg.Billing.ConnectorCacheTTL,
		c.cfg.Billing.ConnectorCacheSize,
		c.log.Named("directory"),
	)

	c.connectorBus = pubsub.NewRedisConnectorEventBus(c.redis, c.directory, c.log.Named("connector_bus"))

	gw := c.cfg.Gateways
	c.gateways = gateway.NewFactory(&http.Client{Timeout: gw.RequestTimeout})
	c.gateways.Register(shared.GatewayMercadoPago, mercadopago.NewConstructor(gw.MercadoPagoBaseURL), mercadopago.NewWebhookAdapter())
	c.gateways.Register(shared.GatewayStripe, stripe.NewConstructor(gw.StripeBaseURL), stripe.NewWebhookAdapter())

	c.chargeLock = cache.NewChargeLock(c.redis, c.cfg.Billing.ChargeLockTTL)
	c.notifier = email.NewDedupNotifier(
		email.NewNotifier(c.cfg.Notification, c.log.Named("notifier")),
		cache.NewAlertDeduplicator(c.redis),
		c.cfg.Notification.AlertCooldown,
		c.log.Named("notifier"),
	)

	return nil
}

func (c *Container) environment() shared.Environment {
	env := shared.Environment(c.cfg.Gateways.Environment)
	if !env.IsValid() {
		c.log.Warnw("unknown gateways.environment, using production", "environment", c.cfg.Gateways.Environment)
		return shared.EnvironmentProduction
	}
	return env
}

// startConnectorSync keeps this instance's connector cache in step with
// admin changes made on other instances.
func (c *Container) startConnectorSync() {
	ctx, cancel := context.WithCancel(context.Background())
	c.stopSync = cancel
	goroutine.SafeGo(c.log, "connector-sync", func() {
		if err := c.connectorBus.Subscribe(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Warnw("connector change subscription ended", "error", err)
		}
	})
}

// Engine returns the configured gin engine. Call SetupRoutes first.
func (c *Container) Engine() *gin.Engine {
	return c.engine
}

// StartScheduler registers the due-charge and sweep jobs and starts them.
func (c *Container) StartScheduler() error {
	if c.schedulerManager != nil {
		return nil
	}
	mgr, err := scheduler.NewSchedulerManager(c.log.Named("scheduler"))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	billing := c.cfg.Billing
	// A due-charge run may take up to one interval
	if err := mgr.RegisterChargeJobs(c.ucs.runDueChargesUC, billing.ChargeInterval, billing.ChargeInterval); err != nil {
		return err
	}
	if err := mgr.RegisterWebhookJobs(c.ucs.sweepAbandonedUC); err != nil {
		return err
	}

	mgr.Start()
	c.schedulerManager = mgr
	return nil
}

// Shutdown stops background jobs, waits for detached webhook processing
// until ctx expires and closes Redis.
func (c *Container) Shutdown(ctx context.Context) {
	if c.schedulerManager != nil {
		if err := c.schedulerManager.Stop(); err != nil {
			c.log.Warnw("failed to stop scheduler", "error", err)
		}
	}

	c.stopSync()

	done := make(chan struct{})
	go func() {
		c.ucs.ingestWebhookUC.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.log.Warnw("shutdown deadline reached with webhook processing still running")
	}

	if err := c.redis.Close(); err != nil {
		c.log.Warnw("failed to close redis client", "error", err)
	}
}
