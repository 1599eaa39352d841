package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	authcleanup "github.com/AlibekovAA/taskflow/backend/internal/auth/cleanup"
	authhttp "github.com/AlibekovAA/taskflow/backend/internal/auth/http"
	authrepo "github.com/AlibekovAA/taskflow/backend/internal/auth/repository"
	"github.com/AlibekovAA/taskflow/backend/internal/auth/service"
	"github.com/AlibekovAA/taskflow/backend/internal/auth/token"
	"github.com/AlibekovAA/taskflow/backend/internal/common/clock"
	"github.com/AlibekovAA/taskflow/backend/internal/common/config"
	"github.com/AlibekovAA/taskflow/backend/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/taskflow/backend/internal/common/crypto"
	"github.com/AlibekovAA/taskflow/backend/internal/common/db"
	commonhttp "github.com/AlibekovAA/taskflow/backend/internal/common/http"
	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
	srv "github.com/AlibekovAA/taskflow/backend/internal/common/server"
	userrepo "github.com/AlibekovAA/taskflow/backend/internal/user/repository"
)

const serviceName = "auth"

type AuthApp struct {
	Log          *logger.Logger
	Config       config.AuthConfig
	Pool         *pgxpool.Pool
	Redis        redis.UniversalClient
	RefreshStore authrepo.RefreshTokenRepository
	Service      *service.AuthService
	Handler      http.Handler

	rateLimiter *commonhttp.StrictRateLimiter
	cancel      context.CancelFunc
	ctx         context.Context
}

// NewAuthApp loads configuration and wires every dependency of the auth
// service. Background workers start only in Run.
func NewAuthApp(ctx context.Context) (*AuthApp, error) {
	log, err := initializeLogger(serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.LoadAuthConfig()
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return nil, err
	}

	if cfg.RunMigrations {
		migrateCtx, cancel := context.WithTimeout(ctx, constants.DBMigrationTimeout)
		err := db.Migrate(migrateCtx, log, cfg.DatabaseURL)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := db.NewPool(ctx, log, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	appCtx, cancel := context.WithCancel(ctx)
	app := &AuthApp{
		Log:    log,
		Config: cfg,
		Pool:   pool,
		cancel: cancel,
		ctx:    appCtx,
	}

	realClock := clock.NewRealClock()
	app.RefreshStore, app.Redis, err = newRefreshStore(ctx, cfg, pool, realClock)
	if err != nil {
		cancel()
		pool.Close()
		return nil, err
	}

	idGenerator := commoncrypto.NewUUIDGenerator()
	signer, err := token.NewSigner(token.Config{
		AccessKey:  cfg.JWTAccessSecret,
		RefreshKey: cfg.JWTRefreshSecret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, idGenerator, realClock)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create token signer: %w", err)
	}

	app.Service = service.NewAuthService(service.Dependencies{
		Users:        userrepo.NewPgRepository(pool),
		RefreshStore: app.RefreshStore,
		Signer:       signer,
		Hasher:       &commoncrypto.BcryptHasher{},
		IDGenerator:  idGenerator,
		Clock:        realClock,
	}, service.Config{
		RefreshRotation:         cfg.RefreshRotation,
		StoreTimeout:            cfg.StoreTimeout,
		CircuitBreakerThreshold: int32(cfg.CircuitBreakerThreshold),
		CircuitBreakerReset:     cfg.CircuitBreakerReset,
	}, log)

	app.rateLimiter = commonhttp.NewStrictRateLimiter()
	router := authhttp.NewRouter(authhttp.Options{
		Service:        app.Service,
		Verifier:       signer,
		RefreshTTL:     cfg.RefreshTokenTTL,
		Production:     cfg.IsProduction(),
		RequestTimeout: cfg.RequestTimeout,
		RateLimiter:    app.rateLimiter,
	}, log)
	app.Handler = commonhttp.BuildBaseHandler(cfg.AllowedOrigins(), log, router)

	log.WithFields(ctx, logger.Fields{
		"refresh_store":    cfg.RefreshStore,
		"refresh_rotation": app.Service.RotationEnabled(),
		"environment":      cfg.Environment,
		"action":           "bootstrap_complete",
	}).Info("auth service initialized")

	return app, nil
}

// Run starts background workers and serves HTTP until SIGINT or SIGTERM.
func (a *AuthApp) Run() {
	db.StartPoolMetrics(a.ctx, a.Pool, constants.DBPoolMetricsInterval)
	a.rateLimiter.StartCleanup(a.ctx)
	go authcleanup.StartRefreshTokenCleanup(a.ctx, a.RefreshStore, a.Config.CleanupInterval, a.Log)

	server := srv.NewServer(srv.DefaultServerConfig(a.Config.HTTPPort), a.Handler)
	srv.StartWithGracefulShutdownAndHooks(server, a.Log, serviceName, a.shutdownHooks())
}

func (a *AuthApp) shutdownHooks() []srv.ShutdownHook {
	return []srv.ShutdownHook{
		func(ctx context.Context) error {
			a.Log.Info("auth service: stopping background workers")
			a.cancel()
			return nil
		},
	}
}

// Close releases the stores. It runs after the HTTP server has drained.
func (a *AuthApp) Close() {
	a.cancel()
	a.closeStores()
}

func (a *AuthApp) closeStores() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Errorf("failed to close redis client: %v", err)
		}
	}
	a.Pool.Close()
}

func newRefreshStore(ctx context.Context, cfg config.AuthConfig, pool *pgxpool.Pool, clk clock.Clock) (authrepo.RefreshTokenRepository, redis.UniversalClient, error) {
	switch cfg.RefreshStore {
	case config.StoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return authrepo.NewRedisRefreshTokenRepository(client), client, nil
	case config.StoreMemory:
		return authrepo.NewMemoryRefreshTokenRepository(clk), nil, nil
	default:
		return authrepo.NewPgRefreshTokenRepository(pool), nil, nil
	}
}

func initializeLogger(serviceName string) (*logger.Logger, error) {
	return logger.New(os.Getenv("LOG_DIR"), serviceName, os.Getenv("LOG_LEVEL"))
}
