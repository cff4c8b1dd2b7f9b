// Package server wires configuration, storage, services and the HTTP and
// gRPC front ends into a runnable application, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/pulsekeeper/internal/cryptox"
	"github.com/dmitrijs2005/pulsekeeper/internal/logging"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/config"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/observability"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/ratelimit"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/pulsekeeper/internal/server/grpc"
	hs "github.com/dmitrijs2005/pulsekeeper/internal/server/http"
)

const serviceName = "pulsekeeper"

type App struct {
	config        *config.Config
	logger        logging.Logger
	db            *sql.DB
	redis         *redis.Client
	metrics       *observability.Metrics
	limiter       ratelimit.Limiter
	shutdownTrace observability.ShutdownFunc

	identityService    *services.IdentityService
	graphService       *services.GraphService
	aggregationService *services.AggregationService
	healthService      *services.HealthService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(c.LogBackend, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	shutdownTrace, err := observability.InitTracing(c.TraceExporter, serviceName, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("tracing init error: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	hasher, err := cryptox.NewBcryptHasher(c.BcryptCost)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("hasher init error: %w", err)
	}

	as, err := services.NewAggregationService(db, rm, c)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("aggregation service init error: %w", err)
	}

	app := &App{
		config:             c,
		logger:             logger,
		db:                 db,
		metrics:            observability.NewMetrics(),
		shutdownTrace:      shutdownTrace,
		identityService:    services.NewIdentityService(db, rm, hasher, c),
		graphService:       services.NewGraphService(db, rm),
		aggregationService: as,
		healthService:      services.NewHealthService(db),
	}

	app.limiter = app.initLimiter(ctx)

	return app, nil
}

// initLimiter prefers Redis so several instances share one budget per
// account, and falls back to an in-process limiter.
func (app *App) initLimiter(ctx context.Context) ratelimit.Limiter {
	c := app.config
	if c.RedisAddr == "" {
		return ratelimit.NewMemory(c.IngestRate, c.IngestBurst)
	}

	client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		app.logger.Warn(ctx, "redis unreachable, using in-memory rate limiter", "address", c.RedisAddr, "error", err)
		client.Close()
		return ratelimit.NewMemory(c.IngestRate, c.IngestBurst)
	}

	app.redis = client
	app.logger.Info(ctx, "Using redis rate limiter", "address", c.RedisAddr)
	return ratelimit.NewRedis(client, c.IngestRate, c.IngestBurst)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.healthService)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := hs.NewRouter(hs.RouterConfig{
		Identity:    app.identityService,
		Graph:       app.graphService,
		Aggregation: app.aggregationService,
		Health:      app.healthService,
		Limiter:     app.limiter,
		Metrics:     app.metrics,
		Logger:      app.logger,
		SecretKey:   app.config.SecretKey,
	})

	s := hs.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, router)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close()
}

func (app *App) close() {
	ctx := context.Background()

	if err := app.shutdownTrace(ctx); err != nil {
		app.logger.Error(ctx, "tracer shutdown error", "error", err)
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close error", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
}
