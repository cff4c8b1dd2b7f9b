// Package http is the REST facade of the server. It maps routes onto the
// identity, graph and aggregation services and wraps every answer in the
// {ok, msg, data} envelope.
package http

import (
	"github.com/dmitrijs2005/pulsekeeper/internal/logging"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/observability"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/ratelimit"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "pulsekeeper"

type RouterConfig struct {
	Identity    IdentityService
	Graph       GraphService
	Aggregation AggregationService
	Health      HealthChecker
	Limiter     ratelimit.Limiter
	Metrics     *observability.Metrics
	Logger      logging.Logger
	SecretKey   string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger.With("module", "http_server")
	h := &Handler{
		identity:    cfg.Identity,
		graph:       cfg.Graph,
		aggregation: cfg.Aggregation,
		health:      cfg.Health,
		metrics:     cfg.Metrics,
		log:         log,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(requestID())
	r.Use(requestLog(log))
	r.Use(metricsMiddleware(cfg.Metrics))
	r.Use(corsMiddleware())

	// public
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	protected := r.Group("/")
	protected.Use(requireIdentity([]byte(cfg.SecretKey)))
	{
		protected.GET("/accounts", h.FindAccount)

		protected.POST("/connections", h.Connect)
		protected.DELETE("/connections", h.Disconnect)
		protected.GET("/users/:id/parties", h.ListResponsibleParties)
		protected.GET("/parties/:id/users", h.ListUsers)

		protected.POST("/users/:id/samples", throttle(cfg.Limiter, cfg.Metrics, log), h.RecordSample)
		protected.GET("/users/:id/aggregates", h.RecentAggregates)
		protected.GET("/users/:id/aggregates/latest", h.LatestAggregate)
		protected.GET("/users/:id/aggregates/:day", h.AggregateForDay)
		protected.GET("/users/:id/history", h.IntradayHistory)
	}

	return r
}
