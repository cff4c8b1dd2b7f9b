package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/pulsekeeper/internal/common"
	"github.com/dmitrijs2005/pulsekeeper/internal/logging"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/auth"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/observability"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/ratelimit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey = "request_id"
	identityKey  = "identity"
)

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{common.AuthorizationHeaderName, "Content-Type", common.RequestIDHeaderName},
		ExposeHeaders:   []string{common.RequestIDHeaderName},
		MaxAge:          12 * time.Hour,
	})
}

// requestID reuses the caller's X-Request-ID or mints a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(common.RequestIDHeaderName))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(common.RequestIDHeaderName, id)
		c.Next()
	}
}

func requestLog(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

func metricsMiddleware(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// requireIdentity verifies the bearer assertion and stores the caller.
func requireIdentity(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondFail(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		id, err := auth.ParseToken(strings.TrimSpace(token), secret)
		if err != nil {
			respondFail(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		c.Set(identityKey, *id)
		c.Next()
	}
}

func callerOf(c *gin.Context) auth.Identity {
	v, _ := c.Get(identityKey)
	id, _ := v.(auth.Identity)
	return id
}

// throttle limits requests per caller. A limiter failure lets the request
// through and is logged.
func throttle(l ratelimit.Limiter, m *observability.Metrics, log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("account:%d", callerOf(c).AccountID)
		ok, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn(c.Request.Context(), "rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if !ok {
			m.Sample("throttled")
			respondFail(c, http.StatusTooManyRequests, "too many samples, slow down")
			return
		}
		c.Next()
	}
}
