// Package gateway is the edge in front of the courses and users services.
// It forwards /api/courses and /api/users, applies CORS and throttles each
// client with a Redis token bucket.
package gateway

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/academy/internal/config"
	"github.com/smallbiznis/academy/internal/observability"
	obsmiddleware "github.com/smallbiznis/academy/internal/observability/logger"
	obstracing "github.com/smallbiznis/academy/internal/observability/tracing"
	"github.com/smallbiznis/academy/internal/ratelimit"
	"github.com/smallbiznis/academy/pkg/log/ctxlogger"
	"go.uber.org/zap"
)

const (
	coursesPrefix = "/api/courses"
	usersPrefix   = "/api/users"

	headerUserID    = "X-User-Id"
	headerRequestID = "X-Request-Id"
)

// Limiter decides whether a client may send another request.
type Limiter interface {
	Allow(ctx context.Context, clientKey string) (*ratelimit.Result, error)
}

type route struct {
	prefix string
	proxy  *httputil.ReverseProxy
}

type Gateway struct {
	routes  []route
	limiter Limiter
	log     *zap.Logger
}

func New(cfg config.Config, limiter Limiter, log *zap.Logger) (*Gateway, error) {
	g := &Gateway{limiter: limiter, log: log.Named("gateway")}

	for _, upstream := range []struct{ prefix, target string }{
		{coursesPrefix, cfg.Gateway.CoursesURL},
		{usersPrefix, cfg.Gateway.UsersURL},
	} {
		target, err := url.Parse(strings.TrimSpace(upstream.target))
		if err != nil || target.Host == "" {
			return nil, fmt.Errorf("invalid upstream for %s: %q", upstream.prefix, upstream.target)
		}
		g.routes = append(g.routes, route{prefix: upstream.prefix, proxy: g.newProxy(target)})
	}
	return g, nil
}

// Engine builds the gin engine serving the gateway.
func (g *Gateway) Engine(obsCfg observability.Config, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{Debug: obsCfg.Debug()}))
	r.Use(obstracing.GinMiddleware())
	r.Use(cors.New(corsConfig(allowedOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.NoRoute(g.RateLimit(), g.Forward)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", headerUserID}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}
	cfg.ExposeHeaders = []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	return cfg
}

// RateLimit rejects clients that exhausted their bucket with 429. A limiter
// failure lets the request through.
func (g *Gateway) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.limiter == nil {
			c.Next()
			return
		}

		res, err := g.limiter.Allow(c.Request.Context(), clientKey(c))
		if err != nil {
			ctxlogger.WithContext(c.Request.Context(), g.log).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(res.RetryAfter)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"type": "rate_limited", "message": "too many requests"},
			})
			return
		}
		c.Next()
	}
}

// Forward proxies the request to the service owning its path prefix.
func (g *Gateway) Forward(c *gin.Context) {
	path := c.Request.URL.Path
	for _, rt := range g.routes {
		if path == rt.prefix || strings.HasPrefix(path, rt.prefix+"/") {
			if requestID := obsmiddleware.RequestIDFromContext(c.Request.Context()); requestID != "" {
				c.Request.Header.Set(headerRequestID, requestID)
			}
			rt.proxy.ServeHTTP(c.Writer, c.Request)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{
		"error": gin.H{"type": "not_found", "message": "not found"},
	})
}

func (g *Gateway) newProxy(target *url.URL) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		ctxlogger.WithContext(r.Context(), g.log).Error("upstream request failed",
			zap.String("upstream", target.Host),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"type":"bad_gateway","message":"upstream unavailable"}}`))
	}
	return proxy
}

func clientKey(c *gin.Context) string {
	if userID := strings.TrimSpace(c.GetHeader(headerUserID)); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

func retryAfterSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
