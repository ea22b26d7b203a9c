package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"securequiz/internal/logging"
	"securequiz/internal/observability"
	"securequiz/internal/quiz/app"
	"securequiz/internal/utils/id"
)

const (
	logIDHeader  = "X-Log-ID"
	adminUserKey = "adminUser"
)

// requestContextMiddleware attaches a log id to the request context and echoes
// it in the response.
func requestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if incoming := strings.TrimSpace(c.GetHeader(logIDHeader)); incoming != "" && len(incoming) <= 64 {
			ctx = id.WithLogID(ctx, incoming)
		}
		ctx, logID := id.EnsureLogID(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Header(logIDHeader, logID)
		c.Next()
	}
}

// securityHeadersMiddleware sets the response hardening headers.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
			h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		}
		c.Next()
	}
}

// corsMiddleware allows the configured origins. Outside production every
// origin is allowed when none are configured. It returns nil when CORS stays
// disabled.
func corsMiddleware(environment string, allowedOrigins []string, logger logging.Logger) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With", logIDHeader}
	cfg.ExposeHeaders = []string{logIDHeader, "Retry-After", "Content-Disposition"}
	cfg.MaxAge = 12 * time.Hour

	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			origins = append(origins, origin)
		}
	}
	isProduction := strings.EqualFold(strings.TrimSpace(environment), "production")
	switch {
	case len(origins) > 0:
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	case !isProduction:
		cfg.AllowAllOrigins = true
	default:
		logger.Warn("CORS disabled: no allowed origins configured for production")
		return nil
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("CORS disabled: %v", err)
		return nil
	}
	return cors.New(cfg)
}

// bodyLimitMiddleware caps request bodies at limit bytes.
func bodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// observabilityMiddleware wraps each request in a span and records request
// metrics plus an optional latency line.
func observabilityMiddleware(metrics *observability.MetricsCollector, tracer *observability.TracerProvider, latencyLogger logging.Logger) gin.HandlerFunc {
	hasLatencyLogger := !logging.IsNil(latencyLogger)
	return func(c *gin.Context) {
		start := time.Now()
		ctx, span := tracer.StartSpan(c.Request.Context(), observability.SpanHTTPServer,
			attribute.String("http.method", c.Request.Method),
		)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)
		span.SetAttributes(
			attribute.String(observability.AttrHTTPRoute, route),
			attribute.Int(observability.AttrHTTPStatus, status),
		)
		var spanErr error
		if len(c.Errors) > 0 {
			spanErr = c.Errors.Last()
		}
		observability.EndSpan(span, spanErr)
		metrics.RecordHTTPRequest(c.Request.Method, route, status, latency)
		if hasLatencyLogger {
			logging.FromContext(c.Request.Context(), latencyLogger).Info(
				"route=%s method=%s status=%d latency_ms=%.2f bytes=%d",
				route,
				c.Request.Method,
				status,
				float64(latency.Microseconds())/1000.0,
				c.Writer.Size(),
			)
		}
	}
}

// adminAuthMiddleware requires a bearer token carrying the admin claim.
func adminAuthMiddleware(svc *app.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			abortWithMessage(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		claims, err := svc.VerifyAdmin(c.Request.Context(), token)
		if err != nil {
			abortWithMessage(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		c.Set(adminUserKey, claims.Username)
		c.Request = c.Request.WithContext(id.WithAdmin(c.Request.Context(), claims.Username))
		c.Next()
	}
}

func extractBearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func recoveryHandler(logger logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.FromContext(c.Request.Context(), logger).Error("Panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		abortWithMessage(c, http.StatusInternalServerError, msgInternal)
	})
}
