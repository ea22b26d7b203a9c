package http

import (
	"github.com/gin-gonic/gin"

	"securequiz/internal/logging"
	"securequiz/internal/observability"
	"securequiz/internal/quiz/app"
)

const defaultMaxBodyBytes int64 = 1 << 20

// RouterConfig carries transport settings.
type RouterConfig struct {
	Environment    string
	AllowedOrigins []string
	LoginThrottle  LoginThrottleConfig
	MaxBodyBytes   int64
	// TrustedProxies lists the peers whose X-Forwarded-For and X-Real-IP
	// headers are honored. Empty means the connection address is the client.
	TrustedProxies []string
}

// RouterDeps carries the collaborators the router wires into handlers.
type RouterDeps struct {
	Service       *app.Service
	Metrics       *observability.MetricsCollector
	Tracer        *observability.TracerProvider
	Logger        logging.Logger
	LatencyLogger logging.Logger
}

// NewRouter creates the gin engine with every quiz and admin endpoint.
func NewRouter(deps RouterDeps, cfg RouterConfig) *gin.Engine {
	logger := deps.Logger
	if logging.IsNil(logger) {
		logger = logging.NewComponentLogger("Router")
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = false
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Warn("Ignoring invalid trusted proxies %v: %v", cfg.TrustedProxies, err)
		_ = engine.SetTrustedProxies(nil)
	}
	engine.Use(recoveryHandler(logger))
	engine.Use(requestContextMiddleware())
	engine.Use(observabilityMiddleware(deps.Metrics, deps.Tracer, deps.LatencyLogger))
	engine.Use(securityHeadersMiddleware())
	if corsHandler := corsMiddleware(cfg.Environment, cfg.AllowedOrigins, logger); corsHandler != nil {
		engine.Use(corsHandler)
	}
	engine.Use(bodyLimitMiddleware(maxBody))

	h := NewHandler(deps.Service, logger)

	engine.GET("/health", h.Health)
	if deps.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := engine.Group("/api")
	quiz := api.Group("/quiz")
	{
		quiz.GET("/questions", h.Questions)
		quiz.POST("/submit", h.Submit)
		quiz.POST("/session", h.SaveSession)
		quiz.GET("/session", h.GetSession)
	}

	api.POST("/admin/login", loginThrottleMiddleware(cfg.LoginThrottle, nil), h.Login)
	admin := api.Group("/admin", adminAuthMiddleware(deps.Service))
	{
		admin.POST("/reset", h.Reset)
		admin.GET("/analytics", h.Analytics)
		admin.GET("/submissions", h.Submissions)
		admin.GET("/submissions/:email/report", h.Report)
		admin.GET("/export", h.Export)
	}

	engine.NoRoute(h.NotFound)
	return engine
}
