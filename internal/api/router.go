package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/vidhub/account-service/internal/api/handler"
	"github.com/vidhub/account-service/internal/api/middleware"
	"github.com/vidhub/account-service/internal/core/ports"

	_ "github.com/vidhub/account-service/docs"
)

// RouterConfig carries the transport settings read from configuration.
type RouterConfig struct {
	CORSOrigins   []string
	BodyLimit     string
	SecureCookies bool
	// Registry receives the HTTP metrics and backs GET /metrics.
	// Nil uses the Prometheus default registry.
	Registry *prometheus.Registry
}

// Dependencies are the collaborators wired into the router.
type Dependencies struct {
	Sessions     ports.SessionService
	Verifier     middleware.AccessVerifier
	Revoker      ports.TokenRevoker
	HealthChecks map[string]handler.HealthCheck
	Log          zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg RouterConfig, deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
	}))
	if cfg.BodyLimit != "" {
		e.Use(echomiddleware.BodyLimit(cfg.BodyLimit))
	}

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if cfg.Registry != nil {
		registerer, gatherer = cfg.Registry, cfg.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "accounts",
		Registerer: registerer,
	}))

	// --- Dependencies ---
	sessionHandler := handler.NewSessionHandler(deps.Sessions, cfg.SecureCookies)
	authMiddleware := middleware.Auth(deps.Verifier, deps.Revoker, deps.Log)

	// --- Account routes ---
	users := e.Group("/api/v1/users")
	users.POST("/register", sessionHandler.Register)
	users.POST("/login", sessionHandler.Login)
	users.POST("/refresh-token", sessionHandler.RefreshToken)
	users.POST("/logout", sessionHandler.Logout, authMiddleware)
	users.GET("/current-user", sessionHandler.CurrentUser, authMiddleware)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.HealthChecks)
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
