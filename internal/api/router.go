package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/bookandsign/auth-system/docs"
	"github.com/bookandsign/auth-system/internal/api/handler"
	"github.com/bookandsign/auth-system/internal/api/metrics"
	"github.com/bookandsign/auth-system/internal/api/middleware"
	"github.com/bookandsign/auth-system/internal/core/ports"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Auth     ports.AuthService
	Users    ports.UserService
	Verifier ports.TokenVerifier
	// Checks are the readiness probes, keyed by dependency name.
	Checks map[string]handler.Check
	Log    zerolog.Logger
	// Registerer receives the HTTP metrics. Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// PublicPaths are served without a bearer token.
var PublicPaths = []string{
	"/auth/signup",
	"/auth/login",
	"/auth/refresh",
	"/health",
	"/health/ready",
	"/metrics",
	"/swagger/*",
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  metrics.Namespace,
		Subsystem:  "http",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	// Requests without a registered method and path fall through to
	// echo's 404/405 handling.
	var routed map[string]struct{}
	e.Use(middleware.GuardWithConfig(middleware.GuardConfig{
		Skipper: func(c echo.Context) bool {
			_, ok := routed[c.Request().Method+" "+c.Path()]
			return !ok
		},
		Verifier:    d.Verifier,
		PublicPaths: PublicPaths,
	}))

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Auth)
	e.POST("/auth/signup", authHandler.Signup)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/refresh", authHandler.Refresh)
	e.POST("/auth/logout", authHandler.Logout)
	e.GET("/auth/me", authHandler.Me)

	// --- Users, scoped to the caller's tenant ---
	userHandler := handler.NewUserHandler(d.Users)
	users := e.Group("/tenants/:tenantId/users", middleware.TenantParam("tenantId"))
	users.GET("", userHandler.List)
	users.POST("", userHandler.Create)
	users.GET("/:id", userHandler.Get)
	users.PATCH("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Checks)

	e.GET("/health", healthHandler.Liveness)            // liveness: is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness: are dependencies up?

	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	routed = routeSet(e)
	return e
}

// routeSet indexes the registered routes by "METHOD path".
func routeSet(e *echo.Echo) map[string]struct{} {
	routes := e.Routes()
	set := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		set[r.Method+" "+r.Path] = struct{}{}
	}
	return set
}

// requestLogger emits one access log line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Str("request_id", v.RequestID).
				Int64("latency_ms", v.Latency.Milliseconds()).
				Msg("request")
			return nil
		},
	})
}
