package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/opsdesk/console-access/docs"
	"github.com/opsdesk/console-access/internal/api/handler"
	"github.com/opsdesk/console-access/internal/api/middleware"
	"github.com/opsdesk/console-access/internal/core/domain"
	"github.com/opsdesk/console-access/internal/core/ports"
)

// Dependencies are the services and settings the router wires into handlers.
type Dependencies struct {
	Auth          ports.AuthService
	Accounts      ports.AccountService
	Collaborators ports.CollaboratorService
	Checks        map[string]handler.Check
	Cookie        handler.CookieConfig
	Logger        zerolog.Logger

	// Registerer receives the HTTP request metrics. Defaults to the
	// Prometheus default registerer.
	Registerer prometheus.Registerer
}

// NewRouter builds the Echo instance with every route behind the gate.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	reg := deps.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "console_access",
		Registerer: reg,
	}))
	e.Use(middleware.Gate(middleware.GateConfig{
		Resolver:       deps.Auth,
		Logger:         deps.Logger,
		PublicRoutes:   middleware.DefaultPublicRoutes,
		PublicPrefixes: []string{"/swagger/"},
		CookieName:     deps.Cookie.Name,
	}))

	authHandler := handler.NewAuthHandler(deps.Auth, deps.Collaborators, deps.Cookie)
	collaboratorHandler := handler.NewCollaboratorHandler(deps.Collaborators)
	accountHandler := handler.NewAccountHandler(deps.Accounts)
	healthHandler := handler.NewHealthHandler(deps.Checks)

	// --- Public ---
	e.GET("/login", authHandler.LoginPage)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.GET("/verify", authHandler.Verify)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", authHandler.Me)

	collaborators := v1.Group("/collaborators")
	collaborators.GET("", collaboratorHandler.List)
	collaborators.GET("/:id", collaboratorHandler.Get)

	accounts := v1.Group("/accounts", middleware.RBAC(domain.RoleAdmin))
	accounts.GET("", accountHandler.List)
	accounts.POST("", accountHandler.Create)
	accounts.POST("/password-migration", accountHandler.MigratePasswords)
	accounts.GET("/:id", accountHandler.Get)
	accounts.PATCH("/:id", accountHandler.Update)
	accounts.DELETE("/:id", accountHandler.Delete)

	return e
}

// NewMetricsServer serves /metrics on its own listener.
func NewMetricsServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echoprometheus.NewHandler())
	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= 500 {
				ev = log.Error().Err(v.Error)
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
