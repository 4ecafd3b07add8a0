package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // the Echo web framework handles routing

	"github.com/iliyamo/home-services/internal/guard"      // route classification table
	"github.com/iliyamo/home-services/internal/handler"    // endpoint handlers
	"github.com/iliyamo/home-services/internal/metrics"    // Prometheus collectors
	"github.com/iliyamo/home-services/internal/middleware" // JWT, role, guard and rate-limit middleware
	"github.com/iliyamo/home-services/internal/model"
	"github.com/iliyamo/home-services/internal/service"
)

// RegisterRoutes registers the operational endpoints: the health check and
// the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
}

// AuthLimits are the rate limiters for credential submissions.  Nil
// entries apply no limit.
type AuthLimits struct {
	Login    echo.MiddlewareFunc
	Register echo.MiddlewareFunc
}

// RegisterAuth registers the /auth endpoints.  Registration, login and
// logout need no session; PUT /auth/profile goes through JWTAuth and the
// user-role check.  GET /auth/profile verifies the Bearer token itself so
// its failures keep the service's error messages.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limits AuthLimits) {
	g := e.Group("/auth")
	g.POST("/register/user", a.RegisterUser, only(limits.Register)...)
	g.POST("/register/worker", a.RegisterWorker, only(limits.Register)...)
	g.POST("/login", a.Login, only(limits.Login)...)
	g.POST("/logout", a.Logout)
	g.GET("/profile", a.Profile)
	g.PUT("/profile", a.UpdateProfile,
		middleware.JWTAuth(a.Auth.Tokens()),
		middleware.RequireRole(service.ErrForbidden.Error(), model.RoleUser),
	)
}

func only(mw echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if mw == nil {
		return nil
	}
	return []echo.MiddlewareFunc{mw}
}

// RegisterPages serves the web app behind the page guard.  Routes
// registered before this call (/auth, /healthz, /metrics) take precedence
// over the catch-all.
func RegisterPages(e *echo.Echo, pages echo.HandlerFunc, v middleware.Verifier, m *metrics.Metrics) {
	e.GET("/*", pages, middleware.PageGuard(guard.DefaultTable(), v, m))
}
