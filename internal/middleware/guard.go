package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/home-services/internal/guard"
    "github.com/iliyamo/home-services/internal/metrics"
)

// PageGuard classifies every page navigation against table using the
// verified auth_token cookie and redirects denied requests with 302.
func PageGuard(table guard.Table, v Verifier, m *metrics.Metrics) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            src := guard.CookieSource{Request: req, Verifier: v}
            d := guard.Classify(table, req.URL.Path, src.Marker())
            m.GuardDecision(string(d.State))
            if d.Allowed() {
                return next(c)
            }
            c.Logger().Debugf("[guard] %s %s -> %s", d.State, req.URL.Path, d.Redirect)
            return c.Redirect(http.StatusFound, d.Redirect)
        }
    }
}
