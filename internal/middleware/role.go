package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/home-services/internal/model"
)

// RequireRole lets the request through only when the role stored by JWTAuth
// is one of roles; otherwise it answers 403 with message.  Role aliases are
// normalized with model.ParseRole before comparing.
func RequireRole(message string, roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    if message == "" {
        message = "forbidden"
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, ok := c.Get(CtxRole).(string)
            if !ok || !allowed[model.ParseRole(role)] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": message})
            }
            return next(c)
        }
    }
}
