package middleware // reusable HTTP middleware for the echo server

import (
    "net/http" // HTTP status codes for responses
    "strings"  // prefix checking and trimming

    "github.com/labstack/echo/v4" // middleware and handler types

    "github.com/iliyamo/home-services/internal/utils" // token verification
)

// Context keys set by JWTAuth.
const (
    CtxClaims = "claims"  // *utils.Claims
    CtxUserID = "user_id" // string form of the sub claim
    CtxRole   = "role"    // role claim as issued
)

// Verifier is satisfied by *utils.TokenManager.
type Verifier interface {
    Verify(raw string) (*utils.Claims, error)
}

// BearerToken returns the raw token from an "Authorization: Bearer" header,
// or "" when the header is absent or uses another scheme.
func BearerToken(r *http.Request) string {
    auth := r.Header.Get("Authorization")
    if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
        return ""
    }
    return strings.TrimSpace(auth[7:])
}

// JWTAuth validates the Bearer access token and stores its claims in the
// context so handlers can read c.Get(CtxClaims), c.Get(CtxUserID) and
// c.Get(CtxRole).  Requests without a valid token get 401.
func JWTAuth(v Verifier) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := BearerToken(c.Request())
            if raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
            }
            claims, err := v.Verify(raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
            }
            c.Set(CtxClaims, claims)
            c.Set(CtxUserID, claims.Subject)
            c.Set(CtxRole, claims.Role)
            return next(c)
        }
    }
}

// ClaimsFrom returns the claims stored by JWTAuth, or nil.
func ClaimsFrom(c echo.Context) *utils.Claims {
    cl, _ := c.Get(CtxClaims).(*utils.Claims)
    return cl
}
