package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/home-services/internal/guard"
    "github.com/iliyamo/home-services/internal/middleware"
    "github.com/iliyamo/home-services/internal/model"
    "github.com/iliyamo/home-services/internal/service"
)

// AuthHandler bundles dependencies for the /auth endpoints.
type AuthHandler struct {
    Auth         *service.AuthService
    CookieSecure bool
    Timeout      time.Duration
}

func NewAuthHandler(auth *service.AuthService, cookieSecure bool) *AuthHandler {
    return &AuthHandler{Auth: auth, CookieSecure: cookieSecure, Timeout: 5 * time.Second}
}

// ----- DTOs -----

type registerReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
    Name     string `json:"name"`
    Phone    string `json:"phone"`
}

type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

func (h *AuthHandler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), h.Timeout)
}

// RegisterUser: POST /auth/register/user
func (h *AuthHandler) RegisterUser(c echo.Context) error {
    return h.register(c, model.KindUser)
}

// RegisterWorker: POST /auth/register/worker
func (h *AuthHandler) RegisterWorker(c echo.Context) error {
    return h.register(c, model.KindWorker)
}

func (h *AuthHandler) register(c echo.Context, kind model.Kind) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := h.ctx(c)
    defer cancel()

    p, err := h.Auth.Register(ctx, kind, service.RegisterInput{
        Email:    req.Email,
        Password: req.Password,
        Name:     req.Name,
        Phone:    req.Phone,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, p)
}

// Login: POST /auth/login.  Besides the JSON body the token is set as the
// HttpOnly auth_token cookie read by the page guard.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := h.ctx(c)
    defer cancel()

    res, err := h.Auth.Login(ctx, req.Email, req.Password)
    if err != nil {
        return writeError(c, err)
    }
    c.SetCookie(&http.Cookie{
        Name:     guard.CookieName,
        Value:    res.Token,
        Path:     "/",
        Expires:  res.ExpiresAt,
        MaxAge:   int(time.Until(res.ExpiresAt).Seconds()),
        HttpOnly: true,
        Secure:   h.CookieSecure,
        SameSite: http.SameSiteLaxMode,
    })
    return c.JSON(http.StatusOK, res)
}

// Profile: GET /auth/profile
func (h *AuthHandler) Profile(c echo.Context) error {
    ctx, cancel := h.ctx(c)
    defer cancel()

    res, err := h.Auth.GetProfile(ctx, middleware.BearerToken(c.Request()))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, res)
}

// UpdateProfile: PUT /auth/profile.  Only user-role tokens may write.  The
// claims come from JWTAuth when the route is wrapped by it.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
    claims := middleware.ClaimsFrom(c)
    if claims == nil {
        var err error
        if claims, err = h.Auth.Authenticate(middleware.BearerToken(c.Request())); err != nil {
            return writeError(c, err)
        }
    }
    if model.ParseRole(claims.Role) != model.RoleUser {
        return writeError(c, service.ErrForbidden)
    }
    id, err := claims.PrincipalID()
    if err != nil {
        return writeError(c, service.ErrInvalidToken)
    }

    var patch model.ProfilePatch
    if err := c.Bind(&patch); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := h.ctx(c)
    defer cancel()

    p, err := h.Auth.UpdateProfile(ctx, id, patch)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, p)
}

// Logout: POST /auth/logout clears the guard cookie.  Bearer tokens stay
// valid until they expire.
func (h *AuthHandler) Logout(c echo.Context) error {
    c.SetCookie(&http.Cookie{
        Name:     guard.CookieName,
        Value:    "",
        Path:     "/",
        Expires:  time.Unix(0, 0),
        MaxAge:   -1,
        HttpOnly: true,
        Secure:   h.CookieSecure,
        SameSite: http.SameSiteLaxMode,
    })
    return c.NoContent(http.StatusNoContent)
}

// writeError maps service errors to HTTP statuses.  Anything unrecognized is
// logged and answered with a generic 500.
func writeError(c echo.Context, err error) error {
    var verr *service.ValidationError
    switch {
    case errors.As(err, &verr):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Message, "field": verr.Field})
    case errors.Is(err, service.ErrDuplicateEmail), errors.Is(err, service.ErrUnknownKind):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, service.ErrInvalidCredentials),
        errors.Is(err, service.ErrMissingToken),
        errors.Is(err, service.ErrInvalidToken),
        errors.Is(err, service.ErrUnsupportedRole):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
    case errors.Is(err, service.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
    case errors.Is(err, context.DeadlineExceeded):
        c.Logger().Warnf("%s %s: %v", c.Request().Method, c.Path(), err)
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "request timed out"})
    default:
        c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": strings.ToLower(http.StatusText(http.StatusInternalServerError))})
    }
}
