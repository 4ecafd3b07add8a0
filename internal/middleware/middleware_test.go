package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/home-services/internal/guard"
    "github.com/iliyamo/home-services/internal/metrics"
    "github.com/iliyamo/home-services/internal/model"
    "github.com/iliyamo/home-services/internal/utils"
)

func newTokens() *utils.TokenManager {
    return utils.NewTokenManager("mw-secret", "home-services", time.Hour)
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestBearerToken(t *testing.T) {
    cases := map[string]string{
        "":               "",
        "Bearer abc":     "abc",
        "bearer  abc ":   "abc",
        "Basic Zm9vOmJh": "",
        "Bearer":         "",
    }
    for header, want := range cases {
        r := httptest.NewRequest(http.MethodGet, "/", nil)
        if header != "" {
            r.Header.Set("Authorization", header)
        }
        assert.Equal(t, want, BearerToken(r), "header %q", header)
    }
}

func TestJWTAuth(t *testing.T) {
    tm := newTokens()
    e := echo.New()
    e.GET("/p", func(c echo.Context) error {
        cl := ClaimsFrom(c)
        require.NotNil(t, cl)
        return c.JSON(http.StatusOK, echo.Map{"sub": c.Get(CtxUserID), "role": c.Get(CtxRole)})
    }, JWTAuth(tm))

    access, err := tm.Issue(5, "alice@x.io", "user")
    require.NoError(t, err)

    do := func(header string) *httptest.ResponseRecorder {
        req := httptest.NewRequest(http.MethodGet, "/p", nil)
        if header != "" {
            req.Header.Set("Authorization", header)
        }
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        return rec
    }

    rec := do("Bearer " + access.Token)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"sub":"5","role":"user"}`, rec.Body.String())

    rec = do("")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.JSONEq(t, `{"error":"missing token"}`, rec.Body.String())

    rec = do("Bearer nope")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.JSONEq(t, `{"error":"invalid or expired token"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
    tm := newTokens()
    e := echo.New()
    e.GET("/w", ok, JWTAuth(tm), RequireRole("workers only", model.RoleWorker))

    for role, want := range map[string]int{
        "worker":           http.StatusOK,
        "service_provider": http.StatusOK,
        "user":             http.StatusForbidden,
        "admin":            http.StatusForbidden,
    } {
        access, err := tm.Issue(1, "x@x.io", role)
        require.NoError(t, err)
        req := httptest.NewRequest(http.MethodGet, "/w", nil)
        req.Header.Set("Authorization", "Bearer "+access.Token)
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        assert.Equal(t, want, rec.Code, role)
        if want == http.StatusForbidden {
            assert.JSONEq(t, `{"error":"workers only"}`, rec.Body.String())
        }
    }
}

func TestPageGuard(t *testing.T) {
    tm := newTokens()
    m := metrics.New("test", prometheus.NewRegistry())
    e := echo.New()
    e.Use(PageGuard(guard.DefaultTable(), tm, m))
    e.GET("/*", ok)

    userTok, err := tm.Issue(1, "alice@x.io", "user")
    require.NoError(t, err)
    forged, err := utils.NewTokenManager("other", "home-services", time.Hour).Issue(1, "eve@x.io", "admin")
    require.NoError(t, err)

    cases := []struct {
        path     string
        cookie   string
        code     int
        location string
    }{
        {"/", "", http.StatusOK, ""},
        {"/static/app.css", "", http.StatusOK, ""},
        {"/bookings", "", http.StatusFound, "/login?redirect=%2Fbookings"},
        {"/bookings", userTok.Token, http.StatusOK, ""},
        {"/admin/users", userTok.Token, http.StatusFound, "/login"},
        {"/admin/users", forged.Token, http.StatusFound, "/login?redirect=%2Fadmin%2Fusers"},
        {"/worker-profile", userTok.Token, http.StatusFound, "/login"},
        {"/static/../admin/users", "", http.StatusFound, "/login?redirect=%2Fadmin%2Fusers"},
        {"//admin/users", userTok.Token, http.StatusFound, "/login"},
    }
    for _, tc := range cases {
        req := httptest.NewRequest(http.MethodGet, tc.path, nil)
        if tc.cookie != "" {
            req.AddCookie(&http.Cookie{Name: guard.CookieName, Value: tc.cookie})
        }
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        assert.Equal(t, tc.code, rec.Code, tc.path)
        assert.Equal(t, tc.location, rec.Header().Get("Location"), tc.path)
    }
}
