package router

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/home-services/internal/guard"
	"github.com/iliyamo/home-services/internal/handler"
	"github.com/iliyamo/home-services/internal/metrics"
	"github.com/iliyamo/home-services/internal/repository"
	"github.com/iliyamo/home-services/internal/service"
	"github.com/iliyamo/home-services/internal/utils"
)

func newApp(t *testing.T) (*echo.Echo, *service.AuthService) {
	t.Helper()
	store, err := repository.OpenFileStore(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	m := metrics.New("test", prometheus.NewRegistry())
	svc := service.NewAuthService(store,
		utils.NewHasher(bcrypt.MinCost),
		utils.NewTokenManager("router-secret", "home-services", time.Hour),
		service.Options{Metrics: m},
	)
	pages := &handler.Pages{FS: fstest.MapFS{
		"index.html":       {Data: []byte("shell")},
		"admin/index.html": {Data: []byte("admin console")},
	}}

	e := echo.New()
	RegisterRoutes(e, m)
	RegisterAuth(e, handler.NewAuthHandler(svc, false), AuthLimits{})
	RegisterPages(e, pages.Serve, svc.Tokens(), m)
	return e, svc
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestOperationalRoutes(t *testing.T) {
	e, _ := newApp(t)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	serve(e, httptest.NewRequest(http.MethodGet, "/bookings", nil))
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_auth_guard_decisions_total{state="UNAUTHENTICATED"} 1`)
}

func TestUpdateProfile_RoleEnforcedByMiddleware(t *testing.T) {
	e, svc := newApp(t)
	worker, err := svc.Tokens().Issue(1, "bob@x.io", "worker")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/auth/profile", strings.NewReader(`{"city":"Pune"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+worker.Token)
	rec := serve(e, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"only users can update profile"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPut, "/auth/profile", strings.NewReader(`{}`))
	rec = serve(e, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPagesBehindGuard(t *testing.T) {
	e, svc := newApp(t)
	admin, err := svc.Tokens().Issue(1, "root@x.io", "admin")
	require.NoError(t, err)

	page := func(path, cookie string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: guard.CookieName, Value: cookie})
		}
		return serve(e, req)
	}

	rec := page("/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shell", rec.Body.String())

	rec = page("/admin/reports", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?redirect=%2Fadmin%2Freports", rec.Header().Get("Location"))

	rec = page("/admin/reports", admin.Token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = page("/admin/", admin.Token)
	assert.Equal(t, "admin console", rec.Body.String())

	rec = page("/search", admin.Token)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = serve(e, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code, "API routes are not guarded")
}

func TestPagesBehindGuard_DotSegmentsAndDoubleSlashes(t *testing.T) {
	e, svc := newApp(t)
	user, err := svc.Tokens().Issue(1, "alice@x.io", "user")
	require.NoError(t, err)

	cases := []struct {
		path     string
		cookie   string
		location string
	}{
		{"/static/../admin/", "", "/login?redirect=%2Fadmin"},
		{"/api/../admin/", "", "/login?redirect=%2Fadmin"},
		{"/auth/../admin/", "", "/login?redirect=%2Fadmin"},
		{"//admin/", user.Token, "/login"},
		{"/static/../admin/", user.Token, "/login"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.cookie != "" {
			req.AddCookie(&http.Cookie{Name: guard.CookieName, Value: tc.cookie})
		}
		rec := serve(e, req)
		assert.Equal(t, http.StatusFound, rec.Code, tc.path)
		assert.Equal(t, tc.location, rec.Header().Get("Location"), tc.path)
		assert.NotContains(t, rec.Body.String(), "admin console", tc.path)
	}
}

func TestRegisterAuth_LimitsApplyPerBucket(t *testing.T) {
	store, err := repository.OpenFileStore(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	svc := service.NewAuthService(store,
		utils.NewHasher(bcrypt.MinCost),
		utils.NewTokenManager("router-secret", "home-services", time.Hour),
		service.Options{},
	)
	refuse := func(name string) echo.MiddlewareFunc {
		return func(echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return c.String(http.StatusTooManyRequests, name)
			}
		}
	}
	e := echo.New()
	RegisterAuth(e, handler.NewAuthHandler(svc, false), AuthLimits{Login: refuse("login"), Register: refuse("register")})

	cases := map[string]string{
		"/auth/login":           "login",
		"/auth/register/user":   "register",
		"/auth/register/worker": "register",
	}
	for path, bucket := range cases {
		rec := serve(e, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code, path)
		assert.Equal(t, bucket, rec.Body.String(), path)
	}

	rec := serve(e, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code, "logout is never limited")
}
