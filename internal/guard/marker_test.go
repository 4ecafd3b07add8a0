package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/home-services/internal/model"
	"github.com/iliyamo/home-services/internal/utils"
)

func TestCookieSource(t *testing.T) {
	tm := utils.NewTokenManager("guard-secret", "home-services", time.Hour)
	good, err := tm.Issue(3, "bob@x.io", "worker")
	require.NoError(t, err)
	forged, err := utils.NewTokenManager("other", "home-services", time.Hour).Issue(3, "bob@x.io", "admin")
	require.NoError(t, err)

	req := func(value string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/worker-profile", nil)
		if value != "" {
			r.AddCookie(&http.Cookie{Name: CookieName, Value: value})
		}
		return r
	}

	assert.Equal(t, Marker{LoggedIn: true, Role: model.RoleWorker},
		CookieSource{Request: req(good.Token), Verifier: tm}.Marker())
	assert.Equal(t, Marker{}, CookieSource{Request: req(""), Verifier: tm}.Marker())
	assert.Equal(t, Marker{}, CookieSource{Request: req(forged.Token), Verifier: tm}.Marker())
	assert.Equal(t, Marker{}, CookieSource{Request: req("admin"), Verifier: tm}.Marker())
	assert.Equal(t, Marker{}, CookieSource{}.Marker())
}

func TestStorageSource(t *testing.T) {
	s := NewLocalStorage()
	src := StorageSource{Storage: s}
	assert.Equal(t, Marker{}, src.Marker())

	s.Set(KeyRole, "user")
	assert.Equal(t, Marker{}, src.Marker(), "role without isLoggedIn is anonymous")

	s.Set(KeyLoggedIn, "true")
	assert.Equal(t, Marker{LoggedIn: true, Role: model.RoleUser}, src.Marker())

	s.Set(KeyRole, "service_provider")
	assert.Equal(t, model.RoleWorker, src.Marker().Role)

	s.Set(KeyLoggedIn, "1")
	assert.False(t, src.Marker().LoggedIn)
	assert.Equal(t, Marker{}, StorageSource{}.Marker())
}
