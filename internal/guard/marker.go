package guard

import (
	"net/http"

	"github.com/iliyamo/home-services/internal/model"
	"github.com/iliyamo/home-services/internal/utils"
)

// CookieName carries the session JWT for page navigations.
const CookieName = "auth_token"

// Client-side storage keys.
const (
	KeyLoggedIn = "isLoggedIn"
	KeyRole     = "role"
)

// MarkerSource reads the caller's login marker.
type MarkerSource interface {
	Marker() Marker
}

// TokenVerifier is satisfied by *utils.TokenManager.
type TokenVerifier interface {
	Verify(raw string) (*utils.Claims, error)
}

// CookieSource reads the marker from a request's auth_token cookie.  The
// role comes from the verified claims; an unverifiable cookie is treated as
// no cookie.
type CookieSource struct {
	Request  *http.Request
	Verifier TokenVerifier
}

func (s CookieSource) Marker() Marker {
	if s.Request == nil || s.Verifier == nil {
		return Marker{}
	}
	c, err := s.Request.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return Marker{}
	}
	claims, err := s.Verifier.Verify(c.Value)
	if err != nil {
		return Marker{}
	}
	return Marker{LoggedIn: true, Role: model.ParseRole(claims.Role)}
}

// StorageSource reads the marker from client storage.  Only the literal
// "true" counts as logged in.
type StorageSource struct {
	Storage *LocalStorage
}

func (s StorageSource) Marker() Marker {
	if s.Storage == nil {
		return Marker{}
	}
	v, _ := s.Storage.Get(KeyLoggedIn)
	if v != "true" {
		return Marker{}
	}
	role, _ := s.Storage.Get(KeyRole)
	return Marker{LoggedIn: true, Role: model.ParseRole(role)}
}
