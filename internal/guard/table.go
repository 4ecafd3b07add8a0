// Package guard decides, for a requested page path and the caller's login
// marker, whether to serve the page or redirect to the login screen.  The
// same Classify function backs the server middleware and the client-side
// Navigator; only the MarkerSource differs.
package guard

import (
	"net/url"
	"path"
	"strings"

	"github.com/iliyamo/home-services/internal/model"
)

// State is the outcome of classifying one navigation.
type State string

const (
	Public                 State = "PUBLIC"
	Unauthenticated        State = "UNAUTHENTICATED"
	AuthenticatedWrongRole State = "AUTHENTICATED_WRONG_ROLE"
	Authorized             State = "AUTHENTICATED_AUTHORIZED"
)

// LoginPath is where every denied navigation lands.
const LoginPath = "/login"

// Marker is what a guard knows about the caller.  Role is only meaningful
// when LoggedIn is true.
type Marker struct {
	LoggedIn bool
	Role     model.Role
}

// Decision says whether to proceed and, when not, where to go.
type Decision struct {
	State    State
	Redirect string // empty when Allowed
}

// Allowed reports whether the page may be served.
func (d Decision) Allowed() bool {
	return d.State == Public || d.State == Authorized
}

// Rule binds a path prefix to the role it requires.
type Rule struct {
	Prefix string
	Role   model.Role
}

// Table is the route classification data.  Exact and Prefixes are public;
// Rules are checked in order and the first match decides.
type Table struct {
	Exact    []string
	Prefixes []string
	Rules    []Rule
}

// DefaultTable returns the compiled-in classification of the web app.
func DefaultTable() Table {
	return Table{
		Exact: []string{"/", "/login", "/signup", "/about"},
		Prefixes: []string{
			"/_next", "/static", "/assets", "/favicon.ico",
			"/api", "/auth", "/healthz", "/metrics",
		},
		Rules: []Rule{
			{Prefix: "/admin", Role: model.RoleAdmin},
			{Prefix: "/search", Role: model.RoleUser},
			{Prefix: "/bookings", Role: model.RoleUser},
			{Prefix: "/booking", Role: model.RoleUser},
			{Prefix: "/payments", Role: model.RoleUser},
			{Prefix: "/favorites", Role: model.RoleUser},
			{Prefix: "/customer-profile", Role: model.RoleUser},
			{Prefix: "/worker-profile", Role: model.RoleWorker},
		},
	}
}

// Classify is total and pure: it never fails and anything it cannot place
// resolves to a redirect.  The target is reduced with CleanPath first, so
// "//admin" and "/static/../admin" are classified as "/admin".
func Classify(t Table, target string, m Marker) Decision {
	p := CleanPath(target)

	for _, exact := range t.Exact {
		if p == exact {
			return Decision{State: Public}
		}
	}
	for _, prefix := range t.Prefixes {
		if hasSegmentPrefix(p, prefix) {
			return Decision{State: Public}
		}
	}

	if !m.LoggedIn {
		return Decision{
			State:    Unauthenticated,
			Redirect: LoginPath + "?redirect=" + url.QueryEscape(p),
		}
	}

	role := model.ParseRole(string(m.Role))
	for _, r := range t.Rules {
		if !hasSegmentPrefix(p, r.Prefix) {
			continue
		}
		if role != r.Role {
			return Decision{State: AuthenticatedWrongRole, Redirect: LoginPath}
		}
		return Decision{State: Authorized}
	}
	return Decision{State: Authorized}
}

// hasSegmentPrefix matches prefix itself and anything below it, so "/admin"
// covers "/admin/users" but not "/administrator".
func hasSegmentPrefix(p, prefix string) bool {
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	return len(p) == len(prefix) || p[len(prefix)] == '/' || strings.HasSuffix(prefix, "/")
}

// CleanPath is the canonical form every guard decision and every served
// file is based on: query and fragment dropped, leading slash added, and
// "//", "." and ".." segments resolved.  Empty input is the root.
func CleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return path.Clean("/" + p)
}
