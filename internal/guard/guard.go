// Package guard intercepts every navigation and decides allow or
// reroute-to-login. Classification is stateless; auth state is derived
// fresh from the session on each check.
package guard

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/text/cases"

	"github.com/shikshaspace/gateway/internal/observability"
	"github.com/shikshaspace/gateway/internal/shared"
)

// Decision is the outcome of a navigation check.
type Decision int

const (
	// Allow lets the navigation proceed.
	Allow Decision = iota
	// RedirectLogin reroutes the caller to the login route.
	RedirectLogin
)

// LoginPath is the reroute target for denied navigations.
const LoginPath = "/login"

// Guard classifies routes as public or protected.
type Guard struct {
	// Metrics, when set, counts denied navigations.
	Metrics *observability.Metrics

	logger *slog.Logger
	public []string
	folder cases.Caser
}

// New constructs a Guard from the public route set. Entries are
// normalized once up front so matching stays cheap per navigation.
func New(logger *slog.Logger, publicRoutes []string) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Guard{logger: logger, folder: cases.Fold()}
	for _, route := range publicRoutes {
		if normalized := g.normalize(route); normalized != "" {
			g.public = append(g.public, normalized)
		}
	}
	return g
}

// Check applies the transition rules for one navigation attempt. It
// never fails: missing or inconsistent session state counts as
// unauthenticated and yields RedirectLogin, not an error.
func (g *Guard) Check(path string, authenticated bool) Decision {
	route := g.normalize(path)

	// Root route: authenticated users only.
	if route == "" {
		if authenticated {
			return Allow
		}
		return RedirectLogin
	}

	if g.isPublic(route) {
		return Allow
	}

	if authenticated {
		return Allow
	}
	return RedirectLogin
}

// Middleware enforces the check before the target handler runs, for
// every request including the initial load. It reads only the session
// already loaded into the request context; no remote call is made.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if g.Check(r.URL.Path, sess.Authenticated()) == RedirectLogin {
			g.logger.Debug("navigation denied", slog.String("path", r.URL.Path))
			g.Metrics.CountGuardRedirect()
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isPublic reports whether route equals a public entry or is a strict
// sub-path of one (prefix match with a separator boundary).
func (g *Guard) isPublic(route string) bool {
	for _, public := range g.public {
		if route == public || strings.HasPrefix(route, public+"/") {
			return true
		}
	}
	return false
}

// normalize case-folds the path and strips repeated, leading and
// trailing separators, so "/Login/" and "login" classify identically.
func (g *Guard) normalize(path string) string {
	folded := g.folder.String(path)
	parts := strings.FieldsFunc(folded, func(r rune) bool { return r == '/' })
	return strings.Join(parts, "/")
}
