package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/shikshaspace/gateway/internal/auth"
	"github.com/shikshaspace/gateway/internal/guard"
	"github.com/shikshaspace/gateway/internal/oauth"
	"github.com/shikshaspace/gateway/internal/observability"
	"github.com/shikshaspace/gateway/internal/shared"
	"github.com/shikshaspace/gateway/internal/users"
	"github.com/shikshaspace/gateway/internal/view"
	"github.com/shikshaspace/gateway/jobs"
	"github.com/shikshaspace/gateway/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guard          *guard.Guard
	AuthHandler    *auth.Handler
	OAuthHandler   *oauth.Handler
	UsersHandler   *users.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with gateway defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	// Every navigation below passes the guard, including the initial load.
	r.Group(func(r chi.Router) {
		r.Use(params.Guard.Middleware)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			principal, _ := sess.Principal()
			csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
			var flash *shared.FlashMessage
			if sess != nil {
				flash = sess.PopFlash()
			}
			data := view.TemplateData{
				Title:         "Home",
				CSRFToken:     csrfToken,
				Flash:         flash,
				CurrentPath:   r.URL.Path,
				Authenticated: sess.Authenticated(),
				Data: map[string]any{
					"Username": principal.Username,
				},
			}
			if err := params.Templates.Render(w, "pages/home.html", data); err != nil {
				params.Logger.Error("render home", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		})

		r.Get("/about", staticPage(params, "pages/about.html", "About"))
		r.Get("/explore", staticPage(params, "pages/explore.html", "Explore"))

		params.AuthHandler.MountRoutes(r)
		params.UsersHandler.MountRoutes(r)
		r.Post("/oauth2/google", params.OAuthHandler.HandleGoogleSignIn)
	})

	return r
}

func staticPage(params RouterParams, page, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		var flash *shared.FlashMessage
		if sess != nil {
			flash = sess.PopFlash()
		}
		data := view.TemplateData{
			Title:         title,
			CSRFToken:     csrfToken,
			Flash:         flash,
			CurrentPath:   r.URL.Path,
			Authenticated: sess.Authenticated(),
		}
		if err := params.Templates.Render(w, page, data); err != nil {
			params.Logger.Error("render "+page, slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
