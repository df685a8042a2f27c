// Package auth serves the login, register, logout and token refresh
// flows against the remote identity service.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/shikshaspace/gateway/internal/identity"
	"github.com/shikshaspace/gateway/internal/observability"
	"github.com/shikshaspace/gateway/internal/shared"
	"github.com/shikshaspace/gateway/internal/view"
)

// IdentityClient is the slice of the identity client these flows need.
type IdentityClient interface {
	Login(ctx context.Context, req identity.LoginRequest) (*identity.AuthResult, error)
	Register(ctx context.Context, req identity.RegisterRequest) (*identity.AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*identity.AuthResult, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	client         IdentityClient
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	metrics        *observability.Metrics
	googleClientID string
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, client IdentityClient, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, metrics *observability.Metrics, googleClientID string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		client:         client,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		metrics:        metrics,
		googleClientID: googleClientID,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router. The
// credential-bearing endpoints carry a tighter rate limit than the
// global one.
func (h *Handler) MountRoutes(r chi.Router) {
	credentialLimit := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	r.Get("/login", h.showLogin)
	r.With(credentialLimit).Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.With(credentialLimit).Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
	r.Post("/auth/refresh", h.handleRefresh)
}

type loginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type registerForm struct {
	FirstName       string `validate:"required"`
	LastName        string
	Username        string `validate:"required,min=3"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=8"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

type registerPageData struct {
	Form   registerForm
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "pages/login.html", "Sign in", loginPageData{}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := loginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	formErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fieldErr := range fieldErrors {
				formErrors[fieldErr.Field()] = "This field is required"
			}
		}
	}

	if len(formErrors) == 0 {
		result, err := h.client.Login(r.Context(), identity.LoginRequest{
			Username: form.Username,
			Password: form.Password,
		})
		if err != nil {
			h.metrics.CountSignIn("password", false)
			formErrors["general"] = loginFailureMessage(err)
		} else {
			h.metrics.CountSignIn("password", true)
			h.establishSession(sess, result, "")
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}

	h.renderPage(w, r, "pages/login.html", "Sign in", loginPageData{Form: form, Errors: formErrors}, http.StatusBadRequest)
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "pages/register.html", "Create account", registerPageData{}, http.StatusOK)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := registerForm{
		FirstName:       r.PostFormValue("first_name"),
		LastName:        r.PostFormValue("last_name"),
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	formErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fieldErr := range fieldErrors {
				formErrors[fieldErr.Field()] = registerFieldMessage(fieldErr)
			}
		}
	}

	if len(formErrors) == 0 {
		result, err := h.client.Register(r.Context(), identity.RegisterRequest{
			FirstName: form.FirstName,
			LastName:  form.LastName,
			Username:  form.Username,
			Email:     form.Email,
			Password:  form.Password,
		})
		if err != nil {
			formErrors["general"] = registerFailureMessage(err)
		} else {
			h.establishSession(sess, result, form.Email)
			if sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome to ShikshaSpace"})
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}

	h.renderPage(w, r, "pages/register.html", "Create account", registerPageData{Form: form, Errors: formErrors}, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		principal, _ := sess.Principal()
		h.logger.Info("logout", slog.String("username", principal.Username))
		sess.ClearPrincipal()
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleRefresh swaps the session's refresh token for a fresh pair. It
// is only ever invoked explicitly; nothing triggers it on expiry.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	principal, ok := sess.Principal()
	if !ok || principal.RefreshToken == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	result, err := h.client.RefreshToken(r.Context(), principal.RefreshToken)
	if err != nil {
		h.logger.Warn("token refresh failed", slog.Any("error", err))
		if errors.Is(err, identity.ErrUnauthorized) {
			// Refresh token expired; the session's authorization is stale.
			sess.ClearPrincipal()
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "Could not refresh your session, check your connection"})
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.establishSession(sess, result, principal.Email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// establishSession writes the AuthResult into the session as one
// Principal replacement; tokens and identity land atomically.
func (h *Handler) establishSession(sess *shared.Session, result *identity.AuthResult, email string) {
	if sess == nil {
		h.logger.Error("session missing while establishing principal")
		return
	}
	sess.SetPrincipal(shared.Principal{
		Username:     result.Username,
		UserID:       result.UserID,
		Email:        email,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, page, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken := ""
	if h.csrfManager != nil {
		csrfToken, _ = h.csrfManager.EnsureToken(r.Context(), sess)
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	viewData := view.TemplateData{
		Title:          title,
		CSRFToken:      csrfToken,
		Flash:          flash,
		CurrentPath:    r.URL.Path,
		Authenticated:  sess.Authenticated(),
		GoogleClientID: h.googleClientID,
		Data:           data,
	}
	if err := h.templates.Render(w, page, viewData); err != nil {
		h.logger.Error("render "+page, slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func loginFailureMessage(err error) string {
	switch {
	case errors.Is(err, identity.ErrUnauthorized):
		return "Check your credentials"
	case errors.Is(err, identity.ErrTimeout):
		return "Could not reach the sign-in service, check your connection"
	default:
		return "Something went wrong, please try again"
	}
}

func registerFailureMessage(err error) string {
	switch {
	case errors.Is(err, identity.ErrConflict):
		return err.Error()
	case errors.Is(err, identity.ErrValidation):
		return "Check your input"
	case errors.Is(err, identity.ErrTimeout):
		return "Could not reach the sign-in service, check your connection"
	default:
		return "Something went wrong, please try again"
	}
}

func registerFieldMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "email":
		return "Enter a valid email address"
	case "min":
		return "Too short"
	case "eqfield":
		return "Passwords do not match"
	default:
		return "This field is required"
	}
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleRegisterForTest exposes the POST handler for tests.
func (h *Handler) HandleRegisterForTest(w http.ResponseWriter, r *http.Request) {
	h.handleRegister(w, r)
}
