// Package users serves the profile pages backed by the remote identity
// service; the gateway holds no profile state of its own.
package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shikshaspace/gateway/internal/identity"
	"github.com/shikshaspace/gateway/internal/shared"
	"github.com/shikshaspace/gateway/internal/view"
)

// IdentityClient is the slice of the identity client the profile pages need.
type IdentityClient interface {
	CurrentProfile(ctx context.Context, accessToken string) (*identity.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, req identity.UpdateProfileRequest, accessToken string) (*identity.UserProfile, error)
}

// Handler wires the profile endpoints.
type Handler struct {
	logger      *slog.Logger
	client      IdentityClient
	templates   *view.Engine
	csrfManager *shared.CSRFManager
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, client IdentityClient, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		client:      client,
		templates:   templates,
		csrfManager: csrf,
		validator:   validator.New(),
	}
}

// MountRoutes registers profile routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/profile", h.showProfile)
	r.Post("/profile", h.handleUpdate)
}

type profileForm struct {
	FirstName   string `validate:"required"`
	LastName    string
	Age         string `validate:"omitempty,numeric"`
	Bio         string `validate:"max=2000"`
	Experience  string `validate:"max=2000"`
	ImageURL    string `validate:"omitempty,url"`
	LinkedinURL string `validate:"omitempty,url"`
	GithubURL   string `validate:"omitempty,url"`
}

type profilePageData struct {
	Profile identity.UserProfile
	Form    profileForm
	Errors  map[string]string
}

func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	principal, ok := sess.Principal()
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	profile, err := h.client.CurrentProfile(r.Context(), principal.AccessToken)
	if err != nil {
		h.profileFailure(w, r, sess, err)
		return
	}

	data := profilePageData{Profile: *profile, Form: formFromProfile(profile)}
	h.renderProfile(w, r, sess, data, http.StatusOK)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	principal, ok := sess.Principal()
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	form := profileForm{
		FirstName:   r.PostFormValue("first_name"),
		LastName:    r.PostFormValue("last_name"),
		Age:         r.PostFormValue("age"),
		Bio:         r.PostFormValue("bio"),
		Experience:  r.PostFormValue("experience"),
		ImageURL:    r.PostFormValue("profile_image_url"),
		LinkedinURL: r.PostFormValue("linkedin_url"),
		GithubURL:   r.PostFormValue("github_url"),
	}
	formErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fieldErr := range fieldErrors {
				formErrors[fieldErr.Field()] = "Check your input"
			}
		}
	}

	if len(formErrors) == 0 {
		update := updateFromForm(form)
		_, err := h.client.UpdateProfile(r.Context(), principal.UserID.String(), update, principal.AccessToken)
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrUnauthorized):
				h.profileFailure(w, r, sess, err)
				return
			case errors.Is(err, identity.ErrValidation):
				formErrors["general"] = "Check your input"
			case errors.Is(err, identity.ErrTimeout):
				formErrors["general"] = "Could not reach the profile service, check your connection"
			default:
				formErrors["general"] = "Something went wrong, please try again"
			}
		} else {
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Profile updated"})
			http.Redirect(w, r, "/profile", http.StatusSeeOther)
			return
		}
	}

	data := profilePageData{Form: form, Errors: formErrors}
	h.renderProfile(w, r, sess, data, http.StatusBadRequest)
}

// profileFailure handles remote rejections of the session's token: the
// authorization state is stale, so the Principal is dropped.
func (h *Handler) profileFailure(w http.ResponseWriter, r *http.Request, sess *shared.Session, err error) {
	if errors.Is(err, identity.ErrUnauthorized) {
		h.logger.Warn("profile token rejected")
		sess.ClearPrincipal()
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.logger.Error("load profile", slog.Any("error", err))
	sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "Could not load your profile, check your connection"})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderProfile(w http.ResponseWriter, r *http.Request, sess *shared.Session, data profilePageData, status int) {
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
		Title:         "Profile",
		CSRFToken:     csrfToken,
		Flash:         flash,
		CurrentPath:   r.URL.Path,
		Authenticated: sess.Authenticated(),
		Data:          data,
	}
	if err := h.templates.Render(w, "pages/profile.html", viewData); err != nil {
		h.logger.Error("render profile", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func formFromProfile(profile *identity.UserProfile) profileForm {
	form := profileForm{
		FirstName:   profile.FirstName,
		LastName:    profile.LastName,
		Bio:         profile.Bio,
		Experience:  profile.Experience,
		ImageURL:    profile.ProfileImageURL,
		LinkedinURL: profile.LinkedinURL,
		GithubURL:   profile.GithubURL,
	}
	if profile.Age != nil {
		form.Age = strconv.Itoa(*profile.Age)
	}
	return form
}

func updateFromForm(form profileForm) identity.UpdateProfileRequest {
	update := identity.UpdateProfileRequest{
		FirstName: optional(form.FirstName),
		LastName:  optional(form.LastName),
	}
	if form.Age != "" {
		if age, err := strconv.Atoi(form.Age); err == nil {
			update.Age = &age
		}
	}
	update.Bio = optional(form.Bio)
	update.Experience = optional(form.Experience)
	update.ProfileImageURL = optional(form.ImageURL)
	update.LinkedinURL = optional(form.LinkedinURL)
	update.GithubURL = optional(form.GithubURL)
	return update
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ShowProfileForTest exposes the GET handler for tests.
func (h *Handler) ShowProfileForTest(w http.ResponseWriter, r *http.Request) {
	h.showProfile(w, r)
}

// HandleUpdateForTest exposes the POST handler for tests.
func (h *Handler) HandleUpdateForTest(w http.ResponseWriter, r *http.Request) {
	h.handleUpdate(w, r)
}
