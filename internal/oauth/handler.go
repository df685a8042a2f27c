package oauth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"

	"github.com/shikshaspace/gateway/internal/identity"
	"github.com/shikshaspace/gateway/internal/shared"
)

// ExchangeClient is the slice of the identity client the handler needs.
type ExchangeClient interface {
	OAuth2Exchange(ctx context.Context, idToken string) (*identity.AuthResult, error)
}

// SyncEnqueuer hands reconciliation off to the job queue.
type SyncEnqueuer interface {
	EnqueueIdentitySync(ctx context.Context, payload SyncRequest) (*asynq.TaskInfo, error)
}

// Handler serves the Google sign-in callback.
type Handler struct {
	logger   *slog.Logger
	client   ExchangeClient
	enqueuer SyncEnqueuer
}

// NewHandler constructs a Handler. The enqueuer may be nil; sync is then
// skipped entirely, which is a logged, non-fatal condition.
func NewHandler(logger *slog.Logger, client ExchangeClient, enqueuer SyncEnqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, client: client, enqueuer: enqueuer}
}

// HandleGoogleSignIn exchanges the posted ID token, populates the
// session Principal and queues reconciliation. Whatever the sync
// outcome, a successful exchange always ends in a redirect home.
func (h *Handler) HandleGoogleSignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	idToken := r.PostFormValue("credential")
	claims, err := ParseGoogleClaims(idToken)
	if err != nil {
		h.logger.Warn("google sign-in: bad credential", slog.Any("error", err))
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "Google sign-in failed, please try again"})
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	result, err := h.client.OAuth2Exchange(r.Context(), idToken)
	if err != nil {
		h.logger.Error("google sign-in: exchange failed",
			slog.String("email", claims.Email), slog.Any("error", err))
		message := "Google sign-in failed, please try again"
		if errors.Is(err, identity.ErrTimeout) {
			message = "Could not reach the sign-in service, check your connection"
		}
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: message})
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	sess.SetPrincipal(shared.Principal{
		Username:     result.Username,
		UserID:       result.UserID,
		Email:        claims.Email,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})

	h.enqueueSync(r.Context(), SyncRequest{
		Email:       claims.Email,
		GivenName:   claims.GivenName,
		FamilyName:  claims.FamilyName,
		AccessToken: result.AccessToken,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// enqueueSync is best-effort: an enqueue failure is logged and swallowed
// so it can never abort or delay the login flow.
func (h *Handler) enqueueSync(ctx context.Context, payload SyncRequest) {
	if h.enqueuer == nil {
		h.logger.Warn("identity sync skipped, queue not configured",
			slog.String("email", payload.Email))
		return
	}
	if _, err := h.enqueuer.EnqueueIdentitySync(ctx, payload); err != nil {
		h.logger.Error("identity sync enqueue failed",
			slog.String("email", payload.Email), slog.Any("error", err))
	}
}
