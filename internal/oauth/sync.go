package oauth

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/shikshaspace/gateway/internal/identity"
)

// IdentityClient is the slice of the identity client the syncer needs.
type IdentityClient interface {
	GetProfile(ctx context.Context, idOrEmail, accessToken string) (*identity.UserProfile, error)
	Register(ctx context.Context, req identity.RegisterRequest) (*identity.AuthResult, error)
}

// SyncRequest carries the externally-authenticated identity to reconcile.
type SyncRequest struct {
	Email       string `json:"email"`
	GivenName   string `json:"given_name"`
	FamilyName  string `json:"family_name"`
	AccessToken string `json:"access_token"`
}

// Syncer ensures a user-service record exists for an
// externally-authenticated identity. Sync is best-effort glue: the
// external provider is authoritative for who the person is, the user
// service for whether they have an account, and failure on either side
// must never lock a legitimate user out.
type Syncer struct {
	client IdentityClient
	logger *slog.Logger
	group  singleflight.Group
}

// NewSyncer constructs a Syncer.
func NewSyncer(client IdentityClient, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{client: client, logger: logger}
}

// Sync probes the user service for req.Email and registers a backing
// record if the probe fails for any reason. All failures are logged and
// swallowed; the caller's login flow proceeds regardless of the outcome.
// Concurrent syncs for the same email are collapsed into one.
func (s *Syncer) Sync(ctx context.Context, req SyncRequest) {
	if req.Email == "" {
		s.logger.Warn("oauth sync skipped, no email claim")
		return
	}

	_, _, _ = s.group.Do(req.Email, func() (any, error) {
		s.reconcile(ctx, req)
		return nil, nil
	})
}

func (s *Syncer) reconcile(ctx context.Context, req SyncRequest) {
	if _, err := s.client.GetProfile(ctx, req.Email, req.AccessToken); err == nil {
		s.logger.Debug("oauth sync: user exists", slog.String("email", req.Email))
		return
	}

	// Any probe failure (not found, timeout, server error) is treated as
	// "no record yet" and answered with a register attempt.
	firstName := req.GivenName
	if firstName == "" {
		firstName = "User"
	}
	register := identity.RegisterRequest{
		FirstName: firstName,
		LastName:  req.FamilyName,
		Username:  req.Email,
		Email:     req.Email,
		Password:  oneTimePassword(),
	}
	if _, err := s.client.Register(ctx, register); err != nil {
		s.logger.Error("oauth sync: register failed",
			slog.String("email", req.Email), slog.Any("error", err))
		return
	}
	s.logger.Info("oauth sync: user created", slog.String("email", req.Email))
}

// oneTimePassword synthesizes a register password that is unique per
// call and never surfaced to the user.
func oneTimePassword() string {
	return "GOOGLE_OAUTH_" + uuid.NewString()
}
