package oauth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shikshaspace/gateway/internal/identity"
	"github.com/shikshaspace/gateway/internal/oauth"
	"github.com/shikshaspace/gateway/internal/shared"
)

type stubExchangeClient struct {
	result *identity.AuthResult
	err    error
	tokens []string
}

func (s *stubExchangeClient) OAuth2Exchange(ctx context.Context, idToken string) (*identity.AuthResult, error) {
	s.tokens = append(s.tokens, idToken)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubEnqueuer struct {
	err      error
	payloads []oauth.SyncRequest
}

func (s *stubEnqueuer) EnqueueIdentitySync(ctx context.Context, payload oauth.SyncRequest) (*asynq.TaskInfo, error) {
	s.payloads = append(s.payloads, payload)
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{}, nil
}

func emptySession(t *testing.T) *shared.Session {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	sess, err := manager.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return sess
}

func signInRequest(t *testing.T, sess *shared.Session, credential string) *http.Request {
	t.Helper()
	form := url.Values{"credential": {credential}}
	req := httptest.NewRequest(http.MethodPost, "/oauth2/google", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestGoogleSignInEstablishesSession(t *testing.T) {
	userID := uuid.New()
	client := &stubExchangeClient{result: &identity.AuthResult{
		AccessToken:  "access",
		RefreshToken: "refresh",
		UserID:       userID,
		Username:     "pat",
	}}
	enqueuer := &stubEnqueuer{}
	handler := oauth.NewHandler(nil, client, enqueuer)

	sess := emptySession(t)
	credential := signedIDToken(t, oauth.GoogleClaims{
		Email:      "pat@example.com",
		GivenName:  "Pat",
		FamilyName: "Lee",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	rec := httptest.NewRecorder()
	handler.HandleGoogleSignIn(rec, signInRequest(t, sess, credential))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	principal, ok := sess.Principal()
	require.True(t, ok)
	assert.Equal(t, "pat", principal.Username)
	assert.Equal(t, userID, principal.UserID)
	assert.Equal(t, "pat@example.com", principal.Email)
	assert.Equal(t, "access", principal.AccessToken)
	assert.Equal(t, "refresh", principal.RefreshToken)

	require.Len(t, enqueuer.payloads, 1)
	payload := enqueuer.payloads[0]
	assert.Equal(t, "pat@example.com", payload.Email)
	assert.Equal(t, "Pat", payload.GivenName)
	assert.Equal(t, "access", payload.AccessToken)
}

func TestGoogleSignInRejectsBadCredential(t *testing.T) {
	client := &stubExchangeClient{}
	handler := oauth.NewHandler(nil, client, &stubEnqueuer{})

	sess := emptySession(t)
	rec := httptest.NewRecorder()
	handler.HandleGoogleSignIn(rec, signInRequest(t, sess, "not-a-jwt"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.False(t, sess.Authenticated())
	assert.Empty(t, client.tokens, "exchange must not run for an unparseable credential")
}

func TestGoogleSignInExchangeFailureLeavesSessionAnonymous(t *testing.T) {
	client := &stubExchangeClient{err: identity.ErrUnauthorized}
	enqueuer := &stubEnqueuer{}
	handler := oauth.NewHandler(nil, client, enqueuer)

	sess := emptySession(t)
	credential := signedIDToken(t, oauth.GoogleClaims{Email: "pat@example.com"})

	rec := httptest.NewRecorder()
	handler.HandleGoogleSignIn(rec, signInRequest(t, sess, credential))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.False(t, sess.Authenticated())
	assert.Empty(t, enqueuer.payloads)
}

func TestGoogleSignInSurvivesEnqueueFailure(t *testing.T) {
	client := &stubExchangeClient{result: &identity.AuthResult{Username: "pat", UserID: uuid.New()}}
	enqueuer := &stubEnqueuer{err: asynq.ErrDuplicateTask}
	handler := oauth.NewHandler(nil, client, enqueuer)

	sess := emptySession(t)
	credential := signedIDToken(t, oauth.GoogleClaims{Email: "pat@example.com"})

	rec := httptest.NewRecorder()
	handler.HandleGoogleSignIn(rec, signInRequest(t, sess, credential))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.True(t, sess.Authenticated())
}

func TestGoogleSignInWithoutQueueStillLogsIn(t *testing.T) {
	client := &stubExchangeClient{result: &identity.AuthResult{Username: "pat", UserID: uuid.New()}}
	handler := oauth.NewHandler(nil, client, nil)

	sess := emptySession(t)
	credential := signedIDToken(t, oauth.GoogleClaims{Email: "pat@example.com"})

	rec := httptest.NewRecorder()
	handler.HandleGoogleSignIn(rec, signInRequest(t, sess, credential))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.True(t, sess.Authenticated())
}
