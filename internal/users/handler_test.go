package users_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shikshaspace/gateway/internal/identity"
	"github.com/shikshaspace/gateway/internal/shared"
	"github.com/shikshaspace/gateway/internal/users"
	"github.com/shikshaspace/gateway/internal/view"
	_ "github.com/shikshaspace/gateway/testing"
)

type stubIdentityClient struct {
	profile     *identity.UserProfile
	profileErr  error
	updateErr   error
	tokens      []string
	updateReqs  []identity.UpdateProfileRequest
	updateUsers []string
}

func (s *stubIdentityClient) CurrentProfile(ctx context.Context, accessToken string) (*identity.UserProfile, error) {
	s.tokens = append(s.tokens, accessToken)
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return s.profile, nil
}

func (s *stubIdentityClient) UpdateProfile(ctx context.Context, userID string, req identity.UpdateProfileRequest, accessToken string) (*identity.UserProfile, error) {
	s.updateUsers = append(s.updateUsers, userID)
	s.updateReqs = append(s.updateReqs, req)
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.profile, nil
}

func newHandler(t *testing.T, client *stubIdentityClient) *users.Handler {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)
	return users.NewHandler(nil, client, templates, shared.NewCSRFManager("csrf-secret"))
}

func authenticatedSession(t *testing.T, userID uuid.UUID) *shared.Session {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(rdb, "test_session", "secret", time.Hour, false)
	sess, err := manager.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetPrincipal(shared.Principal{
		Username:    "alice",
		UserID:      userID,
		Email:       "alice@example.com",
		AccessToken: "access-token",
	})
	return sess
}

func profileRequest(sess *shared.Session) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func updateRequest(sess *shared.Session, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/profile", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestShowProfile(t *testing.T) {
	age := 30
	client := &stubIdentityClient{profile: &identity.UserProfile{
		FirstName: "Alice",
		LastName:  "Smith",
		Age:       &age,
		Bio:       "Lifelong learner",
	}}
	handler := newHandler(t, client)
	sess := authenticatedSession(t, uuid.New())

	rec := httptest.NewRecorder()
	handler.ShowProfileForTest(rec, profileRequest(sess))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"access-token"}, client.tokens)
	body := rec.Body.String()
	assert.Contains(t, body, "Alice")
	assert.Contains(t, body, "30")
	assert.Contains(t, body, "Lifelong learner")
}

func TestShowProfileRejectedTokenEndsSession(t *testing.T) {
	client := &stubIdentityClient{profileErr: identity.ErrUnauthorized}
	handler := newHandler(t, client)
	sess := authenticatedSession(t, uuid.New())

	rec := httptest.NewRecorder()
	handler.ShowProfileForTest(rec, profileRequest(sess))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.False(t, sess.Authenticated())
}

func TestShowProfileServiceDownKeepsSession(t *testing.T) {
	client := &stubIdentityClient{profileErr: identity.ErrTimeout}
	handler := newHandler(t, client)
	sess := authenticatedSession(t, uuid.New())

	rec := httptest.NewRecorder()
	handler.ShowProfileForTest(rec, profileRequest(sess))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.True(t, sess.Authenticated())
}

func TestUpdateProfile(t *testing.T) {
	userID := uuid.New()
	client := &stubIdentityClient{profile: &identity.UserProfile{FirstName: "Alice"}}
	handler := newHandler(t, client)
	sess := authenticatedSession(t, userID)

	rec := httptest.NewRecorder()
	handler.HandleUpdateForTest(rec, updateRequest(sess, url.Values{
		"first_name": {"Alice"},
		"age":        {"31"},
		"bio":        {"Updated bio"},
	}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile", rec.Header().Get("Location"))
	require.Len(t, client.updateReqs, 1)
	assert.Equal(t, []string{userID.String()}, client.updateUsers)

	update := client.updateReqs[0]
	require.NotNil(t, update.FirstName)
	assert.Equal(t, "Alice", *update.FirstName)
	require.NotNil(t, update.Age)
	assert.Equal(t, 31, *update.Age)
	assert.Nil(t, update.LastName, "empty fields must be omitted from the update")
}

func TestUpdateProfileInvalidFormSkipsBackend(t *testing.T) {
	client := &stubIdentityClient{}
	handler := newHandler(t, client)
	sess := authenticatedSession(t, uuid.New())

	rec := httptest.NewRecorder()
	handler.HandleUpdateForTest(rec, updateRequest(sess, url.Values{
		"first_name": {"Alice"},
		"age":        {"not-a-number"},
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Check your input")
	assert.Empty(t, client.updateReqs)
}

func TestUpdateProfileWithoutPrincipal(t *testing.T) {
	client := &stubIdentityClient{}
	handler := newHandler(t, client)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(rdb, "test_session", "secret", time.Hour, false)
	sess, err := manager.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.HandleUpdateForTest(rec, updateRequest(sess, url.Values{"first_name": {"Alice"}}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Empty(t, client.updateReqs)
}
