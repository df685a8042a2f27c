package oauth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shikshaspace/gateway/internal/identity"
	"github.com/shikshaspace/gateway/internal/oauth"
	_ "github.com/shikshaspace/gateway/testing"
)

type stubIdentityClient struct {
	profileErr   error
	registerErr  error
	registerReqs []identity.RegisterRequest
	probes       []string
}

func (s *stubIdentityClient) GetProfile(ctx context.Context, idOrEmail, accessToken string) (*identity.UserProfile, error) {
	s.probes = append(s.probes, idOrEmail)
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return &identity.UserProfile{Email: idOrEmail}, nil
}

func (s *stubIdentityClient) Register(ctx context.Context, req identity.RegisterRequest) (*identity.AuthResult, error) {
	s.registerReqs = append(s.registerReqs, req)
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &identity.AuthResult{Username: req.Username}, nil
}

func TestSyncRegistersMissingUser(t *testing.T) {
	client := &stubIdentityClient{profileErr: identity.ErrNotFound}
	syncer := oauth.NewSyncer(client, nil)

	syncer.Sync(context.Background(), oauth.SyncRequest{
		Email:       "new@x.com",
		GivenName:   "New",
		FamilyName:  "Person",
		AccessToken: "token",
	})

	require.Len(t, client.registerReqs, 1, "register must be called exactly once")
	req := client.registerReqs[0]
	assert.Equal(t, "new@x.com", req.Username)
	assert.Equal(t, "new@x.com", req.Email)
	assert.Equal(t, "New", req.FirstName)
	assert.Equal(t, "Person", req.LastName)
	assert.NotEmpty(t, req.Password)
}

func TestSyncSkipsExistingUser(t *testing.T) {
	client := &stubIdentityClient{}
	syncer := oauth.NewSyncer(client, nil)

	syncer.Sync(context.Background(), oauth.SyncRequest{Email: "known@x.com", AccessToken: "token"})

	assert.Equal(t, []string{"known@x.com"}, client.probes)
	assert.Empty(t, client.registerReqs, "register must not be called when the user exists")
}

func TestSyncTreatsAnyProbeFailureAsMissing(t *testing.T) {
	for _, probeErr := range []error{identity.ErrNotFound, identity.ErrTimeout, identity.ErrServer} {
		client := &stubIdentityClient{profileErr: probeErr}
		syncer := oauth.NewSyncer(client, nil)

		syncer.Sync(context.Background(), oauth.SyncRequest{Email: "new@x.com", AccessToken: "token"})

		assert.Len(t, client.registerReqs, 1, "probe error %v", probeErr)
	}
}

func TestSyncSkipsWithoutEmail(t *testing.T) {
	client := &stubIdentityClient{}
	syncer := oauth.NewSyncer(client, nil)

	syncer.Sync(context.Background(), oauth.SyncRequest{GivenName: "No", FamilyName: "Email"})

	assert.Empty(t, client.probes)
	assert.Empty(t, client.registerReqs)
}

func TestSyncSwallowsRegisterFailure(t *testing.T) {
	client := &stubIdentityClient{profileErr: identity.ErrNotFound, registerErr: errors.New("boom")}
	syncer := oauth.NewSyncer(client, nil)

	// Must not panic or propagate; the login flow proceeds regardless.
	syncer.Sync(context.Background(), oauth.SyncRequest{Email: "new@x.com", AccessToken: "token"})

	assert.Len(t, client.registerReqs, 1)
}

func TestSyncDefaultsMissingNameClaims(t *testing.T) {
	client := &stubIdentityClient{profileErr: identity.ErrNotFound}
	syncer := oauth.NewSyncer(client, nil)

	syncer.Sync(context.Background(), oauth.SyncRequest{Email: "new@x.com"})

	require.Len(t, client.registerReqs, 1)
	assert.Equal(t, "User", client.registerReqs[0].FirstName)
	assert.Empty(t, client.registerReqs[0].LastName)
}

func TestOneTimePasswordsNeverRepeat(t *testing.T) {
	client := &stubIdentityClient{profileErr: identity.ErrNotFound}
	syncer := oauth.NewSyncer(client, nil)

	syncer.Sync(context.Background(), oauth.SyncRequest{Email: "a@x.com"})
	syncer.Sync(context.Background(), oauth.SyncRequest{Email: "b@x.com"})

	require.Len(t, client.registerReqs, 2)
	assert.NotEqual(t, client.registerReqs[0].Password, client.registerReqs[1].Password)
}
