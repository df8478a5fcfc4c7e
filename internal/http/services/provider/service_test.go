package provider

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
	authsvc "github.com/dropDatabas3/iridium/internal/http/services/auth"
	identitysvc "github.com/dropDatabas3/iridium/internal/http/services/identity"
	"github.com/dropDatabas3/iridium/internal/http/services/tenancy"
	"github.com/dropDatabas3/iridium/internal/oauth"
	"github.com/dropDatabas3/iridium/internal/store/adapters/memory"
)

// fakeClient devuelve un perfil fijo, o falla como lo haría el provider.
type fakeClient struct {
	profile *oauth.Profile
	err     error
}

func (f *fakeClient) Exchange(ctx context.Context, code string) (*oauth.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	if code != "good-code" {
		return nil, fmt.Errorf("%w: github: bad code", repository.ErrClientCall)
	}
	return f.profile, nil
}

type fixture struct {
	conn     *memory.Connection
	service  Service
	clientID string
	tenantID string
}

func newFixture(t *testing.T, client oauth.Client) *fixture {
	t.Helper()
	ctx := context.Background()

	conn := memory.New()
	tenant := &repository.Tenant{Name: "Acme", Subdomain: "acme"}
	require.NoError(t, conn.Tenants().Create(ctx, tenant))
	app := &repository.Application{ClientID: "client-acme", TenantID: tenant.ID, Name: "portal"}
	require.NoError(t, conn.Applications().Create(ctx, app))
	require.NoError(t, conn.Providers().Create(ctx, &repository.ExternalProvider{
		TenantID: tenant.ID,
		Name:     "github",
		Kind:     repository.ProviderGitHub,
		Enabled:  true,
		Properties: map[string]string{
			oauth.PropClientID:     "gh-client",
			oauth.PropClientSecret: "gh-secret",
		},
	}))

	resolver := tenancy.NewResolver(tenancy.Deps{Store: conn})
	identities := identitysvc.NewService(identitysvc.Deps{Store: conn, Tenancy: resolver})
	auth := authsvc.NewService(authsvc.Deps{Store: conn, Tenancy: resolver})

	svc := NewService(Deps{
		Store:    conn,
		Tenancy:  resolver,
		Identity: identities,
		Auth:     auth,
		Clients:  func(*repository.ExternalProvider) (oauth.Client, error) { return client, nil },
	})

	return &fixture{conn: conn, service: svc, clientID: app.ClientID, tenantID: tenant.ID}
}

func TestLinkCreatesIdentityAndToken(t *testing.T) {
	f := newFixture(t, &fakeClient{profile: &oauth.Profile{
		ExternalID:    "12345",
		Email:         "dev@example.com",
		EmailVerified: true,
		Properties:    map[string]string{"name": "Dev"},
	}})
	ctx := context.Background()

	identity, token, err := f.service.Link(ctx, f.clientID, "github", "good-code")
	require.NoError(t, err)
	assert.True(t, identity.IsExternal())
	assert.Equal(t, f.tenantID, identity.ParentTenantID)
	require.NotNil(t, token)
	assert.Equal(t, identity.ID, token.IdentityID)

	// Segundo login con el mismo perfil: misma identity, token nuevo.
	again, token2, err := f.service.Link(ctx, f.clientID, "github", "good-code")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, again.ID)
	assert.NotEqual(t, token.Token, token2.Token)
}

func TestLinkProviderFailure(t *testing.T) {
	f := newFixture(t, &fakeClient{})
	ctx := context.Background()

	_, _, err := f.service.Link(ctx, f.clientID, "github", "bad-code")
	assert.ErrorIs(t, err, repository.ErrClientCall)
}

func TestLinkUnknownProvider(t *testing.T) {
	f := newFixture(t, &fakeClient{})
	ctx := context.Background()

	_, _, err := f.service.Link(ctx, f.clientID, "gitlab", "good-code")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLinkDisabledProvider(t *testing.T) {
	f := newFixture(t, &fakeClient{profile: &oauth.Profile{ExternalID: "1", Email: "a@b.co"}})
	ctx := context.Background()

	require.NoError(t, f.conn.Providers().Create(ctx, &repository.ExternalProvider{
		TenantID:   f.tenantID,
		Name:       "google",
		Kind:       repository.ProviderGoogle,
		Enabled:    false,
		Properties: map[string]string{oauth.PropClientID: "x", oauth.PropClientSecret: "y"},
	}))

	_, _, err := f.service.Link(ctx, f.clientID, "google", "good-code")
	assert.ErrorIs(t, err, repository.ErrNotAuthorized)
}
