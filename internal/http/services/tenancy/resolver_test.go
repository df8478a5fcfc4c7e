package tenancy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/iridium/internal/cache"
	"github.com/dropDatabas3/iridium/internal/domain/repository"
	"github.com/dropDatabas3/iridium/internal/store/adapters/memory"
)

func seed(t *testing.T, conn *memory.Connection) (*repository.Tenant, *repository.Application) {
	t.Helper()
	ctx := context.Background()
	tenant := &repository.Tenant{Name: "Acme", Subdomain: "acme"}
	require.NoError(t, conn.Tenants().Create(ctx, tenant))
	app := &repository.Application{ClientID: "client-acme", TenantID: tenant.ID, Name: "portal"}
	require.NoError(t, conn.Applications().Create(ctx, app))
	return tenant, app
}

func TestResolveClient(t *testing.T) {
	conn := memory.New()
	tenant, app := seed(t, conn)
	r := NewResolver(Deps{Store: conn})
	ctx := context.Background()

	gotTenant, gotApp, err := r.ResolveClient(ctx, app.ClientID)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, gotTenant.ID)
	assert.Equal(t, app.ID, gotApp.ID)

	_, _, err = r.ResolveClient(ctx, "client-ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, _, err = r.ResolveClient(ctx, "  ")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestResolveClientCached(t *testing.T) {
	conn := memory.New()
	tenant, app := seed(t, conn)
	c := cache.NewMemory("test:")
	r := NewResolver(Deps{Store: conn, Cache: c, TTL: time.Minute})
	ctx := context.Background()

	_, _, err := r.ResolveClient(ctx, app.ClientID)
	require.NoError(t, err)

	// La resolución quedó cacheada.
	raw, err := c.Get(ctx, "scope:client:"+app.ClientID)
	require.NoError(t, err)
	assert.Contains(t, raw, tenant.ID)

	// Entrada corrupta: el resolver cae al store y responde igual.
	require.NoError(t, c.Set(ctx, "scope:client:"+app.ClientID, "{garbage", time.Minute))
	gotTenant, _, err := r.ResolveClient(ctx, app.ClientID)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, gotTenant.ID)
}

func TestResolveSubdomain(t *testing.T) {
	conn := memory.New()
	tenant, _ := seed(t, conn)
	r := NewResolver(Deps{Store: conn})
	ctx := context.Background()

	got, err := r.ResolveSubdomain(ctx, "  ACME ")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, got.ID, "el subdominio se normaliza")

	_, err = r.ResolveSubdomain(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
