package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
)

func seedTenant(t *testing.T, conn *Connection, subdomain string) *repository.Tenant {
	t.Helper()
	tn := &repository.Tenant{Name: subdomain, Subdomain: subdomain}
	require.NoError(t, conn.Tenants().Create(context.Background(), tn))
	return tn
}

func TestTenantSubdomainUnique(t *testing.T) {
	conn := New()
	ctx := context.Background()

	seedTenant(t, conn, "acme")
	err := conn.Tenants().Create(ctx, &repository.Tenant{Name: "other", Subdomain: "acme"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := conn.Tenants().GetBySubdomain(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Subdomain)
}

func TestListTenantsAndApplications(t *testing.T) {
	conn := New()
	ctx := context.Background()

	acme := seedTenant(t, conn, "acme")
	beta := seedTenant(t, conn, "beta")
	require.NoError(t, conn.Applications().Create(ctx, &repository.Application{
		ClientID: "client-acme", TenantID: acme.ID, Name: "portal",
	}))
	require.NoError(t, conn.Applications().Create(ctx, &repository.Application{
		ClientID: "client-beta", TenantID: beta.ID, Name: "portal",
	}))

	// A través de los contratos, que es como los consume el resto del árbol.
	var tenants repository.TenantRepository = conn.Tenants()
	got, err := tenants.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	var apps repository.ApplicationRepository = conn.Applications()
	forAcme, err := apps.ListByTenant(ctx, acme.ID)
	require.NoError(t, err)
	require.Len(t, forAcme, 1)
	assert.Equal(t, "client-acme", forAcme[0].ClientID)
}

func TestIdentityEmailUniquePerTenant(t *testing.T) {
	conn := New()
	ctx := context.Background()
	acme := seedTenant(t, conn, "acme")
	globex := seedTenant(t, conn, "globex")

	pw := "$argon2id$..."
	_, err := conn.Identities().Create(ctx, repository.CreateIdentityInput{
		ParentTenantID: acme.ID, EmailAddress: "ana@example.com", EncodedPassword: &pw,
	})
	require.NoError(t, err)

	// Mismo email en el mismo tenant: rechazado.
	_, err = conn.Identities().Create(ctx, repository.CreateIdentityInput{
		ParentTenantID: acme.ID, EmailAddress: "ana@example.com", EncodedPassword: &pw,
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	// Mismo email en otro tenant: permitido.
	_, err = conn.Identities().Create(ctx, repository.CreateIdentityInput{
		ParentTenantID: globex.ID, EmailAddress: "ana@example.com", EncodedPassword: &pw,
	})
	assert.NoError(t, err)
}

func TestGetByEmailScopedToTenant(t *testing.T) {
	conn := New()
	ctx := context.Background()
	acme := seedTenant(t, conn, "acme")
	globex := seedTenant(t, conn, "globex")

	pw := "x"
	created, err := conn.Identities().Create(ctx, repository.CreateIdentityInput{
		ParentTenantID: acme.ID, EmailAddress: "ana@example.com", EncodedPassword: &pw,
	})
	require.NoError(t, err)

	got, err := conn.Identities().GetByEmail(ctx, acme.ID, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = conn.Identities().GetByEmail(ctx, globex.ID, "ana@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRecordFailedAttemptConcurrent(t *testing.T) {
	conn := New()
	ctx := context.Background()
	acme := seedTenant(t, conn, "acme")

	pw := "x"
	id, err := conn.Identities().Create(ctx, repository.CreateIdentityInput{
		ParentTenantID: acme.ID, EmailAddress: "ana@example.com", EncodedPassword: &pw,
	})
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _ = conn.Identities().RecordFailedAttempt(ctx, id.ID, 0)
		}()
	}
	wg.Wait()

	got, err := conn.Identities().GetByID(ctx, id.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.FailedLoginAttempts, "ningún incremento se pierde")
	assert.False(t, got.Locked, "threshold 0 nunca bloquea")
}

func TestRecordFailedAttemptLocksAtThreshold(t *testing.T) {
	conn := New()
	ctx := context.Background()
	acme := seedTenant(t, conn, "acme")

	pw := "x"
	id, err := conn.Identities().Create(ctx, repository.CreateIdentityInput{
		ParentTenantID: acme.ID, EmailAddress: "ana@example.com", EncodedPassword: &pw,
	})
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		st, err := conn.Identities().RecordFailedAttempt(ctx, id.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, i, st.FailedLoginAttempts)
		assert.False(t, st.Locked)
	}
	st, err := conn.Identities().RecordFailedAttempt(ctx, id.ID, 3)
	require.NoError(t, err)
	assert.True(t, st.Locked)

	// Unlock resetea contador y lock.
	require.NoError(t, conn.Identities().Unlock(ctx, id.ID))
	got, err := conn.Identities().GetByID(ctx, id.ID)
	require.NoError(t, err)
	assert.False(t, got.Locked)
	assert.Zero(t, got.FailedLoginAttempts)
}

func TestRecordSuccessResetsCounter(t *testing.T) {
	conn := New()
	ctx := context.Background()
	acme := seedTenant(t, conn, "acme")

	pw := "x"
	id, err := conn.Identities().Create(ctx, repository.CreateIdentityInput{
		ParentTenantID: acme.ID, EmailAddress: "ana@example.com", EncodedPassword: &pw,
	})
	require.NoError(t, err)

	_, err = conn.Identities().RecordFailedAttempt(ctx, id.ID, 5)
	require.NoError(t, err)

	at := time.Now().UTC()
	require.NoError(t, conn.Identities().RecordSuccess(ctx, id.ID, at))

	got, err := conn.Identities().GetByID(ctx, id.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FailedLoginAttempts)
	require.NotNil(t, got.LastSuccessfulLogin)
	assert.WithinDuration(t, at, *got.LastSuccessfulLogin, time.Second)
}

func TestAccessTokenExpirationAtRead(t *testing.T) {
	conn := New()
	ctx := context.Background()
	now := time.Now().UTC()

	tok := &repository.AccessToken{Token: "tok-1", IdentityID: "id-1", Expiration: now.Add(time.Hour)}
	require.NoError(t, conn.AccessTokens().Create(ctx, tok))

	got, err := conn.AccessTokens().GetActive(ctx, "tok-1", now)
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.IdentityID)

	// Después de expirar, el mismo token no existe para el lector.
	_, err = conn.AccessTokens().GetActive(ctx, "tok-1", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Colisión de valor → ErrDuplicate.
	err = conn.AccessTokens().Create(ctx, &repository.AccessToken{Token: "tok-1", IdentityID: "id-2", Expiration: now.Add(time.Hour)})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	n, err := conn.AccessTokens().DeleteExpired(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestResetTokenReplaceInvalidatesPrevious(t *testing.T) {
	conn := New()
	ctx := context.Background()
	now := time.Now().UTC()

	first := &repository.PasswordResetToken{Token: "rt-1", IdentityID: "id-1", Expiration: now.Add(time.Hour)}
	require.NoError(t, conn.PasswordResetTokens().Replace(ctx, first))

	second := &repository.PasswordResetToken{Token: "rt-2", IdentityID: "id-1", Expiration: now.Add(time.Hour)}
	require.NoError(t, conn.PasswordResetTokens().Replace(ctx, second))

	_, err := conn.PasswordResetTokens().GetActive(ctx, "rt-1", now)
	assert.ErrorIs(t, err, repository.ErrNotFound, "el token viejo muere al emitir uno nuevo")

	got, err := conn.PasswordResetTokens().GetActive(ctx, "rt-2", now)
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.IdentityID)
}

func TestDeleteIdentityCascades(t *testing.T) {
	conn := New()
	ctx := context.Background()
	acme := seedTenant(t, conn, "acme")
	now := time.Now().UTC()

	pw := "x"
	id, err := conn.Identities().Create(ctx, repository.CreateIdentityInput{
		ParentTenantID: acme.ID, EmailAddress: "ana@example.com", EncodedPassword: &pw,
	})
	require.NoError(t, err)

	require.NoError(t, conn.AccessTokens().Create(ctx, &repository.AccessToken{
		Token: "tok-1", IdentityID: id.ID, Expiration: now.Add(time.Hour),
	}))
	require.NoError(t, conn.PasswordResetTokens().Replace(ctx, &repository.PasswordResetToken{
		Token: "rt-1", IdentityID: id.ID, Expiration: now.Add(time.Hour),
	}))

	require.NoError(t, conn.Identities().Delete(ctx, id.ID))

	_, err = conn.Identities().GetByID(ctx, id.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = conn.AccessTokens().GetActive(ctx, "tok-1", now)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = conn.PasswordResetTokens().GetActive(ctx, "rt-1", now)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// El email queda libre para una identity nueva.
	_, err = conn.Identities().Create(ctx, repository.CreateIdentityInput{
		ParentTenantID: acme.ID, EmailAddress: "ana@example.com", EncodedPassword: &pw,
	})
	assert.NoError(t, err)
}

func TestProviderUniquePerTenant(t *testing.T) {
	conn := New()
	ctx := context.Background()
	acme := seedTenant(t, conn, "acme")

	p := &repository.ExternalProvider{
		TenantID: acme.ID, Name: "github", Kind: repository.ProviderGitHub,
		Properties: map[string]string{"client_id": "abc"}, Enabled: true,
	}
	require.NoError(t, conn.Providers().Create(ctx, p))

	err := conn.Providers().Create(ctx, &repository.ExternalProvider{
		TenantID: acme.ID, Name: "github", Kind: repository.ProviderGitHub,
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := conn.Providers().GetByName(ctx, acme.ID, "github")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Property("client_id"))
}
