package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
	"github.com/dropDatabas3/iridium/internal/events"
	"github.com/dropDatabas3/iridium/internal/http/services/tenancy"
	pw "github.com/dropDatabas3/iridium/internal/security/password"
	"github.com/dropDatabas3/iridium/internal/store/adapters/memory"
)

// recordingEmitter captura eventos de forma sincrónica para asserts.
type recordingEmitter struct {
	mu  sync.Mutex
	evs []events.Event
}

func (r *recordingEmitter) Emit(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
}

func (r *recordingEmitter) byType(t string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, ev := range r.evs {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	conn     *memory.Connection
	emitter  *recordingEmitter
	service  Service
	clientID string
	tenantID string
}

func newFixture(t *testing.T, deps Deps) *fixture {
	t.Helper()
	ctx := context.Background()

	conn := memory.New()
	tenant := &repository.Tenant{Name: "Acme", Subdomain: "acme"}
	require.NoError(t, conn.Tenants().Create(ctx, tenant))
	app := &repository.Application{ClientID: "client-acme", TenantID: tenant.ID, Name: "portal"}
	require.NoError(t, conn.Applications().Create(ctx, app))

	emitter := &recordingEmitter{}
	deps.Store = conn
	deps.Tenancy = tenancy.NewResolver(tenancy.Deps{Store: conn})
	deps.Events = emitter

	return &fixture{
		conn:     conn,
		emitter:  emitter,
		service:  NewService(deps),
		clientID: app.ClientID,
		tenantID: tenant.ID,
	}
}

func (f *fixture) seedIdentity(t *testing.T, email, plain string) *repository.Identity {
	t.Helper()
	encoded, err := pw.Hash(pw.Default, plain)
	require.NoError(t, err)
	id, err := f.conn.Identities().Create(context.Background(), repository.CreateIdentityInput{
		ParentTenantID:  f.tenantID,
		EmailAddress:    email,
		EncodedPassword: &encoded,
	})
	require.NoError(t, err)
	return id
}

func TestAuthenticateRehashesLegacyBcrypt(t *testing.T) {
	f := newFixture(t, Deps{LockThreshold: 5})
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	encoded := string(legacy)
	id, err := f.conn.Identities().Create(ctx, repository.CreateIdentityInput{
		ParentTenantID:  f.tenantID,
		EmailAddress:    "vieja@example.com",
		EncodedPassword: &encoded,
	})
	require.NoError(t, err)

	_, _, err = f.service.Authenticate(ctx, f.clientID, "vieja@example.com", "hunter22")
	require.NoError(t, err)

	got, err := f.conn.Identities().GetByID(ctx, id.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EncodedPassword)
	assert.True(t, strings.HasPrefix(*got.EncodedPassword, "$argon2id$"),
		"el hash bcrypt importado debe migrarse en el primer login exitoso")
	assert.True(t, pw.Verify("hunter22", *got.EncodedPassword))

	// El login sigue funcionando con el hash migrado.
	_, _, err = f.service.Authenticate(ctx, f.clientID, "vieja@example.com", "hunter22")
	assert.NoError(t, err)
}

func TestAuthenticateKeepsCurrentHash(t *testing.T) {
	f := newFixture(t, Deps{LockThreshold: 5})
	ctx := context.Background()
	id := f.seedIdentity(t, "ana@example.com", "hunter22")

	before, err := f.conn.Identities().GetByID(ctx, id.ID)
	require.NoError(t, err)

	_, _, err = f.service.Authenticate(ctx, f.clientID, "ana@example.com", "hunter22")
	require.NoError(t, err)

	after, err := f.conn.Identities().GetByID(ctx, id.ID)
	require.NoError(t, err)
	assert.Equal(t, *before.EncodedPassword, *after.EncodedPassword,
		"un hash ya en formato actual no se vuelve a escribir")
}

func TestAuthenticateSuccess(t *testing.T) {
	f := newFixture(t, Deps{LockThreshold: 5})
	f.seedIdentity(t, "ana@example.com", "hunter22")
	ctx := context.Background()

	identity, token, err := f.service.Authenticate(ctx, f.clientID, "ana@example.com", "hunter22")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, identity.ID, token.IdentityID)
	assert.True(t, token.Expiration.After(time.Now()))
	assert.NotEmpty(t, token.Token)

	got, err := f.conn.Identities().GetByID(ctx, identity.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FailedLoginAttempts)
	assert.NotNil(t, got.LastSuccessfulLogin)

	assert.Len(t, f.emitter.byType(events.IdentityAuthenticated), 1)
}

func TestAuthenticateWrongPasswordIncrementsCounter(t *testing.T) {
	f := newFixture(t, Deps{LockThreshold: 5})
	id := f.seedIdentity(t, "ana@example.com", "hunter22")
	ctx := context.Background()

	_, _, err := f.service.Authenticate(ctx, f.clientID, "ana@example.com", "nope")
	assert.ErrorIs(t, err, repository.ErrNotAuthorized)

	got, err := f.conn.Identities().GetByID(ctx, id.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.FailedLoginAttempts)
	assert.False(t, got.Locked)
}

func TestAuthenticateLocksAtThreshold(t *testing.T) {
	f := newFixture(t, Deps{LockThreshold: 3})
	id := f.seedIdentity(t, "ana@example.com", "hunter22")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := f.service.Authenticate(ctx, f.clientID, "ana@example.com", "nope")
		assert.ErrorIs(t, err, repository.ErrNotAuthorized)
	}

	got, err := f.conn.Identities().GetByID(ctx, id.ID)
	require.NoError(t, err)
	assert.True(t, got.Locked)
	assert.Len(t, f.emitter.byType(events.IdentityLocked), 1, "el lock se anuncia una sola vez")

	// Bloqueada: ni siquiera el password correcto entra, y la respuesta
	// es indistinguible de una credencial incorrecta.
	_, _, err = f.service.Authenticate(ctx, f.clientID, "ana@example.com", "hunter22")
	assert.ErrorIs(t, err, repository.ErrNotAuthorized)
}

func TestAuthenticateSuccessResetsCounter(t *testing.T) {
	f := newFixture(t, Deps{LockThreshold: 5})
	id := f.seedIdentity(t, "ana@example.com", "hunter22")
	ctx := context.Background()

	_, _, _ = f.service.Authenticate(ctx, f.clientID, "ana@example.com", "nope")
	_, _, _ = f.service.Authenticate(ctx, f.clientID, "ana@example.com", "nope")

	_, _, err := f.service.Authenticate(ctx, f.clientID, "ana@example.com", "hunter22")
	require.NoError(t, err)

	got, err := f.conn.Identities().GetByID(ctx, id.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FailedLoginAttempts)
}

func TestAuthenticateOpaqueFailures(t *testing.T) {
	f := newFixture(t, Deps{})
	f.seedIdentity(t, "ana@example.com", "hunter22")
	ctx := context.Background()

	cases := []struct {
		name     string
		clientID string
		username string
		password string
	}{
		{"email desconocido", "client-acme", "nadie@example.com", "hunter22"},
		{"clientId desconocido", "client-ghost", "ana@example.com", "hunter22"},
		{"password incorrecto", "client-acme", "ana@example.com", "nope"},
		{"campos vacíos", "client-acme", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.service.Authenticate(ctx, tc.clientID, tc.username, tc.password)
			assert.ErrorIs(t, err, repository.ErrNotAuthorized)
		})
	}
}

func TestAuthenticateExternalAccountRejected(t *testing.T) {
	f := newFixture(t, Deps{})
	ctx := context.Background()

	externalID := "gh-123"
	providerID := "prov-1"
	_, err := f.conn.Identities().Create(ctx, repository.CreateIdentityInput{
		ParentTenantID: f.tenantID,
		EmailAddress:   "ext@example.com",
		ExternalID:     &externalID,
		ProviderID:     &providerID,
	})
	require.NoError(t, err)

	_, _, err = f.service.Authenticate(ctx, f.clientID, "ext@example.com", "whatever")
	assert.ErrorIs(t, err, repository.ErrNotAuthorized)
}

func TestValidateToken(t *testing.T) {
	f := newFixture(t, Deps{TokenTTL: time.Hour})
	id := f.seedIdentity(t, "ana@example.com", "hunter22")
	ctx := context.Background()

	_, token, err := f.service.Authenticate(ctx, f.clientID, "ana@example.com", "hunter22")
	require.NoError(t, err)

	gotID, err := f.service.ValidateToken(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, id.ID, gotID)

	// Token desconocido: mismo error que uno expirado.
	_, err = f.service.ValidateToken(ctx, "no-such-token")
	assert.ErrorIs(t, err, repository.ErrNotAuthorized)
}

func TestValidateTokenExpiredEqualsUnknown(t *testing.T) {
	f := newFixture(t, Deps{})
	id := f.seedIdentity(t, "ana@example.com", "hunter22")
	ctx := context.Background()

	// Token ya vencido, directo en el store.
	err := f.conn.AccessTokens().Create(ctx, &repository.AccessToken{
		Token:      "expired-token",
		IdentityID: id.ID,
		Expiration: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	_, expiredErr := f.service.ValidateToken(ctx, "expired-token")
	_, unknownErr := f.service.ValidateToken(ctx, "unknown-token")

	assert.ErrorIs(t, expiredErr, repository.ErrNotAuthorized)
	assert.ErrorIs(t, unknownErr, repository.ErrNotAuthorized)
	// Sin oracle: el texto del error tampoco distingue.
	assert.Equal(t, expiredErr.Error(), unknownErr.Error())
}

func TestMintTokenDistinct(t *testing.T) {
	f := newFixture(t, Deps{})
	id := f.seedIdentity(t, "ana@example.com", "hunter22")
	ctx := context.Background()

	t1, err := f.service.MintToken(ctx, id)
	require.NoError(t, err)
	t2, err := f.service.MintToken(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, t1.Token, t2.Token)
}
