package password

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
	"github.com/dropDatabas3/iridium/internal/events"
	"github.com/dropDatabas3/iridium/internal/http/helpers"
	"github.com/dropDatabas3/iridium/internal/http/services/tenancy"
	pw "github.com/dropDatabas3/iridium/internal/security/password"
	"github.com/dropDatabas3/iridium/internal/store/adapters/memory"
)

type recordingEmitter struct {
	mu  sync.Mutex
	evs []events.Event
}

func (r *recordingEmitter) Emit(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.evs)
}

func (r *recordingEmitter) last() *events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.evs) == 0 {
		return nil
	}
	ev := r.evs[len(r.evs)-1]
	return &ev
}

type fixture struct {
	conn     *memory.Connection
	emitter  *recordingEmitter
	service  Service
	clientID string
	tenantID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	conn := memory.New()
	tenant := &repository.Tenant{Name: "Acme", Subdomain: "acme"}
	require.NoError(t, conn.Tenants().Create(ctx, tenant))
	app := &repository.Application{ClientID: "client-acme", TenantID: tenant.ID, Name: "portal"}
	require.NoError(t, conn.Applications().Create(ctx, app))

	emitter := &recordingEmitter{}
	svc := NewService(Deps{
		Store:   conn,
		Tenancy: tenancy.NewResolver(tenancy.Deps{Store: conn}),
		Events:  emitter,
		Links:   helpers.Links{BaseURL: "https://id.example.com"},
	})

	return &fixture{conn: conn, emitter: emitter, service: svc, clientID: app.ClientID, tenantID: tenant.ID}
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

func TestInitiateResetKnownEmail(t *testing.T) {
	f := newFixture(t)
	id := f.seedIdentity(t, "ana@example.com", "hunter22")
	ctx := context.Background()

	sent, err := f.service.InitiateReset(ctx, f.clientID, "ana@example.com")
	require.NoError(t, err)
	assert.True(t, sent)

	ev := f.emitter.last()
	require.NotNil(t, ev)
	assert.Equal(t, events.PasswordResetInitiated, ev.Type)
	assert.Equal(t, id.ID, ev.IdentityID)
	assert.Contains(t, ev.Meta[events.MetaLink], "/passwords/reset?token=")

	// El token quedó persistido y activo.
	link := ev.Meta[events.MetaLink]
	token := link[strings.Index(link, "token=")+len("token="):]
	tok, err := f.conn.PasswordResetTokens().GetActive(ctx, token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, id.ID, tok.IdentityID)
}

func TestInitiateResetUnknownEmailSilent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sent, err := f.service.InitiateReset(ctx, f.clientID, "nadie@example.com")
	require.NoError(t, err, "email desconocido no es un error")
	assert.False(t, sent)
	assert.Zero(t, f.emitter.count(), "sin escrituras ni eventos")
}

func TestInitiateResetUnknownClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.InitiateReset(ctx, "client-ghost", "ana@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound, "la application inexistente sí es un error")
}

func TestInitiateResetScopedToTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Mismo email, otro tenant: el reset del client de Acme no lo ve.
	other := &repository.Tenant{Name: "Beta", Subdomain: "beta"}
	require.NoError(t, f.conn.Tenants().Create(ctx, other))
	encoded, err := pw.Hash(pw.Default, "hunter22")
	require.NoError(t, err)
	_, err = f.conn.Identities().Create(ctx, repository.CreateIdentityInput{
		ParentTenantID:  other.ID,
		EmailAddress:    "ana@example.com",
		EncodedPassword: &encoded,
	})
	require.NoError(t, err)

	sent, err := f.service.InitiateReset(ctx, f.clientID, "ana@example.com")
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestInitiateResetReplacesPrevious(t *testing.T) {
	f := newFixture(t)
	f.seedIdentity(t, "ana@example.com", "hunter22")
	ctx := context.Background()

	_, err := f.service.InitiateReset(ctx, f.clientID, "ana@example.com")
	require.NoError(t, err)
	firstLink := f.emitter.last().Meta[events.MetaLink]
	firstToken := firstLink[strings.Index(firstLink, "token=")+len("token="):]

	_, err = f.service.InitiateReset(ctx, f.clientID, "ana@example.com")
	require.NoError(t, err)

	// El primer token quedó invalidado por el segundo.
	_, err = f.conn.PasswordResetTokens().GetActive(ctx, firstToken, time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInitiateResetExternalIdentitySilent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	externalID := "gh-1"
	providerID := "prov-1"
	_, err := f.conn.Identities().Create(ctx, repository.CreateIdentityInput{
		ParentTenantID: f.tenantID,
		EmailAddress:   "ext@example.com",
		ExternalID:     &externalID,
		ProviderID:     &providerID,
	})
	require.NoError(t, err)

	sent, err := f.service.InitiateReset(ctx, f.clientID, "ext@example.com")
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestCompleteReset(t *testing.T) {
	f := newFixture(t)
	id := f.seedIdentity(t, "ana@example.com", "hunter22")
	ctx := context.Background()

	_, err := f.service.InitiateReset(ctx, f.clientID, "ana@example.com")
	require.NoError(t, err)
	link := f.emitter.last().Meta[events.MetaLink]
	token := link[strings.Index(link, "token=")+len("token="):]

	require.NoError(t, f.service.CompleteReset(ctx, token, "nuevopass99"))

	got, err := f.conn.Identities().GetByID(ctx, id.ID)
	require.NoError(t, err)
	assert.True(t, pw.Verify("nuevopass99", *got.EncodedPassword))
	assert.False(t, pw.Verify("hunter22", *got.EncodedPassword))
	assert.False(t, got.RequiresPasswordChange)

	// Single use.
	err = f.service.CompleteReset(ctx, token, "otropass100")
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestCompleteResetUnlocksIdentity(t *testing.T) {
	f := newFixture(t)
	id := f.seedIdentity(t, "ana@example.com", "hunter22")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.conn.Identities().RecordFailedAttempt(ctx, id.ID, 3)
		require.NoError(t, err)
	}

	_, err := f.service.InitiateReset(ctx, f.clientID, "ana@example.com")
	require.NoError(t, err)
	link := f.emitter.last().Meta[events.MetaLink]
	token := link[strings.Index(link, "token=")+len("token="):]

	require.NoError(t, f.service.CompleteReset(ctx, token, "nuevopass99"))

	got, err := f.conn.Identities().GetByID(ctx, id.ID)
	require.NoError(t, err)
	assert.False(t, got.Locked)
	assert.Zero(t, got.FailedLoginAttempts)
}

func TestCompleteResetRejectsWeakAndExpired(t *testing.T) {
	f := newFixture(t)
	id := f.seedIdentity(t, "ana@example.com", "hunter22")
	ctx := context.Background()

	err := f.service.CompleteReset(ctx, "whatever", "x")
	assert.ErrorIs(t, err, ErrWeakPassword)

	err = f.service.CompleteReset(ctx, "no-such-token", "nuevopass99")
	assert.ErrorIs(t, err, ErrBadToken)

	require.NoError(t, f.conn.PasswordResetTokens().Replace(ctx, &repository.PasswordResetToken{
		Token:      "stale",
		IdentityID: id.ID,
		Expiration: time.Now().Add(-time.Minute),
	}))
	err = f.service.CompleteReset(ctx, "stale", "nuevopass99")
	assert.ErrorIs(t, err, ErrBadToken, "token expirado = token desconocido")
}
