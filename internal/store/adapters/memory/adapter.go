// Package memory implementa un adapter en memoria, sin persistencia.
// Pensado para desarrollo y tests; replica la semántica del adapter pg
// (ErrDuplicate en constraint violations, incrementos atómicos).
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
	"github.com/dropDatabas3/iridium/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	return New(), nil
}

// Connection es la conexión en memoria. Un solo mutex protege todo el
// estado: la contención no importa en los escenarios donde se usa.
type Connection struct {
	mu sync.Mutex

	tenants      map[string]*repository.Tenant
	applications map[string]*repository.Application // por client_id
	identities   map[string]*repository.Identity
	accessTokens map[string]*repository.AccessToken // por token
	resetTokens  map[string]*repository.PasswordResetToken
	verifyTokens map[string]*repository.EmailVerificationToken // por email_id
	providers    map[string]*repository.ExternalProvider
}

// New crea una conexión en memoria vacía.
func New() *Connection {
	return &Connection{
		tenants:      make(map[string]*repository.Tenant),
		applications: make(map[string]*repository.Application),
		identities:   make(map[string]*repository.Identity),
		accessTokens: make(map[string]*repository.AccessToken),
		resetTokens:  make(map[string]*repository.PasswordResetToken),
		verifyTokens: make(map[string]*repository.EmailVerificationToken),
		providers:    make(map[string]*repository.ExternalProvider),
	}
}

func (c *Connection) Name() string                   { return "memory" }
func (c *Connection) Ping(ctx context.Context) error { return nil }
func (c *Connection) Close() error                   { return nil }

func (c *Connection) Tenants() repository.TenantRepository           { return &tenantRepo{c} }
func (c *Connection) Applications() repository.ApplicationRepository { return &appRepo{c} }
func (c *Connection) Identities() repository.IdentityRepository      { return &identityRepo{c} }
func (c *Connection) AccessTokens() repository.AccessTokenRepository { return &accessTokenRepo{c} }
func (c *Connection) PasswordResetTokens() repository.PasswordResetTokenRepository {
	return &resetTokenRepo{c}
}
func (c *Connection) EmailVerificationTokens() repository.EmailVerificationTokenRepository {
	return &verifyTokenRepo{c}
}
func (c *Connection) Providers() repository.ProviderRepository { return &providerRepo{c} }

// cloneIdentity copia el aggregate completo para que el caller nunca
// comparta memoria con el estado interno.
func cloneIdentity(src *repository.Identity) *repository.Identity {
	out := *src
	if src.EncodedPassword != nil {
		v := *src.EncodedPassword
		out.EncodedPassword = &v
	}
	if src.ExternalID != nil {
		v := *src.ExternalID
		out.ExternalID = &v
	}
	if src.ProviderID != nil {
		v := *src.ProviderID
		out.ProviderID = &v
	}
	if src.LastSuccessfulLogin != nil {
		v := *src.LastSuccessfulLogin
		out.LastSuccessfulLogin = &v
	}
	out.Emails = append([]repository.IdentityEmail(nil), src.Emails...)
	out.Properties = append([]repository.IdentityProperty(nil), src.Properties...)
	return &out
}

// ─── TenantRepository ───

type tenantRepo struct{ c *Connection }

func (r *tenantRepo) GetByID(ctx context.Context, id string) (*repository.Tenant, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	t, ok := r.c.tenants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *tenantRepo) GetBySubdomain(ctx context.Context, subdomain string) (*repository.Tenant, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, t := range r.c.tenants {
		if t.Subdomain == subdomain {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *tenantRepo) Create(ctx context.Context, t *repository.Tenant) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, existing := range r.c.tenants {
		if existing.Subdomain == t.Subdomain {
			return repository.ErrDuplicate
		}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	cp := *t
	r.c.tenants[t.ID] = &cp
	return nil
}

func (r *tenantRepo) List(ctx context.Context) ([]*repository.Tenant, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	out := make([]*repository.Tenant, 0, len(r.c.tenants))
	for _, t := range r.c.tenants {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

// ─── ApplicationRepository ───

type appRepo struct{ c *Connection }

func (r *appRepo) GetByClientID(ctx context.Context, clientID string) (*repository.Application, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	a, ok := r.c.applications[clientID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *appRepo) Create(ctx context.Context, a *repository.Application) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if _, exists := r.c.applications[a.ClientID]; exists {
		return repository.ErrDuplicate
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	cp := *a
	r.c.applications[a.ClientID] = &cp
	return nil
}

func (r *appRepo) ListByTenant(ctx context.Context, tenantID string) ([]*repository.Application, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	var out []*repository.Application
	for _, a := range r.c.applications {
		if a.TenantID == tenantID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ─── IdentityRepository ───

type identityRepo struct{ c *Connection }

func (r *identityRepo) GetByID(ctx context.Context, id string) (*repository.Identity, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	i, ok := r.c.identities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneIdentity(i), nil
}

func (r *identityRepo) GetByEmail(ctx context.Context, tenantID, address string) (*repository.Identity, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, i := range r.c.identities {
		if i.ParentTenantID != tenantID {
			continue
		}
		for _, e := range i.Emails {
			if e.Address == address {
				return cloneIdentity(i), nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (r *identityRepo) GetByExternalID(ctx context.Context, providerID, externalID string) (*repository.Identity, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, i := range r.c.identities {
		if i.ProviderID != nil && *i.ProviderID == providerID &&
			i.ExternalID != nil && *i.ExternalID == externalID {
			return cloneIdentity(i), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *identityRepo) Create(ctx context.Context, input repository.CreateIdentityInput) (*repository.Identity, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	// El chequeo de unicidad vive acá, bajo el lock: es el equivalente
	// del constraint UNIQUE (tenant_id, address) del adapter pg.
	for _, i := range r.c.identities {
		if i.ParentTenantID != input.ParentTenantID {
			continue
		}
		for _, e := range i.Emails {
			if e.Address == input.EmailAddress {
				return nil, repository.ErrDuplicate
			}
		}
	}

	id := &repository.Identity{
		ID:              uuid.NewString(),
		ParentTenantID:  input.ParentTenantID,
		EncodedPassword: input.EncodedPassword,
		ExternalID:      input.ExternalID,
		ProviderID:      input.ProviderID,
		Properties:      append([]repository.IdentityProperty(nil), input.Properties...),
		CreatedAt:       time.Now().UTC(),
	}
	id.Emails = []repository.IdentityEmail{{
		ID:         uuid.NewString(),
		IdentityID: id.ID,
		Address:    input.EmailAddress,
		Primary:    true,
	}}
	r.c.identities[id.ID] = id
	return cloneIdentity(id), nil
}

func (r *identityRepo) RecordFailedAttempt(ctx context.Context, identityID string, lockThreshold int) (*repository.LoginState, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	i, ok := r.c.identities[identityID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	i.FailedLoginAttempts++
	if lockThreshold > 0 && i.FailedLoginAttempts >= lockThreshold {
		i.Locked = true
	}
	return &repository.LoginState{
		FailedLoginAttempts: i.FailedLoginAttempts,
		Locked:              i.Locked,
	}, nil
}

func (r *identityRepo) RecordSuccess(ctx context.Context, identityID string, at time.Time) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	i, ok := r.c.identities[identityID]
	if !ok {
		return repository.ErrNotFound
	}
	i.FailedLoginAttempts = 0
	t := at
	i.LastSuccessfulLogin = &t
	return nil
}

func (r *identityRepo) Unlock(ctx context.Context, identityID string) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	i, ok := r.c.identities[identityID]
	if !ok {
		return repository.ErrNotFound
	}
	i.Locked = false
	i.FailedLoginAttempts = 0
	return nil
}

func (r *identityRepo) UpdatePassword(ctx context.Context, identityID, encodedPassword string) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	i, ok := r.c.identities[identityID]
	if !ok {
		return repository.ErrNotFound
	}
	pw := encodedPassword
	i.EncodedPassword = &pw
	i.RequiresPasswordChange = false
	return nil
}

func (r *identityRepo) SetEmailVerified(ctx context.Context, emailID string) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, i := range r.c.identities {
		for idx := range i.Emails {
			if i.Emails[idx].ID == emailID {
				i.Emails[idx].Verified = true
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

func (r *identityRepo) Delete(ctx context.Context, identityID string) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if _, ok := r.c.identities[identityID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.c.identities, identityID)
	delete(r.c.resetTokens, identityID)
	for tok, at := range r.c.accessTokens {
		if at.IdentityID == identityID {
			delete(r.c.accessTokens, tok)
		}
	}
	for emailID, vt := range r.c.verifyTokens {
		if vt.IdentityID == identityID {
			delete(r.c.verifyTokens, emailID)
		}
	}
	return nil
}

// ─── AccessTokenRepository ───

type accessTokenRepo struct{ c *Connection }

func (r *accessTokenRepo) Create(ctx context.Context, t *repository.AccessToken) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if _, exists := r.c.accessTokens[t.Token]; exists {
		return repository.ErrDuplicate
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	cp := *t
	r.c.accessTokens[t.Token] = &cp
	return nil
}

func (r *accessTokenRepo) GetActive(ctx context.Context, token string, now time.Time) (*repository.AccessToken, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	t, ok := r.c.accessTokens[token]
	if !ok || !t.Expiration.After(now) {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *accessTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	n := 0
	for tok, t := range r.c.accessTokens {
		if !t.Expiration.After(now) {
			delete(r.c.accessTokens, tok)
			n++
		}
	}
	return n, nil
}

// ─── PasswordResetTokenRepository ───

type resetTokenRepo struct{ c *Connection }

func (r *resetTokenRepo) Replace(ctx context.Context, t *repository.PasswordResetToken) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	cp := *t
	r.c.resetTokens[t.IdentityID] = &cp
	return nil
}

func (r *resetTokenRepo) GetActive(ctx context.Context, token string, now time.Time) (*repository.PasswordResetToken, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, t := range r.c.resetTokens {
		if t.Token == token && t.Expiration.After(now) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *resetTokenRepo) Delete(ctx context.Context, identityID string) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	delete(r.c.resetTokens, identityID)
	return nil
}

// ─── EmailVerificationTokenRepository ───

type verifyTokenRepo struct{ c *Connection }

func (r *verifyTokenRepo) Create(ctx context.Context, t *repository.EmailVerificationToken) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	cp := *t
	r.c.verifyTokens[t.EmailID] = &cp
	return nil
}

func (r *verifyTokenRepo) GetActive(ctx context.Context, token string, now time.Time) (*repository.EmailVerificationToken, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, t := range r.c.verifyTokens {
		if t.Token == token && t.Expiration.After(now) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *verifyTokenRepo) Delete(ctx context.Context, emailID string) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	delete(r.c.verifyTokens, emailID)
	return nil
}

// ─── ProviderRepository ───

type providerRepo struct{ c *Connection }

func (r *providerRepo) GetByID(ctx context.Context, id string) (*repository.ExternalProvider, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	p, ok := r.c.providers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *providerRepo) GetByName(ctx context.Context, tenantID, name string) (*repository.ExternalProvider, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, p := range r.c.providers {
		if p.TenantID == tenantID && p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *providerRepo) ListByTenant(ctx context.Context, tenantID string) ([]*repository.ExternalProvider, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	var out []*repository.ExternalProvider
	for _, p := range r.c.providers {
		if p.TenantID == tenantID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *providerRepo) Create(ctx context.Context, p *repository.ExternalProvider) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, existing := range r.c.providers {
		if existing.TenantID == p.TenantID && existing.Name == p.Name {
			return repository.ErrDuplicate
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	r.c.providers[p.ID] = &cp
	return nil
}
