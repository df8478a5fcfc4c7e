// Package provider implementa el linker de external providers: canjea el
// authorization code contra el provider, resuelve o crea la identity
// vinculada y emite un access token local.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
	authsvc "github.com/dropDatabas3/iridium/internal/http/services/auth"
	identitysvc "github.com/dropDatabas3/iridium/internal/http/services/identity"
	"github.com/dropDatabas3/iridium/internal/http/services/tenancy"
	"github.com/dropDatabas3/iridium/internal/oauth"
	"github.com/dropDatabas3/iridium/internal/oauth/github"
	"github.com/dropDatabas3/iridium/internal/oauth/google"
	"github.com/dropDatabas3/iridium/internal/observability/logger"
	"github.com/dropDatabas3/iridium/internal/store"
)

// Errores del service.
var (
	ErrUnknownProvider  = fmt.Errorf("unknown provider: %w", repository.ErrNotFound)
	ErrProviderDisabled = fmt.Errorf("provider disabled: %w", repository.ErrNotAuthorized)
)

// Service canjea codes de providers externos por sesiones locales.
type Service interface {
	// Link autentica al usuario contra el provider nombrado y retorna
	// la identity (existente o recién creada) con un token local.
	Link(ctx context.Context, clientID, providerName, code string) (*repository.Identity, *repository.AccessToken, error)
}

// Deps contiene las dependencias del service.
type Deps struct {
	Store    store.AdapterConnection
	Tenancy  tenancy.Resolver
	Identity identitysvc.Service
	Auth     authsvc.Service

	// Clients construye el cliente OAuth para un provider configurado.
	// nil = DefaultClients.
	Clients oauth.Factory
}

// DefaultClients resuelve el cliente según el kind del provider.
func DefaultClients(p *repository.ExternalProvider) (oauth.Client, error) {
	switch p.Kind {
	case repository.ProviderGitHub:
		return github.FromProvider(p)
	case repository.ProviderGoogle:
		return google.FromProvider(p)
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrUnknownProvider, p.Kind)
	}
}

type service struct {
	deps Deps
}

// NewService crea el linker de providers.
func NewService(deps Deps) Service {
	if deps.Clients == nil {
		deps.Clients = DefaultClients
	}
	return &service{deps: deps}
}

func (s *service) Link(ctx context.Context, clientID, providerName, code string) (*repository.Identity, *repository.AccessToken, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("provider"),
		logger.Op("Link"),
		logger.Provider(providerName),
	)

	tenant, _, err := s.deps.Tenancy.ResolveClient(ctx, clientID)
	if err != nil {
		return nil, nil, err
	}
	log = log.With(logger.TenantID(tenant.ID))

	providerName = strings.ToLower(strings.TrimSpace(providerName))
	prov, err := s.deps.Store.Providers().GetByName(ctx, tenant.ID, providerName)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, ErrUnknownProvider
		}
		return nil, nil, err
	}
	if !prov.Enabled {
		return nil, nil, ErrProviderDisabled
	}

	client, err := s.deps.Clients(prov)
	if err != nil {
		return nil, nil, err
	}

	profile, err := client.Exchange(ctx, code)
	if err != nil {
		log.Warn("provider exchange failed", logger.Err(err))
		return nil, nil, err
	}

	identity, err := s.deps.Identity.CreateFromProvider(ctx, tenant, prov, profile)
	if err != nil {
		return nil, nil, err
	}

	token, err := s.deps.Auth.MintToken(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	log.Info("external login", logger.IdentityID(identity.ID))
	return identity, token, nil
}
