// Package tenancy resuelve el scope (tenant + application) de cada request
// a partir del clientId público que presenta el cliente.
package tenancy

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dropDatabas3/iridium/internal/cache"
	"github.com/dropDatabas3/iridium/internal/domain/repository"
	"github.com/dropDatabas3/iridium/internal/observability/logger"
	"github.com/dropDatabas3/iridium/internal/store"
)

// Resolver traduce identificadores públicos a entidades de tenancy.
type Resolver interface {
	// ResolveClient busca la application por clientId y su tenant dueño.
	// Retorna ErrNotFound si el clientId es desconocido o si el tenant
	// referenciado no existe (referencia colgante).
	ResolveClient(ctx context.Context, clientID string) (*repository.Tenant, *repository.Application, error)

	// ResolveSubdomain busca un tenant por subdominio (path federado).
	ResolveSubdomain(ctx context.Context, subdomain string) (*repository.Tenant, error)
}

// Deps contiene las dependencias del resolver.
type Deps struct {
	Store store.AdapterConnection
	Cache cache.Client
	// TTL del cache de resolución. 0 = usar default (30s).
	TTL time.Duration
}

type resolver struct {
	deps Deps
}

// NewResolver crea un resolver con cache de lookups.
func NewResolver(deps Deps) Resolver {
	if deps.TTL <= 0 {
		deps.TTL = 30 * time.Second
	}
	return &resolver{deps: deps}
}

// cachedScope es la forma serializada del par (tenant, application).
// TTL corto: un tenant/application borrado deja de resolverse en
// cuestión de segundos sin invalidación explícita.
type cachedScope struct {
	Tenant      repository.Tenant      `json:"tenant"`
	Application repository.Application `json:"application"`
}

func (r *resolver) ResolveClient(ctx context.Context, clientID string) (*repository.Tenant, *repository.Application, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, nil, repository.ErrNotFound
	}

	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("tenancy"),
		logger.Op("ResolveClient"),
	)

	key := "scope:client:" + clientID
	if r.deps.Cache != nil {
		if raw, err := r.deps.Cache.Get(ctx, key); err == nil {
			var sc cachedScope
			if err := json.Unmarshal([]byte(raw), &sc); err == nil {
				return &sc.Tenant, &sc.Application, nil
			}
			// Entrada corrupta: seguir al store y dejar que el Set la pise
		}
	}

	app, err := r.deps.Store.Applications().GetByClientID(ctx, clientID)
	if err != nil {
		return nil, nil, err
	}

	tenant, err := r.deps.Store.Tenants().GetByID(ctx, app.TenantID)
	if err != nil {
		if repository.IsNotFound(err) {
			// Application apuntando a un tenant inexistente: para el
			// caller es lo mismo que un clientId desconocido.
			log.Warn("application references missing tenant",
				logger.ClientID(clientID),
				logger.TenantID(app.TenantID),
			)
			return nil, nil, repository.ErrNotFound
		}
		return nil, nil, err
	}

	if r.deps.Cache != nil {
		if raw, err := json.Marshal(cachedScope{Tenant: *tenant, Application: *app}); err == nil {
			if err := r.deps.Cache.Set(ctx, key, string(raw), r.deps.TTL); err != nil {
				log.Debug("scope cache set failed", logger.Err(err))
			}
		}
	}

	return tenant, app, nil
}

func (r *resolver) ResolveSubdomain(ctx context.Context, subdomain string) (*repository.Tenant, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if subdomain == "" {
		return nil, repository.ErrNotFound
	}

	key := "scope:subdomain:" + subdomain
	if r.deps.Cache != nil {
		if raw, err := r.deps.Cache.Get(ctx, key); err == nil {
			var t repository.Tenant
			if err := json.Unmarshal([]byte(raw), &t); err == nil {
				return &t, nil
			}
		}
	}

	tenant, err := r.deps.Store.Tenants().GetBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}

	if r.deps.Cache != nil {
		if raw, err := json.Marshal(tenant); err == nil {
			_ = r.deps.Cache.Set(ctx, key, string(raw), r.deps.TTL)
		}
	}

	return tenant, nil
}
