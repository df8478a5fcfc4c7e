package repository

import (
	"context"
	"time"
)

// Tenant representa el límite de aislamiento del sistema.
// Toda identity pertenece a exactamente un tenant (ParentTenantID).
type Tenant struct {
	ID        string
	Name      string
	Subdomain string
	CreatedAt time.Time
}

// Application representa un client registrado (ej: un sitio web) que
// pertenece a exactamente un tenant. ClientID es público y único global.
type Application struct {
	ID        string
	ClientID  string
	TenantID  string
	Name      string
	Type      string
	CreatedAt time.Time
}

// TenantRepository define operaciones sobre tenants.
type TenantRepository interface {
	// GetByID busca un tenant por su UUID.
	// Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Tenant, error)

	// GetBySubdomain busca un tenant por su subdominio.
	GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)

	// Create crea un nuevo tenant.
	// Retorna ErrDuplicate si el subdominio ya existe.
	Create(ctx context.Context, t *Tenant) error

	// List retorna todos los tenants.
	List(ctx context.Context) ([]*Tenant, error)
}

// ApplicationRepository define operaciones sobre applications.
type ApplicationRepository interface {
	// GetByClientID busca una application por su clientId público.
	// Retorna ErrNotFound si no existe.
	GetByClientID(ctx context.Context, clientID string) (*Application, error)

	// Create crea una nueva application.
	// Retorna ErrDuplicate si el clientId ya existe, o si el nombre
	// ya existe dentro del tenant.
	Create(ctx context.Context, a *Application) error

	// ListByTenant lista las applications de un tenant.
	ListByTenant(ctx context.Context, tenantID string) ([]*Application, error)
}
