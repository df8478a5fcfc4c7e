package repository

import "context"

// ProviderKind identifica la familia del proveedor externo.
type ProviderKind string

const (
	ProviderGitHub ProviderKind = "github"
	ProviderGoogle ProviderKind = "google"
)

// ExternalProvider es la configuración por-tenant de un IdP externo
// (GitHub OAuth2, Google OIDC). Properties guarda pares específicos del
// proveedor: client_id, client_secret, issuer, etc.
type ExternalProvider struct {
	ID         string
	TenantID   string
	Name       string
	Kind       ProviderKind
	Properties map[string]string
	Enabled    bool
}

// Property retorna el valor de una propiedad o "" si no existe.
func (p *ExternalProvider) Property(name string) string {
	if p == nil || p.Properties == nil {
		return ""
	}
	return p.Properties[name]
}

// ProviderRepository define la persistencia de proveedores externos.
type ProviderRepository interface {
	// GetByID busca un proveedor por ID. ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*ExternalProvider, error)

	// GetByName busca un proveedor por nombre dentro de un tenant.
	GetByName(ctx context.Context, tenantID, name string) (*ExternalProvider, error)

	// ListByTenant lista los proveedores configurados de un tenant.
	ListByTenant(ctx context.Context, tenantID string) ([]*ExternalProvider, error)

	// Create persiste un proveedor nuevo. ErrDuplicate si ya existe
	// uno con el mismo nombre en el tenant.
	Create(ctx context.Context, p *ExternalProvider) error
}
