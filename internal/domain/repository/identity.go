package repository

import (
	"context"
	"time"
)

// Identity representa un principal dentro de un tenant.
// EncodedPassword es nil para cuentas creadas por un external provider
// (ExternalID seteado); una identity externa nunca requiere password.
type Identity struct {
	ID                     string
	ParentTenantID         string
	EncodedPassword        *string
	ExternalID             *string
	ProviderID             *string
	FailedLoginAttempts    int
	Locked                 bool
	RequiresPasswordChange bool
	LastSuccessfulLogin    *time.Time
	Emails                 []IdentityEmail
	Properties             []IdentityProperty
	CreatedAt              time.Time
}

// IdentityEmail es un email perteneciente a una identity.
// Invariante: exactamente un email del set tiene Primary=true, y el par
// (Address, ParentTenantID del dueño) es único; el mismo email puede
// existir en dos tenants distintos, nunca dos veces en el mismo.
type IdentityEmail struct {
	ID         string
	IdentityID string
	Address    string
	Primary    bool
	Verified   bool
}

// IdentityProperty es un par nombre/valor copiado del perfil de un
// external provider al vincular la identity.
type IdentityProperty struct {
	Name  string
	Value string
}

// PrimaryEmail retorna el email primario de la identity, o "" si no tiene.
func (i *Identity) PrimaryEmail() string {
	for _, e := range i.Emails {
		if e.Primary {
			return e.Address
		}
	}
	return ""
}

// IsExternal indica si la identity fue creada por un external provider.
func (i *Identity) IsExternal() bool {
	return i.ExternalID != nil && *i.ExternalID != ""
}

// CreateIdentityInput contiene los datos para crear una identity.
type CreateIdentityInput struct {
	ParentTenantID  string
	EmailAddress    string
	EncodedPassword *string // nil para cuentas de provider
	ExternalID      *string
	ProviderID      *string
	Properties      []IdentityProperty
}

// LoginState es el resultado de una mutación del contador de fallos.
type LoginState struct {
	FailedLoginAttempts int
	Locked              bool
}

// IdentityRepository define la persistencia de identities y sus emails.
// El aggregate (identity + emails + properties + reset token) se crea y
// destruye junto: Delete cascadea sobre los hijos.
type IdentityRepository interface {
	// GetByID busca una identity por ID (con emails y properties).
	// Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Identity, error)

	// GetByEmail busca la identity dueña de un email dentro de un tenant.
	// Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, tenantID, address string) (*Identity, error)

	// GetByExternalID busca una identity por (providerID, externalID).
	// Usado para vinculación idempotente de providers.
	GetByExternalID(ctx context.Context, providerID, externalID string) (*Identity, error)

	// Create persiste una identity nueva con su email primario.
	// La unicidad de (email, tenant) la garantiza el store: una violación
	// de constraint se reporta como ErrDuplicate, incluso si un check de
	// existencia previo no la detectó (el check previo es inherentemente racy).
	Create(ctx context.Context, input CreateIdentityInput) (*Identity, error)

	// RecordFailedAttempt incrementa failed_login_attempts atómicamente
	// (a nivel del store, sin lost updates entre requests concurrentes)
	// y bloquea la identity al alcanzar lockThreshold (0 = sin bloqueo).
	// Retorna el estado resultante.
	RecordFailedAttempt(ctx context.Context, identityID string, lockThreshold int) (*LoginState, error)

	// RecordSuccess resetea el contador a 0 y estampa last_successful_login.
	RecordSuccess(ctx context.Context, identityID string, at time.Time) error

	// Unlock desbloquea una identity y resetea su contador.
	// Acción administrativa explícita; nunca ocurre de forma automática.
	Unlock(ctx context.Context, identityID string) error

	// UpdatePassword reemplaza el hash del password y limpia
	// requires_password_change.
	UpdatePassword(ctx context.Context, identityID, encodedPassword string) error

	// SetEmailVerified marca un email como verificado.
	SetEmailVerified(ctx context.Context, emailID string) error

	// Delete elimina la identity y cascadea sobre emails, properties
	// y tokens de reset/verificación.
	Delete(ctx context.Context, identityID string) error
}
