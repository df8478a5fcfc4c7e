// Package oauth define el contrato con identity providers externos.
// Cada subpaquete (github, google) implementa el intercambio de
// authorization code por un perfil de usuario.
package oauth

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
)

// Profile es el perfil normalizado que retorna un provider externo.
// ExternalID es el identificador estable del usuario en el provider.
type Profile struct {
	ExternalID    string
	Email         string
	EmailVerified bool
	Name          string
	// Properties son pares extra del perfil (avatar, locale, etc) que
	// se copian a la identity al vincular.
	Properties map[string]string
}

// Client intercambia un authorization code por el perfil del usuario.
type Client interface {
	// Exchange canjea el code y retorna el perfil. Un fallo hablando
	// con el provider se reporta envuelto en repository.ErrClientCall.
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// Factory construye el Client adecuado para un provider configurado.
type Factory func(p *repository.ExternalProvider) (Client, error)

// Props estándar esperadas en ExternalProvider.Properties.
const (
	PropClientID     = "client_id"
	PropClientSecret = "client_secret"
	PropRedirectURL  = "redirect_url"
)

// RequireProps valida que el provider tenga las propiedades mínimas.
func RequireProps(p *repository.ExternalProvider, names ...string) error {
	for _, n := range names {
		if p.Property(n) == "" {
			return fmt.Errorf("provider %q: missing property %q", p.Name, n)
		}
	}
	return nil
}
