// Package auth contiene DTOs para autenticación.
package auth

import (
	"time"

	identitydto "github.com/dropDatabas3/iridium/internal/http/dto/identity"
)

// AuthenticateRequest es el request de login con credenciales locales.
type AuthenticateRequest struct {
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthenticateResponse es la respuesta de login exitoso.
// El token es opaco: el cliente lo re-presenta tal cual lo recibió.
type AuthenticateResponse struct {
	Token      string               `json:"token"`
	Expiration time.Time            `json:"expiration"`
	Identity   identitydto.Response `json:"identity"`
}

// ExternalRequest es el request de login/vinculación vía external provider.
// Code es el authorization code del flujo OAuth2/OIDC del provider.
type ExternalRequest struct {
	ClientID string `json:"client_id"`
	Provider string `json:"provider"`
	Code     string `json:"code"`
}
