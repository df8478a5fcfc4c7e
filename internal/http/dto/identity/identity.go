// Package identity contiene DTOs para los endpoints de identities.
package identity

import (
	"time"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
)

// CreateRequest es el request para crear una identity local.
type CreateRequest struct {
	ClientID string `json:"client_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EmailResponse representa un email de la identity.
type EmailResponse struct {
	Address  string `json:"address"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Response representa una identity en respuestas.
// Nunca incluye el password hash ni contadores de lockout.
type Response struct {
	ID         string            `json:"id"`
	TenantID   string            `json:"tenant_id"`
	Emails     []EmailResponse   `json:"emails"`
	Properties map[string]string `json:"properties,omitempty"`
	External   bool              `json:"external"`
	CreatedAt  time.Time         `json:"created_at"`
}

// CreateResponse es la respuesta de registro: la identity creada más el
// token de la sesión iniciada automáticamente.
type CreateResponse struct {
	Identity   Response  `json:"identity"`
	Token      string    `json:"token"`
	Expiration time.Time `json:"expiration"`
}

// FromRepository convierte la entidad de dominio al DTO de respuesta.
func FromRepository(id *repository.Identity) Response {
	resp := Response{
		ID:        id.ID,
		TenantID:  id.ParentTenantID,
		External:  id.IsExternal(),
		CreatedAt: id.CreatedAt,
	}
	for _, e := range id.Emails {
		resp.Emails = append(resp.Emails, EmailResponse{
			Address:  e.Address,
			Primary:  e.Primary,
			Verified: e.Verified,
		})
	}
	if len(id.Properties) > 0 {
		resp.Properties = make(map[string]string, len(id.Properties))
		for _, p := range id.Properties {
			resp.Properties[p.Name] = p.Value
		}
	}
	return resp
}
