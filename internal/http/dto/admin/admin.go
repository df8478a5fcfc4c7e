// Package admin contiene DTOs para endpoints administrativos.
package admin

import "time"

// TenantCreateRequest para crear un tenant.
type TenantCreateRequest struct {
	Name      string `json:"name"`
	Subdomain string `json:"subdomain"`
}

// TenantResponse representa un tenant en respuestas admin.
type TenantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	CreatedAt time.Time `json:"created_at"`
}

// ApplicationCreateRequest para registrar una application (client).
type ApplicationCreateRequest struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
}

// ApplicationResponse representa una application registrada.
// ClientID lo genera el servidor; es público y único global.
type ApplicationResponse struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ProviderCreateRequest registra un proveedor externo para un tenant.
// Properties lleva la configuración específica del proveedor
// (client_id, client_secret, etc.); nunca vuelve en respuestas.
type ProviderCreateRequest struct {
	TenantID   string            `json:"tenant_id"`
	Name       string            `json:"name"`
	Kind       string            `json:"kind"`
	Properties map[string]string `json:"properties"`
	Enabled    *bool             `json:"enabled,omitempty"`
}

// ProviderResponse representa un proveedor configurado. Omite
// Properties: ahí viven los secrets del tenant.
type ProviderResponse struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Enabled  bool   `json:"enabled"`
}
