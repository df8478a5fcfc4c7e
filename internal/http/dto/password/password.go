// Package password contiene DTOs para el flujo de password reset.
package password

// InitiateResetRequest inicia un password reset por email.
type InitiateResetRequest struct {
	ClientID string `json:"client_id"`
	Username string `json:"username"`
}

// InitiateResetResponse indica si se envió el mail de reset.
// Sent es false cuando el email no existe en el tenant; la respuesta
// HTTP es 200 en ambos casos para no filtrar existencia de cuentas.
type InitiateResetResponse struct {
	Sent bool `json:"sent"`
}

// CompleteResetRequest consume un token de reset y fija el password nuevo.
type CompleteResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}
