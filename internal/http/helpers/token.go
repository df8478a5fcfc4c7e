package helpers

import (
	"net/http"
	"strings"
)

// FederationHeader es el header propio que los peers federados usan para
// presentar el access token cuando el Authorization header ya está
// ocupado por la autenticación del peer.
const FederationHeader = "X-IRIDIUM-AUTH-TOKEN"

// BearerToken extrae el access token del request.
// Busca primero Authorization: Bearer <token> y después el header de
// federación, que puede venir con o sin el prefijo Bearer.
// Retorna "" si no hay token presente.
func BearerToken(r *http.Request) string {
	if tok := stripBearer(r.Header.Get("Authorization")); tok != "" {
		return tok
	}
	fed := strings.TrimSpace(r.Header.Get(FederationHeader))
	if tok := stripBearer(fed); tok != "" {
		return tok
	}
	return fed
}

func stripBearer(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(strings.ToLower(v), "bearer ") {
		return strings.TrimSpace(v[len("bearer "):])
	}
	return ""
}
