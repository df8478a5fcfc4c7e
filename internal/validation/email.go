// Package validation agrupa validaciones sintácticas de input de usuario.
// La unicidad y otras reglas semánticas viven en los services; acá solo
// se valida forma.
package validation

import (
	"net/mail"
	"strings"
)

const maxEmailLength = 254

// ValidEmail reporta si address tiene sintaxis de email aceptable:
// addr-spec simple (sin display name, sin comentarios), con dominio
// que contenga al menos un punto. Normalización (lowercase) es
// responsabilidad del caller.
func ValidEmail(address string) bool {
	if address == "" || len(address) > maxEmailLength {
		return false
	}
	// ParseAddress acepta "Name <a@b>"; solo queremos addr-spec pelado.
	addr, err := mail.ParseAddress(address)
	if err != nil || addr.Name != "" || addr.Address != address {
		return false
	}
	at := strings.LastIndexByte(address, '@')
	if at <= 0 || at == len(address)-1 {
		return false
	}
	domain := address[at+1:]
	if !strings.Contains(domain, ".") {
		return false
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	return true
}

// NormalizeEmail aplica la normalización canónica antes de persistir o
// comparar: trim + lowercase. La unicidad (email, tenant) se evalúa
// siempre sobre la forma normalizada.
func NormalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
