package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dropDatabas3/iridium/internal/http/errors"
)

// AdminConfig configura el guard de las rutas administrativas.
type AdminConfig struct {
	// APIKey es la clave esperada en X-Admin-API-Key. Si está vacía, las
	// rutas admin quedan deshabilitadas (403 siempre).
	APIKey string
}

// RequireAdmin valida la API key administrativa.
// Comparación en tiempo constante para no filtrar prefijos válidos.
func RequireAdmin(cfg AdminConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.APIKey == "" {
				errors.WriteError(w, errors.ErrForbidden.WithDetail("admin API disabled"))
				return
			}

			got := strings.TrimSpace(r.Header.Get("X-Admin-API-Key"))
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(cfg.APIKey)) != 1 {
				errors.WriteError(w, errors.ErrForbidden.WithDetail("admin key required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
