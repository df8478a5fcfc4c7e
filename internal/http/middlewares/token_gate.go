package middlewares

import (
	"context"
	"net/http"

	"github.com/dropDatabas3/iridium/internal/http/errors"
	"github.com/dropDatabas3/iridium/internal/http/helpers"
	"github.com/dropDatabas3/iridium/internal/observability/logger"
)

// TokenValidator resuelve un access token opaco a la identidad dueña.
// Debe devolver un error "not authorized" tanto para tokens desconocidos
// como para tokens expirados: el gate no distingue entre ambos.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (identityID string, err error)
}

// WithTokenGate valida el bearer token del request (Authorization Bearer o
// el header de federación) contra el validador.
//
//   - Sin token: el request pasa como anónimo. Los handlers que requieren
//     identidad deben combinarse con RequireAuthenticated.
//   - Token inválido o expirado: 401 con una única respuesta opaca.
//   - Token válido: inyecta Principal en el contexto.
func WithTokenGate(validator TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := helpers.BearerToken(r)
			if token == "" {
				// Request anónimo: pasa sin principal
				next.ServeHTTP(w, r)
				return
			}

			identityID, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				logger.From(r.Context()).Debug("token rejected",
					logger.Component("token_gate"),
					logger.Op("validate"),
				)
				errors.WriteError(w, errors.ErrNotAuthorized)
				return
			}

			ctx := setPrincipal(r.Context(), &Principal{
				Token:      token,
				IdentityID: identityID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated rechaza requests anónimos. Debe usarse DESPUÉS de
// WithTokenGate.
func RequireAuthenticated() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetPrincipal(r.Context()) == nil {
				errors.WriteError(w, errors.ErrNotAuthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
