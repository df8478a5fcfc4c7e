package middlewares

import (
	"fmt"
	"net/http"

	"github.com/dropDatabas3/iridium/internal/http/errors"
	"github.com/dropDatabas3/iridium/internal/observability/logger"
	"github.com/dropDatabas3/iridium/internal/rate"
	"github.com/dropDatabas3/iridium/internal/security/tokens"
)

// WithRateLimit aplica rate limiting por IP sobre el handler envuelto,
// usando scope como prefijo de la key (ej. "authn", "reset"). La IP se
// hashea: la key que llega al backend no expone el valor crudo.
//
// Fail-open: si el limiter es nil o su backend falla (Redis caído),
// el request pasa. Preferimos degradar el límite antes que el servicio.
func WithRateLimit(lim rate.Limiter, scope string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if lim == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := scope + ":" + tokens.SHA256Base64URL(clientIP(r))
			res, err := lim.Allow(r.Context(), key)
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable, failing open",
					logger.Component("rate"),
					logger.Err(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !res.Allowed {
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", fmt.Sprintf("%d", int(res.RetryAfter.Seconds())))
				}
				errors.WriteError(w, errors.ErrRateLimitExceeded)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", res.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}
