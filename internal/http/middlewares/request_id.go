package middlewares

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
)

// maxRequestIDLen acota los X-Request-ID que vienen del cliente.
const maxRequestIDLen = 64

// WithRequestID propaga el X-Request-ID entrante o genera uno nuevo.
// El ID vuelve en el header de respuesta y viaja en el contexto para
// que el logging lo correlacione.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if rid == "" || len(rid) > maxRequestIDLen {
				rid = newRequestID()
			}

			w.Header().Set("X-Request-ID", rid)
			ctx := setRequestID(r.Context(), rid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newRequestID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
