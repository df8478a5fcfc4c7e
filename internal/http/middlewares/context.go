package middlewares

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type ridKey struct{}
type principalKey struct{}

// Principal es la identidad autenticada del request actual.
// El token se conserva para re-presentarlo en llamadas federadas.
type Principal struct {
	Token      string
	IdentityID string
}

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ridKey{}, rid)
}

// GetRequestID retorna el request ID del contexto, o "".
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ridKey{}).(string); ok {
		return v
	}
	return ""
}

func setPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipal retorna el principal autenticado del contexto, o nil si
// el request es anónimo.
func GetPrincipal(ctx context.Context) *Principal {
	if v, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return v
	}
	return nil
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
