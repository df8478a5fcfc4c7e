package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
	"github.com/dropDatabas3/iridium/internal/http/helpers"
)

type stubValidator struct {
	valid map[string]string // token -> identityID
}

func (s *stubValidator) ValidateToken(_ context.Context, token string) (string, error) {
	if id, ok := s.valid[token]; ok {
		return id, nil
	}
	return "", repository.ErrNotFound
}

func gateHandler(t *testing.T, captured **Principal) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetPrincipal(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestTokenGateAnonymousPassThrough(t *testing.T) {
	var p *Principal
	h := WithTokenGate(&stubValidator{})(gateHandler(t, &p))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, p, "sin token no debe haber principal")
}

func TestTokenGateValidToken(t *testing.T) {
	var p *Principal
	v := &stubValidator{valid: map[string]string{"tok-abc": "id-1"}}
	h := WithTokenGate(v)(gateHandler(t, &p))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok-abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, p)
	assert.Equal(t, "id-1", p.IdentityID)
	assert.Equal(t, "tok-abc", p.Token)
}

func TestTokenGateFederationHeader(t *testing.T) {
	var p *Principal
	v := &stubValidator{valid: map[string]string{"fed-tok": "id-2"}}
	h := WithTokenGate(v)(gateHandler(t, &p))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(helpers.FederationHeader, "fed-tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, p)
	assert.Equal(t, "id-2", p.IdentityID)
}

func TestTokenGateRejectsUnknownToken(t *testing.T) {
	var p *Principal
	h := WithTokenGate(&stubValidator{})(gateHandler(t, &p))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, p, "el handler no debe ejecutarse con token inválido")
	assert.Contains(t, rec.Body.String(), "NOT_AUTHORIZED")
}

func TestRequireAuthenticated(t *testing.T) {
	var p *Principal
	v := &stubValidator{valid: map[string]string{"tok": "id-3"}}
	h := ChainFunc(func(w http.ResponseWriter, r *http.Request) {
		p = GetPrincipal(r.Context())
		w.WriteHeader(http.StatusOK)
	}, WithTokenGate(v), RequireAuthenticated())

	// Anónimo: 401
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Autenticado: 200
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, p)
}
