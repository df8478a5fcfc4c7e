// Package helpers agrupa utilidades compartidas por los controllers.
package helpers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/iridium/internal/http/errors"
)

const maxBodySize = 1 << 20 // 1MB

// WriteJSON: respuesta JSON estándar.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodifica JSON de forma tolerante (NO falla por campos
// desconocidos). Valida Content-Type y limita el body a 1MB.
// Escribe el error y retorna false si el body no se pudo leer.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("Content-Type debe ser application/json"))
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return false
	}
	return true
}
