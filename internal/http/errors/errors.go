// Package errors define los errores HTTP de la API y su serialización.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
)

// errorResponse estructura interna para la serialización JSON.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe una respuesta HTTP basada en el error proporcionado.
// Maneja automáticamente errores de tipo *AppError y errores genéricos.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	resp := errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(resp)
}

// FromRepository mapea los sentinels del dominio a errores HTTP.
// Los services retornan errores de repository; los controllers los
// traducen acá sin conocer detalles del store.
func FromRepository(err error) *AppError {
	switch {
	case stderrors.Is(err, repository.ErrInvalidArgument):
		return ErrBadRequest.WithCause(err)
	case repository.IsNotFound(err):
		return ErrNotFound.WithCause(err)
	case repository.IsDuplicate(err):
		return ErrDuplicate.WithCause(err)
	case repository.IsNotAuthorized(err):
		return ErrNotAuthorized.WithCause(err)
	case repository.IsClientCall(err):
		return ErrClientCall.WithCause(err)
	default:
		return ErrInternalServerError.WithCause(err)
	}
}
