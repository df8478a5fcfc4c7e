package errors

import (
	"fmt"
	"net/http"
)

// AppError define la estructura estándar para errores de la aplicación.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"` // No se serializa, usado para el header
	Err        error  `json:"-"` // Error original (causa), útil para logs, no se expone al cliente
}

// Error implementa la interfaz error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original
func (e *AppError) Unwrap() error {
	return e.Err
}

// New crea un nuevo AppError
func New(status int, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// FromError intenta convertir un error genérico en un AppError.
// Si no es un AppError, devuelve un error interno genérico conservando la causa.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}

// WithDetail agrega detalles adicionales al error (útil para validaciones).
// Devuelve una COPIA del error para no mutar las variables globales base.
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause agrega el error original (causa). Devuelve una COPIA del error.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// =================================================================================
// LISTA DE ERRORES PREDEFINIDOS
// =================================================================================

// ---------------------------------------------------------------------------------
// 400 Bad Request - Errores de Cliente / Validación
// ---------------------------------------------------------------------------------

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "La solicitud contiene sintaxis inválida o parámetros faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "El cuerpo de la solicitud no es un JSON válido.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrMissingFields = &AppError{
		Code:       "MISSING_FIELDS",
		Message:    "Faltan campos requeridos en la solicitud.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidEmail = &AppError{
		Code:       "INVALID_EMAIL",
		Message:    "El email no tiene un formato válido.",
		HTTPStatus: http.StatusBadRequest,
	}
)

// ---------------------------------------------------------------------------------
// 401 Unauthorized - Errores de Autenticación
// ---------------------------------------------------------------------------------

var (
	// ErrNotAuthorized cubre credenciales inválidas, tokens desconocidos o
	// expirados y cuentas bloqueadas: una sola respuesta opaca, sin oracle.
	ErrNotAuthorized = &AppError{
		Code:       "NOT_AUTHORIZED",
		Message:    "No autorizado.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenMissing = &AppError{
		Code:       "TOKEN_MISSING",
		Message:    "No se proporcionó token de autenticación.",
		HTTPStatus: http.StatusUnauthorized,
	}
)

// ---------------------------------------------------------------------------------
// 403 Forbidden
// ---------------------------------------------------------------------------------

var (
	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "No tiene permisos para realizar esta acción.",
		HTTPStatus: http.StatusForbidden,
	}
)

// ---------------------------------------------------------------------------------
// 404 Not Found
// ---------------------------------------------------------------------------------

var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "El recurso solicitado no fue encontrado.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrTenantNotFound = &AppError{
		Code:       "TENANT_NOT_FOUND",
		Message:    "El tenant especificado no existe.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrApplicationNotFound = &AppError{
		Code:       "APPLICATION_NOT_FOUND",
		Message:    "La application especificada no existe.",
		HTTPStatus: http.StatusNotFound,
	}
)

// ---------------------------------------------------------------------------------
// 405 Method Not Allowed
// ---------------------------------------------------------------------------------

var (
	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "El método HTTP no está permitido para este recurso.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}
)

// ---------------------------------------------------------------------------------
// 409 Conflict
// ---------------------------------------------------------------------------------

var (
	ErrDuplicate = &AppError{
		Code:       "DUPLICATE",
		Message:    "El recurso ya existe.",
		HTTPStatus: http.StatusConflict,
	}

	ErrEmailAlreadyInUse = &AppError{
		Code:       "EMAIL_ALREADY_IN_USE",
		Message:    "El correo electrónico ya está registrado en este tenant.",
		HTTPStatus: http.StatusConflict,
	}
)

// ---------------------------------------------------------------------------------
// 422 Unprocessable Entity
// ---------------------------------------------------------------------------------

var (
	ErrPasswordTooWeak = &AppError{
		Code:       "PASSWORD_TOO_WEAK",
		Message:    "La contraseña no cumple con los requisitos de seguridad.",
		HTTPStatus: http.StatusUnprocessableEntity,
	}
)

// ---------------------------------------------------------------------------------
// 429 Too Many Requests - Rate Limiting
// ---------------------------------------------------------------------------------

var (
	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Ha excedido el límite de solicitudes. Intente más tarde.",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

// ---------------------------------------------------------------------------------
// 500+ Server Errors
// ---------------------------------------------------------------------------------

var (
	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Ocurrió un error interno en el servidor.",
		HTTPStatus: http.StatusInternalServerError,
	}

	// ErrClientCall se usa cuando un external provider (GitHub, Google)
	// falla o responde basura.
	ErrClientCall = &AppError{
		Code:       "CLIENT_CALL_FAILED",
		Message:    "Falló la comunicación con el proveedor externo.",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "El servicio no está disponible temporalmente.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
