package repository

import "errors"

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate indica una violación de unicidad (email dentro del tenant,
	// clientId global, nombre de application dentro del tenant).
	ErrDuplicate = errors.New("duplicate resource")

	// ErrInvalidArgument indica que los datos de entrada son inválidos.
	// El mensaje envolvente debe incluir el campo y el valor recibido.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotAuthorized indica credenciales inválidas, token expirado o
	// desconocido, o cuenta bloqueada. Deliberadamente no se distinguen
	// entre sí hacia el caller.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrClientCall indica que una llamada a un provider externo falló
	// o retornó un status no-2xx.
	ErrClientCall = errors.New("external client call failed")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate verifica si el error es ErrDuplicate.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsNotAuthorized verifica si el error es ErrNotAuthorized.
func IsNotAuthorized(err error) bool {
	return errors.Is(err, ErrNotAuthorized)
}

// IsClientCall verifica si el error es ErrClientCall.
func IsClientCall(err error) bool {
	return errors.Is(err, ErrClientCall)
}
