package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrUsernameExists     = errors.New("el usuario ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrInvalidCredentials = errors.New("usuario o contraseña incorrectos")
	ErrLoginBlocked       = errors.New("cuenta bloqueada temporalmente")
	// ErrRemoteUnavailable agrupa fallos de red, timeouts y 5xx del servidor remoto.
	ErrRemoteUnavailable = errors.New("servidor remoto no disponible")
)

// ValidationError describe un campo rechazado antes de cualquier efecto secundario.
type ValidationError struct {
	Field   string
	Message string
	Cause   error // opcional, p. ej. ErrInsufficientStock
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Unwrap permite errors.Is(err, ErrInvalidInput) y errors.Is(err, e.Cause).
func (e *ValidationError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInvalidInput, e.Cause}
	}
	return []error{ErrInvalidInput}
}

// NewValidationError construye un ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
