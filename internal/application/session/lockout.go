package session

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jhoicas/farmacia-api/internal/domain"
)

// AttemptsPerBlock cada cuántos fallos consecutivos se bloquea el usuario.
const AttemptsPerBlock = 3

// LockoutRecord contador local de intentos fallidos de un usuario.
// Solo es una ayuda de interfaz: se borra con la caché local y no protege al servidor.
type LockoutRecord struct {
	Username     string    `json:"username"`
	Attempts     int       `json:"attempts"`
	LastAttempt  time.Time `json:"last_attempt"`
	BlockedUntil time.Time `json:"blocked_until,omitzero"`
}

// LockoutKey normaliza el username para indexar el contador.
func LockoutKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// BlockDuration duración del bloqueo según el total de intentos: 15, 20 (>=6) o 30 (>=9) minutos.
func BlockDuration(attempts int) time.Duration {
	switch {
	case attempts >= 9:
		return 30 * time.Minute
	case attempts >= 6:
		return 20 * time.Minute
	default:
		return 15 * time.Minute
	}
}

// Blocked indica si el usuario sigue bloqueado en now.
func (r *LockoutRecord) Blocked(now time.Time) bool {
	return r != nil && now.Before(r.BlockedUntil)
}

// RegisterFailure suma un intento y bloquea en cada múltiplo de AttemptsPerBlock.
// El contador no se reinicia al vencer el bloqueo, así la duración escala.
func (r *LockoutRecord) RegisterFailure(now time.Time) {
	r.Attempts++
	r.LastAttempt = now
	if r.Attempts%AttemptsPerBlock == 0 {
		r.BlockedUntil = now.Add(BlockDuration(r.Attempts))
	}
}

// RemainingAttempts intentos que quedan antes del próximo bloqueo.
func (r *LockoutRecord) RemainingAttempts() int {
	return AttemptsPerBlock - r.Attempts%AttemptsPerBlock
}

// BlockedError login rechazado localmente por bloqueo.
type BlockedError struct {
	Username string
	Until    time.Time
	Now      time.Time
}

func (e *BlockedError) Error() string {
	minutes := int(math.Ceil(e.Until.Sub(e.Now).Minutes()))
	return fmt.Sprintf("cuenta bloqueada temporalmente, intente de nuevo en %d minutos", minutes)
}

func (e *BlockedError) Unwrap() error { return domain.ErrLoginBlocked }

// FailedLoginError credenciales inválidas con los intentos restantes antes del bloqueo.
type FailedLoginError struct {
	Remaining int
	Blocked   bool
}

func (e *FailedLoginError) Error() string {
	if e.Blocked {
		return domain.ErrInvalidCredentials.Error() + "; demasiados intentos, cuenta bloqueada temporalmente"
	}
	return fmt.Sprintf("%s; quedan %d intentos", domain.ErrInvalidCredentials.Error(), e.Remaining)
}

func (e *FailedLoginError) Unwrap() error { return domain.ErrInvalidCredentials }
