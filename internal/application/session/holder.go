// Package session mantiene la credencial del usuario del cliente y la adjunta a las llamadas remotas.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/farmacia-api/internal/domain"
	"github.com/jhoicas/farmacia-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-api/pkg/logger"
)

// TestTokenPrefix prefijo de los tokens emitidos localmente sin servidor de auth.
const TestTokenPrefix = "test-token-offline-"

// State ciclo de vida de la sesión.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// User identidad del usuario autenticado.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	PharmacyID int    `json:"pharmacy_id"`
}

// Session credencial vigente. Test indica un token emitido localmente, sin validar por nadie.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
	Test  bool   `json:"test"`
}

// AuthClient servicio de autenticación remoto.
// Login devuelve domain.ErrInvalidCredentials ante un rechazo explícito y domain.ErrRemoteUnavailable
// si el servicio no responde. Verify devuelve domain.ErrUnauthorized si el token no es válido.
type AuthClient interface {
	Login(ctx context.Context, username, password string) (*Session, error)
	Verify(ctx context.Context, token string) (*User, error)
}

// Store persistencia local de la sesión y de los contadores de intentos.
type Store interface {
	LoadSession(ctx context.Context) (*Session, error)
	SaveSession(ctx context.Context, s *Session) error
	ClearSession(ctx context.Context) error
	LoadLockout(ctx context.Context, username string) (*LockoutRecord, error)
	SaveLockout(ctx context.Context, r *LockoutRecord) error
	ClearLockout(ctx context.Context, username string) error
}

// Config comportamiento opcional del holder.
type Config struct {
	// AllowTestLogin emite un token de prueba cuando el servicio de auth no responde. Solo demos.
	AllowTestLogin bool
	LockoutEnabled bool
	Now            func() time.Time
	Logger         *logger.Logger
}

// Holder mantiene la sesión actual. Su ciclo de vida es independiente del inventario.
type Holder struct {
	auth  AuthClient
	store Store
	cfg   Config
	log   *logger.Logger

	mu      sync.RWMutex
	state   State
	session *Session
}

// NewHolder construye el holder en estado uninitialized.
func NewHolder(auth AuthClient, store Store, cfg Config) *Holder {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Holder{auth: auth, store: store, cfg: cfg, log: log.Component("session"), state: StateUninitialized}
}

// Restore recupera la sesión guardada. Un token rechazado por el servidor se descarta;
// si el servidor no responde se conserva.
func (h *Holder) Restore(ctx context.Context) (State, error) {
	s, err := h.store.LoadSession(ctx)
	if err != nil {
		return h.setAnonymous(), fmt.Errorf("session: restaurar: %w", err)
	}
	if s == nil || s.Token == "" {
		return h.setAnonymous(), nil
	}
	if s.Test {
		if !h.cfg.AllowTestLogin {
			_ = h.store.ClearSession(ctx)
			return h.setAnonymous(), nil
		}
		return h.set(s), nil
	}
	user, err := h.auth.Verify(ctx, s.Token)
	switch {
	case err == nil:
		s.User = *user
		return h.set(s), nil
	case errors.Is(err, domain.ErrRemoteUnavailable):
		h.log.Warn().Err(err).Msg("no se pudo verificar el token, se conserva la sesión guardada")
		return h.set(s), nil
	case errors.Is(err, domain.ErrUnauthorized):
		_ = h.store.ClearSession(ctx)
		return h.setAnonymous(), nil
	default:
		return h.setAnonymous(), err
	}
}

// Login autentica contra el servidor. Con lockout activo, rechaza localmente a usuarios bloqueados.
func (h *Holder) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.NewValidationError("username", "usuario y contraseña son obligatorios")
	}
	now := h.cfg.Now()

	var rec *LockoutRecord
	if h.cfg.LockoutEnabled {
		var err error
		rec, err = h.store.LoadLockout(ctx, LockoutKey(username))
		if err != nil {
			return nil, fmt.Errorf("session: leer intentos: %w", err)
		}
		if rec.Blocked(now) {
			return nil, &BlockedError{Username: username, Until: rec.BlockedUntil, Now: now}
		}
	}

	s, err := h.auth.Login(ctx, username, password)
	switch {
	case err == nil:
		if h.cfg.LockoutEnabled {
			_ = h.store.ClearLockout(ctx, LockoutKey(username))
		}
		return h.establish(ctx, s)

	case errors.Is(err, domain.ErrInvalidCredentials):
		if !h.cfg.LockoutEnabled {
			return nil, err
		}
		if rec == nil {
			rec = &LockoutRecord{Username: LockoutKey(username)}
		}
		rec.RegisterFailure(now)
		if serr := h.store.SaveLockout(ctx, rec); serr != nil {
			h.log.Error().Err(serr).Msg("no se pudo guardar el contador de intentos")
		}
		return nil, &FailedLoginError{Remaining: rec.RemainingAttempts(), Blocked: rec.Blocked(now)}

	case errors.Is(err, domain.ErrRemoteUnavailable) && h.cfg.AllowTestLogin:
		h.log.Warn().Err(err).Str("username", username).Msg("servicio de auth no disponible, se emite token de prueba")
		return h.establish(ctx, &Session{
			User:  User{ID: "1", Username: username, Role: entity.RoleAdmin, PharmacyID: 1},
			Token: fmt.Sprintf("%s%d", TestTokenPrefix, now.UnixMilli()),
			Test:  true,
		})
	}
	return nil, err
}

// Logout borra la credencial y la sesión guardada sin condiciones.
func (h *Holder) Logout(ctx context.Context) error {
	h.setAnonymous()
	return h.store.ClearSession(ctx)
}

// Token devuelve el bearer vigente o "".
func (h *Holder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.session == nil {
		return ""
	}
	return h.session.Token
}

// User devuelve el usuario autenticado o nil.
func (h *Holder) User() *User {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.session == nil {
		return nil
	}
	u := h.session.User
	return &u
}

// State estado actual de la sesión.
func (h *Holder) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// IsTestSession indica si la credencial fue emitida localmente.
func (h *Holder) IsTestSession() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.session != nil && h.session.Test
}

func (h *Holder) establish(ctx context.Context, s *Session) (*Session, error) {
	if err := h.store.SaveSession(ctx, s); err != nil {
		h.log.Error().Err(err).Msg("no se pudo guardar la sesión")
	}
	h.set(s)
	out := *s
	return &out, nil
}

func (h *Holder) set(s *Session) State {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = s
	h.state = StateAuthenticated
	return h.state
}

func (h *Holder) setAnonymous() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = nil
	h.state = StateAnonymous
	return h.state
}
