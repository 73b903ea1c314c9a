// Package remote implementa el acceso HTTP a la API de persistencia y autenticación.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jhoicas/farmacia-api/internal/application/dto"
	"github.com/jhoicas/farmacia-api/internal/application/inventory"
	"github.com/jhoicas/farmacia-api/internal/application/reports"
	"github.com/jhoicas/farmacia-api/internal/application/session"
	"github.com/jhoicas/farmacia-api/internal/domain"
	"github.com/jhoicas/farmacia-api/internal/domain/entity"
)

var (
	_ inventory.Gateway  = (*Gateway)(nil)
	_ session.AuthClient = (*Gateway)(nil)
	_ reports.Source     = (*Gateway)(nil)
)

// maxBody límite de lectura de respuestas.
const maxBody = 4 << 20

// TokenSource entrega el bearer vigente ("" si no hay sesión).
type TokenSource interface {
	Token() string
}

// TokenFunc adapta una función a TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Gateway cliente de la API. Los timeouts los impone el llamador vía ctx.
type Gateway struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// New construye el gateway. baseURL incluye el prefijo /api.
func New(baseURL string, tokens TokenSource, httpClient *http.Client) *Gateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if tokens == nil {
		tokens = TokenFunc(func() string { return "" })
	}
	return &Gateway{baseURL: strings.TrimRight(baseURL, "/"), tokens: tokens, httpClient: httpClient}
}

// ── Medicamentos ─────────────────────────────────────────────────────────────

// ListMedications GET /medications.
func (g *Gateway) ListMedications(ctx context.Context) ([]*entity.Medication, error) {
	var out []dto.MedicationResponse
	if err := g.do(ctx, http.MethodGet, "/medications", nil, &out); err != nil {
		return nil, fmt.Errorf("listar medicamentos: %w", err)
	}
	meds := make([]*entity.Medication, 0, len(out))
	for _, r := range out {
		meds = append(meds, r.ToEntity())
	}
	return meds, nil
}

// CreateMedication POST /medications; devuelve el registro con el id asignado por el servidor.
func (g *Gateway) CreateMedication(ctx context.Context, draft *entity.Medication) (*entity.Medication, error) {
	qty := draft.Quantity
	req := dto.CreateMedicationRequest{Name: draft.Name, Quantity: &qty, Price: draft.Price}
	if s := dto.FormatDate(draft.ExpirationDate); s != nil {
		req.ExpirationDate = *s
	}
	var out dto.MedicationResponse
	if err := g.doOne(ctx, http.MethodPost, "/medications", req, &out); err != nil {
		return nil, fmt.Errorf("crear medicamento: %w", err)
	}
	return out.ToEntity(), nil
}

// UpdateMedication PUT /medications/:id con los campos del patch.
func (g *Gateway) UpdateMedication(ctx context.Context, id string, patch entity.MedicationPatch) (*entity.Medication, error) {
	var out dto.MedicationResponse
	if err := g.doOne(ctx, http.MethodPut, "/medications/"+url.PathEscape(id), dto.PatchFromEntity(patch), &out); err != nil {
		return nil, fmt.Errorf("actualizar medicamento %s: %w", id, err)
	}
	return out.ToEntity(), nil
}

// DeleteMedication DELETE /medications/:id.
func (g *Gateway) DeleteMedication(ctx context.Context, id string) error {
	if err := g.do(ctx, http.MethodDelete, "/medications/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("eliminar medicamento %s: %w", id, err)
	}
	return nil
}

// ── Movimientos ──────────────────────────────────────────────────────────────

// AppendMovement POST /movements.
func (g *Gateway) AppendMovement(ctx context.Context, mov *entity.Movement) (*entity.Movement, error) {
	var out dto.MovementResponse
	if err := g.doOne(ctx, http.MethodPost, "/movements", dto.MovementRequestFromEntity(mov), &out); err != nil {
		return nil, fmt.Errorf("registrar movimiento %s: %w", mov.Type, err)
	}
	saved := out.ToEntity()
	if saved.MedicationName == "" {
		saved.MedicationName = mov.MedicationName
	}
	return saved, nil
}

// ListMovements GET /movements.
func (g *Gateway) ListMovements(ctx context.Context) ([]*entity.Movement, error) {
	var out []dto.MovementResponse
	if err := g.do(ctx, http.MethodGet, "/movements", nil, &out); err != nil {
		return nil, fmt.Errorf("listar movimientos: %w", err)
	}
	movs := make([]*entity.Movement, 0, len(out))
	for _, r := range out {
		movs = append(movs, r.ToEntity())
	}
	return movs, nil
}

// ── Autenticación ────────────────────────────────────────────────────────────

// Login POST /users/login. Un 401 se traduce en domain.ErrInvalidCredentials.
func (g *Gateway) Login(ctx context.Context, username, password string) (*session.Session, error) {
	var out dto.LoginResponse
	err := g.doOne(ctx, http.MethodPost, "/users/login", dto.LoginRequest{Username: username, Password: password}, &out)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrInvalidInput) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if !out.Success || out.Token == "" || out.User == nil {
		return nil, domain.ErrInvalidCredentials
	}
	return &session.Session{User: toSessionUser(out.User), Token: out.Token}, nil
}

// Verify POST /users/verify con el token como bearer.
func (g *Gateway) Verify(ctx context.Context, token string) (*session.User, error) {
	var out dto.VerifyResponse
	req, err := g.newRequest(ctx, http.MethodPost, "/users/verify", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if err := g.send(req, &out); err != nil {
		return nil, fmt.Errorf("verificar token: %w", err)
	}
	if !out.Valid || out.User == nil {
		return nil, domain.ErrUnauthorized
	}
	u := toSessionUser(out.User)
	return &u, nil
}

func toSessionUser(u *dto.UserResponse) session.User {
	return session.User{ID: u.ID, Username: u.Username, Role: u.Role, PharmacyID: u.PharmacyID}
}

// ── Transporte ───────────────────────────────────────────────────────────────

func (g *Gateway) do(ctx context.Context, method, path string, body, out any) error {
	req, err := g.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if tok := g.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return g.send(req, out)
}

// doOne como do, pero acepta que el servidor envuelva el objeto en un arreglo.
func (g *Gateway) doOne(ctx context.Context, method, path string, body, out any) error {
	var raw json.RawMessage
	if err := g.do(ctx, method, path, body, &raw); err != nil {
		return err
	}
	return decodeOne(raw, out)
}

func (g *Gateway) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("serializar request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("crear HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (g *Gateway) send(req *http.Request, out any) error {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", domain.ErrRemoteUnavailable, ctxErr)
		}
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: leer respuesta: %v", domain.ErrRemoteUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("deserializar respuesta: %w", err)
	}
	return nil
}

// StatusError respuesta HTTP no exitosa. Unwrap la clasifica en un error de dominio.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Status >= 500:
		return domain.ErrRemoteUnavailable
	case e.Status == http.StatusNotFound:
		return domain.ErrNotFound
	case e.Status == http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return domain.ErrForbidden
	case e.Status == http.StatusConflict:
		return domain.ErrDuplicate
	default:
		return domain.ErrInvalidInput
	}
}

func statusError(status int, raw []byte) error {
	e := &StatusError{Status: status}
	var body dto.ErrorResponse
	if json.Unmarshal(raw, &body) == nil {
		e.Code, e.Message = body.Code, body.Message
	}
	return e
}

// decodeOne decodifica un objeto o el primer elemento de un arreglo.
func decodeOne(raw json.RawMessage, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("deserializar respuesta: %w", err)
		}
		if len(list) == 0 {
			return fmt.Errorf("respuesta vacía: %w", domain.ErrNotFound)
		}
		trimmed = list[0]
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("deserializar respuesta: %w", err)
	}
	return nil
}
