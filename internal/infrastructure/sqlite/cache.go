// Package sqlite guarda en el dispositivo el espejo del inventario, la bitácora de movimientos
// pendientes, la sesión y los contadores de intentos de login.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // driver sqlite en Go puro

	"github.com/jhoicas/farmacia-api/internal/application/dto"
	"github.com/jhoicas/farmacia-api/internal/application/inventory"
	"github.com/jhoicas/farmacia-api/internal/application/session"
	"github.com/jhoicas/farmacia-api/internal/domain/entity"
)

var (
	_ inventory.Cache = (*Cache)(nil)
	_ session.Store   = (*Cache)(nil)
)

const (
	bucketMedications = "medications"
	bucketPending     = "pending_movements"
	bucketSession     = "session"
	lockoutPrefix     = "lockout:"
)

// Cache tabla state(bucket, payload) con blobs JSON bajo claves fijas.
type Cache struct {
	db *sqlx.DB
	mu sync.Mutex
}

// Open abre (o crea) el archivo de caché.
func Open(path string) (*Cache, error) {
	if path == "" {
		path = "farmacia-cache.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("crear directorio de caché: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("abrir sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket  TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("crear tabla state: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close cierra la base de datos.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Clear borra todo el contenido (medicamentos, pendientes, sesión y bloqueos).
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.ExecContext(ctx, `DELETE FROM state`)
	return err
}

// ── inventory.Cache ──────────────────────────────────────────────────────────

func (c *Cache) SaveMedications(ctx context.Context, meds []*entity.Medication) error {
	payload := make([]*dto.MedicationResponse, 0, len(meds))
	for _, m := range meds {
		payload = append(payload, dto.ToMedicationResponse(m))
	}
	return c.put(ctx, c.db, bucketMedications, payload)
}

// LoadMedications devuelve nil si nunca se guardó la lista.
func (c *Cache) LoadMedications(ctx context.Context) ([]*entity.Medication, error) {
	var payload []dto.MedicationResponse
	found, err := c.get(ctx, c.db, bucketMedications, &payload)
	if err != nil || !found {
		return nil, err
	}
	meds := make([]*entity.Medication, 0, len(payload))
	for _, r := range payload {
		meds = append(meds, r.ToEntity())
	}
	return meds, nil
}

// AppendPendingMovement agrega al final de la bitácora en una sola transacción.
func (c *Cache) AppendPendingMovement(ctx context.Context, mov *entity.Movement) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var payload []*dto.MovementResponse
	if _, err := c.get(ctx, tx, bucketPending, &payload); err != nil {
		return err
	}
	payload = append(payload, dto.ToMovementResponse(mov))
	if err := c.put(ctx, tx, bucketPending, payload); err != nil {
		return err
	}
	return tx.Commit()
}

func (c *Cache) PendingMovements(ctx context.Context) ([]*entity.Movement, error) {
	var payload []dto.MovementResponse
	if _, err := c.get(ctx, c.db, bucketPending, &payload); err != nil {
		return nil, err
	}
	movs := make([]*entity.Movement, 0, len(payload))
	for _, r := range payload {
		movs = append(movs, r.ToEntity())
	}
	return movs, nil
}

func (c *Cache) SetPendingMovements(ctx context.Context, movs []*entity.Movement) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(movs) == 0 {
		return c.del(ctx, bucketPending)
	}
	payload := make([]*dto.MovementResponse, 0, len(movs))
	for _, m := range movs {
		payload = append(payload, dto.ToMovementResponse(m))
	}
	return c.put(ctx, c.db, bucketPending, payload)
}

// ── session.Store ────────────────────────────────────────────────────────────

func (c *Cache) LoadSession(ctx context.Context) (*session.Session, error) {
	var s session.Session
	found, err := c.get(ctx, c.db, bucketSession, &s)
	if err != nil || !found {
		return nil, err
	}
	return &s, nil
}

func (c *Cache) SaveSession(ctx context.Context, s *session.Session) error {
	return c.put(ctx, c.db, bucketSession, s)
}

func (c *Cache) ClearSession(ctx context.Context) error {
	return c.del(ctx, bucketSession)
}

func (c *Cache) LoadLockout(ctx context.Context, username string) (*session.LockoutRecord, error) {
	var r session.LockoutRecord
	found, err := c.get(ctx, c.db, lockoutPrefix+username, &r)
	if err != nil || !found {
		return nil, err
	}
	return &r, nil
}

func (c *Cache) SaveLockout(ctx context.Context, r *session.LockoutRecord) error {
	return c.put(ctx, c.db, lockoutPrefix+r.Username, r)
}

func (c *Cache) ClearLockout(ctx context.Context, username string) error {
	return c.del(ctx, lockoutPrefix+username)
}

// ── helpers ──────────────────────────────────────────────────────────────────

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

func (c *Cache) get(ctx context.Context, q execer, bucket string, out any) (bool, error) {
	var payload []byte
	err := q.GetContext(ctx, &payload, `SELECT payload FROM state WHERE bucket = ?`, bucket)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("leer %s: %w", bucket, err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("decodificar %s: %w", bucket, err)
	}
	return true, nil
}

func (c *Cache) put(ctx context.Context, q execer, bucket string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("codificar %s: %w", bucket, err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO state (bucket, payload) VALUES (?, ?)
		 ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload`, bucket, payload)
	if err != nil {
		return fmt.Errorf("guardar %s: %w", bucket, err)
	}
	return nil
}

func (c *Cache) del(ctx context.Context, bucket string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM state WHERE bucket = ?`, bucket); err != nil {
		return fmt.Errorf("borrar %s: %w", bucket, err)
	}
	return nil
}
