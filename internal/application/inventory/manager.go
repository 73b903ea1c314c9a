// Package inventory contiene el gestor de estado del inventario del cliente: la lista activa de
// medicamentos de la sesión, sus mutaciones con movimiento asociado y el modo degradado sin servidor.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-api/internal/domain"
	"github.com/jhoicas/farmacia-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-api/pkg/logger"
	"github.com/jhoicas/farmacia-api/pkg/metrics"
	"github.com/jhoicas/farmacia-api/pkg/textnorm"
)

// DefaultTimeout límite por llamada remota si Config no indica otro.
const DefaultTimeout = 10 * time.Second

// Mensajes de advertencia para el usuario.
const (
	WarnLocalOnly       = "Sin conexión con el servidor: el cambio se guardó solo en este equipo. Use recargar cuando vuelva la conexión."
	WarnMovementPending = "El cambio se guardó, pero el movimiento no se pudo registrar en el servidor; quedó pendiente de envío."
	WarnDeleteLocal     = "El medicamento se quitó de la lista, pero el servidor no confirmó la eliminación."
)

// Draft datos de alta de un medicamento.
type Draft struct {
	Name           string
	Quantity       int
	Price          decimal.Decimal
	ExpirationDate *time.Time
}

// Result resultado de una mutación. Degraded indica que el cambio no quedó (completo) en el servidor.
type Result struct {
	Medication *entity.Medication
	Movement   *entity.Movement // nil si no se registró movimiento
	Degraded   bool
	Warning    string
}

// Config dependencias opcionales del gestor.
type Config struct {
	Timeout  time.Duration
	Location *time.Location // zona civil fija de los movimientos
	Now      func() time.Time
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
}

// Manager único dueño de la lista activa de medicamentos. Todas las mutaciones de cantidad pasan
// por aquí para que lista y movimientos no se separen más de una operación.
type Manager struct {
	gw    Gateway
	cache Cache
	cfg   Config
	log   *logger.Logger

	mu   sync.RWMutex
	meds []*entity.Medication

	locks keyedLock
	// pendingMu serializa la bitácora de pendientes: RetryPending la lee y la reescribe completa.
	pendingMu sync.Mutex
}

// NewManager construye el gestor con la lista vacía; llamar Load al iniciar.
func NewManager(gw Gateway, cache Cache, cfg Config) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{gw: gw, cache: cache, cfg: cfg, log: log.Component("inventory")}
}

// isUnavailable indica si err corresponde a "servidor no disponible" (incluye timeout de la llamada).
func isUnavailable(err error) bool {
	return errors.Is(err, domain.ErrRemoteUnavailable) || errors.Is(err, context.DeadlineExceeded)
}

func (m *Manager) remote(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.cfg.Timeout)
}

func (m *Manager) now() time.Time {
	return m.cfg.Now().In(m.cfg.Location)
}

// Load carga la lista al iniciar: servidor primero, caché local si el servidor no responde.
// fromCache indica que la lista viene del espejo local.
func (m *Manager) Load(ctx context.Context) (fromCache bool, err error) {
	err = m.Reload(ctx)
	if err == nil {
		return false, nil
	}
	if !isUnavailable(err) {
		return false, err
	}
	cached, cerr := m.cache.LoadMedications(ctx)
	if cerr != nil {
		return false, fmt.Errorf("inventory: cargar caché: %w", cerr)
	}
	m.mu.Lock()
	m.meds = sortByName(cached)
	m.mu.Unlock()
	m.log.Warn().Err(err).Int("medications", len(cached)).Msg("servidor no disponible, lista cargada desde caché")
	return true, nil
}

// Reload reemplaza la lista activa con la del servidor y actualiza la caché.
func (m *Manager) Reload(ctx context.Context) error {
	rctx, cancel := m.remote(ctx)
	defer cancel()
	list, err := m.gw.ListMedications(rctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.meds = sortByName(list)
	m.mu.Unlock()
	m.persist(ctx)
	return nil
}

// List devuelve copias de los medicamentos activos ordenados por nombre.
func (m *Manager) List() []*entity.Medication {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*entity.Medication, 0, len(m.meds))
	for _, med := range m.meds {
		out = append(out, med.Clone())
	}
	return out
}

// Get devuelve una copia del medicamento con ese id.
func (m *Manager) Get(id string) (*entity.Medication, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if med := m.find(id); med != nil {
		return med.Clone(), true
	}
	return nil, false
}

// Search filtra por nombre sin distinguir mayúsculas ni tildes.
func (m *Manager) Search(q string) []*entity.Medication {
	out := make([]*entity.Medication, 0)
	for _, med := range m.List() {
		if textnorm.Contains(med.Name, q) {
			out = append(out, med)
		}
	}
	return out
}

// PendingMovements movimientos que no se pudieron registrar en el servidor.
func (m *Manager) PendingMovements(ctx context.Context) ([]*entity.Movement, error) {
	return m.cache.PendingMovements(ctx)
}

// RetryPending reintenta enviar los movimientos pendientes. Solo se conservan los que fallan por
// servidor no disponible; un rechazo del servidor no se va a resolver reintentando.
func (m *Manager) RetryPending(ctx context.Context) (sent int, err error) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()

	pending, err := m.cache.PendingMovements(ctx)
	if err != nil {
		return 0, err
	}
	remaining := make([]*entity.Movement, 0)
	for _, mov := range pending {
		rctx, cancel := m.remote(ctx)
		_, aerr := m.gw.AppendMovement(rctx, mov)
		cancel()
		switch {
		case aerr == nil:
			sent++
		case isUnavailable(aerr):
			remaining = append(remaining, mov)
		default:
			m.log.Error().Err(aerr).Str("type", mov.Type).Str("medication_id", mov.MedicationID).
				Int("quantity", mov.Quantity).Msg("el servidor rechazó el movimiento pendiente, se descarta")
		}
	}
	if err := m.cache.SetPendingMovements(ctx, remaining); err != nil {
		return sent, err
	}
	return sent, nil
}

// Add da de alta un medicamento. Con servidor: registro con id del servidor y movimiento "nuevo".
// Sin servidor: registro local con id "local-..." y sin movimiento.
func (m *Manager) Add(ctx context.Context, d Draft) (*Result, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "el nombre es obligatorio")
	}
	if d.Quantity < 0 {
		return nil, domain.NewValidationError("quantity", "la cantidad debe ser un entero mayor o igual a 0")
	}
	if d.Price.IsNegative() {
		return nil, domain.NewValidationError("price", "el precio no puede ser negativo")
	}
	draft := &entity.Medication{Name: name, Quantity: d.Quantity, Price: d.Price, ExpirationDate: d.ExpirationDate}

	rctx, cancel := m.remote(ctx)
	created, err := m.gw.CreateMedication(rctx, draft)
	cancel()
	if err != nil {
		if !isUnavailable(err) {
			return nil, err
		}
		local := draft.Clone()
		local.ID = entity.LocalIDPrefix + uuid.New().String()
		local.CreatedAt = m.now()
		local.UpdatedAt = local.CreatedAt
		m.insert(local)
		m.persist(ctx)
		m.degraded("add", local.ID, err)
		return &Result{Medication: local.Clone(), Degraded: true, Warning: WarnLocalOnly}, nil
	}

	m.insert(created)
	m.persist(ctx)
	res := &Result{Medication: created.Clone()}
	// La cantidad de un movimiento es siempre positiva: un alta con 0 unidades no registra "nuevo".
	if created.Quantity > 0 {
		mov := entity.NewMovement(created, entity.MovementTypeNuevo, created.Quantity, m.cfg.Now(), m.cfg.Location)
		m.recordMovement(ctx, mov, res)
	}
	return res, nil
}

// Update aplica un patch parcial al medicamento id. Si cambia la cantidad registra el movimiento
// correspondiente, igual que Sell o Restock.
func (m *Manager) Update(ctx context.Context, id string, patch entity.MedicationPatch) (*Result, error) {
	unlock := m.locks.lock(id)
	defer unlock()
	cur, err := m.current(id)
	if err != nil {
		return nil, err
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	res, err := m.updateLocked(ctx, id, patch)
	if err != nil || res.Degraded || patch.Quantity == nil {
		return res, err
	}
	// Un cambio de cantidad por edición también deja su movimiento: entrada o salida por la diferencia.
	delta := *patch.Quantity - cur.Quantity
	switch {
	case delta > 0:
		m.recordMovement(ctx, entity.NewMovement(res.Medication, entity.MovementTypeEntrada, delta, m.cfg.Now(), m.cfg.Location), res)
	case delta < 0:
		m.recordMovement(ctx, entity.NewMovement(res.Medication, entity.MovementTypeSalida, -delta, m.cfg.Now(), m.cfg.Location), res)
	}
	return res, nil
}

// Sell descuenta quantity del stock y registra una "salida". Rechaza cantidades <= 0 o mayores al stock.
func (m *Manager) Sell(ctx context.Context, id string, quantity int) (*Result, error) {
	return m.adjust(ctx, id, quantity, entity.MovementTypeSalida)
}

// Restock suma quantity al stock y registra una "entrada".
func (m *Manager) Restock(ctx context.Context, id string, quantity int) (*Result, error) {
	return m.adjust(ctx, id, quantity, entity.MovementTypeEntrada)
}

// adjust actualiza la cantidad y después registra el movimiento. Los dos pasos no son atómicos
// contra el servidor: si la actualización se degrada no se registra movimiento; si falla solo el
// movimiento, queda en la bitácora de pendientes.
func (m *Manager) adjust(ctx context.Context, id string, quantity int, movementType string) (*Result, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	cur, err := m.current(id)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "la cantidad debe ser mayor que 0")
	}
	newQty := cur.Quantity + quantity
	if movementType == entity.MovementTypeSalida {
		if quantity > cur.Quantity {
			return nil, &domain.ValidationError{
				Field:   "quantity",
				Message: fmt.Sprintf("stock insuficiente: disponible %d, solicitado %d", cur.Quantity, quantity),
				Cause:   domain.ErrInsufficientStock,
			}
		}
		newQty = cur.Quantity - quantity
	}

	res, err := m.updateLocked(ctx, id, entity.MedicationPatch{Quantity: &newQty})
	if err != nil || res.Degraded {
		return res, err
	}
	// La expiración se toma del registro al momento de la llamada.
	mov := entity.NewMovement(cur, movementType, quantity, m.cfg.Now(), m.cfg.Location)
	m.recordMovement(ctx, mov, res)
	return res, nil
}

// Remove registra un movimiento "eliminado" con el stock actual, pide la baja al servidor y quita el
// registro de la lista aunque el servidor falle.
func (m *Manager) Remove(ctx context.Context, id string) (*Result, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	cur, err := m.current(id)
	if err != nil {
		return nil, err
	}
	res := &Result{Medication: cur}
	mov := entity.NewMovement(cur, entity.MovementTypeEliminado, cur.Quantity, m.cfg.Now(), m.cfg.Location)
	m.recordMovement(ctx, mov, res)

	if !cur.IsLocal() {
		rctx, cancel := m.remote(ctx)
		derr := m.gw.DeleteMedication(rctx, id)
		cancel()
		if derr != nil && !errors.Is(derr, domain.ErrNotFound) {
			m.log.Warn().Err(derr).Str("operation", "remove").Str("medication_id", id).Msg("baja no confirmada por el servidor")
			m.cfg.Metrics.DegradedWrite("remove")
			res.Degraded = true
			res.Warning = joinWarnings(res.Warning, WarnDeleteLocal)
		}
	}

	m.mu.Lock()
	for i, med := range m.meds {
		if med.ID == id {
			m.meds = append(m.meds[:i], m.meds[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	m.persist(ctx)
	return res, nil
}

// updateLocked requiere el lock del id.
func (m *Manager) updateLocked(ctx context.Context, id string, patch entity.MedicationPatch) (*Result, error) {
	cur, err := m.current(id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return &Result{Medication: cur}, nil
	}

	if cur.IsLocal() {
		// El registro no existe en el servidor: solo hay copia local.
		patch.Apply(cur)
		cur.UpdatedAt = m.now()
		m.replace(cur)
		m.persist(ctx)
		return &Result{Medication: cur.Clone(), Degraded: true, Warning: WarnLocalOnly}, nil
	}

	rctx, cancel := m.remote(ctx)
	updated, err := m.gw.UpdateMedication(rctx, id, patch)
	cancel()
	if err != nil {
		if !isUnavailable(err) {
			return nil, err
		}
		patch.Apply(cur)
		cur.UpdatedAt = m.now()
		m.replace(cur)
		m.persist(ctx)
		m.degraded("update", id, err)
		return &Result{Medication: cur.Clone(), Degraded: true, Warning: WarnLocalOnly}, nil
	}
	m.replace(updated)
	m.persist(ctx)
	return &Result{Medication: updated.Clone()}, nil
}

// recordMovement envía el movimiento; si falla lo guarda como pendiente y marca el resultado.
func (m *Manager) recordMovement(ctx context.Context, mov *entity.Movement, res *Result) {
	rctx, cancel := m.remote(ctx)
	saved, err := m.gw.AppendMovement(rctx, mov)
	cancel()
	if err == nil {
		if saved.MedicationName == "" {
			saved.MedicationName = mov.MedicationName
		}
		res.Movement = saved
		return
	}
	m.log.Warn().Err(err).Str("type", mov.Type).Str("medication_id", mov.MedicationID).
		Int("quantity", mov.Quantity).Msg("movimiento no registrado, queda pendiente")
	m.cfg.Metrics.MovementAppendFailed(mov.Type)
	m.pendingMu.Lock()
	cerr := m.cache.AppendPendingMovement(ctx, mov)
	m.pendingMu.Unlock()
	if cerr != nil {
		m.log.Error().Err(cerr).Msg("no se pudo guardar el movimiento pendiente")
	}
	res.Movement = mov
	res.Degraded = true
	res.Warning = joinWarnings(res.Warning, WarnMovementPending)
}

func (m *Manager) degraded(operation, id string, err error) {
	m.log.Warn().Err(err).Str("operation", operation).Str("medication_id", id).Msg("escritura degradada, guardada solo en local")
	m.cfg.Metrics.DegradedWrite(operation)
}

// current devuelve una copia del registro o un error de validación si no existe.
func (m *Manager) current(id string) (*entity.Medication, error) {
	med, ok := m.Get(id)
	if !ok {
		return nil, &domain.ValidationError{Field: "id", Message: "medicamento no encontrado", Cause: domain.ErrNotFound}
	}
	return med, nil
}

// find requiere m.mu tomado.
func (m *Manager) find(id string) *entity.Medication {
	for _, med := range m.meds {
		if med.ID == id {
			return med
		}
	}
	return nil
}

func (m *Manager) insert(med *entity.Medication) {
	m.mu.Lock()
	m.meds = sortByName(append(m.meds, med.Clone()))
	m.mu.Unlock()
}

func (m *Manager) replace(med *entity.Medication) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.meds {
		if cur.ID == med.ID {
			m.meds[i] = med.Clone()
			m.meds = sortByName(m.meds)
			return
		}
	}
}

// persist escribe la lista en la caché. Un fallo de caché no interrumpe la operación.
func (m *Manager) persist(ctx context.Context) {
	snapshot := m.List()
	if err := m.cache.SaveMedications(ctx, snapshot); err != nil {
		m.log.Error().Err(err).Msg("no se pudo escribir la caché local")
	}
}

func validatePatch(p entity.MedicationPatch) error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return domain.NewValidationError("name", "el nombre no puede quedar vacío")
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		return domain.NewValidationError("quantity", "la cantidad no puede ser negativa")
	}
	if p.Price != nil && p.Price.IsNegative() {
		return domain.NewValidationError("price", "el precio no puede ser negativo")
	}
	return nil
}

func sortByName(meds []*entity.Medication) []*entity.Medication {
	sort.SliceStable(meds, func(i, j int) bool {
		return strings.ToLower(meds[i].Name) < strings.ToLower(meds[j].Name)
	})
	return meds
}

func joinWarnings(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}
