package inventory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-api/internal/application/inventory"
	"github.com/jhoicas/farmacia-api/internal/domain"
	"github.com/jhoicas/farmacia-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-api/pkg/metrics"
)

// fakeGateway servidor en memoria con interruptores de falla.
type fakeGateway struct {
	mu        sync.Mutex
	meds      map[string]*entity.Medication
	movements []*entity.Movement
	calls     []string
	seq       int

	down       bool // todas las llamadas fallan como "no disponible"
	failAppend bool
	rejectType string // AppendMovement responde 400 para este tipo
	failDelete bool
	block      bool // espera hasta que venza el contexto
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{meds: map[string]*entity.Medication{}}
}

func (g *fakeGateway) enter(ctx context.Context, call string) error {
	g.mu.Lock()
	g.calls = append(g.calls, call)
	block, down := g.block, g.down
	g.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if down {
		return fmt.Errorf("%s: %w", call, domain.ErrRemoteUnavailable)
	}
	return nil
}

func (g *fakeGateway) ListMedications(ctx context.Context) ([]*entity.Medication, error) {
	if err := g.enter(ctx, "list"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*entity.Medication, 0, len(g.meds))
	for _, m := range g.meds {
		out = append(out, m.Clone())
	}
	return out, nil
}

func (g *fakeGateway) CreateMedication(ctx context.Context, draft *entity.Medication) (*entity.Medication, error) {
	if err := g.enter(ctx, "create"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	m := draft.Clone()
	m.ID = fmt.Sprintf("srv-%d", g.seq)
	m.CreatedAt = time.Now()
	g.meds[m.ID] = m
	return m.Clone(), nil
}

func (g *fakeGateway) UpdateMedication(ctx context.Context, id string, patch entity.MedicationPatch) (*entity.Medication, error) {
	if err := g.enter(ctx, "update"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.meds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	patch.Apply(m)
	return m.Clone(), nil
}

func (g *fakeGateway) DeleteMedication(ctx context.Context, id string) error {
	if err := g.enter(ctx, "delete"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failDelete {
		return fmt.Errorf("delete: %w", domain.ErrRemoteUnavailable)
	}
	delete(g.meds, id)
	return nil
}

func (g *fakeGateway) AppendMovement(ctx context.Context, mov *entity.Movement) (*entity.Movement, error) {
	if err := g.enter(ctx, "append:"+mov.Type); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAppend {
		return nil, fmt.Errorf("append: %w", domain.ErrRemoteUnavailable)
	}
	if mov.Type == g.rejectType {
		return nil, fmt.Errorf("append: %w", domain.ErrInvalidInput)
	}
	g.seq++
	saved := *mov
	saved.ID = fmt.Sprintf("mov-%d", g.seq)
	g.movements = append(g.movements, &saved)
	return &saved, nil
}

func (g *fakeGateway) set(f func(g *fakeGateway)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f(g)
}

func (g *fakeGateway) movementCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.movements)
}

// memCache caché en memoria.
type memCache struct {
	mu      sync.Mutex
	meds    []*entity.Medication
	pending []*entity.Movement
}

func (c *memCache) SaveMedications(_ context.Context, meds []*entity.Medication) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meds = meds
	return nil
}

func (c *memCache) LoadMedications(context.Context) ([]*entity.Medication, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meds, nil
}

func (c *memCache) AppendPendingMovement(_ context.Context, mov *entity.Movement) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, mov)
	return nil
}

func (c *memCache) PendingMovements(context.Context) ([]*entity.Movement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*entity.Movement(nil), c.pending...), nil
}

func (c *memCache) SetPendingMovements(_ context.Context, movs []*entity.Movement) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = movs
	return nil
}

var managua = entity.MovementZone(-6)

type fixture struct {
	gw      *fakeGateway
	cache   *memCache
	metrics *metrics.Metrics
	mgr     *inventory.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{gw: newFakeGateway(), cache: &memCache{}, metrics: metrics.New()}
	f.mgr = inventory.NewManager(f.gw, f.cache, inventory.Config{
		Timeout:  200 * time.Millisecond,
		Location: managua,
		Metrics:  f.metrics,
	})
	return f
}

// seed da de alta un medicamento con el servidor disponible.
func (f *fixture) seed(t *testing.T, name string, qty int) *entity.Medication {
	t.Helper()
	res, err := f.mgr.Add(context.Background(), inventory.Draft{Name: name, Quantity: qty, Price: decimal.RequireFromString("0.50")})
	require.NoError(t, err)
	require.False(t, res.Degraded)
	return res.Medication
}

func TestAdd_ConServidorRegistraMovimientoNuevo(t *testing.T) {
	f := newFixture(t)

	res, err := f.mgr.Add(context.Background(), inventory.Draft{
		Name: "Paracetamol", Quantity: 100, Price: decimal.RequireFromString("0.50"),
	})
	require.NoError(t, err)

	assert.False(t, res.Degraded)
	assert.False(t, res.Medication.IsLocal(), "id asignado por el servidor")
	require.Len(t, f.mgr.List(), 1)
	require.Equal(t, 1, f.gw.movementCount())
	mov := f.gw.movements[0]
	assert.Equal(t, entity.MovementTypeNuevo, mov.Type)
	assert.Equal(t, 100, mov.Quantity)
	assert.Equal(t, res.Medication.ID, mov.MedicationID)
	_, offset := mov.MovementDate.Zone()
	assert.Equal(t, -6*3600, offset)
	assert.Len(t, f.cache.meds, 1, "la caché refleja la lista")
}

func TestAdd_SinServidorCreaRegistroLocalSinMovimiento(t *testing.T) {
	f := newFixture(t)
	f.gw.set(func(g *fakeGateway) { g.down = true })

	res, err := f.mgr.Add(context.Background(), inventory.Draft{Name: "Ibuprofeno", Quantity: 20, Price: decimal.NewFromInt(1)})
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.Equal(t, inventory.WarnLocalOnly, res.Warning)
	assert.True(t, res.Medication.IsLocal())
	assert.Nil(t, res.Movement)
	assert.Equal(t, 0, f.gw.movementCount())
	require.Len(t, f.cache.meds, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.DegradedWrites.WithLabelValues("add")))
}

func TestAdd_CantidadCeroNoRegistraMovimiento(t *testing.T) {
	f := newFixture(t)
	res, err := f.mgr.Add(context.Background(), inventory.Draft{Name: "Loratadina", Quantity: 0})
	require.NoError(t, err)
	assert.Nil(t, res.Movement)
	assert.Equal(t, 0, f.gw.movementCount())
}

func TestAdd_ValidacionSinEfectos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, d := range []inventory.Draft{
		{Name: "  ", Quantity: 1},
		{Name: "X", Quantity: -1},
		{Name: "X", Quantity: 1, Price: decimal.NewFromInt(-1)},
	} {
		_, err := f.mgr.Add(ctx, d)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	assert.Empty(t, f.mgr.List())
	assert.Empty(t, f.gw.calls, "la validación ocurre antes de llamar al servidor")
}

func TestSellRestock_ConservaCantidadYUnMovimientoPorOperacion(t *testing.T) {
	f := newFixture(t)
	med := f.seed(t, "Amoxicilina", 100)
	ctx := context.Background()
	before := f.gw.movementCount()

	ops := []struct {
		sell bool
		qty  int
	}{{true, 10}, {false, 5}, {true, 30}, {true, 1}, {false, 40}, {true, 4}}
	want := 100
	for _, op := range ops {
		var (
			res *inventory.Result
			err error
		)
		if op.sell {
			res, err = f.mgr.Sell(ctx, med.ID, op.qty)
			want -= op.qty
		} else {
			res, err = f.mgr.Restock(ctx, med.ID, op.qty)
			want += op.qty
		}
		require.NoError(t, err)
		require.False(t, res.Degraded)
		require.NotNil(t, res.Movement)
		assert.Equal(t, op.qty, res.Movement.Quantity)
		if op.sell {
			assert.Equal(t, entity.MovementTypeSalida, res.Movement.Type)
		} else {
			assert.Equal(t, entity.MovementTypeEntrada, res.Movement.Type)
		}
	}

	got, ok := f.mgr.Get(med.ID)
	require.True(t, ok)
	assert.Equal(t, want, got.Quantity)
	assert.Equal(t, want, f.gw.meds[med.ID].Quantity)
	assert.Equal(t, before+len(ops), f.gw.movementCount())
}

func TestSell_MasQueElStockSeRechazaSinEfectos(t *testing.T) {
	f := newFixture(t)
	med := f.seed(t, "Omeprazol", 5)
	movs := f.gw.movementCount()

	_, err := f.mgr.Sell(context.Background(), med.ID, 6)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	got, _ := f.mgr.Get(med.ID)
	assert.Equal(t, 5, got.Quantity)
	assert.Equal(t, movs, f.gw.movementCount())
}

func TestSellRestock_CantidadInvalidaOInexistente(t *testing.T) {
	f := newFixture(t)
	med := f.seed(t, "Omeprazol", 5)
	ctx := context.Background()

	_, err := f.mgr.Sell(ctx, med.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.mgr.Restock(ctx, med.ID, -2)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.mgr.Sell(ctx, "no-existe", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSell_FallaSoloElMovimientoQuedaPendiente(t *testing.T) {
	f := newFixture(t)
	exp := time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)
	res, err := f.mgr.Add(context.Background(), inventory.Draft{Name: "Diclofenaco", Quantity: 10, ExpirationDate: &exp})
	require.NoError(t, err)
	f.gw.set(func(g *fakeGateway) { g.failAppend = true })

	sold, err := f.mgr.Sell(context.Background(), res.Medication.ID, 3)
	require.NoError(t, err)

	assert.True(t, sold.Degraded)
	assert.Equal(t, inventory.WarnMovementPending, sold.Warning)
	assert.Equal(t, 7, sold.Medication.Quantity, "la cantidad sí se actualizó en el servidor")
	pending, err := f.mgr.PendingMovements(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entity.MovementTypeSalida, pending[0].Type)
	assert.Equal(t, 3, pending[0].Quantity)
	require.NotNil(t, pending[0].ExpirationDate)
	assert.True(t, exp.Equal(*pending[0].ExpirationDate), "copia de la expiración al momento de la venta")
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.MovementFailures.WithLabelValues("salida")))

	f.gw.set(func(g *fakeGateway) { g.failAppend = false })
	sent, err := f.mgr.RetryPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	pending, _ = f.mgr.PendingMovements(context.Background())
	assert.Empty(t, pending)
}

func TestSell_SinServidorDegradaSinMovimiento(t *testing.T) {
	f := newFixture(t)
	med := f.seed(t, "Cetirizina", 10)
	movs := f.gw.movementCount()
	f.gw.set(func(g *fakeGateway) { g.down = true })

	res, err := f.mgr.Sell(context.Background(), med.ID, 4)
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.Nil(t, res.Movement)
	assert.Equal(t, 6, res.Medication.Quantity)
	got, _ := f.mgr.Get(med.ID)
	assert.Equal(t, 6, got.Quantity)
	assert.Equal(t, movs, f.gw.movementCount())
	pending, _ := f.mgr.PendingMovements(context.Background())
	assert.Empty(t, pending, "si la actualización no llegó al servidor no se intenta el movimiento")
}

func TestUpdate_TimeoutEquivaleANoDisponible(t *testing.T) {
	f := newFixture(t)
	med := f.seed(t, "Salbutamol", 3)
	f.gw.set(func(g *fakeGateway) { g.block = true })

	name := "Salbutamol inhalador"
	res, err := f.mgr.Update(context.Background(), med.ID, entity.MedicationPatch{Name: &name})
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.Equal(t, name, res.Medication.Name)
	assert.Equal(t, name, f.cache.meds[0].Name)
}

func TestUpdate_ErrorDelServidorNoSeDegrada(t *testing.T) {
	f := newFixture(t)
	med := f.seed(t, "Salbutamol", 3)
	f.gw.set(func(g *fakeGateway) { delete(g.meds, med.ID) })

	qty := 9
	_, err := f.mgr.Update(context.Background(), med.ID, entity.MedicationPatch{Quantity: &qty})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	got, _ := f.mgr.Get(med.ID)
	assert.Equal(t, 3, got.Quantity)
}

func TestUpdate_CambioDeCantidadRegistraMovimiento(t *testing.T) {
	f := newFixture(t)
	med := f.seed(t, "Paracetamol", 100)
	ctx := context.Background()

	qty := 40
	res, err := f.mgr.Update(ctx, med.ID, entity.MedicationPatch{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 40, res.Medication.Quantity)
	require.NotNil(t, res.Movement)
	assert.Equal(t, entity.MovementTypeSalida, res.Movement.Type)
	assert.Equal(t, 60, res.Movement.Quantity)
	assert.Equal(t, med.ID, res.Movement.MedicationID)
	assert.Equal(t, 2, f.gw.movementCount())

	qty = 55
	res, err = f.mgr.Update(ctx, med.ID, entity.MedicationPatch{Quantity: &qty})
	require.NoError(t, err)
	require.NotNil(t, res.Movement)
	assert.Equal(t, entity.MovementTypeEntrada, res.Movement.Type)
	assert.Equal(t, 15, res.Movement.Quantity)
	assert.Equal(t, 3, f.gw.movementCount())

	name := "Paracetamol 500mg"
	res, err = f.mgr.Update(ctx, med.ID, entity.MedicationPatch{Name: &name, Quantity: &qty})
	require.NoError(t, err)
	assert.Nil(t, res.Movement, "sin diferencia de cantidad no hay movimiento")
	assert.Equal(t, 3, f.gw.movementCount())
}

func TestUpdate_QuitarExpiracion(t *testing.T) {
	f := newFixture(t)
	exp := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	added, err := f.mgr.Add(context.Background(), inventory.Draft{Name: "Omeprazol", Quantity: 5, ExpirationDate: &exp})
	require.NoError(t, err)

	res, err := f.mgr.Update(context.Background(), added.Medication.ID, entity.MedicationPatch{ClearExpiration: true})
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Nil(t, res.Medication.ExpirationDate)
	assert.Nil(t, res.Movement)
}

func TestRetryPending_DescartaLosRechazadosPorElServidor(t *testing.T) {
	f := newFixture(t)
	med := f.seed(t, "Cetirizina", 20)
	ctx := context.Background()
	f.gw.set(func(g *fakeGateway) { g.failAppend = true })
	_, err := f.mgr.Sell(ctx, med.ID, 2)
	require.NoError(t, err)
	_, err = f.mgr.Restock(ctx, med.ID, 5)
	require.NoError(t, err)

	f.gw.set(func(g *fakeGateway) {
		g.failAppend = false
		g.rejectType = entity.MovementTypeSalida
	})
	sent, err := f.mgr.RetryPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	pending, err := f.mgr.PendingMovements(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "el rechazado no se reintenta para siempre")
}

func TestRetryPending_NoPierdePendientesConcurrentes(t *testing.T) {
	f := newFixture(t)
	med := f.seed(t, "Metformina", 100)
	ctx := context.Background()
	f.gw.set(func(g *fakeGateway) { g.failAppend = true })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.mgr.Sell(ctx, med.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			_, err := f.mgr.RetryPending(ctx)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	pending, err := f.mgr.PendingMovements(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 10)
}

func TestRemove_MovimientoAntesDeLaBajaAunqueFalleElServidor(t *testing.T) {
	f := newFixture(t)
	med := f.seed(t, "Ranitidina", 12)
	f.gw.set(func(g *fakeGateway) {
		g.failDelete = true
		g.calls = nil
	})

	res, err := f.mgr.Remove(context.Background(), med.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"append:eliminado", "delete"}, f.gw.calls)
	require.NotNil(t, res.Movement)
	assert.Equal(t, 12, res.Movement.Quantity)
	assert.True(t, res.Degraded)
	_, ok := f.mgr.Get(med.ID)
	assert.False(t, ok, "la baja siempre es efectiva en local")
	assert.Empty(t, f.cache.meds)
}

func TestRemove_RegistroLocalNoLlamaDelete(t *testing.T) {
	f := newFixture(t)
	f.gw.set(func(g *fakeGateway) { g.down = true })
	res, err := f.mgr.Add(context.Background(), inventory.Draft{Name: "Local", Quantity: 2})
	require.NoError(t, err)
	f.gw.set(func(g *fakeGateway) {
		g.down = false
		g.calls = nil
	})

	_, err = f.mgr.Remove(context.Background(), res.Medication.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"append:eliminado"}, f.gw.calls)
	assert.Empty(t, f.mgr.List())
}

func TestSell_ConcurrenteNoPierdeActualizaciones(t *testing.T) {
	f := newFixture(t)
	med := f.seed(t, "Metformina", 100)
	before := f.gw.movementCount()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.mgr.Sell(context.Background(), med.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, _ := f.mgr.Get(med.ID)
	assert.Equal(t, 50, got.Quantity)
	assert.Equal(t, 50, f.gw.meds[med.ID].Quantity)
	assert.Equal(t, before+50, f.gw.movementCount())
}

func TestLoad_UsaCacheSinServidor(t *testing.T) {
	f := newFixture(t)
	f.cache.meds = []*entity.Medication{{ID: "c1", Name: "Zinc"}, {ID: "c2", Name: "Ácido fólico"}}
	f.gw.set(func(g *fakeGateway) { g.down = true })

	fromCache, err := f.mgr.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, fromCache)
	require.Len(t, f.mgr.List(), 2)

	found := f.mgr.Search("acido")
	require.Len(t, found, 1)
	assert.Equal(t, "c2", found[0].ID)
}

func TestReload_ReemplazaLaLista(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "Uno", 1)
	f.gw.set(func(g *fakeGateway) {
		g.meds = map[string]*entity.Medication{"x": {ID: "x", Name: "Otro"}}
	})

	require.NoError(t, f.mgr.Reload(context.Background()))
	list := f.mgr.List()
	require.Len(t, list, 1)
	assert.Equal(t, "x", list[0].ID)
}
