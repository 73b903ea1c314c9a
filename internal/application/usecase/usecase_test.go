package usecase_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-api/internal/application/dto"
	"github.com/jhoicas/farmacia-api/internal/application/usecase"
	"github.com/jhoicas/farmacia-api/internal/domain"
	"github.com/jhoicas/farmacia-api/internal/domain/entity"
)

type memMedications struct {
	rows map[string]*entity.Medication
}

func newMemMedications() *memMedications {
	return &memMedications{rows: map[string]*entity.Medication{}}
}

func (r *memMedications) Create(_ context.Context, m *entity.Medication) error {
	r.rows[m.ID] = m.Clone()
	return nil
}

func (r *memMedications) GetByID(_ context.Context, id string) (*entity.Medication, error) {
	if m, ok := r.rows[id]; ok {
		return m.Clone(), nil
	}
	return nil, nil
}

func (r *memMedications) Update(_ context.Context, m *entity.Medication) error {
	r.rows[m.ID] = m.Clone()
	return nil
}

func (r *memMedications) List(context.Context) ([]*entity.Medication, error) {
	out := make([]*entity.Medication, 0, len(r.rows))
	for _, m := range r.rows {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memMedications) Delete(_ context.Context, id string) (bool, error) {
	_, ok := r.rows[id]
	delete(r.rows, id)
	return ok, nil
}

type memMovements struct {
	rows []*entity.Movement
}

func (r *memMovements) Create(_ context.Context, m *entity.Movement) error {
	r.rows = append(r.rows, m)
	return nil
}

func (r *memMovements) List(_ context.Context, t string) ([]*entity.Movement, error) {
	var out []*entity.Movement
	for _, m := range r.rows {
		if t == "" || m.Type == t {
			out = append(out, m)
		}
	}
	return out, nil
}

func intPtr(n int) *int { return &n }

func TestMedicationUseCase_CreateValida(t *testing.T) {
	uc := usecase.NewMedicationUseCase(newMemMedications())
	ctx := context.Background()

	cases := []struct {
		name  string
		in    dto.CreateMedicationRequest
		field string
	}{
		{"nombre vacío", dto.CreateMedicationRequest{Name: "   ", Quantity: intPtr(1)}, "name"},
		{"sin cantidad", dto.CreateMedicationRequest{Name: "X"}, "quantity"},
		{"cantidad negativa", dto.CreateMedicationRequest{Name: "X", Quantity: intPtr(-1)}, "quantity"},
		{"precio negativo", dto.CreateMedicationRequest{Name: "X", Quantity: intPtr(1), Price: decimal.NewFromInt(-1)}, "price"},
		{"fecha inválida", dto.CreateMedicationRequest{Name: "X", Quantity: intPtr(1), ExpirationDate: "31/12/2026"}, "expiration_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Create(ctx, tc.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestMedicationUseCase_CrudCompleto(t *testing.T) {
	repo := newMemMedications()
	uc := usecase.NewMedicationUseCase(repo)
	ctx := context.Background()

	created, err := uc.Create(ctx, dto.CreateMedicationRequest{
		Name: " Paracetamol ", Quantity: intPtr(100), Price: decimal.RequireFromString("0.50"), ExpirationDate: "2027-01-31",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Paracetamol", created.Name)
	require.NotNil(t, created.ExpirationDate)
	assert.Equal(t, "2027-01-31", *created.ExpirationDate)

	qty := 95
	empty := ""
	updated, err := uc.Update(ctx, created.ID, dto.UpdateMedicationRequest{Quantity: &qty, ExpirationDate: &empty})
	require.NoError(t, err)
	assert.Equal(t, 95, updated.Quantity)
	assert.Equal(t, "Paracetamol", updated.Name, "los campos ausentes no cambian")
	assert.Nil(t, updated.ExpirationDate, "expiration_date vacío borra la fecha")

	require.NoError(t, uc.Delete(ctx, created.ID))
	_, err = uc.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, uc.Delete(ctx, created.ID), domain.ErrNotFound)
}

func TestMedicationUseCase_ListBuscaSinTildes(t *testing.T) {
	uc := usecase.NewMedicationUseCase(newMemMedications())
	ctx := context.Background()
	for _, n := range []string{"Ácido fólico", "Ibuprofeno", "Acetaminofén"} {
		_, err := uc.Create(ctx, dto.CreateMedicationRequest{Name: n, Quantity: intPtr(1)})
		require.NoError(t, err)
	}

	all, err := uc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Acetaminofén", all[0].Name)

	found, err := uc.List(ctx, "acido")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ácido fólico", found[0].Name)
}

func TestMedicationUseCase_UpdateInexistente(t *testing.T) {
	uc := usecase.NewMedicationUseCase(newMemMedications())
	_, err := uc.Update(context.Background(), "nope", dto.UpdateMedicationRequest{Quantity: intPtr(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMovementUseCase_CreateNormalizaYFecha(t *testing.T) {
	repo := &memMovements{}
	loc := entity.MovementZone(-6)
	uc := usecase.NewMovementUseCase(repo, loc)

	out, err := uc.Create(context.Background(), dto.CreateMovementRequest{
		MedicationID: "m1", Type: " Salida ", Quantity: 3, ExpirationDate: "2026-12-31",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeSalida, out.Type)
	_, offset := out.MovementDate.Zone()
	assert.Equal(t, -6*3600, offset, "la fecha se registra en la zona civil fija")
	require.Len(t, repo.rows, 1)
	require.NotNil(t, repo.rows[0].ExpirationDate)
}

func TestMovementUseCase_CreateRechaza(t *testing.T) {
	uc := usecase.NewMovementUseCase(&memMovements{}, time.UTC)
	ctx := context.Background()

	_, err := uc.Create(ctx, dto.CreateMovementRequest{MedicationID: "m1", Type: "ajuste", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Create(ctx, dto.CreateMovementRequest{MedicationID: "m1", Type: "entrada", Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMovementUseCase_ListFiltraPorTipo(t *testing.T) {
	repo := &memMovements{}
	uc := usecase.NewMovementUseCase(repo, time.UTC)
	ctx := context.Background()
	for _, tp := range []string{"entrada", "salida", "salida"} {
		_, err := uc.Create(ctx, dto.CreateMovementRequest{MedicationID: "m1", Type: tp, Quantity: 1})
		require.NoError(t, err)
	}

	sales, err := uc.List(ctx, "SALIDA")
	require.NoError(t, err)
	assert.Len(t, sales, 2)

	all, err := uc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
