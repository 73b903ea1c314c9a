package inventory

import (
	"context"

	"github.com/jhoicas/farmacia-api/internal/domain/entity"
)

// Gateway acceso al almacén remoto (API de persistencia). Los fallos de red, timeouts y 5xx
// se reportan envueltos en domain.ErrRemoteUnavailable.
type Gateway interface {
	ListMedications(ctx context.Context) ([]*entity.Medication, error)
	CreateMedication(ctx context.Context, draft *entity.Medication) (*entity.Medication, error)
	UpdateMedication(ctx context.Context, id string, patch entity.MedicationPatch) (*entity.Medication, error)
	DeleteMedication(ctx context.Context, id string) error
	AppendMovement(ctx context.Context, mov *entity.Movement) (*entity.Movement, error)
}

// Cache espejo local persistente de la lista de medicamentos y bitácora de movimientos pendientes.
type Cache interface {
	SaveMedications(ctx context.Context, meds []*entity.Medication) error
	LoadMedications(ctx context.Context) ([]*entity.Medication, error)
	AppendPendingMovement(ctx context.Context, mov *entity.Movement) error
	PendingMovements(ctx context.Context) ([]*entity.Movement, error)
	SetPendingMovements(ctx context.Context, movs []*entity.Movement) error
}
