package repository

import (
	"context"

	"github.com/jhoicas/farmacia-api/internal/domain/entity"
)

// MedicationRepository define el puerto de persistencia para Medication (DIP).
type MedicationRepository interface {
	Create(ctx context.Context, med *entity.Medication) error
	GetByID(ctx context.Context, id string) (*entity.Medication, error)
	Update(ctx context.Context, med *entity.Medication) error
	// List devuelve todos los medicamentos ordenados por nombre.
	List(ctx context.Context) ([]*entity.Medication, error)
	Delete(ctx context.Context, id string) (bool, error)
}
