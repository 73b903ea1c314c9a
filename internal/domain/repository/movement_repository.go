package repository

import (
	"context"

	"github.com/jhoicas/farmacia-api/internal/domain/entity"
)

// MovementRepository define el puerto de persistencia para movimientos (solo inserción y lectura).
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	// List devuelve los movimientos con el nombre del medicamento (join); movementType vacío = todos.
	List(ctx context.Context, movementType string) ([]*entity.Movement, error)
}
