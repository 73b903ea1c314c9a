package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/farmacia-api/internal/application/dto"
	"github.com/jhoicas/farmacia-api/internal/domain"
	"github.com/jhoicas/farmacia-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-api/internal/domain/repository"
)

// MovementUseCase registro y consulta de movimientos. No hay edición ni borrado.
type MovementUseCase struct {
	repo repository.MovementRepository
	loc  *time.Location
	now  func() time.Time
}

// NewMovementUseCase construye el caso de uso. loc es la zona civil fija con la que se fechan los movimientos.
func NewMovementUseCase(repo repository.MovementRepository, loc *time.Location) *MovementUseCase {
	if loc == nil {
		loc = time.UTC
	}
	return &MovementUseCase{repo: repo, loc: loc, now: time.Now}
}

// Create registra un movimiento. movement_date ausente = ahora en la zona fija.
// medication_id no se verifica: la referencia es débil y puede apuntar a un medicamento eliminado.
func (uc *MovementUseCase) Create(ctx context.Context, in dto.CreateMovementRequest) (*dto.MovementResponse, error) {
	t := entity.NormalizeMovementType(in.Type)
	if !entity.IsRecordableMovementType(t) {
		return nil, domain.NewValidationError("type", "tipo de movimiento inválido (nuevo, entrada, salida, eliminado)")
	}
	// Una baja de un medicamento sin existencias se registra con cantidad 0.
	if in.Quantity < 0 || (in.Quantity == 0 && t != entity.MovementTypeEliminado) {
		return nil, domain.NewValidationError("quantity", "la cantidad debe ser mayor que 0")
	}
	if in.MedicationID == "" {
		return nil, domain.NewValidationError("medication_id", "el medicamento es obligatorio")
	}
	exp, err := dto.ParseDate(in.ExpirationDate)
	if err != nil {
		return nil, domain.NewValidationError("expiration_date", "fecha inválida, use YYYY-MM-DD")
	}
	date := uc.now().In(uc.loc)
	if in.MovementDate != nil {
		date = in.MovementDate.In(uc.loc)
	}
	mov := &entity.Movement{
		ID:             uuid.New().String(),
		MedicationID:   in.MedicationID,
		Type:           t,
		Quantity:       in.Quantity,
		MovementDate:   date,
		ExpirationDate: exp,
	}
	if err := uc.repo.Create(ctx, mov); err != nil {
		return nil, err
	}
	return dto.ToMovementResponse(mov), nil
}

// List devuelve los movimientos (más recientes primero) con el nombre del medicamento.
func (uc *MovementUseCase) List(ctx context.Context, movementType string) ([]dto.MovementResponse, error) {
	list, err := uc.repo.List(ctx, entity.NormalizeMovementType(movementType))
	if err != nil {
		return nil, err
	}
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		m.MovementDate = m.MovementDate.In(uc.loc)
		items = append(items, *dto.ToMovementResponse(m))
	}
	return items, nil
}
