package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-api/internal/application/dto"
	"github.com/jhoicas/farmacia-api/internal/domain"
	"github.com/jhoicas/farmacia-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-api/internal/domain/repository"
	"github.com/jhoicas/farmacia-api/pkg/textnorm"
)

// MedicationUseCase casos de uso CRUD para medicamentos. Los movimientos los registra el cliente.
type MedicationUseCase struct {
	repo repository.MedicationRepository
	now  func() time.Time
}

// NewMedicationUseCase construye el caso de uso.
func NewMedicationUseCase(repo repository.MedicationRepository) *MedicationUseCase {
	return &MedicationUseCase{repo: repo, now: time.Now}
}

// Create valida y crea un medicamento con ID asignado por el servidor.
func (uc *MedicationUseCase) Create(ctx context.Context, in dto.CreateMedicationRequest) (*dto.MedicationResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "el nombre es obligatorio")
	}
	if in.Quantity == nil || *in.Quantity < 0 {
		return nil, domain.NewValidationError("quantity", "la cantidad debe ser un entero mayor o igual a 0")
	}
	if in.Price.IsNegative() {
		return nil, domain.NewValidationError("price", "el precio no puede ser negativo")
	}
	exp, err := dto.ParseDate(in.ExpirationDate)
	if err != nil {
		return nil, domain.NewValidationError("expiration_date", "fecha inválida, use YYYY-MM-DD")
	}
	now := uc.now()
	med := &entity.Medication{
		ID:             uuid.New().String(),
		Name:           name,
		Quantity:       *in.Quantity,
		Price:          in.Price,
		ExpirationDate: exp,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.repo.Create(ctx, med); err != nil {
		return nil, err
	}
	return dto.ToMedicationResponse(med), nil
}

// GetByID obtiene un medicamento; ErrNotFound si no existe.
func (uc *MedicationUseCase) GetByID(ctx context.Context, id string) (*dto.MedicationResponse, error) {
	med, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, domain.ErrNotFound
	}
	return dto.ToMedicationResponse(med), nil
}

// Update aplica un patch parcial. Un patch vacío devuelve el registro sin tocarlo.
func (uc *MedicationUseCase) Update(ctx context.Context, id string, in dto.UpdateMedicationRequest) (*dto.MedicationResponse, error) {
	patch, err := PatchFromRequest(in)
	if err != nil {
		return nil, err
	}
	med, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, domain.ErrNotFound
	}
	if patch.IsEmpty() {
		return dto.ToMedicationResponse(med), nil
	}
	patch.Apply(med)
	med.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, med); err != nil {
		return nil, err
	}
	return dto.ToMedicationResponse(med), nil
}

// List devuelve los medicamentos ordenados por nombre; q filtra por nombre sin distinguir tildes.
func (uc *MedicationUseCase) List(ctx context.Context, q string) ([]dto.MedicationResponse, error) {
	list, err := uc.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]dto.MedicationResponse, 0, len(list))
	for _, m := range list {
		if q != "" && !textnorm.Contains(m.Name, q) {
			continue
		}
		items = append(items, *dto.ToMedicationResponse(m))
	}
	return items, nil
}

// Delete elimina un medicamento. Los movimientos que lo referencian se conservan.
func (uc *MedicationUseCase) Delete(ctx context.Context, id string) error {
	ok, err := uc.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

// PatchFromRequest valida el request de actualización y lo convierte en patch de dominio.
func PatchFromRequest(in dto.UpdateMedicationRequest) (entity.MedicationPatch, error) {
	var p entity.MedicationPatch
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return p, domain.NewValidationError("name", "el nombre no puede quedar vacío")
		}
		p.Name = &name
	}
	if in.Quantity != nil {
		if *in.Quantity < 0 {
			return p, domain.NewValidationError("quantity", "la cantidad no puede ser negativa")
		}
		q := *in.Quantity
		p.Quantity = &q
	}
	if in.Price != nil {
		if in.Price.LessThan(decimal.Zero) {
			return p, domain.NewValidationError("price", "el precio no puede ser negativo")
		}
		price := *in.Price
		p.Price = &price
	}
	if in.ExpirationDate != nil {
		exp, err := dto.ParseDate(*in.ExpirationDate)
		if err != nil {
			return p, domain.NewValidationError("expiration_date", "fecha inválida, use YYYY-MM-DD")
		}
		if exp == nil {
			p.ClearExpiration = true
		} else {
			p.ExpirationDate = exp
		}
	}
	return p, nil
}
