package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-api/internal/domain/entity"
)

// CreateMedicationRequest entrada para crear un medicamento.
type CreateMedicationRequest struct {
	Name           string          `json:"name" validate:"required,max=200"`
	Quantity       *int            `json:"quantity" validate:"required,min=0"`
	Price          decimal.Decimal `json:"price"`
	ExpirationDate string          `json:"expiration_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateMedicationRequest patch parcial. expiration_date "" borra la fecha.
type UpdateMedicationRequest struct {
	Name           *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Quantity       *int             `json:"quantity,omitempty" validate:"omitempty,min=0"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	ExpirationDate *string          `json:"expiration_date,omitempty"`
}

// MedicationResponse salida de un medicamento.
type MedicationResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	ExpirationDate *string         `json:"expiration_date"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at,omitzero"`
	LowStock       bool            `json:"low_stock"`
}

// ToMedicationResponse mapea la entidad al payload.
func ToMedicationResponse(m *entity.Medication) *MedicationResponse {
	if m == nil {
		return nil
	}
	return &MedicationResponse{
		ID:             m.ID,
		Name:           m.Name,
		Quantity:       m.Quantity,
		Price:          m.Price,
		ExpirationDate: FormatDate(m.ExpirationDate),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		LowStock:       m.IsLowStock(),
	}
}

// ToEntity reconstruye la entidad desde el payload. Una fecha malformada se descarta.
func (r MedicationResponse) ToEntity() *entity.Medication {
	m := &entity.Medication{
		ID:        r.ID,
		Name:      r.Name,
		Quantity:  r.Quantity,
		Price:     r.Price,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.ExpirationDate != nil {
		if d, err := ParseDate(*r.ExpirationDate); err == nil {
			m.ExpirationDate = d
		}
	}
	return m
}

// PatchFromEntity construye el request de actualización con los campos del patch.
func PatchFromEntity(p entity.MedicationPatch) UpdateMedicationRequest {
	req := UpdateMedicationRequest{Name: p.Name, Quantity: p.Quantity, Price: p.Price}
	switch {
	case p.ClearExpiration:
		empty := ""
		req.ExpirationDate = &empty
	case p.ExpirationDate != nil:
		req.ExpirationDate = FormatDate(p.ExpirationDate)
	}
	return req
}
