package dto

import (
	"time"

	"github.com/jhoicas/farmacia-api/internal/domain/entity"
)

// CreateMovementRequest entrada para registrar un movimiento (solo inserción).
type CreateMovementRequest struct {
	MedicationID   string     `json:"medication_id" validate:"required"`
	Type           string     `json:"type" validate:"required"`
	Quantity       int        `json:"quantity" validate:"min=0"`
	MovementDate   *time.Time `json:"movement_date,omitempty"`
	ExpirationDate string     `json:"expiration_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// MovementResponse salida de un movimiento con el nombre del medicamento (join).
type MovementResponse struct {
	ID             string    `json:"id"`
	MedicationID   string    `json:"medication_id"`
	MedicationName string    `json:"medication_name,omitempty"`
	Type           string    `json:"type"`
	Quantity       int       `json:"quantity"`
	MovementDate   time.Time `json:"movement_date"`
	ExpirationDate *string   `json:"expiration_date"`
}

// ToMovementResponse mapea la entidad al payload.
func ToMovementResponse(m *entity.Movement) *MovementResponse {
	if m == nil {
		return nil
	}
	return &MovementResponse{
		ID:             m.ID,
		MedicationID:   m.MedicationID,
		MedicationName: m.MedicationName,
		Type:           m.Type,
		Quantity:       m.Quantity,
		MovementDate:   m.MovementDate,
		ExpirationDate: FormatDate(m.ExpirationDate),
	}
}

// ToEntity reconstruye la entidad; el tipo se normaliza a minúsculas.
func (r MovementResponse) ToEntity() *entity.Movement {
	m := &entity.Movement{
		ID:             r.ID,
		MedicationID:   r.MedicationID,
		MedicationName: r.MedicationName,
		Type:           entity.NormalizeMovementType(r.Type),
		Quantity:       r.Quantity,
		MovementDate:   r.MovementDate,
	}
	if r.ExpirationDate != nil {
		if d, err := ParseDate(*r.ExpirationDate); err == nil {
			m.ExpirationDate = d
		}
	}
	return m
}

// MovementRequestFromEntity arma el request de alta a partir de un movimiento construido en el cliente.
func MovementRequestFromEntity(m *entity.Movement) CreateMovementRequest {
	date := m.MovementDate
	req := CreateMovementRequest{
		MedicationID: m.MedicationID,
		Type:         m.Type,
		Quantity:     m.Quantity,
		MovementDate: &date,
	}
	if s := FormatDate(m.ExpirationDate); s != nil {
		req.ExpirationDate = *s
	}
	return req
}
