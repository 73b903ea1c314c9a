package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LowStockThreshold cantidad por debajo de la cual un medicamento se marca con stock bajo.
const LowStockThreshold = 10

// LocalIDPrefix prefijo de los identificadores generados sin conexión al servidor.
const LocalIDPrefix = "local-"

// Medication representa una línea del inventario de la farmacia.
// Quantity nunca es negativa; ExpirationDate es una fecha civil (hora en cero) o nil.
type Medication struct {
	ID             string
	Name           string
	Quantity       int
	Price          decimal.Decimal
	ExpirationDate *time.Time
	CreatedAt      time.Time // fecha de alta ("AddDate")
	UpdatedAt      time.Time
}

// IsLocal indica si el registro solo existe en el espejo local (creado sin servidor).
func (m *Medication) IsLocal() bool {
	return strings.HasPrefix(m.ID, LocalIDPrefix)
}

// IsLowStock indica si la cantidad está por debajo del umbral de stock bajo.
func (m *Medication) IsLowStock() bool {
	return m.Quantity < LowStockThreshold
}

// ExpirationSnapshot copia la fecha de expiración para guardarla en un movimiento.
func (m *Medication) ExpirationSnapshot() *time.Time {
	if m.ExpirationDate == nil {
		return nil
	}
	d := *m.ExpirationDate
	return &d
}

// Clone devuelve una copia independiente del registro.
func (m *Medication) Clone() *Medication {
	c := *m
	c.ExpirationDate = m.ExpirationSnapshot()
	return &c
}

// MedicationPatch conjunto parcial de campos para actualizar un medicamento.
// Un campo nil no se modifica; ClearExpiration elimina la fecha de expiración.
type MedicationPatch struct {
	Name            *string
	Quantity        *int
	Price           *decimal.Decimal
	ExpirationDate  *time.Time
	ClearExpiration bool
}

// IsEmpty indica si el patch no cambia ningún campo.
func (p MedicationPatch) IsEmpty() bool {
	return p.Name == nil && p.Quantity == nil && p.Price == nil && p.ExpirationDate == nil && !p.ClearExpiration
}

// Apply aplica el patch sobre m (in place).
func (p MedicationPatch) Apply(m *Medication) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Quantity != nil {
		m.Quantity = *p.Quantity
	}
	if p.Price != nil {
		m.Price = *p.Price
	}
	if p.ClearExpiration {
		m.ExpirationDate = nil
	} else if p.ExpirationDate != nil {
		d := *p.ExpirationDate
		m.ExpirationDate = &d
	}
}
