package entity

import (
	"fmt"
	"strings"
	"time"
)

// Tipos de movimiento registrados.
const (
	MovementTypeNuevo     = "nuevo"     // alta de producto
	MovementTypeEntrada   = "entrada"   // entrada de stock
	MovementTypeSalida    = "salida"    // venta
	MovementTypeEliminado = "eliminado" // baja del producto
	// MovementTypeReposicion solo aparece en registros antiguos o como clasificación de entradas.
	MovementTypeReposicion = "reposicion"
)

// IsRecordableMovementType indica si t puede registrarse como movimiento nuevo.
func IsRecordableMovementType(t string) bool {
	switch t {
	case MovementTypeNuevo, MovementTypeEntrada, MovementTypeSalida, MovementTypeEliminado:
		return true
	}
	return false
}

// NormalizeMovementType lleva el tipo a minúsculas sin espacios ("Salida" -> "salida").
func NormalizeMovementType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// Movement es un registro inmutable de auditoría de un cambio de cantidad.
// Quantity es siempre positiva; el signo lo da Type. MedicationID es una referencia débil.
type Movement struct {
	ID             string
	MedicationID   string
	MedicationName string // solo lectura, viene del join con medications
	Type           string
	Quantity       int
	MovementDate   time.Time
	ExpirationDate *time.Time // copia de la expiración del medicamento al momento del movimiento
}

// NewMovement construye un movimiento para med con la fecha now expresada en loc.
func NewMovement(med *Medication, movementType string, quantity int, now time.Time, loc *time.Location) *Movement {
	if loc != nil {
		now = now.In(loc)
	}
	return &Movement{
		MedicationID:   med.ID,
		MedicationName: med.Name,
		Type:           movementType,
		Quantity:       quantity,
		MovementDate:   now,
		ExpirationDate: med.ExpirationSnapshot(),
	}
}

// MovementZone devuelve la zona horaria civil fija en la que se registran los movimientos.
func MovementZone(offsetHours int) *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*3600)
}
