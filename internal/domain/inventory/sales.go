package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-api/internal/domain/entity"
)

// UnknownProduct nombre mostrado cuando el medicamento referenciado ya no existe.
const UnknownProduct = "Producto desconocido"

// SaleItem una línea de venta dentro de una transacción.
// UnitPrice es el precio actual del medicamento, no el precio al momento de la venta.
type SaleItem struct {
	MovementID     string
	MedicationID   string
	ProductName    string
	Quantity       int
	UnitPrice      decimal.Decimal
	Subtotal       decimal.Decimal
	MovementDate   time.Time
	ExpirationDate *time.Time
}

// SaleTransaction agrupa las salidas registradas en el mismo minuto (aproximación de "un cobro";
// el sistema no guarda un identificador de orden).
type SaleTransaction struct {
	ID             string
	Date           time.Time // fecha de la primera salida del grupo
	Minute         time.Time
	Items          []SaleItem
	TotalUnits     int
	UniqueProducts int
	Total          decimal.Decimal
}

// SalesSummary totales de un conjunto de transacciones.
type SalesSummary struct {
	Transactions int
	Items        int
	Units        int
	Revenue      decimal.Decimal
}

// medicationIndex indexa medicamentos por ID.
type medicationIndex map[string]*entity.Medication

func indexMedications(meds []*entity.Medication) medicationIndex {
	idx := make(medicationIndex, len(meds))
	for _, m := range meds {
		idx[m.ID] = m
	}
	return idx
}

func (idx medicationIndex) name(mov *entity.Movement) string {
	if m, ok := idx[mov.MedicationID]; ok && m.Name != "" {
		return m.Name
	}
	if mov.MedicationName != "" {
		return mov.MedicationName
	}
	return UnknownProduct
}

func (idx medicationIndex) price(id string) decimal.Decimal {
	if m, ok := idx[id]; ok {
		return m.Price
	}
	return decimal.Zero
}

// GroupSales toma los movimientos de tipo salida, los ordena por fecha ascendente y abre un grupo
// nuevo cada vez que cambia el minuto truncado. Los grupos se devuelven del más reciente al más antiguo.
// Salidas del mismo minuto quedan juntas aunque sean de medicamentos distintos.
func GroupSales(movs []*entity.Movement, meds []*entity.Medication) []SaleTransaction {
	idx := indexMedications(meds)

	sales := make([]*entity.Movement, 0, len(movs))
	for _, m := range movs {
		if entity.NormalizeMovementType(m.Type) == entity.MovementTypeSalida {
			sales = append(sales, m)
		}
	}
	sort.SliceStable(sales, func(i, j int) bool {
		return sales[i].MovementDate.Before(sales[j].MovementDate)
	})

	var groups []SaleTransaction
	var current *SaleTransaction
	for i, s := range sales {
		minute := s.MovementDate.Truncate(time.Minute)
		if current == nil || !minute.Equal(current.Minute) {
			if current != nil {
				groups = append(groups, *current)
			}
			current = &SaleTransaction{
				ID:     fmt.Sprintf("venta-%d-%d", minute.UnixMilli(), i),
				Date:   s.MovementDate,
				Minute: minute,
				Total:  decimal.Zero,
			}
		}
		price := idx.price(s.MedicationID)
		subtotal := price.Mul(decimal.NewFromInt(int64(s.Quantity)))
		current.Items = append(current.Items, SaleItem{
			MovementID:     s.ID,
			MedicationID:   s.MedicationID,
			ProductName:    idx.name(s),
			Quantity:       s.Quantity,
			UnitPrice:      price,
			Subtotal:       subtotal,
			MovementDate:   s.MovementDate,
			ExpirationDate: s.ExpirationDate,
		})
		current.TotalUnits += s.Quantity
		current.Total = current.Total.Add(subtotal)
	}
	if current != nil {
		groups = append(groups, *current)
	}

	for i := range groups {
		names := make(map[string]struct{}, len(groups[i].Items))
		for _, it := range groups[i].Items {
			names[it.ProductName] = struct{}{}
		}
		groups[i].UniqueProducts = len(names)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Date.After(groups[j].Date)
	})
	return groups
}

// SummarizeSales calcula totales para la cabecera del historial de ventas.
func SummarizeSales(groups []SaleTransaction) SalesSummary {
	sum := SalesSummary{Revenue: decimal.Zero}
	for _, g := range groups {
		sum.Transactions++
		sum.Items += len(g.Items)
		sum.Units += g.TotalUnits
		sum.Revenue = sum.Revenue.Add(g.Total)
	}
	return sum
}
