package inventory

import (
	"sort"
	"time"

	"github.com/jhoicas/farmacia-api/internal/domain/entity"
)

// RestockThreshold distancia mínima entre el alta del medicamento y un movimiento sin tipo
// para clasificarlo como reposición.
const RestockThreshold = time.Minute

// Entry una entrada de stock con su clasificación para mostrar.
type Entry struct {
	Movement    *entity.Movement
	Kind        string // nuevo, entrada o reposicion
	ProductName string
}

// EntriesSummary totales del historial de entradas.
type EntriesSummary struct {
	Entries int
	Units   int
	New     int
	Stock   int
	Restock int
}

// ClassifyEntry devuelve el tipo de entrada de mov. Los tipos explícitos mandan; solo los registros
// antiguos sin tipo se clasifican por heurística contra la fecha de alta del medicamento.
func ClassifyEntry(mov *entity.Movement, med *entity.Medication) string {
	switch t := entity.NormalizeMovementType(mov.Type); t {
	case entity.MovementTypeNuevo, entity.MovementTypeEntrada, entity.MovementTypeReposicion:
		return t
	}
	if med == nil || med.CreatedAt.IsZero() {
		return entity.MovementTypeNuevo
	}
	diff := mov.MovementDate.Sub(med.CreatedAt)
	if diff < 0 {
		diff = -diff
	}
	if diff > RestockThreshold {
		return entity.MovementTypeReposicion
	}
	return entity.MovementTypeNuevo
}

func isEntryCandidate(t string) bool {
	switch entity.NormalizeMovementType(t) {
	case entity.MovementTypeNuevo, entity.MovementTypeEntrada, entity.MovementTypeReposicion, "":
		return true
	}
	return false
}

// Entries filtra y clasifica las entradas de stock, de la más reciente a la más antigua.
func Entries(movs []*entity.Movement, meds []*entity.Medication) []Entry {
	idx := indexMedications(meds)
	out := make([]Entry, 0)
	for _, m := range movs {
		if !isEntryCandidate(m.Type) {
			continue
		}
		out = append(out, Entry{
			Movement:    m,
			Kind:        ClassifyEntry(m, idx[m.MedicationID]),
			ProductName: idx.name(m),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Movement.MovementDate.After(out[j].Movement.MovementDate)
	})
	return out
}

// SummarizeEntries cuenta entradas por tipo y unidades totales.
func SummarizeEntries(entries []Entry) EntriesSummary {
	var s EntriesSummary
	for _, e := range entries {
		s.Entries++
		s.Units += e.Movement.Quantity
		switch e.Kind {
		case entity.MovementTypeNuevo:
			s.New++
		case entity.MovementTypeEntrada:
			s.Stock++
		case entity.MovementTypeReposicion:
			s.Restock++
		}
	}
	return s
}
