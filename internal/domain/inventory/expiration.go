package inventory

import (
	"sort"
	"time"

	"github.com/jhoicas/farmacia-api/internal/domain/entity"
)

// ExpiringSoonDays ventana (en días, inclusive) para marcar un producto como "por vencer".
const ExpiringSoonDays = 30

// ExpirationStatus clasificación de un medicamento según su fecha de expiración.
type ExpirationStatus string

const (
	ExpirationNone    ExpirationStatus = ""
	ExpirationSoon    ExpirationStatus = "por_vencer"
	ExpirationExpired ExpirationStatus = "vencido"
)

// CivilDate devuelve la fecha calendario de t (hora en cero, UTC) según la zona de t.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ClassifyExpiration compara fechas calendario, nunca fecha-hora:
// vencido si exp < hoy, por vencer si hoy <= exp <= hoy+30, sin clasificar en otro caso.
func ClassifyExpiration(exp *time.Time, today time.Time) ExpirationStatus {
	if exp == nil {
		return ExpirationNone
	}
	e := CivilDate(*exp)
	t := CivilDate(today)
	if e.Before(t) {
		return ExpirationExpired
	}
	if !e.After(t.AddDate(0, 0, ExpiringSoonDays)) {
		return ExpirationSoon
	}
	return ExpirationNone
}

// DaysExpired días completos transcurridos desde la expiración (0 si no ha vencido).
func DaysExpired(exp *time.Time, today time.Time) int {
	if exp == nil {
		return 0
	}
	days := int(CivilDate(today).Sub(CivilDate(*exp)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// ExpiredMedication medicamento vencido con los días desde su expiración.
type ExpiredMedication struct {
	Medication  *entity.Medication
	DaysExpired int
}

// ExpiredMedications filtra los medicamentos vencidos a la fecha today, del más antiguo al más reciente.
// No depende del historial de movimientos.
func ExpiredMedications(meds []*entity.Medication, today time.Time) []ExpiredMedication {
	out := make([]ExpiredMedication, 0)
	for _, m := range meds {
		if ClassifyExpiration(m.ExpirationDate, today) != ExpirationExpired {
			continue
		}
		out = append(out, ExpiredMedication{Medication: m, DaysExpired: DaysExpired(m.ExpirationDate, today)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysExpired > out[j].DaysExpired
	})
	return out
}

// ExpiringSoon medicamentos que vencen dentro de la ventana, del más próximo al más lejano.
func ExpiringSoon(meds []*entity.Medication, today time.Time) []*entity.Medication {
	out := make([]*entity.Medication, 0)
	for _, m := range meds {
		if ClassifyExpiration(m.ExpirationDate, today) == ExpirationSoon {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExpirationDate.Before(*out[j].ExpirationDate)
	})
	return out
}
