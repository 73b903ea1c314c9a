package inventory

import (
	"fmt"
	"time"

	"github.com/jhoicas/farmacia-api/internal/domain/entity"
)

// TimeFilter periodo de consulta de los historiales.
type TimeFilter string

const (
	FilterToday      TimeFilter = "hoy"
	FilterLast7Days  TimeFilter = "7dias"
	FilterLast30Days TimeFilter = "30dias"
	FilterAll        TimeFilter = "todos"
)

// ParseTimeFilter valida el filtro; vacío equivale a "hoy".
func ParseTimeFilter(s string) (TimeFilter, error) {
	switch f := TimeFilter(s); f {
	case "":
		return FilterToday, nil
	case FilterToday, FilterLast7Days, FilterLast30Days, FilterAll:
		return f, nil
	}
	return "", fmt.Errorf("filtro de tiempo desconocido %q", s)
}

// Since devuelve el inicio del periodo (medianoche en la zona de now) o false si no hay límite.
func (f TimeFilter) Since(now time.Time) (time.Time, bool) {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch f {
	case FilterToday:
		return midnight, true
	case FilterLast7Days:
		return midnight.AddDate(0, 0, -7), true
	case FilterLast30Days:
		return midnight.AddDate(0, 0, -30), true
	}
	return time.Time{}, false
}

// Period filtro de periodo más una fecha específica opcional. Una fecha específica ignora el filtro.
type Period struct {
	Filter TimeFilter
	Date   *time.Time
}

// Apply devuelve los movimientos dentro del periodo. Las fechas se comparan en la zona de now.
func (p Period) Apply(movs []*entity.Movement, now time.Time) []*entity.Movement {
	out := make([]*entity.Movement, 0, len(movs))
	if p.Date != nil {
		want := CivilDate(*p.Date)
		for _, m := range movs {
			if CivilDate(m.MovementDate.In(now.Location())).Equal(want) {
				out = append(out, m)
			}
		}
		return out
	}
	since, bounded := p.Filter.Since(now)
	for _, m := range movs {
		if !bounded || !m.MovementDate.Before(since) {
			out = append(out, m)
		}
	}
	return out
}
