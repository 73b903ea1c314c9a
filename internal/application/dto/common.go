package dto

import (
	"strings"
	"time"
)

// DateLayout formato de fechas civiles en el JSON (expiraciones, filtros de reporte).
const DateLayout = "2006-01-02"

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessageResponse respuesta simple con mensaje (p. ej. al eliminar).
type MessageResponse struct {
	Message string `json:"message"`
}

// ParseDate convierte "YYYY-MM-DD" a medianoche UTC. Cadena vacía -> nil.
// Acepta también timestamps RFC 3339 y se queda con su fecha civil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		ts, err2 := time.Parse(time.RFC3339, s)
		if err2 != nil {
			return nil, err
		}
		y, m, d := ts.Date()
		t = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	return &t, nil
}

// FormatDate serializa una fecha civil; nil -> nil (null en JSON).
func FormatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}
