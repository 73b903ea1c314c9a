// Package metrics expone los colectores Prometheus de la API y del cliente.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics colectores registrados en un Registry propio (no el global) para poder
// instanciarlos varias veces en tests.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	DegradedWrites   *prometheus.CounterVec
	MovementFailures *prometheus.CounterVec
}

// New crea y registra los colectores.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farmacia_http_requests_total",
			Help: "Peticiones HTTP atendidas por método, ruta y código.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "farmacia_http_request_duration_seconds",
			Help:    "Duración de las peticiones HTTP.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		DegradedWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farmacia_degraded_writes_total",
			Help: "Escrituras aplicadas solo en local porque el servidor no respondió.",
		}, []string{"operation"}),
		MovementFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farmacia_movement_append_failures_total",
			Help: "Movimientos que no se pudieron registrar en el servidor y quedaron pendientes.",
		}, []string{"type"}),
	}
	m.Registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.DegradedWrites,
		m.MovementFailures,
		collectors.NewGoCollector(),
	)
	return m
}

// Middleware mide cada petición. Usa la ruta registrada (no la URL) como etiqueta.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		m.HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// DegradedWrite registra una escritura aplicada solo en la caché local.
func (m *Metrics) DegradedWrite(operation string) {
	if m == nil {
		return
	}
	m.DegradedWrites.WithLabelValues(operation).Inc()
}

// MovementAppendFailed registra un movimiento que quedó en la bitácora de pendientes.
func (m *Metrics) MovementAppendFailed(movementType string) {
	if m == nil {
		return
	}
	m.MovementFailures.WithLabelValues(movementType).Inc()
}
