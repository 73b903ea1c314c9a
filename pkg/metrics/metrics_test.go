package metrics_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-api/pkg/metrics"
)

func TestMiddleware_CuentaPorRutaRegistrada(t *testing.T) {
	m := metrics.New()
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/api/medications/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	for _, id := range []string{"a", "b"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/medications/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}

	got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/medications/:id", "204"))
	assert.Equal(t, float64(2), got)
}

func TestContadoresDelCliente(t *testing.T) {
	m := metrics.New()
	m.DegradedWrite("update")
	m.DegradedWrite("update")
	m.MovementAppendFailed("salida")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.DegradedWrites.WithLabelValues("update")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.MovementFailures.WithLabelValues("salida")))

	var nilMetrics *metrics.Metrics
	assert.NotPanics(t, func() { nilMetrics.DegradedWrite("add") })
}
