package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentation(t *testing.T) {
	reg := prometheus.NewRegistry()
	mw, err := Instrumentation(reg)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(mw)
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", func(c *fiber.Ctx) error { return c.SendString("") })

	for _, path := range []string{"/health", "/health", "/metrics"} {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
	}

	count, err := testutil.GatherAndCount(reg, "awake_request_requests_count")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "one series for /health, none for /metrics")

	_, err = Instrumentation(reg)
	assert.Error(t, err, "registering twice must fail")
}
