package gateway

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Instrumentation records request counts, latency and response size into reg.
// Requests to /metrics are not observed.
func Instrumentation(reg prometheus.Registerer) (fiber.Handler, error) {
	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "awake",
		Subsystem: "request",
		Name:      "requests_count",
		Help:      "Number of requests per each endpoint",
	}, []string{"code", "method", "route"})

	resTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "awake",
		Subsystem: "response",
		Name:      "response_time_seconds",
		Help:      "awake response duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	resSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "awake",
		Subsystem: "response",
		Name:      "size_bytes",
		Help:      "awake response size",
		Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
	})

	for _, v := range []prometheus.Collector{counterVec, resTime, resSize} {
		if err := reg.Register(v); err != nil {
			return nil, err
		}
	}

	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()
		duration := time.Since(start).Seconds()

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		counterVec.WithLabelValues(strconv.Itoa(status), c.Method(), route).Inc()
		resTime.WithLabelValues(route).Observe(duration)
		resSize.Observe(float64(len(c.Response().Body())))
		return err
	}, nil
}
