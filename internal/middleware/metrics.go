package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

// InitMetrics registers the Prometheus HTTP middleware and the /metrics
// endpoint on the app. Per-route latency and status metrics come for free;
// domain counters live in the observability package.
func InitMetrics(app *fiber.App) {
	prometheus := fiberprometheus.New("commune")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
}
