package observability

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler exposes the Prometheus scrape endpoint. The AI evaluator
// collectors register themselves on the default registry through promauto.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	handler := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{EnableOpenMetrics: true})
	return adaptor.HTTPHandler(handler)
}

// ObserveRequest records one served request. route is the matched route
// pattern, never the raw path, to keep label cardinality bounded.
func ObserveRequest(method, route string, status int, seconds float64) {
	HTTPRequests().WithLabelValues(method, route, statusClass(status)).Inc()
	HTTPLatency().WithLabelValues(method, route).Observe(seconds)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
