package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests can create as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ServiceName string
	registry    *prometheus.Registry

	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	statusCategory   *prometheus.CounterVec
	movements        *prometheus.CounterVec
	movementQuantity *prometheus.CounterVec
	rejections       *prometheus.CounterVec
	reversals        *prometheus.CounterVec
}

func New(serviceName string) *Metrics {
	m := &Metrics{
		ServiceName: serviceName,
		registry:    prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "method", "path", "status"},
		),
		statusCategory: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_status_category_total",
				Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
			},
			[]string{"service", "category"},
		),
		movements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_stock_movements_total",
				Help: "Committed stock movements by type",
			},
			[]string{"type"},
		),
		movementQuantity: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_stock_movement_units_total",
				Help: "Units moved by committed stock movements",
			},
			[]string{"type"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_stock_rejections_total",
				Help: "Movements or reversals rejected by the ledger",
			},
			[]string{"reason"},
		),
		reversals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_stock_reversals_total",
				Help: "Committed reversals by original movement type",
			},
			[]string{"type"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.statusCategory,
		m.movements,
		m.movementQuantity,
		m.rejections,
		m.reversals,
	)
	return m
}

func statusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	}
	return ""
}

// Middleware records count and latency per route pattern
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
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
		method := c.Method()
		path := c.Route().Path
		statusStr := strconv.Itoa(status)

		m.requests.WithLabelValues(m.ServiceName, method, path, statusStr).Inc()
		m.duration.WithLabelValues(m.ServiceName, method, path, statusStr).Observe(time.Since(start).Seconds())
		if category := statusCategory(status); category != "" {
			m.statusCategory.WithLabelValues(m.ServiceName, category).Inc()
		}
		return err
	}
}

func (m *Metrics) MovementApplied(txType string, quantity int) {
	if m == nil {
		return
	}
	m.movements.WithLabelValues(txType).Inc()
	m.movementQuantity.WithLabelValues(txType).Add(float64(quantity))
}

func (m *Metrics) MovementReversed(txType string) {
	if m == nil {
		return
	}
	m.reversals.WithLabelValues(txType).Inc()
}

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// Handler exposes the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
