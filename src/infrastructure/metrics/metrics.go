// Package metrics exposes Prometheus collectors for the order flow, event
// handling and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "maharani"

type Metrics struct {
	Requests        *prometheus.CounterVec
	LatencyMS       *prometheus.HistogramVec
	OrdersPlaced    prometheus.Counter
	OrderValue      prometheus.Histogram
	Transitions     *prometheus.CounterVec
	OrdersCancelled prometheus.Counter
	StockRejections *prometheus.CounterVec
	EventsHandled   *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers every collector on reg. Use prometheus.NewRegistry in tests.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders successfully placed.",
		}),
		OrderValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_value_rupees",
			Help:      "Total amount of placed orders.",
			Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000},
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_transitions_total",
			Help:      "Order status transitions.",
		}, []string{"from", "to"}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_cancelled_total",
			Help:      "Orders cancelled with stock restored.",
		}),
		StockRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_rejections_total",
			Help:      "Order lines rejected for insufficient stock.",
		}, []string{"product"}),
		EventsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_handled_total",
			Help:      "Consumed events by topic and outcome.",
		}, []string{"topic", "outcome"}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.Requests, m.LatencyMS, m.OrdersPlaced, m.OrderValue,
		m.Transitions, m.OrdersCancelled, m.StockRejections, m.EventsHandled,
	)
	return m
}

func (m *Metrics) OrderPlaced(totalAmount float64) {
	m.OrdersPlaced.Inc()
	m.OrderValue.Observe(totalAmount)
}

func (m *Metrics) OrderStatusChanged(from, to string) {
	m.Transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) OrderCancelled() {
	m.OrdersCancelled.Inc()
}

func (m *Metrics) StockRejected(productID string) {
	m.StockRejections.WithLabelValues(productID).Inc()
}

func (m *Metrics) EventHandled(topic, outcome string) {
	m.EventsHandled.WithLabelValues(topic, outcome).Inc()
}

// Middleware records request count and latency per route pattern.
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
		m.Requests.WithLabelValues(route, c.Method(), strconv.Itoa(status)).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
		return err
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
