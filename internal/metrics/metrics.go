// Package metrics expone los contadores Prometheus del servicio.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector agrupa las métricas del API.
type Collector struct {
	httpRequests   *prometheus.CounterVec
	requestLatency prometheus.Histogram
	authFailures   prometheus.Counter
	uploads        prometheus.Counter
}

// NewCollector registra las métricas en el registry dado.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartcloud_http_requests_total",
			Help: "Total de peticiones HTTP por método, ruta y estado.",
		}, []string{"method", "path", "status"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartcloud_http_request_duration_seconds",
			Help:    "Latencia de las peticiones HTTP en segundos.",
			Buckets: prometheus.DefBuckets,
		}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartcloud_auth_failures_total",
			Help: "Total de credenciales rechazadas por la puerta de acceso.",
		}),
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartcloud_file_uploads_total",
			Help: "Total de archivos subidos y parseados.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.requestLatency,
		c.authFailures,
		c.uploads,
	)

	return c
}

// RecordRequest anota una petición terminada.
func (c *Collector) RecordRequest(method, path string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.requestLatency.Observe(duration.Seconds())
}

// RecordAuthFailure anota una credencial rechazada.
func (c *Collector) RecordAuthFailure() {
	c.authFailures.Inc()
}

// RecordUpload anota un archivo subido.
func (c *Collector) RecordUpload() {
	c.uploads.Inc()
}

// Handler devuelve el handler HTTP de scrape para Prometheus.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
