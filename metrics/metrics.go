// Package metrics exports prediction outcomes to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flatprice/predict"
)

// PredictionBuckets spans the typical price range of the training data.
var PredictionBuckets = []float64{0.8e7, 0.9e7, 1.0e7, 1.5e7}

// Collector owns the service metrics and the registry they live in.
type Collector struct {
	registry    *prometheus.Registry
	predictions prometheus.Histogram
	errRequests prometheus.Counter
	errByKind   *prometheus.CounterVec
	httpTotal   *prometheus.CounterVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_service_predictions",
			Help:    "Histogram of predictions",
			Buckets: PredictionBuckets,
		}),
		errRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ml_service_err_requests",
			Help: "Counter of requests with wrong parameters",
		}),
		errByKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_service_err_requests_by_kind_total",
			Help: "Failed prediction requests by failure kind",
		}, []string{"kind"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_service_http_requests_total",
			Help: "HTTP requests",
		}, []string{"method", "path", "status"}),
	}
	c.registry.MustRegister(
		c.predictions,
		c.errRequests,
		c.errByKind,
		c.httpTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObservePrediction records a score on OK and counts the failure otherwise.
func (c *Collector) ObservePrediction(res predict.Result) {
	if res.IsOK() {
		c.predictions.Observe(res.Score)
		return
	}
	c.errRequests.Inc()
	c.errByKind.WithLabelValues(string(res.Kind)).Inc()
}

func (c *Collector) ObserveHTTP(method, path string, status int) {
	c.httpTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
