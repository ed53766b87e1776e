package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter mirrors recorded requests into Prometheus metrics.
type Exporter struct {
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewExporter registers the load test metrics with reg. activeUsers, when
// non-nil, backs a gauge of running simulated users.
func NewExporter(reg prometheus.Registerer, activeUsers func() int) (*Exporter, error) {
	e := &Exporter{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "niuniu_load",
			Name:      "requests_total",
			Help:      "Requests sent to the system under test.",
		}, []string{"method", "name"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "niuniu_load",
			Name:      "request_failures_total",
			Help:      "Requests classified as failures.",
		}, []string{"method", "name"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "niuniu_load",
			Name:      "request_duration_seconds",
			Help:      "Response time of requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "name"}),
	}

	collectors := []prometheus.Collector{e.requests, e.failures, e.latency}
	if activeUsers != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "niuniu_load",
			Name:      "active_users",
			Help:      "Simulated users currently running.",
		}, func() float64 { return float64(activeUsers()) }))
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Record implements the same signature as Collector.Record.
func (e *Exporter) Record(method, name string, d time.Duration, _ int64, err error) {
	e.requests.WithLabelValues(method, name).Inc()
	e.latency.WithLabelValues(method, name).Observe(d.Seconds())
	if err != nil {
		e.failures.WithLabelValues(method, name).Inc()
	}
}

// Serve exposes g on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
