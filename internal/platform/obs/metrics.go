package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics は HTTP API のメトリクスを保持します。
// レジストリをインスタンスごとに持つため、テストで複数生成しても衝突しません。
type Metrics struct {
	registry        *prometheus.Registry
	inFlight        prometheus.Gauge
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	loginsTotal     *prometheus.CounterVec
}

// NewMetrics はメトリクスを生成してレジストリに登録します。
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shiftboard_http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftboard_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shiftboard_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		loginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftboard_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.inFlight,
		m.requestsTotal,
		m.requestDuration,
		m.loginsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler は /metrics 用のハンドラーを返します。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveLogin はログイン試行の結果を記録します。outcome は success / failure / limited です。
func (m *Metrics) ObserveLogin(outcome string) {
	m.loginsTotal.WithLabelValues(outcome).Inc()
}

// Instrument はリクエスト数・レイテンシ・処理中件数を計測するミドルウェアです。
// ラベルにはパスではなく chi のルートパターンを使います。
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := strconv.Itoa(sw.code)

		m.requestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
