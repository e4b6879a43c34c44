package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors exposed on /metrics
// /metricsで公開するPrometheusメトリクス
type Metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	salesCounter prometheus.Counter
	waterLevel   prometheus.Gauge
}

// NewMetrics registers collectors on reg
// メトリクスを登録
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sedori",
			Name:      "http_requests_total",
			Help:      "HTTPリクエスト数",
		}, []string{"method", "route", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sedori",
			Name:      "http_request_duration_seconds",
			Help:      "HTTPリクエスト処理時間",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		salesCounter: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sedori",
			Name:      "sales_recorded_total",
			Help:      "登録された販売記録数",
		}),
		waterLevel: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sedori",
			Name:      "water_level_percent",
			Help:      "直近のダッシュボードで算出した水位(%)",
		}),
	}
}

// statusRecorder レスポンスステータスを記録
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// routeTemplate パス変数を含まないルート名を返す
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// Middleware records request count and latency per route
// ルートごとのリクエスト数と処理時間を記録
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := routeTemplate(r)
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) saleRecorded() {
	if m != nil {
		m.salesCounter.Inc()
	}
}

func (m *Metrics) observeWaterLevel(pct float64) {
	if m != nil {
		m.waterLevel.Set(pct)
	}
}
