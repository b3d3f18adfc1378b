// Package metrics экспортирует счётчики Prometheus конвейера и HTTP-сервера дашборда.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pipelineRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wash_pipeline_runs_total",
		Help: "Total pipeline runs by outcome.",
	}, []string{"status"})

	pipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wash_pipeline_duration_seconds",
		Help:    "Histogram of full pipeline durations.",
		Buckets: prometheus.DefBuckets,
	})

	invalidValues = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wash_invalid_values_total",
		Help: "Cells that could not be parsed and were coerced to missing, by source.",
	}, []string{"source"})

	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wash_file_cache_hits_total",
		Help: "Total file cache hits.",
	})

	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wash_file_cache_misses_total",
		Help: "Total file cache misses (first load or changed file).",
	})

	wsClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wash_websocket_clients",
		Help: "Currently connected dashboard websocket clients.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wash_http_requests_total",
		Help: "Total count of HTTP requests processed by route and status.",
	}, []string{"route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wash_http_request_duration_seconds",
		Help:    "Histogram of HTTP request durations by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

func init() {
	prometheus.MustRegister(
		pipelineRuns,
		pipelineDuration,
		invalidValues,
		cacheHits,
		cacheMisses,
		wsClients,
		httpRequests,
		httpDuration,
	)
}

// ObservePipelineRun учитывает завершённый прогон конвейера
func ObservePipelineRun(status string, duration time.Duration) {
	pipelineRuns.WithLabelValues(status).Inc()
	pipelineDuration.Observe(duration.Seconds())
}

// AddInvalidValues учитывает нераспознанные значения источника
func AddInvalidValues(source string, n int) {
	if n <= 0 {
		return
	}
	invalidValues.WithLabelValues(source).Add(float64(n))
}

// IncCacheHit увеличивает счётчик попаданий в кэш файлов
func IncCacheHit() {
	cacheHits.Inc()
}

// IncCacheMiss увеличивает счётчик промахов кэша файлов
func IncCacheMiss() {
	cacheMisses.Inc()
}

// SetWebsocketClients выставляет число подключённых клиентов
func SetWebsocketClients(n int) {
	wsClients.Set(float64(n))
}

// Handler отдаёт метрики в формате Prometheus
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument оборачивает обработчик маршрута подсчётом запросов и длительности
func Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}
