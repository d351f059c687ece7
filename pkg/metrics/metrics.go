package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry metrics
	ModulesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recomp_modules_total",
			Help: "Total number of registered modules by status",
		},
		[]string{"status"},
	)

	ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recomp_module_scan_duration_seconds",
			Help:    "Duration of discover-and-register cycles in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Asset metrics
	AssetsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recomp_assets_total",
			Help: "Total number of assets by status",
		},
		[]string{"status"},
	)

	// Task metrics
	TasksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recomp_tasks_total",
			Help: "Total number of tasks by status",
		},
		[]string{"status"},
	)

	TaskExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recomp_task_executions_total",
			Help: "Total number of task executions by result",
		},
		[]string{"result"},
	)

	TaskExecutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recomp_task_execution_duration_seconds",
			Help:    "Task execution duration in seconds",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 600},
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recomp_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ModulesTotal)
	prometheus.MustRegister(ScanDuration)
	prometheus.MustRegister(AssetsTotal)
	prometheus.MustRegister(TasksTotal)
	prometheus.MustRegister(TaskExecutionsTotal)
	prometheus.MustRegister(TaskExecutionDuration)
	prometheus.MustRegister(APIRequestsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures a duration and records it into a histogram
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time into the given histogram
func (t *Timer) ObserveDuration(h prometheus.Histogram) {
	h.Observe(time.Since(t.start).Seconds())
}
