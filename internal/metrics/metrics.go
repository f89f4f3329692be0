// Package metrics provides Prometheus metrics for the Schulmaterial server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schulmaterial_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schulmaterial_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// File transfer metrics
	fileBytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "schulmaterial_file_bytes_downloaded_total",
			Help: "Total bytes served from the download endpoints",
		},
	)

	fileBytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "schulmaterial_file_bytes_uploaded_total",
			Help: "Total bytes accepted by the upload endpoint",
		},
	)

	fileDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schulmaterial_file_downloads_total",
			Help: "Total number of single-file downloads",
		},
		[]string{"status"},
	)

	fileUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schulmaterial_file_uploads_total",
			Help: "Total number of file uploads",
		},
		[]string{"status"},
	)

	// Archive export metrics
	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schulmaterial_exports_total",
			Help: "Total number of bulk ZIP exports",
		},
		[]string{"status"},
	)

	exportEntries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schulmaterial_export_entries",
			Help:    "Number of files packed per ZIP export",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// Catalog metrics
	materialsCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "schulmaterial_materials_count",
			Help: "Number of materials in the catalog",
		},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schulmaterial_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	dbConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "schulmaterial_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	// Storage backend metrics
	storageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schulmaterial_storage_operation_duration_seconds",
			Help:    "Storage backend operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	storageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schulmaterial_storage_operations_total",
			Help: "Total storage backend operations",
		},
		[]string{"operation", "status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDownload records a single-file download.
func RecordDownload(bytes int64, success bool) {
	fileBytesDownloaded.Add(float64(bytes))
	status := "success"
	if !success {
		status = "error"
	}
	fileDownloadsTotal.WithLabelValues(status).Inc()
}

// RecordUpload records a file upload.
func RecordUpload(bytes int64, success bool) {
	fileBytesUploaded.Add(float64(bytes))
	status := "success"
	if !success {
		status = "error"
	}
	fileUploadsTotal.WithLabelValues(status).Inc()
}

// RecordExport records a bulk ZIP export.
func RecordExport(entries int, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	exportsTotal.WithLabelValues(status).Inc()
	if success {
		exportEntries.Observe(float64(entries))
	}
}

// SetMaterialsCount sets the current catalog size.
func SetMaterialsCount(count int64) {
	materialsCount.Set(float64(count))
}

// RecordDBQuery records a database query duration.
func RecordDBQuery(query string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

// SetDBConnectionsOpen sets the number of open database connections.
func SetDBConnectionsOpen(count int) {
	dbConnectionsOpen.Set(float64(count))
}

// RecordStorageOperation records a storage backend operation.
func RecordStorageOperation(operation string, duration time.Duration, success bool) {
	storageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	storageOperationsTotal.WithLabelValues(operation, status).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordHTTPRequest(r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}
