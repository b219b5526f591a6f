package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	SignInCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lectern_sign_ins_total",
			Help: "Sign-in attempts by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	UploadBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lectern_upload_bytes_total",
			Help: "Bytes written to object storage by kind",
		},
		[]string{"kind"},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call twice.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter, RequestDuration, SignInCounter, UploadBytes)
	})
}

func ObserveSignIn(method, outcome string) {
	SignInCounter.WithLabelValues(method, outcome).Inc()
}

func ObserveUpload(kind string, n int64) {
	UploadBytes.WithLabelValues(kind).Add(float64(n))
}

func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Middleware records count and latency for every request handled by next.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, req)

		route := RouteLabel(req.URL.Path)
		RequestCounter.WithLabelValues(req.Method, route, strconv.Itoa(rec.status)).Inc()
		RequestDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RouteLabel collapses a request path to its resource prefix so ids do not
// blow up label cardinality: /api/v1/videos/<id> becomes /api/v1/videos.
func RouteLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 3 && parts[0] == "api" {
		return "/" + strings.Join(parts[:3], "/")
	}
	if len(parts) > 0 && parts[0] != "" {
		return "/" + parts[0]
	}
	return "/"
}
