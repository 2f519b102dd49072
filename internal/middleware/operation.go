package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const metricsNamespace = "warehouse_api"

// UnmatchedOperation labels requests that reached the chain without a
// matched route.
const UnmatchedOperation = "unmatched"

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "HTTP requests by warehouse operation, method and status",
		},
		[]string{"operation", "method", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration by warehouse operation",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	requestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served",
		},
	)
)

// Operation names the warehouse operation served by r: the name of the
// matched route, else its path template, else UnmatchedOperation.
func Operation(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return UnmatchedOperation
	}
	if name := route.GetName(); name != "" {
		return name
	}
	if tmpl, err := route.GetPathTemplate(); err == nil {
		return tmpl
	}
	return UnmatchedOperation
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return ""
}

// Metrics returns a middleware that records request counts and latency
// per warehouse operation.
func Metrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			requestsInFlight.Inc()
			defer requestsInFlight.Dec()

			next.ServeHTTP(rw, r)

			op := Operation(r)
			requestsTotal.WithLabelValues(op, r.Method, strconv.Itoa(rw.statusCode)).Inc()
			requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		})
	}
}

// logFields collects fields that inner handlers attach to the access log line.
type logFields struct {
	fields []zap.Field
}

// AddLogFields attaches fields to the access log line of the request
// carrying ctx. Outside Logging it does nothing.
func AddLogFields(ctx context.Context, fields ...zap.Field) {
	if bag, ok := ctx.Value(logFieldsKey).(*logFields); ok {
		bag.fields = append(bag.fields, fields...)
	}
}

// Logging returns a middleware that writes one access log line per request.
// Probe and scrape paths log at Debug, requests the warehouse refused
// (409, 422) at Warn, server errors at Error.
func Logging(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)
			bag := &logFields{}
			r = r.WithContext(context.WithValue(r.Context(), logFieldsKey, bag))

			next.ServeHTTP(rw, r)

			fields := append([]zap.Field{
				zap.String("operation", Operation(r)),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", routeTemplate(r)),
				zap.Int("status", rw.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("request_id", RequestIDFromContext(r.Context())),
			}, bag.fields...)

			switch {
			case publicPaths[r.URL.Path]:
				logger.Debug("http request", fields...)
			case rw.statusCode >= http.StatusInternalServerError:
				logger.Error("http request failed", fields...)
			case rw.statusCode == http.StatusConflict,
				rw.statusCode == http.StatusUnprocessableEntity:
				logger.Warn("warehouse rejected request", fields...)
			default:
				logger.Info("http request", fields...)
			}
		})
	}
}
