// Package api exposes the plan catalogue and comparison runs over HTTP.
package api

import (
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bher20/eratecompare/internal/logger"
	"github.com/bher20/eratecompare/internal/metrics"
	"github.com/bher20/eratecompare/internal/rates"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewMux constructs the HTTP mux, wiring in the rates service, metrics, and
// health endpoints.
func NewMux(svc *rates.Service) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Storage().Ping(r.Context()); err != nil {
			logger.L.Warnw("readyz: db ping failed", "error", err)
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})

	h := &handler{svc: svc}
	route := func(pattern, label string, fn http.HandlerFunc) {
		mux.Handle(pattern, instrument(label, fn))
	}
	route("GET /api/v1/plans", "/api/v1/plans", h.listPlans)
	route("POST /api/v1/plans", "/api/v1/plans", h.importPlans)
	route("GET /api/v1/plans/{id}", "/api/v1/plans/{id}", h.getPlan)
	route("PUT /api/v1/plans/{id}", "/api/v1/plans/{id}", h.updatePlan)
	route("DELETE /api/v1/plans/{id}", "/api/v1/plans/{id}", h.deletePlan)
	route("POST /api/v1/plans/{id}/validate", "/api/v1/plans/{id}/validate", h.validatePlan)
	route("POST /api/v1/costings", "/api/v1/costings", h.runComparison)
	route("GET /api/v1/costings/{run}", "/api/v1/costings/{run}", h.getComparison)
	route("GET /api/v1/validation-codes", "/api/v1/validation-codes", h.validationCodes)

	return mux
}

type handler struct {
	svc *rates.Service
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request metrics under the route's pattern.
func instrument(path string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		metrics.RequestsTotal.WithLabelValues(path).Inc()

		next(rec, r)

		metrics.RequestDurationSeconds.WithLabelValues(path).Observe(time.Since(start).Seconds())
		if rec.code >= 400 {
			metrics.RequestErrorsTotal.WithLabelValues(path, strconv.Itoa(rec.code)).Inc()
		}
		logger.L.Debugw("api: request", "method", r.Method, "path", r.URL.Path, "code", rec.code, "duration", time.Since(start))
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Errorw("api: encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}
