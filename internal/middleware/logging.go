// Package middleware provides HTTP middleware for the coffeeshop API.
package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/coffeechain-labs/coffeeshop/pkg/logger"
)

// RequestLogger tags every request with a request id and logs its outcome.
type RequestLogger struct {
	log *logger.Logger
}

// NewRequestLogger creates a request logging middleware.
func NewRequestLogger(log *logger.Logger) *RequestLogger {
	if log == nil {
		log = logger.NewDefault("http")
	}
	return &RequestLogger{log: log}
}

// Handler returns the logging middleware handler.
func (m *RequestLogger) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rw, r)

		m.log.WithField("request_id", requestID).
			WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("status", rw.statusCode).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Info("request handled")
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
