package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_pos/internal/logger"
	"github.com/fjod/go_pos/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type contextKey string

const operatorIDKey contextKey = "operator_id"

const (
	OperatorHeader    = "X-Operator-ID"
	AnonymousOperator = "anonymous"
)

// OperatorMiddleware stores the acting operator in the request context. The
// id is copied onto sales for display and never used for access decisions.
func OperatorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		operatorID := r.Header.Get(OperatorHeader)
		if operatorID == "" {
			operatorID = AnonymousOperator
		}

		ctx := context.WithValue(r.Context(), operatorIDKey, operatorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func OperatorFromContext(ctx context.Context) string {
	if operatorID, ok := ctx.Value(operatorIDKey).(string); ok {
		return operatorID
	}
	return AnonymousOperator
}

// RequestIDMiddleware echoes the request id assigned by middleware.RequestID
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestID := middleware.GetReqID(r.Context()); requestID != "" {
			w.Header().Set(middleware.RequestIDHeader, requestID)
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger puts a request scoped zerolog logger into the context and
// logs every finished request. It also feeds the HTTP metrics.
func RequestLogger(base zerolog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			l := base.With().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("operator_id", OperatorFromContext(r.Context())).
				Logger()
			r = r.WithContext(l.WithContext(r.Context()))

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			m.ObserveRequest(route, r.Method, status, elapsed)

			event := logger.FromContext(r.Context()).Info()
			if status >= http.StatusInternalServerError {
				event = logger.FromContext(r.Context()).Error()
			}
			event.
				Str("method", r.Method).
				Str("url", r.URL.RequestURI()).
				Str("route", route).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", elapsed).
				Msg("request handled")
		})
	}
}
