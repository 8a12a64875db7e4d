package middleware

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

const callerIDsKey = contextKey("caller_ids")

// callerIDs lets inner middleware report who the caller was back to the
// request logger, which only sees the outer request.
type callerIDs struct {
	tenantID string
	userID   string
}

func noteCaller(ctx context.Context, tenantID, userID string) {
	ids, ok := ctx.Value(callerIDsKey).(*callerIDs)
	if !ok {
		return
	}
	if tenantID != "" {
		ids.tenantID = tenantID
	}
	if userID != "" {
		ids.userID = userID
	}
}

// Logging returns middleware that logs each request with structured JSON output.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status
			rw := newResponseWriter(w)

			ids := &callerIDs{}
			r = r.WithContext(context.WithValue(r.Context(), callerIDsKey, ids))

			// Process request
			next.ServeHTTP(rw, r)

			// Calculate duration
			duration := time.Since(start)

			// Get request ID from context
			requestID := RequestIDFromContext(r.Context())

			// Filled in by the auth middleware further down the chain
			tenantID, userID := ids.tenantID, ids.userID

			// Log the request
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", rw.statusCode),
				zap.Int64("bytes", rw.written),
				zap.Duration("duration", duration),
				zap.String("request_id", requestID),
				zap.String("tenant_id", tenantID),
				zap.String("user_id", userID),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
			)
		})
	}
}
