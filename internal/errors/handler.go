package errors

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
)

const stackTraceBufferSize = 4096

// RecoveryMiddleware turns a panic in next into an INTERNAL_ERROR response
// so a single broken delivery never takes the process down
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("Panic occurred during request processing",
					"panic", formatPanic(rec),
					"method", r.Method,
					"path", r.URL.Path,
					"stack", stackTrace())

				err := Internal("panic occurred during request processing", fmt.Errorf("%s", formatPanic(rec)))
				if id := r.Header.Get("X-Request-Id"); id != "" {
					err.WithRequestID(id)
				}
				WriteHTTP(w, err)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// stackTrace captures the stack of the current goroutine
func stackTrace() string {
	buf := make([]byte, stackTraceBufferSize)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// formatPanic formats panic information for logging
func formatPanic(rec interface{}) string {
	switch v := rec.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}
