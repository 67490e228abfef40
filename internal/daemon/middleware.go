package daemon

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"manimgen/internal/logging"
	"manimgen/internal/metrics"
	"manimgen/internal/services"
)

const requestIDHeader = "X-Request-ID"

// newRequestID returns 8 hex characters taken from a random uuid.
func newRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// requestIDMiddleware honours an inbound X-Request-ID or generates one, stores
// it on the context for log correlation and echoes it on the response.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if rid == "" {
			rid = newRequestID()
		}
		w.Header().Set(requestIDHeader, rid)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), rid)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(p []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(p)
	rw.bytes += n
	return n, err
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// loggingMiddleware logs each request on completion and records it in the
// request counter under its route pattern.
func loggingMiddleware(logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			reqLogger := logging.WithContext(r.Context(), logger)
			reqLogger.Debug("incoming request",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.String("remote", r.RemoteAddr),
			)

			next.ServeHTTP(rw, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.HTTPRequest(r.Method, route, rw.status)
			reqLogger.Info("request completed",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", rw.status),
				logging.Int("bytes", rw.bytes),
				logging.Duration("elapsed", time.Since(start)),
			)
		})
	}
}

// corsMiddleware applies the configured origin policy. A "*" entry allows any
// origin and echoes it back. Preflight requests are answered directly.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowAny := slices.Contains(origins, "*")
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			header := w.Header()
			switch {
			case allowAny && origin == "":
				header.Set("Access-Control-Allow-Origin", "*")
			case allowAny:
				header.Set("Access-Control-Allow-Origin", origin)
			default:
				if _, ok := allowed[origin]; ok && origin != "" {
					header.Set("Access-Control-Allow-Origin", origin)
				}
			}
			if header.Get("Access-Control-Allow-Origin") != "" {
				header.Add("Vary", "Origin")
				header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
				requested := strings.TrimSpace(r.Header.Get("Access-Control-Request-Headers"))
				if requested == "" {
					requested = "*"
				}
				header.Set("Access-Control-Allow-Headers", requested)
				header.Set("Access-Control-Expose-Headers", requestIDHeader)
				header.Set("Access-Control-Max-Age", "600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("OK"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
