// ABOUTME: HTTP request logging middleware.
// ABOUTME: Assigns request ids, captures method, path, status and duration, and stores them asynchronously.

package logging

import (
	"bufio"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/2389/teamhub/internal/auth"
	"github.com/2389/teamhub/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the request id on requests and responses
const RequestIDHeader = "X-Request-ID"

// Recorder persists request logs
type Recorder interface {
	LogRequest(l *store.RequestLog) error
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

// Flush implements http.Flusher for streaming fragments
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

func skipPath(path string) bool {
	return path == "/healthz" || path == "/metrics" || strings.HasPrefix(path, "/static/")
}

// Middleware logs every request to rec and to log. Request bodies are never captured
// since they carry viewer tokens and permission data.
func Middleware(rec Recorder, log *logrus.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logrus.New()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			duration := time.Since(start)

			viewer := auth.ViewerFromContext(r.Context()).ID

			ip := r.RemoteAddr
			if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
				ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
			}

			entry := &store.RequestLog{
				RequestID:  requestID,
				Area:       AreaFromPath(r.URL.Path),
				ServerID:   ServerFromPath(r.URL.Path),
				Method:     r.Method,
				Path:       r.URL.Path,
				StatusCode: wrapped.statusCode,
				DurationMs: int(duration.Milliseconds()),
				Viewer:     viewer,
				IPAddress:  ip,
				UserAgent:  r.Header.Get("User-Agent"),
			}

			log.WithFields(logrus.Fields{
				"request_id":  requestID,
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      wrapped.statusCode,
				"duration_ms": duration.Milliseconds(),
				"viewer":      viewer,
			}).Debug("request")

			if rec == nil {
				return
			}
			go func() {
				if err := rec.LogRequest(entry); err != nil {
					log.WithError(err).WithField("request_id", requestID).Warn("failed to store request log")
				}
			}()
		})
	}
}
