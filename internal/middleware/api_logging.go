package middleware

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const RequestIDKey contextKey = "request_id"

// RequestLog is one access log line.
type RequestLog struct {
	RequestID    string
	Time         time.Time
	Method       string
	Path         string
	StatusCode   int
	Duration     time.Duration
	ResponseSize int
	UserID       string
	IPAddress    string
}

// APILoggingMiddleware writes access logs off the request path.
type APILoggingMiddleware struct {
	logChan chan *RequestLog
	done    chan struct{}
	write   func(*RequestLog)
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return h.Hijack()
}

// NewAPILoggingMiddleware creates a new API logging middleware
func NewAPILoggingMiddleware() *APILoggingMiddleware {
	m := &APILoggingMiddleware{
		logChan: make(chan *RequestLog, 1000), // Buffer for async logging
		done:    make(chan struct{}),
		write:   writeRequestLog,
	}

	go m.asyncLogWriter()

	return m
}

func writeRequestLog(e *RequestLog) {
	user := e.UserID
	if user == "" {
		user = "-"
	}
	log.Printf("[API] %s %s %s %d %dB %.1fms user=%s ip=%s",
		e.RequestID, e.Method, e.Path, e.StatusCode, e.ResponseSize,
		float64(e.Duration.Microseconds())/1000.0, user, e.IPAddress)
}

func (m *APILoggingMiddleware) asyncLogWriter() {
	defer close(m.done)
	for entry := range m.logChan {
		m.write(entry)
	}
}

// Handler returns the middleware handler
func (m *APILoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		r = r.WithContext(context.WithValue(r.Context(), RequestIDKey, requestID))

		if shouldSkipLogging(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		// the auth middleware runs further in and records the user here
		holder := &userHolder{}
		next.ServeHTTP(wrapped, r.WithContext(context.WithValue(r.Context(), userHolderKey, holder)))

		entry := &RequestLog{
			RequestID:    requestID,
			Time:         start,
			Method:       r.Method,
			Path:         sanitizePath(r.URL.Path),
			StatusCode:   wrapped.statusCode,
			Duration:     time.Since(start),
			ResponseSize: wrapped.bytesWritten,
			UserID:       holder.userID,
			IPAddress:    ClientIP(r),
		}

		// Send to async writer (non-blocking)
		select {
		case m.logChan <- entry:
		default:
			log.Printf("[APILogging] Log buffer full, dropping log entry for %s", r.URL.Path)
		}
	})
}

const userHolderKey contextKey = "log_user"

type userHolder struct {
	userID string
}

// recordUser lets the access log name the authenticated user.
func recordUser(ctx context.Context, userID string) {
	if h, ok := ctx.Value(userHolderKey).(*userHolder); ok {
		h.userID = userID
	}
}

// GetRequestID returns the correlation id of the request.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// shouldSkipLogging returns true for paths that shouldn't be logged
func shouldSkipLogging(path string) bool {
	skipPaths := []string{
		"/health",
		"/metrics",
		"/favicon.ico",
	}

	for _, skip := range skipPaths {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}

	return false
}

// sanitizePath removes sensitive data from paths
func sanitizePath(path string) string {
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}

	// Truncate very long paths
	if len(path) > 500 {
		path = path[:500]
	}

	return path
}

// ClientIP extracts the client IP from the request
func ClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (for proxies/load balancers)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// Take the first IP in the list
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Close stops accepting entries and flushes pending logs
func (m *APILoggingMiddleware) Close() {
	close(m.logChan)
	<-m.done
}
