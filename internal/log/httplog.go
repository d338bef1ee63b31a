package log

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// HTTPLogEntry represents an HTTP request/response log entry
type HTTPLogEntry struct {
	Timestamp  time.Time     `json:"timestamp"`
	RequestID  string        `json:"request_id"`
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	Status     int           `json:"status"`
	Duration   time.Duration `json:"duration"`
	Size       int           `json:"size"`
	RemoteAddr string        `json:"remote_addr"`
	UserAgent  string        `json:"user_agent"`
}

// HTTPLogBuffer keeps the most recent HTTP log entries in a fixed-size ring
type HTTPLogBuffer struct {
	mu      sync.Mutex
	entries []HTTPLogEntry
	next    int
	full    bool
}

// NewHTTPLogBuffer creates a buffer holding at most size entries
func NewHTTPLogBuffer(size int) *HTTPLogBuffer {
	if size <= 0 {
		size = 1
	}
	return &HTTPLogBuffer{entries: make([]HTTPLogEntry, size)}
}

// Add records an entry, evicting the oldest one when the buffer is full
func (b *HTTPLogBuffer) Add(e HTTPLogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// Entries returns the buffered entries, oldest first
func (b *HTTPLogBuffer) Entries() []HTTPLogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		return append([]HTTPLogEntry(nil), b.entries[:b.next]...)
	}
	out := make([]HTTPLogEntry, 0, len(b.entries))
	out = append(out, b.entries[b.next:]...)
	return append(out, b.entries[:b.next]...)
}

// RequestID returns the request ID stored in ctx by HTTPMiddleware
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// statusRecorder captures the status and size written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.size += n
	return n, err
}

// HTTPMiddleware tags every request with an ID, logs it when it completes
// and records it in buf (which may be nil)
func HTTPMiddleware(buf *HTTPLogBuffer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			id := req.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			rec := &statusRecorder{ResponseWriter: w}
			started := time.Now()
			next.ServeHTTP(rec, req.WithContext(context.WithValue(req.Context(), requestIDKey{}, id)))

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			entry := HTTPLogEntry{
				Timestamp:  started,
				RequestID:  id,
				Method:     req.Method,
				Path:       req.URL.Path,
				Status:     rec.status,
				Duration:   time.Since(started),
				Size:       rec.size,
				RemoteAddr: req.RemoteAddr,
				UserAgent:  req.UserAgent(),
			}
			if buf != nil {
				buf.Add(entry)
			}

			logw := Debugw
			if entry.Status >= http.StatusInternalServerError {
				logw = Errorw
			}
			logw("http request",
				"request_id", entry.RequestID,
				"method", entry.Method,
				"path", entry.Path,
				"status", entry.Status,
				"duration_ms", entry.Duration.Milliseconds(),
				"size", entry.Size,
				"remote_addr", entry.RemoteAddr,
			)
		})
	}
}
