package middleware

import "net/http"

// statusRecorder captures the status code a downstream handler writes so the
// logging middleware can report it after the handler returns.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// Flush forwards to the underlying writer when it supports streaming, which
// the SSE subscribe endpoint relies on.
func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
