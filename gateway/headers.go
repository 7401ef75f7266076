package gateway

import (
	"bufio"
	"net"
	"net/http"
)

type (
	// headerWriter adds the default security headers to the response
	// unless the handler (or the upstream) already set them
	headerWriter struct {
		http.ResponseWriter
		defaults    http.Header
		wroteHeader bool
	}
)

const (
	hstsValue = "max-age=15552000; includeSubDomains"
)

var (
	securityHeaders = http.Header{
		"X-Content-Type-Options":            {"nosniff"},
		"X-Frame-Options":                   {"SAMEORIGIN"},
		"Referrer-Policy":                   {"no-referrer"},
		"X-Dns-Prefetch-Control":            {"off"},
		"X-Download-Options":                {"noopen"},
		"X-Permitted-Cross-Domain-Policies": {"none"},
	}
)

func (h *headerWriter) apply() {
	if h.wroteHeader {
		return
	}
	h.wroteHeader = true
	dst := h.ResponseWriter.Header()
	for k, v := range h.defaults {
		if _, ok := dst[k]; !ok {
			dst[k] = append([]string(nil), v...)
		}
	}
}

func (h *headerWriter) WriteHeader(code int) {
	h.apply()
	h.ResponseWriter.WriteHeader(code)
}

func (h *headerWriter) Write(buf []byte) (int, error) {
	h.apply()
	return h.ResponseWriter.Write(buf)
}

func (h *headerWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.wroteHeader = true
	return http.NewResponseController(h.ResponseWriter).Hijack()
}

func (h *headerWriter) Flush() {
	h.apply()
	http.NewResponseController(h.ResponseWriter).Flush()
}

func (h *headerWriter) Unwrap() http.ResponseWriter {
	return h.ResponseWriter
}

// secureHeaders sets the default security headers on every response,
// local pages and proxied responses alike. Requests that arrived over
// TLS also get Strict-Transport-Security.
func secureHeaders(next http.Handler) http.Handler {
	withHSTS := securityHeaders.Clone()
	withHSTS.Set("Strict-Transport-Security", hstsValue)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defaults := securityHeaders
		if r.TLS != nil {
			defaults = withHSTS
		}
		next.ServeHTTP(&headerWriter{ResponseWriter: w, defaults: defaults}, r)
	})
}
