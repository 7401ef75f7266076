package logutil

import (
	"bufio"
	"net"
	"net/http"
	"time"
)

type (
	statusRecorder struct {
		http.ResponseWriter
		status int
		size   int64
	}
)

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(buf []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(buf)
	s.size += int64(n)
	return n, err
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, brw, err := http.NewResponseController(s.ResponseWriter).Hijack()
	if err == nil && s.status == 0 {
		s.status = http.StatusSwitchingProtocols
	}
	return conn, brw, err
}

func (s *statusRecorder) Flush() {
	http.NewResponseController(s.ResponseWriter).Flush()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// RequestLogger attaches the logger in ctx to every request, tagged with
// the endpoint name, and logs one line once the request is done.
func RequestLogger(endpoint string, base http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := GetOrDefault(r.Context()).With().
			Str("endpoint", endpoint).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Logger()
		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		base.ServeHTTP(rec, r.WithContext(WithLogger(r.Context(), log)))
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		log.Info().Int("status", status).Int64("bytes", rec.size).Dur("took", time.Since(start)).Msg("Request completed")
	})
}
