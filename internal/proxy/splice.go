package proxy

import (
	"bufio"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andrebq/turnstile/internal/logutil"
)

type (
	// Splicer relays upgrade requests to a single upstream.
	//
	// The handshake is forwarded as-is, minus the rule prefix, and once
	// the upstream accepts it both connections are spliced together.
	// Anything that is not an upgrade gets 426.
	Splicer struct {
		rule    Rule
		onError ErrorHandler
		dialer  net.Dialer

		// TLSConfig is used when dialing wss or https upstreams
		TLSConfig *tls.Config
	}
)

var (
	hopHeaders = []string{
		"Connection",
		"Keep-Alive",
		"Proxy-Connection",
		"Te",
		"Trailer",
		"Transfer-Encoding",
		"Upgrade",
	}
)

func NewSplicer(rule Rule, onError ErrorHandler) *Splicer {
	if onError == nil {
		onError = badGateway
	}
	return &Splicer{
		rule:    rule,
		onError: onError,
		dialer:  net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second},
	}
}

// IsUpgrade reports whether r asks for a protocol switch
func IsUpgrade(r *http.Request) bool {
	if r.Header.Get("Upgrade") == "" {
		return false
	}
	for _, v := range r.Header.Values("Connection") {
		for _, token := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(token), "upgrade") {
				return true
			}
		}
	}
	return false
}

func (s *Splicer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logutil.GetOrDefault(r.Context()).With().Str("upstream", s.rule.Target.String()).Logger()
	if !IsUpgrade(r) {
		w.Header().Set("Upgrade", "websocket")
		w.Header().Set("Connection", "Upgrade")
		http.Error(w, http.StatusText(http.StatusUpgradeRequired), http.StatusUpgradeRequired)
		return
	}
	upstream, err := s.dial(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Unable to dial upstream")
		s.onError(w, r, UpstreamUnavailable{Target: s.rule.Target.String(), cause: err})
		return
	}
	out := s.outgoing(r)
	if err := out.Write(upstream); err != nil {
		upstream.Close()
		log.Error().Err(err).Msg("Unable to send handshake to upstream")
		s.onError(w, r, UpstreamUnavailable{Target: s.rule.Target.String(), cause: err})
		return
	}
	br := bufio.NewReader(upstream)
	res, err := http.ReadResponse(br, out)
	if err != nil {
		upstream.Close()
		log.Error().Err(err).Msg("Unable to read handshake response from upstream")
		s.onError(w, r, UpstreamUnavailable{Target: s.rule.Target.String(), cause: err})
		return
	}
	if res.StatusCode != http.StatusSwitchingProtocols {
		defer upstream.Close()
		defer res.Body.Close()
		log.Info().Int("status", res.StatusCode).Msg("Upstream refused the upgrade")
		relayResponse(w, res)
		return
	}

	client, brw, err := http.NewResponseController(w).Hijack()
	if err != nil {
		upstream.Close()
		log.Error().Err(err).Msg("Unable to hijack client connection")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	client.SetDeadline(time.Time{})
	res.Body = nil
	if err := res.Write(brw); err == nil {
		err = brw.Flush()
	}
	if err != nil {
		log.Error().Err(err).Msg("Unable to send handshake response to client")
		client.Close()
		upstream.Close()
		return
	}
	log.Info().Msg("Connection upgraded")
	bridge(log, &bufferedConn{Conn: client, r: brw.Reader}, &bufferedConn{Conn: upstream, r: br})
}

func (s *Splicer) outgoing(r *http.Request) *http.Request {
	out := r.Clone(r.Context())
	out.RequestURI = ""
	out.Body = http.NoBody
	out.ContentLength = 0
	if _, ok := out.Header["User-Agent"]; !ok {
		// an empty value keeps Request.Write from adding its own
		out.Header["User-Agent"] = []string{""}
	}
	s.rule.strip(out.URL)
	target := s.rule.Target
	if target.Path != "" && target.Path != "/" {
		out.URL.Path = strings.TrimSuffix(target.Path, "/") + out.URL.Path
		out.URL.RawPath = ""
	}
	out.URL.Scheme = "http"
	out.URL.Host = target.Host
	out.Host = target.Host
	if clientIP, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		prior := out.Header.Values("X-Forwarded-For")
		if len(prior) > 0 {
			clientIP = strings.Join(prior, ", ") + ", " + clientIP
		}
		out.Header.Set("X-Forwarded-For", clientIP)
	}
	out.Header.Set("X-Forwarded-Host", r.Host)
	if r.TLS != nil {
		out.Header.Set("X-Forwarded-Proto", "https")
	} else {
		out.Header.Set("X-Forwarded-Proto", "http")
	}
	return out
}

func (s *Splicer) dial(ctx context.Context) (net.Conn, error) {
	target := s.rule.Target
	host := target.Hostname()
	port := target.Port()
	secure := target.Scheme == "wss" || target.Scheme == "https"
	if port == "" {
		port = "80"
		if secure {
			port = "443"
		}
	}
	addr := net.JoinHostPort(host, port)
	if !secure {
		return s.dialer.DialContext(ctx, "tcp", addr)
	}
	cfg := &tls.Config{}
	if s.TLSConfig != nil {
		cfg = s.TLSConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	// the handshake is HTTP/1.1 only
	cfg.NextProtos = nil
	d := tls.Dialer{NetDialer: &s.dialer, Config: cfg}
	return d.DialContext(ctx, "tcp", addr)
}

func relayResponse(w http.ResponseWriter, res *http.Response) {
	for k, vs := range res.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	for _, h := range hopHeaders {
		w.Header().Del(h)
	}
	w.Header().Del("Content-Length")
	w.WriteHeader(res.StatusCode)
	io.Copy(w, res.Body)
}
