package proxy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"

	"github.com/andrebq/turnstile/internal/logutil"
)

type (
	// ErrorHandler writes the response sent to clients when an upstream
	// cannot be reached
	ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)
)

// NewReverseProxy forwards requests to rule.Target with the rule prefix
// removed from the path. Upgrade requests are handled by the reverse proxy
// itself.
func NewReverseProxy(rule Rule, onError ErrorHandler) *httputil.ReverseProxy {
	if onError == nil {
		onError = badGateway
	}
	target := *rule.Target
	switch target.Scheme {
	case "ws":
		target.Scheme = "http"
	case "wss":
		target.Scheme = "https"
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			rule.strip(pr.Out.URL)
			pr.SetURL(&target)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log := logutil.GetOrDefault(r.Context())
			if errors.Is(err, context.Canceled) {
				log.Debug().Err(err).Msg("Client went away before upstream answered")
			} else {
				log.Error().Err(err).Str("upstream", target.String()).Msg("Unable to reach upstream")
			}
			onError(w, r, UpstreamUnavailable{Target: target.String(), cause: err})
		},
	}
}

func badGateway(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
}
