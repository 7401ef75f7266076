// Package gateway assembles the two public endpoints.
//
// The main endpoint serves the gateway pages and forwards everything else
// through the rule table. The stream endpoint only relays upgrade
// requests. Both share the same realm, so a session created on the main
// endpoint is valid on the stream endpoint.
package gateway

import (
	"context"
	"net/http"

	"github.com/andrebq/turnstile/auth/api"
	"github.com/andrebq/turnstile/internal/logutil"
	"github.com/andrebq/turnstile/internal/pages"
	"github.com/andrebq/turnstile/internal/proxy"
	"github.com/julienschmidt/httprouter"
)

// AsHandler returns the main endpoint handler
func AsHandler(ctx context.Context, handlers *api.Handlers, realm *api.SecurityRealm, rules []proxy.Rule, renderer pages.Renderer) (http.Handler, error) {
	router := httprouter.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.HandleMethodNotAllowed = false
	router.HandleOPTIONS = false
	router.PanicHandler = recoverer(renderer)

	handlers.Mount(router)

	onError := api.UpstreamFailed(renderer)
	forward, err := proxy.NewRouter(rules, realm.Protect, func(r proxy.Rule) http.Handler {
		return proxy.NewReverseProxy(r, onError)
	})
	if err != nil {
		return nil, err
	}
	// delegate to the rule table if not found
	router.NotFound = forward

	log := logutil.GetOrDefault(ctx)
	log.Info().Int("rules", len(rules)).Msg("Main endpoint ready")
	return logutil.RequestLogger("http", secureHeaders(realm.Authenticate(router))), nil
}

// AsStreamHandler returns the handler for the upgrade-only endpoint
func AsStreamHandler(ctx context.Context, realm *api.SecurityRealm, rules []proxy.Rule, renderer pages.Renderer) (http.Handler, error) {
	onError := api.UpstreamFailed(renderer)
	forward, err := proxy.NewRouter(rules, realm.Protect, func(r proxy.Rule) http.Handler {
		return proxy.NewSplicer(r, onError)
	})
	if err != nil {
		return nil, err
	}
	log := logutil.GetOrDefault(ctx)
	log.Info().Int("rules", len(rules)).Msg("Stream endpoint ready")
	return logutil.RequestLogger("stream", secureHeaders(realm.Authenticate(forward))), nil
}

func recoverer(renderer pages.Renderer) func(http.ResponseWriter, *http.Request, interface{}) {
	return func(w http.ResponseWriter, r *http.Request, v interface{}) {
		if v == http.ErrAbortHandler {
			// let net/http drop the connection
			panic(v)
		}
		log := logutil.GetOrDefault(r.Context())
		log.Error().Interface("panic", v).Msg("Handler panic")
		pages.Fail(renderer, w, http.StatusInternalServerError)
	}
}
