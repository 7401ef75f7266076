package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"time"

	"github.com/andrebq/turnstile/internal/logutil"
)

type (
	// TLS holds the certificate and key files used by ServeTLS
	TLS struct {
		Cert string
		Key  string
	}
)

func newServer(bind string, handler http.Handler) *http.Server {
	// no read/write timeout, upgraded connections stay open for as
	// long as both sides want
	return &http.Server{
		Handler:           handler,
		Addr:              bind,
		ReadHeaderTimeout: time.Minute,
		IdleTimeout:       time.Minute * 5,
	}
}

// Serve handler on bind until ctx is cancelled
func Serve(ctx context.Context, bind string, handler http.Handler) error {
	server := newServer(bind, handler)
	return run(ctx, server, server.ListenAndServe)
}

// ServeTLS is like Serve but only accepts TLS connections.
//
// HTTP/2 is disabled since upgrade requests need HTTP/1.1
func ServeTLS(ctx context.Context, bind string, handler http.Handler, files TLS) error {
	server := newServer(bind, handler)
	server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	server.TLSNextProto = map[string]func(*http.Server, *tls.Conn, http.Handler){}
	return run(ctx, server, func() error {
		return server.ListenAndServeTLS(files.Cert, files.Key)
	})
}

func run(ctx context.Context, server *http.Server, listen func() error) error {
	err := make(chan error, 1)
	done := make(chan struct{})
	go serveInBackground(ctx, server, listen, err, done)
	<-done
	return <-err
}

func serveInBackground(ctx context.Context, server *http.Server, listen func() error, firstErr chan<- error, done chan<- struct{}) {
	log := logutil.GetOrDefault(ctx).With().Str("server.addr", server.Addr).Logger()
	defer close(done)
	serverCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		defer close(firstErr)
		log.Info().Bool("tls", server.TLSConfig != nil).Msg("Starting HTTP server")
		err := listen()
		if errors.Is(err, http.ErrServerClosed) {
			log.Info().Msg("Server closed")
			// shutdown called,
			// ignore the error
			return
		} else if err != nil {
			select {
			case firstErr <- err:
			default:
			}
			return
		}
	}()
	select {
	case <-serverCtx.Done():
	case <-ctx.Done():
		log.Info().Msg("Initiating shutdown process")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), time.Minute)
		defer cancelShutdown()
		server.Shutdown(shutdownCtx)
		log.Info().Msg("Shutdown completed")
	}
}
