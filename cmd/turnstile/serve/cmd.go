package serve

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"os"

	"github.com/andrebq/turnstile/auth"
	"github.com/andrebq/turnstile/auth/api"
	"github.com/andrebq/turnstile/gateway"
	"github.com/andrebq/turnstile/internal/cmdflags"
	"github.com/andrebq/turnstile/internal/config"
	"github.com/andrebq/turnstile/internal/httpserver"
	"github.com/andrebq/turnstile/internal/logutil"
	"github.com/andrebq/turnstile/internal/pages"
	"github.com/andrebq/turnstile/internal/proxy"
	"github.com/andrebq/turnstile/store"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var configFile string
	var host, upstream, streamUpstream, tlsCert, tlsKey, dbPath, cookie, rootKeyEnvVar string
	var port, streamPort int
	var secureCookie bool
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the gateway, plus the TLS stream endpoint when a stream upstream is configured",
		Flags: []cli.Flag{
			cmdflags.Config(&configFile),
			&cli.StringFlag{
				Name:        "host",
				Usage:       "Interface used by both endpoints",
				EnvVars:     []string{"TURNSTILE_HOST"},
				Destination: &host,
			},
			&cli.IntFlag{
				Name:        "port",
				Usage:       "Port of the main endpoint",
				EnvVars:     []string{"TURNSTILE_PORT"},
				Destination: &port,
			},
			&cli.StringFlag{
				Name:        "upstream",
				Usage:       "Upstream receiving every authenticated request",
				EnvVars:     []string{"TURNSTILE_UPSTREAM"},
				Destination: &upstream,
			},
			&cli.IntFlag{
				Name:        "stream-port",
				Usage:       "Port of the TLS stream endpoint",
				EnvVars:     []string{"TURNSTILE_STREAM_PORT"},
				Destination: &streamPort,
			},
			&cli.StringFlag{
				Name:        "stream-upstream",
				Usage:       "Upstream receiving upgraded connections (ws:// or wss://)",
				EnvVars:     []string{"TURNSTILE_STREAM_UPSTREAM"},
				Destination: &streamUpstream,
			},
			&cli.StringFlag{
				Name:        "tls-cert",
				Usage:       "Certificate used by the stream endpoint",
				EnvVars:     []string{"TURNSTILE_TLS_CERT"},
				Destination: &tlsCert,
			},
			&cli.StringFlag{
				Name:        "tls-key",
				Usage:       "Private key used by the stream endpoint",
				EnvVars:     []string{"TURNSTILE_TLS_KEY"},
				Destination: &tlsKey,
			},
			cmdflags.Database(&dbPath),
			&cli.StringFlag{
				Name:        "cookie",
				Usage:       "Name of the session cookie",
				EnvVars:     []string{"TURNSTILE_COOKIE"},
				Destination: &cookie,
			},
			&cli.BoolFlag{
				Name:        "secure-cookie",
				Usage:       "Only send the session cookie over https",
				EnvVars:     []string{"TURNSTILE_SECURE_COOKIE"},
				Destination: &secureCookie,
			},
			cmdflags.RootKeyEnvVar(&rootKeyEnvVar),
		},
		Action: func(ctx *cli.Context) error {
			cfg := config.Default()
			if configFile != "" {
				if err := config.Load(configFile, &cfg); err != nil {
					return err
				}
			}
			overrideString(ctx, "host", host, &cfg.HTTP.Host)
			overrideString(ctx, "host", host, &cfg.Stream.Host)
			overrideInt(ctx, "port", port, &cfg.HTTP.Port)
			overrideString(ctx, "upstream", upstream, &cfg.Upstream)
			overrideInt(ctx, "stream-port", streamPort, &cfg.Stream.Port)
			overrideString(ctx, "stream-upstream", streamUpstream, &cfg.Stream.Upstream)
			overrideString(ctx, "tls-cert", tlsCert, &cfg.Stream.TLS.Cert)
			overrideString(ctx, "tls-key", tlsKey, &cfg.Stream.TLS.Key)
			overrideString(ctx, "db", dbPath, &cfg.Storage.Path)
			overrideString(ctx, "cookie", cookie, &cfg.Session.Cookie)
			overrideString(ctx, "root-key-envvar-name", rootKeyEnvVar, &cfg.Auth.RootKeyEnv)
			if ctx.IsSet("secure-cookie") {
				cfg.Session.Secure = secureCookie
			}
			if ctx.IsSet("upstream") {
				cfg.Routes = nil
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			appCtx := ctx.Context
			if configFile != "" && !ctx.IsSet("log-level") && !ctx.IsSet("log-format") {
				logger, err := logutil.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)
				if err != nil {
					return err
				}
				appCtx = logutil.WithLogger(appCtx, logger)
			}
			return run(appCtx, cfg)
		},
	}
}

func overrideString(ctx *cli.Context, flag, value string, out *string) {
	if ctx.IsSet(flag) {
		*out = value
	}
}

func overrideInt(ctx *cli.Context, flag string, value int, out *int) {
	if ctx.IsSet(flag) {
		*out = value
	}
}

func run(ctx context.Context, cfg config.Config) error {
	log := logutil.GetOrDefault(ctx)
	keyfn, err := auth.KeyFNFromEnv(cfg.Auth.RootKeyEnv, os.Getenv, os.Setenv)
	if err != nil {
		return err
	}
	db, err := store.Open(ctx, cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	sessions, err := auth.NewSessions()
	if err != nil {
		return err
	}
	defer sessions.Close()
	renderer, err := pages.New()
	if err != nil {
		return err
	}

	svc := auth.NewService(db.Accounts(), db.Invitations(), sessions, auth.NewHasher(keyfn), rand.Reader)
	realm := api.NewRealm(sessions, cfg.Session.Cookie, cfg.Session.Secure, api.PromptLogin(renderer))
	handlers := api.NewHandlers(svc, realm, renderer)

	var rules []proxy.Rule
	for _, r := range cfg.RouteTable() {
		rule, err := proxy.ParseRule(r.Prefix, r.Upstream, !r.Public)
		if err != nil {
			return err
		}
		rules = append(rules, rule)
	}
	mainHandler, err := gateway.AsHandler(ctx, handlers, realm, rules, renderer)
	if err != nil {
		return err
	}

	var streamHandler http.Handler
	if cfg.StreamEnabled() {
		streamRule, err := proxy.ParseRule("/", cfg.Stream.Upstream, true)
		if err != nil {
			return err
		}
		streamHandler, err = gateway.AsStreamHandler(ctx, realm, []proxy.Rule{streamRule}, renderer)
		if err != nil {
			return err
		}
	} else {
		log.Info().Msg("Stream endpoint disabled, no stream upstream configured")
	}

	// both endpoints stop once either of them fails
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errs := make(chan error, 2)
	running := 1
	go func() {
		defer cancel()
		errs <- httpserver.Serve(ctx, cfg.HTTP.Addr(), mainHandler)
	}()
	if streamHandler != nil {
		running++
		go func() {
			defer cancel()
			errs <- httpserver.ServeTLS(ctx, cfg.Stream.Addr(), streamHandler, httpserver.TLS{
				Cert: cfg.Stream.TLS.Cert,
				Key:  cfg.Stream.TLS.Key,
			})
		}()
	}

	var firstErr error
	for ; running > 0; running-- {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = fmt.Errorf("unable to serve, cause %w", err)
		}
	}
	return firstErr
}
