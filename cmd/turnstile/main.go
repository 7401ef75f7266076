package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrebq/turnstile/cmd/turnstile/account"
	"github.com/andrebq/turnstile/cmd/turnstile/invite"
	"github.com/andrebq/turnstile/cmd/turnstile/key"
	"github.com/andrebq/turnstile/cmd/turnstile/serve"
	"github.com/andrebq/turnstile/internal/cmdflags"
	"github.com/andrebq/turnstile/internal/logutil"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	var logLevel, logFormat string
	app := &cli.App{
		Name:  "turnstile",
		Usage: "Authentication gateway in front of your web apps",
		Flags: []cli.Flag{
			cmdflags.LogLevel(&logLevel),
			cmdflags.LogFormat(&logFormat),
		},
		Before: func(ctx *cli.Context) error {
			logger, err := logutil.Setup(logLevel, logFormat, os.Stderr)
			if err != nil {
				return err
			}
			log.Logger = logger
			ctx.Context = logutil.WithLogger(ctx.Context, logger)
			return nil
		},
		Commands: []*cli.Command{
			serve.Cmd(),
			invite.Cmd(),
			account.Cmd(),
			key.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}
