package cmdflags

import (
	"github.com/andrebq/turnstile/auth"
	"github.com/urfave/cli/v2"
)

func Config(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to a YAML configuration file",
		EnvVars:     []string{"TURNSTILE_CONFIG"},
		Destination: out,
		Value:       *out,
	}
}

func Database(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = "turnstile.db"
	}
	return &cli.StringFlag{
		Name:        "db",
		Usage:       "Path to the SQLite database holding accounts and invitations",
		EnvVars:     []string{"TURNSTILE_DB"},
		Destination: out,
		Value:       *out,
	}
}

func RootKeyEnvVar(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = auth.RootKeyEnvVar
	}
	return &cli.StringFlag{
		Name:        "root-key-envvar-name",
		Usage:       "Name of the environment variable that holds the root key. The key itself should not be passed as an argument",
		Value:       *out,
		Destination: out,
	}
}

func LogLevel(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = "info"
	}
	return &cli.StringFlag{
		Name:        "log-level",
		Usage:       "One of trace, debug, info, warn or error",
		EnvVars:     []string{"TURNSTILE_LOG_LEVEL"},
		Value:       *out,
		Destination: out,
	}
}

func LogFormat(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = "console"
	}
	return &cli.StringFlag{
		Name:        "log-format",
		Usage:       "Either console or json",
		EnvVars:     []string{"TURNSTILE_LOG_FORMAT"},
		Value:       *out,
		Destination: out,
	}
}
