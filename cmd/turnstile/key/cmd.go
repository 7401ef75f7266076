package key

import (
	"fmt"

	"github.com/andrebq/turnstile/auth"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "Root key utilities",
		Subcommands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Print a new random root key, keep it safe: losing it makes every stored password useless",
				Action: func(ctx *cli.Context) error {
					k, err := auth.GenerateKey(nil)
					if err != nil {
						return err
					}
					fmt.Fprintln(ctx.App.Writer, k)
					return nil
				},
			},
		},
	}
}
