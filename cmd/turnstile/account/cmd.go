package account

import (
	"bufio"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/andrebq/turnstile/auth"
	"github.com/andrebq/turnstile/internal/cmdflags"
	"github.com/andrebq/turnstile/store"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var db *store.DB
	var dbPath string
	return &cli.Command{
		Name:  "account",
		Usage: "Manage registered accounts",
		Flags: []cli.Flag{
			cmdflags.Database(&dbPath),
		},
		Before: func(ctx *cli.Context) error {
			var err error
			db, err = store.Open(ctx.Context, dbPath)
			return err
		},
		After: func(ctx *cli.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
		Subcommands: []*cli.Command{
			registerCmd(&db),
			listCmd(&db),
		},
	}
}

func registerCmd(db **store.DB) *cli.Command {
	var reg auth.Registration
	var rootKeyEnvVar string
	return &cli.Command{
		Name:  "register",
		Usage: "Register a new account (password is read from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "email",
				Aliases:     []string{"e"},
				Destination: &reg.Email,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "first",
				Usage:       "First name",
				Destination: &reg.FirstName,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "last",
				Usage:       "Last name",
				Destination: &reg.LastName,
				Required:    true,
			},
			cmdflags.RootKeyEnvVar(&rootKeyEnvVar),
		},
		Action: func(ctx *cli.Context) error {
			keyfn, err := auth.KeyFNFromEnv(rootKeyEnvVar, os.Getenv, os.Setenv)
			if err != nil {
				return err
			}
			sc := bufio.NewScanner(os.Stdin)
			if !sc.Scan() {
				if sc.Err() != nil {
					return sc.Err()
				}
				return errors.New("missing password from stdin")
			}
			reg.Password = strings.TrimSpace(sc.Text())
			reg.ConfirmPassword = reg.Password
			sessions, err := auth.NewSessions()
			if err != nil {
				return err
			}
			defer sessions.Close()
			svc := auth.NewService((*db).Accounts(), (*db).Invitations(), sessions, auth.NewHasher(keyfn), rand.Reader)
			acc, err := svc.Register(ctx.Context, reg)
			if err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "registered %v\n", acc.Email)
			return nil
		},
	}
}

func listCmd(db **store.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print every registered account, password digests are never printed",
		Action: func(ctx *cli.Context) error {
			all, err := (*db).Accounts().ListAll(ctx.Context)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EMAIL\tFIRST NAME\tLAST NAME")
			for _, acc := range all {
				fmt.Fprintf(tw, "%v\t%v\t%v\n", acc.Email, acc.FirstName, acc.LastName)
			}
			return tw.Flush()
		},
	}
}
