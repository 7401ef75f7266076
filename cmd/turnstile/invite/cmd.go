package invite

import (
	"fmt"

	"github.com/andrebq/turnstile/auth"
	"github.com/andrebq/turnstile/internal/cmdflags"
	"github.com/andrebq/turnstile/store"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var db *store.DB
	var dbPath string
	return &cli.Command{
		Name:  "invite",
		Usage: "Manage the list of emails allowed to login",
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
			addCmd(&db),
			listCmd(&db),
		},
	}
}

func addCmd(db **store.DB) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Invite one or more emails, emails already invited are skipped",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "email",
				Aliases:  []string{"e"},
				Usage:    "Email to invite, can be repeated",
				Required: true,
			},
		},
		Action: func(ctx *cli.Context) error {
			for _, email := range ctx.StringSlice("email") {
				added, err := auth.Invite(ctx.Context, (*db).Invitations(), email)
				if err != nil {
					return err
				}
				if added {
					fmt.Fprintf(ctx.App.Writer, "invited %v\n", email)
				} else {
					fmt.Fprintf(ctx.App.Writer, "%v was already invited\n", email)
				}
			}
			return nil
		},
	}
}

func listCmd(db **store.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print every invited email",
		Action: func(ctx *cli.Context) error {
			all, err := (*db).Invitations().ListAll(ctx.Context)
			if err != nil {
				return err
			}
			for _, email := range all {
				fmt.Fprintln(ctx.App.Writer, email)
			}
			return nil
		},
	}
}
