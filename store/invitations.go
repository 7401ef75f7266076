package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andrebq/turnstile/auth"
)

type (
	Invitations struct {
		db *sql.DB
	}
)

var _ auth.InvitationStore = (*Invitations)(nil)

func (i *Invitations) ListAll(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, `select email from invitations order by invitation_id asc`)
	if err != nil {
		return nil, fmt.Errorf("unable to list invitations, cause %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var email string
		err = rows.Scan(&email)
		if err != nil {
			return nil, fmt.Errorf("unable to scan invitation, cause %w", err)
		}
		out = append(out, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to list invitations, cause %w", err)
	}
	return out, nil
}

func (i *Invitations) Append(ctx context.Context, email string) (string, error) {
	_, err := i.db.ExecContext(ctx, `insert into invitations(email) values (?)`, email)
	if err != nil {
		return "", fmt.Errorf("unable to append invitation %v, cause %w", email, err)
	}
	return email, nil
}
