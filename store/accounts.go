package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andrebq/turnstile/auth"
)

type (
	Accounts struct {
		db *sql.DB
	}
)

var _ auth.AccountStore = (*Accounts)(nil)

func (a *Accounts) ListAll(ctx context.Context) ([]auth.Account, error) {
	rows, err := a.db.QueryContext(ctx, `select email, first_name, last_name, password_hash
	from accounts order by account_id asc`)
	if err != nil {
		return nil, fmt.Errorf("unable to list accounts, cause %w", err)
	}
	defer rows.Close()
	var out []auth.Account
	for rows.Next() {
		var acc auth.Account
		err = rows.Scan(&acc.Email, &acc.FirstName, &acc.LastName, &acc.PasswordHash)
		if err != nil {
			return nil, fmt.Errorf("unable to scan account, cause %w", err)
		}
		out = append(out, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to list accounts, cause %w", err)
	}
	return out, nil
}

// Append adds acc to the end of the collection, it does not check for
// duplicates.
func (a *Accounts) Append(ctx context.Context, acc auth.Account) (auth.Account, error) {
	_, err := a.db.ExecContext(ctx, `insert into accounts(email, first_name, last_name, password_hash)
	values (?, ?, ?, ?)`, acc.Email, acc.FirstName, acc.LastName, acc.PasswordHash)
	if err != nil {
		return auth.Account{}, fmt.Errorf("unable to append account %v, cause %w", acc.Email, err)
	}
	return acc, nil
}
