// Package store keeps accounts and invitations in a SQLite database.
//
// Both collections are append-only and preserve insertion order.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

type (
	DB struct {
		db   *sql.DB
		path string
	}
)

func openDatabase(ctx context.Context, file string) (*sql.DB, error) {
	if dir := filepath.Dir(file); dir != "" {
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return nil, fmt.Errorf("unable to create directory %v to store database, cause %w", dir, err)
		}
	}
	connstr := fmt.Sprintf("file:%v?_journal=wal&_busy_timeout=5000&mode=rwc", file)
	conn, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v, cause %w", file, err)
	}
	err = conn.PingContext(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to ping database %v, cause %w", file, err)
	}
	return conn, nil
}

// Open the database at path, creating the file and the schema if needed.
func Open(ctx context.Context, path string) (*DB, error) {
	conn, err := openDatabase(ctx, path)
	if err != nil {
		return nil, err
	}
	d := &DB{db: conn, path: path}
	err = d.init(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to init database %v, cause %w", path, err)
	}
	return d, nil
}

func (d *DB) init(ctx context.Context) error {
	for _, cmd := range []string{
		`create table if not exists accounts(
			account_id integer not null primary key autoincrement,
			email text not null,
			first_name text not null,
			last_name text not null,
			password_hash text not null
		)`,
		`create index if not exists idx_accounts_email
			on accounts(email)`,
		`create table if not exists invitations(
			invitation_id integer not null primary key autoincrement,
			email text not null
		)`,
	} {
		_, err := d.db.ExecContext(ctx, cmd)
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) Accounts() *Accounts {
	return &Accounts{db: d.db}
}

func (d *DB) Invitations() *Invitations {
	return &Invitations{db: d.db}
}

func (d *DB) Path() string {
	return d.path
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}
