package store

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/andrebq/turnstile/auth"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) (string, func()) {
	dir, err := ioutil.TempDir("", "turnstile-tests")
	if err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, "nested", "turnstile.db"), func() {
		os.RemoveAll(dir)
	}
}

func TestAccountsKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	path, cleanup := tempDB(t)
	defer cleanup()

	db, err := Open(ctx, path)
	require.NoError(t, err)
	accounts := db.Accounts()

	all, err := accounts.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	expected := []auth.Account{
		{Email: "bob@example.com", FirstName: "Bob", LastName: "B", PasswordHash: "h1"},
		{Email: "ana@example.com", FirstName: "Ana", LastName: "A", PasswordHash: "h2"},
		{Email: "bob@example.com", FirstName: "Bob", LastName: "Again", PasswordHash: "h3"},
	}
	for _, acc := range expected {
		_, err := accounts.Append(ctx, acc)
		require.NoError(t, err)
	}
	all, err = accounts.ListAll(ctx)
	require.NoError(t, err)
	require.Equal(t, expected, all, "append does not deduplicate")

	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()
	all, err = db.Accounts().ListAll(ctx)
	require.NoError(t, err)
	require.Equal(t, expected, all, "records must survive a restart")
}

func TestInvitations(t *testing.T) {
	ctx := context.Background()
	path, cleanup := tempDB(t)
	defer cleanup()

	db, err := Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	inv := db.Invitations()
	for _, email := range []string{"z@example.com", "a@example.com"} {
		_, err := inv.Append(ctx, email)
		require.NoError(t, err)
	}
	all, err := inv.ListAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"z@example.com", "a@example.com"}, all)

	added, err := auth.Invite(ctx, inv, "a@example.com")
	require.NoError(t, err)
	require.False(t, added)
}

func TestListAfterCloseFails(t *testing.T) {
	ctx := context.Background()
	path, cleanup := tempDB(t)
	defer cleanup()

	db, err := Open(ctx, path)
	require.NoError(t, err)
	db.Close()
	_, err = db.Accounts().ListAll(ctx)
	require.Error(t, err)
}
