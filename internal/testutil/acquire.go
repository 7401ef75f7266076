package testutil

import (
	"context"
	"crypto/rand"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/andrebq/turnstile/auth"
	"github.com/andrebq/turnstile/auth/api"
	"github.com/andrebq/turnstile/internal/pages"
	"github.com/andrebq/turnstile/store"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}

	// Stack is every piece needed to serve the gateway pages, backed by
	// a temporary database
	Stack struct {
		DB       *store.DB
		Sessions *auth.Sessions
		Service  *auth.Service
		Realm    *api.SecurityRealm
		Pages    *pages.Templates
		Handlers *api.Handlers
	}
)

const (
	RootKey = "blmHX4evD5FygUEa3EWxjzuAPF7lC4sKuWBrhgti/20="
	Cookie  = "turnstile_test"
)

func AcquireDB(ctx context.Context, t TestLog, name string) (*store.DB, func()) {
	dir, err := ioutil.TempDir("", "turnstile-tests")
	if err != nil {
		t.Fatal(err)
	}
	db, err := store.Open(ctx, filepath.Join(dir, name+".db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}
	return db, func() {
		err := db.Close()
		if err != nil {
			t.Log("unable to close database", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}

func AcquireStack(ctx context.Context, t TestLog) (*Stack, func()) {
	db, cleanupDB := AcquireDB(ctx, t, "stack")
	sessions, err := auth.NewSessions()
	if err != nil {
		cleanupDB()
		t.Fatal(err)
	}
	keyfn, err := auth.KeyFNFromString(RootKey)
	if err != nil {
		cleanupDB()
		t.Fatal(err)
	}
	tpl, err := pages.New()
	if err != nil {
		cleanupDB()
		t.Fatal(err)
	}
	s := &Stack{
		DB:       db,
		Sessions: sessions,
		Pages:    tpl,
		Service:  auth.NewService(db.Accounts(), db.Invitations(), sessions, auth.NewHasher(keyfn), rand.Reader),
	}
	s.Realm = api.NewRealm(sessions, Cookie, false, api.PromptLogin(tpl))
	s.Handlers = api.NewHandlers(s.Service, s.Realm, tpl)
	return s, func() {
		sessions.Close()
		cleanupDB()
	}
}

// Enroll registers and invites an account with the given password
func (s *Stack) Enroll(ctx context.Context, t TestLog, email, password string) auth.Account {
	acc, err := s.Service.Register(ctx, auth.Registration{
		Email:           email,
		FirstName:       "Test",
		LastName:        "User",
		Password:        password,
		ConfirmPassword: password,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := auth.Invite(ctx, s.DB.Invitations(), email); err != nil {
		t.Fatal(err)
	}
	return acc
}

// Login returns a session token for email
func (s *Stack) Login(ctx context.Context, t TestLog, email, password string) string {
	token, _, err := s.Service.Login(ctx, email, password)
	if err != nil {
		t.Fatal(err)
	}
	return token
}
