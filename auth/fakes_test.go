package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type (
	memAccounts struct {
		sync.Mutex
		items []Account
		err   error
	}

	memInvitations struct {
		sync.Mutex
		items []string
		err   error
	}

	brokenReader struct{}
)

const (
	testRootKey = "blmHX4evD5FygUEa3EWxjzuAPF7lC4sKuWBrhgti/20="
)

func (m *memAccounts) ListAll(ctx context.Context) ([]Account, error) {
	m.Lock()
	defer m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]Account(nil), m.items...), nil
}

func (m *memAccounts) Append(ctx context.Context, acc Account) (Account, error) {
	m.Lock()
	defer m.Unlock()
	if m.err != nil {
		return Account{}, m.err
	}
	m.items = append(m.items, acc)
	return acc, nil
}

func (m *memInvitations) ListAll(ctx context.Context) ([]string, error) {
	m.Lock()
	defer m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]string(nil), m.items...), nil
}

func (m *memInvitations) Append(ctx context.Context, email string) (string, error) {
	m.Lock()
	defer m.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.items = append(m.items, email)
	return email, nil
}

func (brokenReader) Read(_ []byte) (int, error) {
	return 0, errors.New("entropy pool is gone")
}

func testKeyFn(t *testing.T) KeyFn {
	keyfn, err := KeyFNFromString(testRootKey)
	if err != nil {
		t.Fatal(err)
	}
	return keyfn
}

func testSessions(t *testing.T) *Sessions {
	s, err := NewSessions()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
