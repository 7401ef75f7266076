package auth

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/andrebq/turnstile/internal/logutil"
)

type (
	// Service runs the register, login and logout flows.
	Service struct {
		accounts    AccountStore
		invitations InvitationStore
		sessions    SessionTable
		hasher      *Hasher
		random      io.Reader

		// serializes the list-then-append step of registration
		writes sync.Mutex
	}
)

func NewService(accounts AccountStore, invitations InvitationStore, sessions SessionTable, hasher *Hasher, random io.Reader) *Service {
	return &Service{
		accounts:    accounts,
		invitations: invitations,
		sessions:    sessions,
		hasher:      hasher,
		random:      random,
	}
}

// Register validates reg and appends a new account.
//
// Checks run in a fixed order: password confirmation, required fields
// and finally uniqueness of the email.
func (s *Service) Register(ctx context.Context, reg Registration) (Account, error) {
	if reg.Password != reg.ConfirmPassword {
		return Account{}, ValidationError{Reason: PasswordMismatch}
	}
	if missing := reg.missingFields(); len(missing) > 0 {
		log := logutil.GetOrDefault(ctx)
		log.Debug().Strs("fields", missing).Msg("Registration with missing fields")
		return Account{}, ValidationError{Reason: MissingFields}
	}
	digest, err := s.hasher.Hash(ctx, PlainText(reg.Password))
	if err != nil {
		return Account{}, err
	}

	s.writes.Lock()
	defer s.writes.Unlock()
	all, err := s.accounts.ListAll(ctx)
	if err != nil {
		return Account{}, StorageUnavailable{Op: "list accounts", cause: err}
	}
	for _, acc := range all {
		if acc.Email == reg.Email {
			return Account{}, ValidationError{Reason: AlreadyRegistered}
		}
	}
	acc, err := s.accounts.Append(ctx, Account{
		Email:        reg.Email,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		PasswordHash: digest,
	})
	if err != nil {
		return Account{}, StorageUnavailable{Op: "append account", cause: err}
	}
	return acc, nil
}

// Login checks the credentials and the invitation list, on success a new
// session is created and its token returned.
func (s *Service) Login(ctx context.Context, email, password string) (string, Account, error) {
	digest, err := s.hasher.Hash(ctx, PlainText(password))
	if err != nil {
		return "", Account{}, err
	}
	all, err := s.accounts.ListAll(ctx)
	if err != nil {
		return "", Account{}, StorageUnavailable{Op: "list accounts", cause: err}
	}
	acc, found := findAccount(all, email, digest)
	if !found {
		return "", Account{}, AuthenticationError{Reason: InvalidCredentials}
	}
	invited, err := IsInvited(ctx, s.invitations, acc.Email)
	if err != nil {
		return "", Account{}, err
	}
	if !invited {
		return "", Account{}, AuthenticationError{Reason: NotInvited}
	}
	token, err := NewToken(s.random)
	if err != nil {
		return "", Account{}, err
	}
	if err := s.sessions.Put(ctx, token, acc); err != nil {
		return "", Account{}, StorageUnavailable{Op: "create session", cause: err}
	}
	return token, acc, nil
}

// Logout removes the session, unknown tokens are ignored
func (s *Service) Logout(ctx context.Context, token string) error {
	if len(token) == 0 {
		return nil
	}
	if err := s.sessions.Remove(ctx, token); err != nil {
		return StorageUnavailable{Op: "remove session", cause: err}
	}
	return nil
}

// Lookup resolves a token to the account snapshot kept by the session
func (s *Service) Lookup(ctx context.Context, token string) (Account, bool, error) {
	return s.sessions.Get(ctx, token)
}

func findAccount(all []Account, email, digest string) (Account, bool) {
	for _, acc := range all {
		// both checks run, digest first
		sameDigest := Same(acc.PasswordHash, digest)
		if sameDigest && acc.Email == email {
			return acc, true
		}
	}
	return Account{}, false
}

// IsInvited reports whether email is in the invitation list
func IsInvited(ctx context.Context, invitations InvitationStore, email string) (bool, error) {
	all, err := invitations.ListAll(ctx)
	if err != nil {
		return false, StorageUnavailable{Op: "list invitations", cause: err}
	}
	for _, v := range all {
		if v == email {
			return true, nil
		}
	}
	return false, nil
}

// Invite appends email to the invitation list unless it is already there.
func Invite(ctx context.Context, invitations InvitationStore, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if len(email) == 0 {
		return false, ValidationError{Reason: MissingFields}
	}
	present, err := IsInvited(ctx, invitations, email)
	if err != nil {
		return false, err
	}
	if present {
		return false, nil
	}
	if _, err := invitations.Append(ctx, email); err != nil {
		return false, StorageUnavailable{Op: "append invitation", cause: err}
	}
	return true, nil
}
