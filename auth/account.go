package auth

import "context"

type (
	// Account is the registered identity. Sessions keep a copy taken at
	// login time.
	Account struct {
		Email        string `json:"email"`
		FirstName    string `json:"firstName"`
		LastName     string `json:"lastName"`
		PasswordHash string `json:"passwordHash"`
	}

	Registration struct {
		Email           string
		FirstName       string
		LastName        string
		Password        string
		ConfirmPassword string
	}

	// AccountStore is an append-only record collection. It does not
	// check for duplicates, callers must.
	AccountStore interface {
		ListAll(ctx context.Context) ([]Account, error)
		Append(ctx context.Context, acc Account) (Account, error)
	}

	// InvitationStore keeps the emails allowed to login.
	InvitationStore interface {
		ListAll(ctx context.Context) ([]string, error)
		Append(ctx context.Context, email string) (string, error)
	}
)

// missingFields returns the name of every required field left empty
func (r Registration) missingFields() []string {
	var out []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"email", r.Email},
		{"firstName", r.FirstName},
		{"lastName", r.LastName},
		{"password", r.Password},
		{"confirmPassword", r.ConfirmPassword},
	} {
		if len(f.value) == 0 {
			out = append(out, f.name)
		}
	}
	return out
}

// DisplayName is what pages show for the account
func (a Account) DisplayName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}
