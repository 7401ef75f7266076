package auth

import "fmt"

type (
	// ValidationError is returned when a registration is rejected.
	// Reason is safe to show to the user.
	ValidationError struct {
		Reason string
	}

	// AuthenticationError is returned when a login is rejected.
	// Reason is safe to show to the user.
	AuthenticationError struct {
		Reason string
	}

	StorageUnavailable struct {
		Op    string
		cause error
	}

	CryptoError struct {
		cause error
	}
)

const (
	PasswordMismatch   = "Password does not match."
	MissingFields      = "All fields are required."
	AlreadyRegistered  = "User already registered."
	InvalidCredentials = "Invalid username or password"
	NotInvited         = "You can't login, you have not been invited yet"
)

func (v ValidationError) Error() string {
	return v.Reason
}

func (a AuthenticationError) Error() string {
	return a.Reason
}

func (s StorageUnavailable) Error() string {
	if s.cause == nil {
		return fmt.Sprintf("storage unavailable during %v", s.Op)
	}
	return fmt.Sprintf("storage unavailable during %v, cause %v", s.Op, s.cause)
}

func (s StorageUnavailable) Unwrap() error {
	return s.cause
}

func (c CryptoError) Error() string {
	return fmt.Sprintf("auth: crypto primitive failed, cause %v", c.cause)
}

func (c CryptoError) Unwrap() error {
	return c.cause
}
