package api

import (
	"context"
	"net/http"

	"github.com/andrebq/turnstile/auth"
	"github.com/andrebq/turnstile/internal/logutil"
	"github.com/andrebq/turnstile/internal/proxy"
)

type (
	SessionLookup interface {
		Get(ctx context.Context, token string) (auth.Account, bool, error)
	}

	// SecurityRealm resolves the session cookie into an identity and
	// guards handlers that require one.
	SecurityRealm struct {
		sessions SessionLookup
		cookie   string
		secure   bool
		denied   http.Handler
	}
)

const (
	DefaultCookie = "turnstile_session"
)

// NewRealm returns a realm reading the token from the named cookie.
//
// denied answers requests that reach a protected handler without a
// session, nil means a plain 401.
func NewRealm(sessions SessionLookup, cookie string, secureCookie bool, denied http.Handler) *SecurityRealm {
	if cookie == "" {
		cookie = DefaultCookie
	}
	if denied == nil {
		denied = http.HandlerFunc(unauthorized)
	}
	return &SecurityRealm{
		sessions: sessions,
		cookie:   cookie,
		secure:   secureCookie,
		denied:   denied,
	}
}

// Authenticate attaches the identity of the session to the request
// context, requests without a valid session pass untouched.
func (s *SecurityRealm) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.Token(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		acc, found, err := s.sessions.Get(ctx, token)
		if err != nil {
			log := logutil.GetOrDefault(ctx)
			log.Error().Err(err).Msg("Unexpected error when checking for token in the session table")
		}
		if !found {
			next.ServeHTTP(w, r)
			return
		}
		log := logutil.GetOrDefault(ctx).With().Str("email", acc.Email).Logger()
		ctx = logutil.WithLogger(auth.WithIdentity(ctx, acc), log)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Protect only calls sensitive when the request carries an identity.
// Upgrade requests are denied with a plain 401 since nobody will render
// a page for them.
func (s *SecurityRealm) Protect(sensitive http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityFrom(r.Context()); ok {
			sensitive.ServeHTTP(w, r)
			return
		}
		if proxy.IsUpgrade(r) {
			unauthorized(w, r)
			return
		}
		s.denied.ServeHTTP(w, r)
	})
}

// Token returns the session token carried by r, if any
func (s *SecurityRealm) Token(r *http.Request) string {
	c, err := r.Cookie(s.cookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *SecurityRealm) SetSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *SecurityRealm) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func unauthorized(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "Invalid credentials", http.StatusUnauthorized)
}
