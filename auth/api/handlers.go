package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andrebq/turnstile/auth"
	"github.com/andrebq/turnstile/internal/logutil"
	"github.com/andrebq/turnstile/internal/pages"
	"github.com/julienschmidt/httprouter"
)

type (
	// Handlers serves the pages owned by the gateway itself
	Handlers struct {
		svc   *auth.Service
		realm *SecurityRealm
		pages pages.Renderer
	}
)

const (
	LoginPrompt      = "Please login to continue"
	RegistrationDone = "Registration Complete. Please login to continue."
)

func NewHandlers(svc *auth.Service, realm *SecurityRealm, renderer pages.Renderer) *Handlers {
	return &Handlers{svc: svc, realm: realm, pages: renderer}
}

// Mount registers every local route in router
func (h *Handlers) Mount(router *httprouter.Router) {
	router.HandlerFunc("GET", "/home", h.home)
	router.HandlerFunc("GET", "/register", h.registerForm)
	router.HandlerFunc("POST", "/register", h.register)
	router.HandlerFunc("GET", "/login", h.loginForm)
	router.HandlerFunc("POST", "/login", h.login)
	router.HandlerFunc("POST", "/logout", h.logout)
	router.Handler("GET", "/profile", h.realm.Protect(http.HandlerFunc(h.profile)))
	router.Handler("GET", "/program", h.realm.Protect(http.HandlerFunc(h.program)))
	router.HandlerFunc("GET", "/healthz", healthz)
}

// PromptLogin renders the login page asking the user to login
func PromptLogin(renderer pages.Renderer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		renderer.Render(w, http.StatusUnauthorized, pages.Login, pages.Data{
			Title:        "Login",
			Message:      LoginPrompt,
			MessageClass: pages.Danger,
		})
	})
}

// UpstreamFailed renders the generic error page with 502
func UpstreamFailed(renderer pages.Renderer) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, _ *http.Request, _ error) {
		pages.Fail(renderer, w, http.StatusBadGateway)
	}
}

func (h *Handlers) home(w http.ResponseWriter, r *http.Request) {
	data := pages.Data{Title: "Home"}
	if acc, ok := auth.IdentityFrom(r.Context()); ok {
		data.Account = acc
	}
	h.pages.Render(w, http.StatusOK, pages.Home, data)
}

func (h *Handlers) registerForm(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, pages.Register, pages.Data{Title: "Register"})
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		pages.Fail(h.pages, w, http.StatusBadRequest)
		return
	}
	reg := auth.Registration{
		Email:           r.PostForm.Get("email"),
		FirstName:       r.PostForm.Get("firstName"),
		LastName:        r.PostForm.Get("lastName"),
		Password:        r.PostForm.Get("password"),
		ConfirmPassword: r.PostForm.Get("confirmPassword"),
	}
	acc, err := h.svc.Register(r.Context(), reg)
	if err != nil {
		h.reject(w, r, pages.Register, pages.Data{
			Title:     "Register",
			Email:     reg.Email,
			FirstName: reg.FirstName,
			LastName:  reg.LastName,
		}, err)
		return
	}
	log := logutil.GetOrDefault(r.Context())
	log.Info().Str("email", acc.Email).Msg("Account registered")
	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}

func (h *Handlers) loginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.IdentityFrom(r.Context()); ok {
		http.Redirect(w, r, "/profile", http.StatusFound)
		return
	}
	data := pages.Data{Title: "Login"}
	if r.URL.Query().Get("registered") != "" {
		data.Message = RegistrationDone
		data.MessageClass = pages.Success
	}
	h.pages.Render(w, http.StatusOK, pages.Login, data)
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		pages.Fail(h.pages, w, http.StatusBadRequest)
		return
	}
	email := r.PostForm.Get("email")
	token, acc, err := h.svc.Login(r.Context(), email, r.PostForm.Get("password"))
	if err != nil {
		h.reject(w, r, pages.Login, pages.Data{Title: "Login", Email: email}, err)
		return
	}
	h.realm.SetSession(w, token)
	log := logutil.GetOrDefault(r.Context())
	log.Info().Str("email", acc.Email).Msg("Session created")
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Logout(r.Context(), h.realm.Token(r))
	if err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Msg("Unable to remove session")
	}
	h.realm.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handlers) profile(w http.ResponseWriter, r *http.Request) {
	acc, _ := auth.IdentityFrom(r.Context())
	h.pages.Render(w, http.StatusOK, pages.Profile, pages.Data{
		Title:   "Profile",
		Account: acc,
	})
}

func (h *Handlers) program(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// reject renders page again with the user facing reason of err, errors
// without one get the generic error page.
func (h *Handlers) reject(w http.ResponseWriter, r *http.Request, page pages.Page, data pages.Data, err error) {
	var verr auth.ValidationError
	var aerr auth.AuthenticationError
	switch {
	case errors.As(err, &verr):
		data.Message = verr.Reason
	case errors.As(err, &aerr):
		data.Message = aerr.Reason
	default:
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Str("page", string(page)).Msg("Unable to complete request")
		pages.Fail(h.pages, w, http.StatusInternalServerError)
		return
	}
	data.MessageClass = pages.Danger
	h.pages.Render(w, StatusFor(err), page, data)
}

// StatusFor maps flow errors to the status code sent to clients
func StatusFor(err error) int {
	var verr auth.ValidationError
	var aerr auth.AuthenticationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr):
		if verr.Reason == auth.AlreadyRegistered {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case errors.As(err, &aerr):
		if aerr.Reason == auth.NotInvited {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
