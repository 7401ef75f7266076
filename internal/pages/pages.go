// Package pages renders the HTML returned by the gateway itself.
package pages

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

type (
	Page string

	// Data is what templates see. Message and MessageClass drive the
	// alert box shown on top of every page.
	Data struct {
		Title        string
		Message      string
		MessageClass string
		Status       int
		StatusText   string

		Email     string
		FirstName string
		LastName  string

		// Account is the logged in identity, if any
		Account interface{ DisplayName() string }
	}

	Renderer interface {
		Render(w http.ResponseWriter, status int, page Page, data Data)
	}

	Templates struct {
		set *template.Template
	}
)

const (
	Home     = Page("home")
	Login    = Page("login")
	Register = Page("register")
	Profile  = Page("profile")
	Error    = Page("error")

	Danger  = "alert-danger"
	Success = "alert-success"
)

//go:embed templates/*.html
var templateFS embed.FS

func New() (*Templates, error) {
	set, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("unable to parse page templates, cause %w", err)
	}
	return &Templates{set: set}, nil
}

func (t *Templates) Render(w http.ResponseWriter, status int, page Page, data Data) {
	if data.Title == "" {
		data.Title = string(page)
	}
	var buf bytes.Buffer
	err := t.set.ExecuteTemplate(&buf, string(page)+".html", data)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Fail renders the generic error page, details never reach the client.
func Fail(r Renderer, w http.ResponseWriter, status int) {
	r.Render(w, status, Error, Data{
		Title:      "Error",
		Status:     status,
		StatusText: http.StatusText(status),
	})
}
