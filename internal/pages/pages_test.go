package pages

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	person struct {
		Email     string
		FirstName string
		LastName  string
	}
)

func (p person) DisplayName() string { return p.FirstName + " " + p.LastName }

func TestRender(t *testing.T) {
	tpl, err := New()
	require.NoError(t, err)

	for _, tc := range []struct {
		page   Page
		data   Data
		status int
		expect string
	}{
		{Login, Data{Message: "Please login to continue", MessageClass: Danger}, http.StatusUnauthorized, "Please login to continue"},
		{Register, Data{Email: "ana@example.com"}, http.StatusOK, `value="ana@example.com"`},
		{Profile, Data{Account: person{Email: "ana@example.com", FirstName: "Ana", LastName: "Silva"}}, http.StatusOK, "Ana Silva"},
		{Home, Data{}, http.StatusOK, `href="/register"`},
		{Login, Data{Message: "<script>"}, http.StatusBadRequest, "&lt;script&gt;"},
	} {
		rec := httptest.NewRecorder()
		tpl.Render(rec, tc.status, tc.page, tc.data)
		assert.Equal(t, tc.status, rec.Code, "page %v", tc.page)
		assert.Contains(t, rec.Body.String(), tc.expect, "page %v", tc.page)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	}
}

func TestFail(t *testing.T) {
	tpl, err := New()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	Fail(tpl, rec, http.StatusBadGateway)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "502 Bad Gateway")
}
