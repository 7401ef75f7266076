package proxy

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReverseProxyStripsPrefix(t *testing.T) {
	var seen *http.Request
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusCreated)
	}))
	defer upstream.Close()

	rule, err := ParseRule("/app", upstream.URL+"/base", false)
	require.NoError(t, err)
	rp := NewReverseProxy(rule, nil)

	apitest.Handler(rp).Post("/app/items").
		Query("page", "2").
		Header("Cookie", "flavor=chocolate").
		Expect(t).
		Status(http.StatusCreated).
		Header("X-Upstream", "yes").
		End()

	require.NotNil(t, seen)
	assert.Equal(t, "/base/items", seen.URL.Path)
	assert.Equal(t, "2", seen.URL.Query().Get("page"))
	assert.Equal(t, rule.Target.Host, seen.Host)
	c, err := seen.Cookie("flavor")
	require.NoError(t, err)
	assert.Equal(t, "chocolate", c.Value)
}

func TestReverseProxyUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	target := upstream.URL
	upstream.Close()

	rule, err := ParseRule("/", target, false)
	require.NoError(t, err)
	var reported error
	rp := NewReverseProxy(rule, func(w http.ResponseWriter, r *http.Request, err error) {
		reported = err
		w.WriteHeader(http.StatusBadGateway)
	})
	apitest.Handler(rp).Get("/").Expect(t).Status(http.StatusBadGateway).End()
	var unavailable UpstreamUnavailable
	assert.ErrorAs(t, reported, &unavailable)
}
