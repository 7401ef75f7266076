package logutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	var buf bytes.Buffer
	log, err := Setup("warn", "json", &buf)
	require.NoError(t, err)
	log.Info().Msg("hidden")
	log.Warn().Msg("visible")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")

	_, err = Setup("loud", "json", &buf)
	assert.Error(t, err)
	_, err = Setup("info", "xml", &buf)
	assert.Error(t, err)
}

func TestGetOrDefault(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))
	log := GetOrDefault(ctx)
	log.Info().Msg("from context")
	assert.Contains(t, buf.String(), "from context")
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := GetOrDefault(r.Context())
		log.Info().Msg("inside")
		http.Error(w, "nope", http.StatusTeapot)
	})
	withBase := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RequestLogger("http", handler).ServeHTTP(w, r.WithContext(WithLogger(r.Context(), base)))
	})
	apitest.New().Handler(withBase).Get("/brew").Expect(t).Status(http.StatusTeapot).End()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var inside, done map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &inside))
	require.NoError(t, json.Unmarshal(lines[1], &done))
	assert.Equal(t, "http", inside["endpoint"])
	assert.Equal(t, "/brew", done["path"])
	assert.Equal(t, float64(http.StatusTeapot), done["status"])
}
