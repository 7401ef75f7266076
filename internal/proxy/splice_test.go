package proxy

import (
	"bytes"
	"crypto/tls"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	echoServer struct {
		sync.Mutex
		paths []string
	}
)

func (e *echoServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.Lock()
	e.paths = append(e.paths, r.URL.Path)
	e.Unlock()
	if r.URL.Path == "/refuse" {
		http.Error(w, "go away", http.StatusForbidden)
		return
	}
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := conn.WriteMessage(mt, msg); err != nil {
			return
		}
	}
}

func wsURL(base string) string {
	return "ws" + strings.TrimPrefix(base, "http")
}

func echoRoundTrip(t *testing.T, conn *websocket.Conn) {
	for _, msg := range []string{"hello", "world"} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, got, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, msg, string(got))
	}
}

func TestSplicerRelaysWebsocket(t *testing.T) {
	echo := &echoServer{}
	upstream := httptest.NewServer(echo)
	defer upstream.Close()

	rule, err := ParseRule("/stream", wsURL(upstream.URL), false)
	require.NoError(t, err)
	front := httptest.NewServer(NewSplicer(rule, nil))
	defer front.Close()

	conn, res, err := websocket.DefaultDialer.Dial(wsURL(front.URL)+"/stream/chat", nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, res.StatusCode)
	echoRoundTrip(t, conn)

	echo.Lock()
	defer echo.Unlock()
	assert.Equal(t, []string{"/chat"}, echo.paths)
}

func TestSplicerOverTLS(t *testing.T) {
	upstream := httptest.NewTLSServer(&echoServer{})
	defer upstream.Close()

	rule, err := ParseRule("/", "wss://"+upstream.Listener.Addr().String(), false)
	require.NoError(t, err)
	splicer := NewSplicer(rule, nil)
	splicer.TLSConfig = upstream.Client().Transport.(*http.Transport).TLSClientConfig

	front := httptest.NewTLSServer(splicer)
	defer front.Close()

	dialer := websocket.Dialer{
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: true},
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.Dial("wss://"+front.Listener.Addr().String()+"/", nil)
	require.NoError(t, err)
	defer conn.Close()
	echoRoundTrip(t, conn)
}

func TestSplicerRejectsPlainRequests(t *testing.T) {
	rule, err := ParseRule("/", "ws://localhost:1", false)
	require.NoError(t, err)
	front := httptest.NewServer(NewSplicer(rule, nil))
	defer front.Close()

	res, err := http.Get(front.URL + "/")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUpgradeRequired, res.StatusCode)
}

func TestSplicerUpstreamRefusal(t *testing.T) {
	upstream := httptest.NewServer(&echoServer{})
	defer upstream.Close()
	rule, err := ParseRule("/", wsURL(upstream.URL), false)
	require.NoError(t, err)
	front := httptest.NewServer(NewSplicer(rule, nil))
	defer front.Close()

	_, res, err := websocket.DefaultDialer.Dial(wsURL(front.URL)+"/refuse", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestSplicerUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	target := wsURL(upstream.URL)
	upstream.Close()

	rule, err := ParseRule("/", target, false)
	require.NoError(t, err)
	front := httptest.NewServer(NewSplicer(rule, nil))
	defer front.Close()

	_, res, err := websocket.DefaultDialer.Dial(wsURL(front.URL)+"/", nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
}

func TestIsUpgrade(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.False(t, IsUpgrade(r))
	r.Header.Set("Upgrade", "websocket")
	assert.False(t, IsUpgrade(r))
	r.Header.Set("Connection", "keep-alive, Upgrade")
	assert.True(t, IsUpgrade(r))
}

func TestBridgeEndsWhenOneSideCloses(t *testing.T) {
	clientOuter, clientInner := net.Pipe()
	upstreamInner, upstreamOuter := net.Pipe()

	type result struct {
		up, down int64
	}
	done := make(chan result, 1)
	go func() {
		up, down, _ := bridge(zerolog.Nop(), clientInner, upstreamInner)
		done <- result{up, down}
	}()

	go func() {
		clientOuter.Write([]byte("ping"))
		clientOuter.Close()
	}()
	buf := make([]byte, 4)
	_, err := upstreamOuter.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))

	select {
	case res := <-done:
		assert.Equal(t, int64(4), res.up)
	case <-time.After(bridgeLinger + 5*time.Second):
		t.Fatal("bridge did not return after the client closed")
	}
	upstreamOuter.Close()
}

func TestBridgeStopsLingerTimer(t *testing.T) {
	var timers []*time.Timer
	afterFunc = func(d time.Duration, f func()) *time.Timer {
		tm := time.AfterFunc(d, f)
		timers = append(timers, tm)
		return tm
	}
	defer func() { afterFunc = time.AfterFunc }()

	clientOuter, clientInner := net.Pipe()
	upstreamInner, upstreamOuter := net.Pipe()
	done := make(chan struct{})
	go func() {
		bridge(zerolog.Nop(), clientInner, upstreamInner)
		close(done)
	}()
	clientOuter.Close()
	upstreamOuter.Close()

	select {
	case <-done:
	case <-time.After(bridgeLinger / 2):
		t.Fatal("bridge should return as soon as both sides are closed")
	}
	require.Len(t, timers, 1)
	assert.False(t, timers[0].Stop(), "the linger timer must be stopped once the bridge returns")
}

func TestHandshakeKeepsClientUserAgent(t *testing.T) {
	rule, err := ParseRule("/", "ws://upstream.local", true)
	require.NoError(t, err)
	s := NewSplicer(rule, nil)

	written := func(r *http.Request) string {
		var buf bytes.Buffer
		require.NoError(t, s.outgoing(r).Write(&buf))
		return buf.String()
	}

	r := httptest.NewRequest("GET", "/feed", nil)
	r.Header.Set("Connection", "Upgrade")
	r.Header.Set("Upgrade", "websocket")
	handshake := written(r)
	assert.NotContains(t, handshake, "User-Agent", "no user agent is added when the client sent none")
	assert.Contains(t, handshake, "GET /feed HTTP/1.1")
	assert.Contains(t, handshake, "Host: upstream.local")

	r.Header.Set("User-Agent", "feed-reader/2.0")
	assert.Contains(t, written(r), "User-Agent: feed-reader/2.0\r\n")
	assert.Equal(t, "feed-reader/2.0", r.Header.Get("User-Agent"))
}
