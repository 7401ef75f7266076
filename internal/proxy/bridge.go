package proxy

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type (
	halfCloser interface {
		CloseWrite() error
	}

	// bufferedConn reads from r before reaching the network, r usually is
	// the bufio.Reader used to parse the handshake
	bufferedConn struct {
		net.Conn
		r io.Reader
	}
)

const (
	// how long the remaining direction may stay open after the other one
	// reached end-of-stream
	bridgeLinger = 10 * time.Second
)

var (
	afterFunc = time.AfterFunc
)

func (b *bufferedConn) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

func (b *bufferedConn) CloseWrite() error {
	if hc, ok := b.Conn.(halfCloser); ok {
		return hc.CloseWrite()
	}
	return b.Conn.Close()
}

// bridge copies bytes between client and upstream in both directions.
//
// When one direction reaches end-of-stream the write side of its
// destination is closed, the other direction gets bridgeLinger to finish
// before both connections are closed. Returns the bytes sent to
// upstream, the bytes sent to client and the first copy error.
func bridge(log zerolog.Logger, client, upstream net.Conn) (int64, int64, error) {
	var toUpstream, toClient int64
	var toUpstreamErr, toClientErr error
	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			upstream.Close()
			client.Close()
		})
	}
	var firstDone sync.Once
	var linger *time.Timer
	var wg sync.WaitGroup
	wg.Add(2)
	copyFunc := func(dst, src net.Conn, n *int64, copyErr *error) {
		defer wg.Done()
		*n, *copyErr = io.Copy(dst, src)
		if hc, ok := dst.(halfCloser); ok {
			hc.CloseWrite()
		} else {
			dst.Close()
		}
		firstDone.Do(func() {
			linger = afterFunc(bridgeLinger, closeBoth)
		})
	}
	go copyFunc(upstream, client, &toUpstream, &toUpstreamErr)
	go copyFunc(client, upstream, &toClient, &toClientErr)
	wg.Wait()
	if linger != nil {
		linger.Stop()
	}
	closeBoth()
	err := toUpstreamErr
	if err == nil {
		err = toClientErr
	}
	log.Debug().Int64("bytes.upstream", toUpstream).Int64("bytes.client", toClient).AnErr("copyErr", err).Msg("Bridge closed")
	return toUpstream, toClient, err
}
