package auth

import (
	"encoding/base64"
	"io"
)

const (
	tokenSize = 32
)

// NewToken reads 32 bytes from random and returns them encoded as
// url-safe base64, so tokens can travel in cookies without escaping.
func NewToken(random io.Reader) (string, error) {
	var buf [tokenSize]byte
	if _, err := io.ReadFull(random, buf[:]); err != nil {
		return "", CryptoError{cause: err}
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}
