package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/argon2"
)

type (
	PlainText []byte

	// Hasher derives password digests salted with the root key.
	//
	// The same input always produces the same digest, as long as the root
	// key is the same.
	Hasher struct {
		keyfn KeyFn
	}
)

const (
	// 7 passes over 10 MB should be a good replacement
	// for 1 pass over 64 MB of ram.
	hashPasses  = 7
	hashMemory  = 10 * 1024
	hashThreads = 2
	hashSize    = 32
)

func (p PlainText) Zero() {
	for i := range p {
		p[i] = 0
	}
}

func NewHasher(keyfn KeyFn) *Hasher {
	return &Hasher{keyfn: keyfn}
}

func (h *Hasher) Hash(ctx context.Context, plain PlainText) (string, error) {
	key, err := h.keyfn(ctx)
	if err != nil {
		return "", CryptoError{cause: err}
	}
	defer key.Zero()
	// parallelism is part of the digest, it must not follow the host cpu count
	buf := argon2.IDKey(plain, key[:], hashPasses, hashMemory, hashThreads, hashSize)
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Same compares two digests in constant time
func Same(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
