package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
)

const (
	RootKeyEnvVar = "TURNSTILE_ROOTKEY"
)

type (
	Key [32]byte

	// KeyFn returns a fresh copy of the root key, callers should Zero it
	// once done.
	KeyFn func(context.Context) (*Key, error)
)

func (k *Key) Zero() {
	for i := range k {
		k[i] = 0
	}
}

// KeyFNFromEnv reads the root key from varname and clears the variable.
//
// The key is expected to be 32 bytes encoded with standard base64.
func KeyFNFromEnv(varname string, getfn func(string) string, setfn func(string, string) error) (KeyFn, error) {
	if getfn == nil {
		getfn = os.Getenv
	}
	if setfn == nil {
		setfn = os.Setenv
	}
	val := getfn(varname)
	setfn(varname, "")
	if len(val) == 0 {
		return nil, fmt.Errorf("auth: environment variable %v is empty", varname)
	}
	return KeyFNFromString(val)
}

// KeyFNFromString decodes a base64 root key
func KeyFNFromString(val string) (KeyFn, error) {
	var rootKey Key
	buf, err := base64.StdEncoding.DecodeString(val)
	if err != nil {
		return nil, fmt.Errorf("auth: cannot decode string to valid key, cause %v", err)
	} else if len(buf) != len(rootKey) {
		return nil, fmt.Errorf("auth: decoded key has %v bytes expecting %v bytes", len(buf), len(rootKey))
	}
	copy(rootKey[:], buf)
	for i := range buf {
		buf[i] = 0
	}
	return func(_ context.Context) (*Key, error) {
		k := rootKey
		return &k, nil
	}, nil
}

// GenerateKey returns a new random root key, already encoded in base64.
// A nil random uses crypto/rand.
func GenerateKey(random io.Reader) (string, error) {
	if random == nil {
		random = rand.Reader
	}
	var k Key
	defer k.Zero()
	if _, err := io.ReadFull(random, k[:]); err != nil {
		return "", CryptoError{cause: err}
	}
	return base64.StdEncoding.EncodeToString(k[:]), nil
}
