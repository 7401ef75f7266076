package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/cespare/xxhash/v2"
)

type (
	// SessionTable maps opaque tokens to the account snapshot taken at
	// login.
	SessionTable interface {
		Put(ctx context.Context, token string, acc Account) error
		Get(ctx context.Context, token string) (Account, bool, error)
		Remove(ctx context.Context, token string) error
		Len() int
	}

	// Sessions is a SessionTable kept in memory. Entries never expire and
	// the table has no size limit.
	Sessions struct {
		cache *bigcache.BigCache
	}

	xxhasher struct{}
)

const (
	forever = 100 * 365 * 24 * time.Hour
)

func (xxhasher) Sum64(s string) uint64 {
	return xxhash.Sum64String(s)
}

func NewSessions() (*Sessions, error) {
	cfg := bigcache.DefaultConfig(forever)
	cfg.Shards = 64
	cfg.MaxEntriesInWindow = 1024
	cfg.MaxEntrySize = 256
	cfg.CleanWindow = 0
	cfg.HardMaxCacheSize = 0
	cfg.Verbose = false
	cfg.Hasher = xxhasher{}
	cache, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create session table, cause %w", err)
	}
	return &Sessions{cache: cache}, nil
}

func (s *Sessions) Put(ctx context.Context, token string, acc Account) error {
	buf, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("unable to encode session, cause %w", err)
	}
	return s.cache.Set(token, buf)
}

func (s *Sessions) Get(ctx context.Context, token string) (Account, bool, error) {
	if len(token) == 0 {
		return Account{}, false, nil
	}
	buf, err := s.cache.Get(token)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return Account{}, false, nil
	} else if err != nil {
		return Account{}, false, err
	}
	var acc Account
	if err := json.Unmarshal(buf, &acc); err != nil {
		return Account{}, false, fmt.Errorf("unable to decode session, cause %w", err)
	}
	return acc, true, nil
}

// Remove drops the token, removing an absent token is not an error.
func (s *Sessions) Remove(ctx context.Context, token string) error {
	if len(token) == 0 {
		return nil
	}
	// delete does not compare keys, only hashes; Get does
	if _, err := s.cache.Get(token); errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	err := s.cache.Delete(token)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (s *Sessions) Len() int {
	return s.cache.Len()
}

func (s *Sessions) Close() error {
	return s.cache.Close()
}
