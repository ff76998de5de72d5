package challenge

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/crispyspin/crispyspin-backend/pkg/address"
	redisclient "github.com/crispyspin/crispyspin-backend/pkg/redis"
)

const (
	nonceBytes = 16

	// DefaultTTL bounds how long an issued challenge can be redeemed.
	DefaultTTL = 5 * time.Minute
)

// ErrChallengeNotFound covers expired, consumed and never-issued nonces.
var ErrChallengeNotFound = errors.New("challenge not found or expired")

type challengeStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
}

type challengeKeyer interface {
	ChallengeKey(nonce string) string
}

// Store keeps login challenges in Redis keyed by nonce so any API replica
// can redeem them.
type Store struct {
	store challengeStore
	keyer challengeKeyer
	ttl   time.Duration
}

// NewStore constructs a challenge store backed by Redis.
func NewStore(client *redisclient.Client, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{store: client, keyer: client, ttl: ttl}, nil
}

// TTL is the redemption window of issued challenges.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Issue draws a fresh nonce bound to wallet.
func (s *Store) Issue(ctx context.Context, wallet string) (string, error) {
	normalized, err := address.Normalize(wallet)
	if err != nil {
		return "", err
	}
	nonce, err := NewNonce()
	if err != nil {
		return "", err
	}
	if err := s.store.Set(ctx, s.keyer.ChallengeKey(nonce), normalized, s.ttl); err != nil {
		return "", err
	}
	return nonce, nil
}

// Consume atomically redeems nonce and returns the wallet it was issued to.
// A nonce can be consumed at most once.
func (s *Store) Consume(ctx context.Context, nonce string) (string, error) {
	if strings.TrimSpace(nonce) == "" {
		return "", ErrChallengeNotFound
	}
	wallet, err := s.store.GetDel(ctx, s.keyer.ChallengeKey(nonce))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return "", ErrChallengeNotFound
		}
		return "", err
	}
	return wallet, nil
}

// NewNonce returns 16 random bytes, hex encoded.
func NewNonce() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
