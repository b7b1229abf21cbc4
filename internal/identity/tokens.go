package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore keeps single-use verification tokens and revoked session ids.
type TokenStore interface {
	PutVerification(ctx context.Context, token, uid string, ttl time.Duration) error
	// ConsumeVerification returns the uid for token and deletes it, or ErrInvalidVerification.
	ConsumeVerification(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type memoryEntry struct {
	value string
	exp   time.Time
}

// MemoryTokens is a process-local TokenStore for dev and tests.
type MemoryTokens struct {
	mu      sync.Mutex
	verify  map[string]memoryEntry
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryTokens() *MemoryTokens {
	return &MemoryTokens{
		verify:  make(map[string]memoryEntry),
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// PutVerification stores token and drops links that expired unused.
func (m *MemoryTokens) PutVerification(_ context.Context, token, uid string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, entry := range m.verify {
		if now.After(entry.exp) {
			delete(m.verify, k)
		}
	}
	m.verify[token] = memoryEntry{value: uid, exp: now.Add(ttl)}
	return nil
}

func (m *MemoryTokens) ConsumeVerification(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.verify[token]
	delete(m.verify, token)
	if !ok || m.now().After(entry.exp) {
		return "", ErrInvalidVerification
	}
	return entry.value, nil
}

func (m *MemoryTokens) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, exp := range m.revoked {
		if now.After(exp) {
			delete(m.revoked, k)
		}
	}
	m.revoked[tokenID] = now.Add(ttl)
	return nil
}

func (m *MemoryTokens) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if m.now().After(exp) {
		delete(m.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

const (
	verifyKeyPrefix  = "securelink:verify:"
	revokedKeyPrefix = "securelink:revoked:"
)

// RedisTokens stores tokens in Redis with native key expiry.
type RedisTokens struct {
	rdb *redis.Client
}

func NewRedisTokens(rdb *redis.Client) *RedisTokens {
	return &RedisTokens{rdb: rdb}
}

func (r *RedisTokens) PutVerification(ctx context.Context, token, uid string, ttl time.Duration) error {
	return r.rdb.Set(ctx, verifyKeyPrefix+token, uid, ttl).Err()
}

func (r *RedisTokens) ConsumeVerification(ctx context.Context, token string) (string, error) {
	uid, err := r.rdb.GetDel(ctx, verifyKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidVerification
	}
	if err != nil {
		return "", err
	}
	return uid, nil
}

func (r *RedisTokens) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
}

func (r *RedisTokens) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
