package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisCallTimeout    = 500 * time.Millisecond
	defaultRefreshTTL   = 7 * 24 * time.Hour
	refreshTokenKeyBase = "auth:refresh:"
)

// RefreshTokenStore registra los jti de refresh tokens vigentes. Consume es la
// unica forma de canjear un jti y devuelve true a un solo llamador.
type RefreshTokenStore interface {
	Store(ctx context.Context, jti, userID string, ttl time.Duration) error
	Consume(ctx context.Context, jti string) (bool, error)
	Revoke(ctx context.Context, jti string) error
}

type memoryRefreshTokenStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryRefreshTokenStore() RefreshTokenStore {
	return &memoryRefreshTokenStore{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *memoryRefreshTokenStore) Store(_ context.Context, jti, _ string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.expires[jti] = s.now().Add(refreshTTLOrDefault(ttl))
	return nil
}

func (s *memoryRefreshTokenStore) Consume(_ context.Context, jti string) (bool, error) {
	jti = strings.TrimSpace(jti)
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expires[jti]
	if !ok {
		return false, nil
	}
	delete(s.expires, jti)
	return s.now().Before(exp), nil
}

func (s *memoryRefreshTokenStore) Revoke(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expires, strings.TrimSpace(jti))
	return nil
}

// sweepLocked descarta jti vencidos para que el mapa no crezca sin limite.
func (s *memoryRefreshTokenStore) sweepLocked() {
	now := s.now()
	for jti, exp := range s.expires {
		if !now.Before(exp) {
			delete(s.expires, jti)
		}
	}
}

// redisKV es el subconjunto de *redis.Client que usa el store.
type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// redisRefreshTokenStore delega el vencimiento en el TTL de la clave. DEL
// devuelve cuantas claves borro, lo que hace atomico a Consume.
type redisRefreshTokenStore struct {
	client redisKV
	prefix string
}

func NewRedisRefreshTokenStore(client *redis.Client) RefreshTokenStore {
	if client == nil {
		return nil
	}
	return &redisRefreshTokenStore{client: client, prefix: refreshTokenKeyBase}
}

func (s *redisRefreshTokenStore) Store(ctx context.Context, jti, userID string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()
	return s.client.Set(ctx, s.prefix+jti, userID, refreshTTLOrDefault(ttl)).Err()
}

func (s *redisRefreshTokenStore) Consume(ctx context.Context, jti string) (bool, error) {
	n, err := s.del(ctx, jti)
	return n > 0, err
}

func (s *redisRefreshTokenStore) Revoke(ctx context.Context, jti string) error {
	_, err := s.del(ctx, jti)
	return err
}

func (s *redisRefreshTokenStore) del(ctx context.Context, jti string) (int64, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()
	return s.client.Del(ctx, s.prefix+jti).Result()
}

func refreshTTLOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultRefreshTTL
	}
	return ttl
}
