package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginRateKeyBase = "auth:login:rl:"

// LoginRateLimiter cuenta intentos de login por email. Reset se llama tras un
// login correcto para no penalizar al usuario legitimo.
type LoginRateLimiter interface {
	Allow(ctx context.Context, key string) bool
	Reset(ctx context.Context, key string)
}

func loginRateKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func normalizeRateLimits(window time.Duration, max int) (time.Duration, int) {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return window, max
}

// memoryLoginRateLimiter usa ventana deslizante por clave.
type memoryLoginRateLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	max      int
	attempts map[string][]time.Time
	now      func() time.Time
}

func NewMemoryLoginRateLimiter(window time.Duration, max int) LoginRateLimiter {
	window, max = normalizeRateLimits(window, max)
	return &memoryLoginRateLimiter{
		window:   window,
		max:      max,
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

func (l *memoryLoginRateLimiter) Allow(_ context.Context, key string) bool {
	key = loginRateKey(key)
	if key == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := pruneBefore(l.attempts[key], now.Add(-l.window))
	if len(recent) >= l.max {
		l.attempts[key] = recent
		return false
	}
	l.attempts[key] = append(recent, now)
	return true
}

func (l *memoryLoginRateLimiter) Reset(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, loginRateKey(key))
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

// El contador nace con el primer intento y vence con la ventana (fixed window).
const redisLoginAllowScript = `
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`

type redisLimiterClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisLoginRateLimiter struct {
	client redisLimiterClient
	window time.Duration
	max    int
	prefix string
}

// NewRedisLoginRateLimiter comparte el contador entre instancias. Si Redis
// falla, deja pasar.
func NewRedisLoginRateLimiter(client *redis.Client, window time.Duration, max int) LoginRateLimiter {
	if client == nil {
		return nil
	}
	window, max = normalizeRateLimits(window, max)
	return &redisLoginRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: loginRateKeyBase,
	}
}

func (l *redisLoginRateLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	key = loginRateKey(key)
	if key == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()

	n, err := l.client.Eval(ctx, redisLoginAllowScript, []string{l.prefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return true
	}
	return n <= int64(l.max)
}

func (l *redisLoginRateLimiter) Reset(ctx context.Context, key string) {
	if l == nil || l.client == nil {
		return
	}
	key = loginRateKey(key)
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()
	_ = l.client.Del(ctx, l.prefix+key).Err()
}
