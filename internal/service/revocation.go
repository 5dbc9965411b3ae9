package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationLedger registra refresh tokens invalidados por logout. Una entrada
// existente hace que ese token exacto no pueda volver a emitir access tokens.
type RevocationLedger interface {
	// Record devuelve false si el token ya estaba revocado.
	Record(ctx context.Context, token string, expiresAt time.Time) (bool, error)
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type memoryRevocationLedger struct {
	mu    sync.Mutex
	items map[string]time.Time
}

func NewMemoryRevocationLedger() RevocationLedger {
	return &memoryRevocationLedger{
		items: make(map[string]time.Time),
	}
}

func (l *memoryRevocationLedger) Record(_ context.Context, token string, expiresAt time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if strings.TrimSpace(token) == "" {
		return false, nil
	}
	if _, ok := l.items[token]; ok {
		return false, nil
	}
	l.items[token] = expiresAt
	return true, nil
}

func (l *memoryRevocationLedger) IsRevoked(_ context.Context, token string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	exp, ok := l.items[token]
	if !ok {
		return false, nil
	}
	if time.Now().UTC().After(exp) {
		delete(l.items, token)
		return false, nil
	}
	return true, nil
}

type redisRevocationLedger struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocationLedger crea un ledger respaldado en redis. El TTL de cada
// clave coincide con la expiración del refresh token, así la poda es automática.
func NewRedisRevocationLedger(client *redis.Client) RevocationLedger {
	if client == nil {
		return nil
	}
	return &redisRevocationLedger{
		client: client,
		prefix: "auth:revoked:",
	}
}

func (l *redisRevocationLedger) Record(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return l.client.SetNX(ctx, l.prefix+token, "1", ttl).Result()
}

func (l *redisRevocationLedger) IsRevoked(ctx context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	n, err := l.client.Exists(ctx, l.prefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
