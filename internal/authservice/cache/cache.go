package cache

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationCache — минимальный контракт кэша отозванных токенов.
//
// Кэш — ускоритель поверх БД, не источник истины: промах означает
// «проверь в хранилище», ошибка кэша не должна ронять проверку.
type RevocationCache interface {
	// MarkRevoked помечает токен отозванным с TTL до его собственного exp.
	MarkRevoked(ctx context.Context, token string, ttl time.Duration) error
	// IsRevoked возвращает true, если токен есть в кэше.
	IsRevoked(ctx context.Context, token string) (bool, error)
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:rm:".
func NewRedisCache(redisURL, prefix string) (RevocationCache, error) {
	if prefix == "" {
		prefix = "auth:rm:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

// Ключ — sha256 от токена: JWT длинный, в ключах Redis ему не место.
func (c *redisCache) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return c.prefix + base64.RawURLEncoding.EncodeToString(sum[:])
}

func (c *redisCache) MarkRevoked(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		// Токен уже истёк; запись в кэше не нужна.
		return nil
	}

	return c.rdb.Set(ctx, c.key(token), "1", ttl).Err()
}

func (c *redisCache) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := c.rdb.Get(ctx, c.key(token)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func (c *redisCache) Close() error { return c.rdb.Close() }
