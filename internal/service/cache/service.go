package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kapu/vn-en-translate-go/internal/domain"
	"github.com/kapu/vn-en-translate-go/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const translationKeyPrefix = "vnen:translation"

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

type CacheConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type cachedTranslation struct {
	Translation string    `json:"translation"`
	CachedAt    time.Time `json:"cached_at"`
}

// NewCacheService creates the client without dialing; call WaitUntilReady
// before relying on it.
func NewCacheService(cfg CacheConfig, logger *zap.Logger) *CacheService {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	return &CacheService{
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
	}
}

func (c *CacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.logger.Error("Cache get failed", zap.String("key", key), zap.Error(err))
		return false, errors.NewCacheError("get failed", "get", key, err)
	}

	if dest != nil {
		if err := json.Unmarshal([]byte(value), dest); err != nil {
			c.logger.Error("Cache unmarshal failed", zap.String("key", key), zap.Error(err))
			return false, errors.NewCacheError("unmarshal failed", "get", key, err)
		}
	}

	return true, nil
}

func (c *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return errors.NewCacheError("marshal failed", "set", key, err)
	}

	if ttl < 0 {
		ttl = 0
	}

	if err := c.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		c.logger.Error("Cache set failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("set failed", "set", key, err)
	}

	return nil
}

// GetTranslation looks up a finished translation. Cache failures read as a miss.
func (c *CacheService) GetTranslation(ctx context.Context, req domain.SelectionRequest) (string, bool) {
	var entry cachedTranslation
	found, err := c.Get(ctx, TranslationKey(req), &entry)
	if err != nil || !found || entry.Translation == "" {
		return "", false
	}
	return entry.Translation, true
}

// SetTranslation stores a finished translation. Failures are logged only.
func (c *CacheService) SetTranslation(ctx context.Context, req domain.SelectionRequest, translation string) {
	entry := cachedTranslation{Translation: translation, CachedAt: time.Now()}
	if err := c.Set(ctx, TranslationKey(req), entry, c.ttl); err != nil {
		c.logger.Warn("Failed to cache translation", zap.Error(err))
	}
}

// TranslationKey derives the redis key for a request. The text is hashed so
// keys stay short and never carry user text.
func TranslationKey(req domain.SelectionRequest) string {
	sum := sha256.Sum256([]byte(req.Text))
	return fmt.Sprintf("%s:%s:%s:%s", translationKeyPrefix, req.SourceLanguage, req.TargetLanguage, hex.EncodeToString(sum[:]))
}

func (c *CacheService) Close() error {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", zap.Error(err))
		return err
	}
	c.logger.Info("Redis disconnected")
	return nil
}

func (c *CacheService) IsConnected(ctx context.Context) bool {
	return c.client.Ping(ctx).Err() == nil
}

// WaitUntilReady pings until redis answers or timeout passes.
func (c *CacheService) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if c.IsConnected(ctx) {
			c.logger.Info("Redis connected",
				zap.String("addr", c.client.Options().Addr),
				zap.Int("db", c.client.Options().DB),
				zap.Duration("ttl", c.ttl),
			)
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.NewCacheError("timeout waiting for Redis to be ready", "ping", "", ctx.Err())
		case <-ticker.C:
		}
	}
}
