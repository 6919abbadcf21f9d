package app

import (
	"context"
	"fmt"

	"github.com/kapu/vn-en-translate-go/internal/config"
	"github.com/kapu/vn-en-translate-go/internal/constants"
	"github.com/kapu/vn-en-translate-go/internal/relay"
	"github.com/kapu/vn-en-translate-go/internal/service/ai"
	"github.com/kapu/vn-en-translate-go/internal/service/cache"
	"go.uber.org/zap"
)

// Container bundles the assembled relay services.
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Models     *ai.ModelManager
	Translator *ai.Translator
	Server     *relay.Server

	closers []func()
}

// Close releases what Build opened, newest first.
func (c *Container) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build assembles the relay: model clients, the optional translation cache,
// the translator and the channel server. Anything opened is closed again
// when a later step fails.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	// AI stack
	modelManager, err := ai.NewModelManager(ctx, ai.ModelManagerConfig{
		GeminiAPIKey:       cfg.Gemini.APIKey,
		OpenAIAPIKey:       cfg.OpenAI.APIKey,
		DefaultGeminiModel: cfg.Gemini.Model,
		DefaultOpenAIModel: cfg.OpenAI.Model,
		EnableFallback:     cfg.OpenAI.EnableFallback,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create model manager: %w", err)
	}

	// Translation cache (optional)
	var translations ai.TranslationCache
	if cfg.Cache.Enabled {
		cacheSvc := cache.NewCacheService(cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Cache.TTL,
		}, logger)
		if cacheErr := cacheSvc.WaitUntilReady(ctx, constants.RedisConfig.ReadyTimeout); cacheErr != nil {
			logger.Warn("Translation cache unavailable, continuing without it", zap.Error(cacheErr))
			_ = cacheSvc.Close()
		} else {
			translations = cacheSvc
			closers = append(closers, func() {
				_ = cacheSvc.Close()
			})
		}
	}

	preset := ai.PresetRelay
	if cfg.Relay.Interactive {
		preset = ai.PresetInteractive
	}
	translator := ai.NewTranslator(modelManager, translations, preset, logger)

	options := relay.DefaultServerOptions()
	options.MaxConcurrency = cfg.Relay.MaxConcurrency
	options.RequestTimeout = cfg.Relay.RequestTimeout
	server := relay.NewServer(translator, modelManager, options, logger)

	logger.Info("Relay assembled",
		zap.String("preset", string(preset)),
		zap.Bool("cache", translations != nil),
		zap.Int("max_concurrency", options.MaxConcurrency),
		zap.Duration("request_timeout", options.RequestTimeout),
	)

	return &Container{
		Config:     cfg,
		Logger:     logger,
		Models:     modelManager,
		Translator: translator,
		Server:     server,
		closers:    closers,
	}, nil
}
