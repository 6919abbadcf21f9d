package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kapu/vn-en-translate-go/internal/constants"
	"github.com/kapu/vn-en-translate-go/internal/util"
	"github.com/kapu/vn-en-translate-go/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// ErrServiceUnavailable is returned while the circuit breaker refuses calls.
var ErrServiceUnavailable = stderrors.New("AI service temporarily unavailable")

var (
	statusCodeRegex   = regexp.MustCompile(`\b(5\d{2})\b`)
	geminiCodeRegex   = regexp.MustCompile(`"code":\s*(\d{3})`)
	openaiStatusRegex = regexp.MustCompile(`^(\d{3})\s`)
)

// ModelManager routes generation to the primary provider, optionally falls
// back to a second one, and trips a circuit breaker on upstream outages.
type ModelManager struct {
	primary        TextProvider
	fallback       TextProvider
	enableFallback bool
	circuitBreaker *util.CircuitBreaker
	logger         *zap.Logger
}

type ModelManagerConfig struct {
	GeminiAPIKey       string
	OpenAIAPIKey       string
	DefaultGeminiModel string
	DefaultOpenAIModel string
	EnableFallback     bool
}

// NewModelManager builds the Gemini client. A missing key or a client that
// cannot be constructed is reported as a ConfigurationError.
func NewModelManager(ctx context.Context, cfg ModelManagerConfig, logger *zap.Logger) (*ModelManager, error) {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return nil, errors.NewConfigurationError("Gemini API key is missing", "GEMINI_API_KEY", nil)
	}

	geminiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.NewConfigurationError("failed to create Gemini client", "GEMINI_API_KEY", err)
	}

	defaultGemini := cfg.DefaultGeminiModel
	if defaultGemini == "" {
		defaultGemini = constants.ModelDefaults.GeminiModel
	}

	defaultOpenAI := cfg.DefaultOpenAIModel
	if defaultOpenAI == "" {
		defaultOpenAI = constants.ModelDefaults.OpenAIModel
	}

	var fallback TextProvider
	if cfg.EnableFallback {
		if openaiProvider := NewOpenAIProvider(cfg.OpenAIAPIKey, defaultOpenAI, logger); openaiProvider != nil {
			fallback = openaiProvider
			logger.Info("OpenAI fallback enabled", zap.String("model", defaultOpenAI))
		} else {
			logger.Info("OpenAI fallback disabled (no API key)")
		}
	}

	logger.Info("Model manager ready",
		zap.String("gemini_model", defaultGemini),
		zap.Bool("fallback", fallback != nil),
	)

	return newModelManager(NewGeminiProvider(geminiClient, defaultGemini, logger), fallback, logger), nil
}

func newModelManager(primary, fallback TextProvider, logger *zap.Logger) *ModelManager {
	mm := &ModelManager{
		primary:        primary,
		fallback:       fallback,
		enableFallback: fallback != nil,
		logger:         logger,
	}

	mm.circuitBreaker = util.NewCircuitBreaker(util.CircuitBreakerSettings{
		Name:             "model-manager",
		FailureThreshold: constants.CircuitBreakerConfig.FailureThreshold,
		ResetTimeout:     constants.CircuitBreakerConfig.ResetTimeout,
		HalfOpenRequests: constants.CircuitBreakerConfig.HalfOpenRequests,
		CountInterval:    constants.CircuitBreakerConfig.CountInterval,
		IsFailure:        isServiceFailure,
	}, logger)

	return mm
}

// GenerateText runs prompt through the primary provider and, when enabled,
// the fallback. No retries are made against the same provider.
func (mm *ModelManager) GenerateText(ctx context.Context, prompt string, preset ModelPreset, opts *GenerateOptions) (string, *GenerateMetadata, error) {
	var metadata *GenerateMetadata

	text, err := mm.circuitBreaker.Execute(func() (string, error) {
		result, meta, err := mm.generate(ctx, prompt, preset, opts)
		metadata = meta
		return result, err
	})
	if err != nil {
		if util.IsRejection(err) {
			status := mm.circuitBreaker.GetStatus()
			mm.logger.Error("AI service unavailable (Circuit OPEN)",
				zap.String("state", status.State.String()),
				zap.Uint32("consecutive_failures", status.ConsecutiveFailures),
			)
			return "", nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		}
		return "", nil, err
	}

	return text, metadata, nil
}

func (mm *ModelManager) generate(ctx context.Context, prompt string, preset ModelPreset, opts *GenerateOptions) (string, *GenerateMetadata, error) {
	primaryResult, primaryErr := mm.invokeProvider(ctx, mm.primary, prompt, preset, opts)
	if primaryErr == nil {
		return primaryResult.Text, &GenerateMetadata{
			Provider: mm.primary.Name(),
			Model:    primaryResult.Model,
		}, nil
	}

	if !mm.enableFallback || ctx.Err() != nil {
		return "", nil, primaryErr
	}

	mm.logger.Warn("Primary provider failed, trying fallback",
		zap.String("provider", mm.primary.Name()),
		zap.Error(primaryErr),
	)

	fallbackResult, fallbackErr := mm.invokeProvider(ctx, mm.fallback, prompt, preset, opts)
	if fallbackErr == nil {
		return fallbackResult.Text, &GenerateMetadata{
			Provider:     mm.fallback.Name(),
			Model:        fallbackResult.Model,
			UsedFallback: true,
		}, nil
	}

	return "", nil, fmt.Errorf("primary: %v; fallback: %w", primaryErr, fallbackErr)
}

func (mm *ModelManager) invokeProvider(ctx context.Context, provider TextProvider, prompt string, preset ModelPreset, opts *GenerateOptions) (ProviderResult, error) {
	if provider == nil {
		return ProviderResult{}, fmt.Errorf("model provider is not configured")
	}
	return provider.Generate(ctx, prompt, preset, opts)
}

// Ping reports whether any configured provider answers.
func (mm *ModelManager) Ping(ctx context.Context) bool {
	if mm.primary != nil && mm.primary.Ping(ctx) {
		return true
	}
	return mm.enableFallback && mm.fallback != nil && mm.fallback.Ping(ctx)
}

func (mm *ModelManager) GetCircuitStatus() util.CircuitBreakerStatus {
	return mm.circuitBreaker.GetStatus()
}

// isServiceFailure decides which errors count against the breaker: upstream
// timeouts, rate limits and 5xx responses. Caller cancellation does not.
func isServiceFailure(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := err.Error()

	if strings.Contains(msg, "timeout") || strings.Contains(msg, "ETIMEDOUT") {
		return true
	}

	if isRateLimitError(err) {
		return true
	}

	if matches := geminiCodeRegex.FindStringSubmatch(msg); len(matches) > 1 {
		if code, err := strconv.Atoi(matches[1]); err == nil {
			return code >= 500 && code < 600
		}
	}

	if matches := openaiStatusRegex.FindStringSubmatch(msg); len(matches) > 1 {
		if code, err := strconv.Atoi(matches[1]); err == nil {
			return code >= 500 && code < 600
		}
	}

	return statusCodeRegex.MatchString(msg)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "Rate limit") || strings.Contains(msg, "RESOURCE_EXHAUSTED") {
		return true
	}

	return false
}
