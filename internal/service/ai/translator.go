package ai

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/kapu/vn-en-translate-go/internal/constants"
	"github.com/kapu/vn-en-translate-go/internal/domain"
	"github.com/kapu/vn-en-translate-go/internal/prompt"
	"github.com/kapu/vn-en-translate-go/internal/util"
	"github.com/kapu/vn-en-translate-go/pkg/errors"
	"go.uber.org/zap"
)

// TextGenerator produces raw model output for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, preset ModelPreset, opts *GenerateOptions) (string, *GenerateMetadata, error)
}

// TranslationCache stores finished translations keyed by direction and text.
type TranslationCache interface {
	GetTranslation(ctx context.Context, req domain.SelectionRequest) (string, bool)
	SetTranslation(ctx context.Context, req domain.SelectionRequest, translation string)
}

// Translator is the only component allowed to call the generative-text
// service. Callers see either a translation or one of the typed errors in
// pkg/errors; upstream detail is logged here and nowhere else.
type Translator struct {
	generator TextGenerator
	cache     TranslationCache
	prompts   *prompt.PromptBuilder
	preset    ModelPreset
	logger    *zap.Logger
}

// NewTranslator wires a translator. cache may be nil.
func NewTranslator(generator TextGenerator, cache TranslationCache, preset ModelPreset, logger *zap.Logger) *Translator {
	if preset == "" {
		preset = PresetRelay
	}
	return &Translator{
		generator: generator,
		cache:     cache,
		prompts:   prompt.DefaultPromptBuilder(),
		preset:    preset,
		logger:    logger,
	}
}

// Translate translates text from source to target.
func (t *Translator) Translate(ctx context.Context, text string, source, target domain.Language) (string, error) {
	return t.TranslateRequest(ctx, domain.SelectionRequest{
		Text:           text,
		SourceLanguage: source,
		TargetLanguage: target,
	})
}

// TranslateRequest translates with the translator's configured preset.
func (t *Translator) TranslateRequest(ctx context.Context, req domain.SelectionRequest) (string, error) {
	return t.translate(ctx, req, t.preset)
}

// TranslateInteractive translates with pinned sampling, for the interactive
// popup.
func (t *Translator) TranslateInteractive(ctx context.Context, req domain.SelectionRequest) (string, error) {
	return t.translate(ctx, req, PresetInteractive)
}

func (t *Translator) translate(ctx context.Context, req domain.SelectionRequest, preset ModelPreset) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	if t.cache != nil {
		if cached, ok := t.cache.GetTranslation(ctx, req); ok {
			t.logger.Debug("Translation cache hit",
				zap.String("source", req.SourceLanguage.String()),
				zap.String("target", req.TargetLanguage.String()),
			)
			return cached, nil
		}
	}

	promptText, err := t.prompts.BuildTranslate(req)
	if err != nil {
		return "", errors.NewTranslationError("failed to build prompt", req.SourceLanguage.String(), req.TargetLanguage.String(), err)
	}

	output, metadata, err := t.generator.GenerateText(ctx, promptText, preset, nil)
	if err != nil {
		t.logger.Error("Translation call failed",
			zap.String("source", req.SourceLanguage.String()),
			zap.String("target", req.TargetLanguage.String()),
			zap.String("text_preview", util.TruncateString(req.Text, 50)),
			zap.Error(err),
		)
		return "", errors.NewTranslationError("no response received from model service", req.SourceLanguage.String(), req.TargetLanguage.String(), err)
	}

	translation := strings.TrimSpace(output)
	if translation == "" {
		t.logger.Warn("Model service returned an empty translation",
			zap.String("source", req.SourceLanguage.String()),
			zap.String("target", req.TargetLanguage.String()),
		)
		return "", errors.NewTranslationError("empty translation", req.SourceLanguage.String(), req.TargetLanguage.String(), nil)
	}

	fields := []zap.Field{
		zap.String("source", req.SourceLanguage.String()),
		zap.String("target", req.TargetLanguage.String()),
		zap.Int("length", len(translation)),
		zap.String("preset", string(preset)),
	}
	if metadata != nil {
		fields = append(fields,
			zap.String("provider", metadata.Provider),
			zap.String("model", metadata.Model),
			zap.Bool("used_fallback", metadata.UsedFallback),
		)
	}
	t.logger.Info("Translation completed", fields...)

	if t.cache != nil {
		t.cache.SetTranslation(ctx, req, translation)
	}

	return translation, nil
}

func validateRequest(req domain.SelectionRequest) error {
	if util.IsBlank(req.Text) {
		return errors.NewEmptyInputError("relay")
	}
	if !req.IsSupportedPair() {
		return errors.NewValidationError("unsupported translation direction", "direction",
			req.SourceLanguage.String()+"->"+req.TargetLanguage.String())
	}
	if utf8.RuneCountInString(req.Text) > constants.AIInputLimits.MaxTextLength {
		return errors.NewValidationError("text is too long to translate", "text", utf8.RuneCountInString(req.Text))
	}
	return nil
}
