package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// TextProvider is one generative-text backend.
type TextProvider interface {
	Name() string
	Generate(ctx context.Context, prompt string, preset ModelPreset, opts *GenerateOptions) (ProviderResult, error)
	Ping(ctx context.Context) bool
}

type ProviderResult struct {
	Text  string
	Model string
}

// GeminiProvider wraps the Gemini client with preset-aware generation logic.
type GeminiProvider struct {
	client       *genai.Client
	defaultModel string
	logger       *zap.Logger
}

func NewGeminiProvider(client *genai.Client, defaultModel string, logger *zap.Logger) *GeminiProvider {
	return &GeminiProvider{
		client:       client,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

func (g *GeminiProvider) Name() string {
	return "Gemini"
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string, preset ModelPreset, opts *GenerateOptions) (ProviderResult, error) {
	if g.client == nil {
		return ProviderResult{}, fmt.Errorf("gemini client not initialized")
	}

	modelName := g.getModel(opts)
	config := resolveModelConfig(preset, opts)

	g.logger.Debug("Generating with Gemini",
		zap.String("model", modelName),
		zap.String("preset", string(preset)),
		zap.Bool("pinned_sampling", config.PinSampling),
	)

	resp, err := g.client.Models.GenerateContent(ctx, modelName, userContents(prompt), buildGeminiConfig(config))
	if err != nil {
		g.logger.Error("Gemini generation failed", zap.Error(err))
		return ProviderResult{}, err
	}

	text := extractTextFromGeminiResponse(resp)
	if strings.TrimSpace(text) == "" {
		return ProviderResult{}, fmt.Errorf("empty response from Gemini")
	}

	g.logger.Debug("Gemini response received", zap.Int("length", len(text)))
	return ProviderResult{Text: text, Model: modelName}, nil
}

func (g *GeminiProvider) Ping(ctx context.Context) bool {
	if g.client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.defaultModel, userContents("ping"), &genai.GenerateContentConfig{
		MaxOutputTokens: 10,
	})
	if err != nil {
		g.logger.Debug("Gemini ping failed", zap.Error(err))
		return false
	}

	return extractTextFromGeminiResponse(resp) != ""
}

func (g *GeminiProvider) getModel(opts *GenerateOptions) string {
	if opts != nil && opts.Model != "" {
		return opts.Model
	}
	return g.defaultModel
}

// userContents wraps the whole instruction+input prompt into a single
// user-role message.
func userContents(prompt string) []*genai.Content {
	return []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
}

func resolveModelConfig(preset ModelPreset, opts *GenerateOptions) ModelConfig {
	config := GetPresetConfig(preset)
	if opts == nil || opts.Overrides == nil {
		return config
	}

	o := opts.Overrides
	if o.Temperature > 0 {
		config.Temperature = o.Temperature
		config.PinSampling = true
	}
	if o.TopP > 0 {
		config.TopP = o.TopP
		config.PinSampling = true
	}
	if o.TopK > 0 {
		config.TopK = o.TopK
		config.PinSampling = true
	}
	if o.Seed != 0 {
		config.Seed = o.Seed
		config.PinSampling = true
	}
	if o.MaxOutputTokens > 0 {
		config.MaxOutputTokens = o.MaxOutputTokens
	}
	return config
}

func buildGeminiConfig(config ModelConfig) *genai.GenerateContentConfig {
	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: config.ResponseMimeType,
	}
	if config.MaxOutputTokens > 0 {
		genConfig.MaxOutputTokens = int32(config.MaxOutputTokens)
	}
	if config.PinSampling {
		temperature := config.Temperature
		topP := config.TopP
		topK := float32(config.TopK)
		seed := config.Seed
		genConfig.Temperature = &temperature
		genConfig.TopP = &topP
		genConfig.TopK = &topK
		genConfig.Seed = &seed
	}
	return genConfig
}

func extractTextFromGeminiResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			texts = append(texts, part.Text)
		}
	}

	return strings.Join(texts, "")
}

// OpenAIProvider wraps the OpenAI chat completion client.
type OpenAIProvider struct {
	client       *openai.Client
	defaultModel string
	logger       *zap.Logger
}

func NewOpenAIProvider(apiKey string, defaultModel string, logger *zap.Logger) *OpenAIProvider {
	if apiKey == "" {
		return nil
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{
		client:       &client,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

func (o *OpenAIProvider) Name() string {
	return "OpenAI"
}

func (o *OpenAIProvider) Generate(ctx context.Context, prompt string, preset ModelPreset, opts *GenerateOptions) (ProviderResult, error) {
	if o.client == nil {
		return ProviderResult{}, fmt.Errorf("OpenAI client not initialized")
	}

	modelName := o.getModel(opts)
	config := GetOpenAIPresetConfig(preset)

	o.logger.Info("Fallback: Generating with OpenAI",
		zap.String("model", modelName),
		zap.String("preset", string(preset)),
	)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(int64(config.MaxTokens)),
	}

	isGPT5 := strings.HasPrefix(modelName, "gpt-5")
	if config.PinSampling {
		params.Seed = openai.Int(config.Seed)
		if !isGPT5 {
			params.Temperature = openai.Float(float64(config.Temperature))
			params.TopP = openai.Float(float64(config.TopP))
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		o.logger.Error("OpenAI generation failed", zap.Error(err))
		return ProviderResult{}, err
	}

	if len(resp.Choices) == 0 {
		return ProviderResult{}, fmt.Errorf("no choices in OpenAI response")
	}

	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return ProviderResult{}, fmt.Errorf("empty response from OpenAI")
	}

	o.logger.Info("OpenAI response received",
		zap.Int("length", len(text)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)

	return ProviderResult{Text: text, Model: modelName}, nil
}

func (o *OpenAIProvider) Ping(ctx context.Context) bool {
	if o.client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.defaultModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("ping"),
		},
		MaxCompletionTokens: openai.Int(10),
	})
	if err != nil {
		o.logger.Debug("OpenAI ping failed", zap.Error(err))
		return false
	}

	return len(resp.Choices) > 0
}

func (o *OpenAIProvider) getModel(opts *GenerateOptions) string {
	if opts != nil && opts.Model != "" {
		return opts.Model
	}
	return o.defaultModel
}
