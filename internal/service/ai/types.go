package ai

import "github.com/kapu/vn-en-translate-go/internal/constants"

// ModelPreset represents the model usage preset
type ModelPreset string

const (
	// PresetRelay only fixes the response mime type, leaving sampling to the service.
	PresetRelay ModelPreset = "relay"
	// PresetInteractive pins a seed and sampling thresholds so repeated
	// translations of the same selection read the same.
	PresetInteractive ModelPreset = "interactive"
)

const mimeTypePlainText = "text/plain"

// ModelConfig holds model configuration
type ModelConfig struct {
	Temperature      float32
	TopP             float32
	TopK             int
	Seed             int32
	PinSampling      bool
	MaxOutputTokens  int
	ResponseMimeType string
}

// OpenAIConfig holds OpenAI-specific configuration
type OpenAIConfig struct {
	Temperature float32
	TopP        float32
	Seed        int64
	PinSampling bool
	MaxTokens   int
}

// GenerateMetadata contains metadata about the generation
type GenerateMetadata struct {
	Provider     string
	Model        string
	UsedFallback bool
}

// GenerateOptions holds options for AI generation
type GenerateOptions struct {
	Model     string
	Overrides *ModelConfig
}

// GetPresetConfig returns the configuration for a preset
func GetPresetConfig(preset ModelPreset) ModelConfig {
	switch preset {
	case PresetInteractive:
		return ModelConfig{
			Temperature:      0.3,
			TopP:             0.95,
			TopK:             40,
			Seed:             constants.ModelDefaults.Seed,
			PinSampling:      true,
			MaxOutputTokens:  4096,
			ResponseMimeType: mimeTypePlainText,
		}
	case PresetRelay:
		return ModelConfig{
			ResponseMimeType: mimeTypePlainText,
		}
	default:
		return GetPresetConfig(PresetRelay)
	}
}

// GetOpenAIPresetConfig returns OpenAI configuration for a preset
func GetOpenAIPresetConfig(preset ModelPreset) OpenAIConfig {
	switch preset {
	case PresetInteractive:
		return OpenAIConfig{
			Temperature: 0.3,
			TopP:        0.95,
			Seed:        int64(constants.ModelDefaults.Seed),
			PinSampling: true,
			MaxTokens:   4096,
		}
	case PresetRelay:
		return OpenAIConfig{
			MaxTokens: 4096,
		}
	default:
		return GetOpenAIPresetConfig(PresetRelay)
	}
}
