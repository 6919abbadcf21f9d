package ai

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/kapu/vn-en-translate-go/internal/constants"
	"github.com/kapu/vn-en-translate-go/internal/domain"
	"github.com/kapu/vn-en-translate-go/pkg/errors"
	"go.uber.org/zap"
)

type fakeGenerator struct {
	output  string
	err     error
	prompts []string
	presets []ModelPreset
}

func (f *fakeGenerator) GenerateText(_ context.Context, prompt string, preset ModelPreset, _ *GenerateOptions) (string, *GenerateMetadata, error) {
	f.prompts = append(f.prompts, prompt)
	f.presets = append(f.presets, preset)
	if f.err != nil {
		return "", nil, f.err
	}
	return f.output, &GenerateMetadata{Provider: "fake", Model: "fake-model"}, nil
}

type memoryCache struct {
	entries map[string]string
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]string)}
}

func (m *memoryCache) key(req domain.SelectionRequest) string {
	return string(req.SourceLanguage) + ":" + string(req.TargetLanguage) + ":" + req.Text
}

func (m *memoryCache) GetTranslation(_ context.Context, req domain.SelectionRequest) (string, bool) {
	v, ok := m.entries[m.key(req)]
	return v, ok
}

func (m *memoryCache) SetTranslation(_ context.Context, req domain.SelectionRequest, translation string) {
	m.sets++
	m.entries[m.key(req)] = translation
}

func TestTranslateReturnsTrimmedTranslation(t *testing.T) {
	gen := &fakeGenerator{output: "  Hello\n"}
	translator := NewTranslator(gen, nil, "", zap.NewNop())

	got, err := translator.Translate(context.Background(), "xin chào", domain.LanguageVietnamese, domain.LanguageEnglish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello" {
		t.Fatalf("expected %q, got %q", "Hello", got)
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("expected one model call, got %d", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "Input: xin chào.") {
		t.Errorf("expected prompt to embed the input, got %q", gen.prompts[0])
	}
	if gen.presets[0] != PresetRelay {
		t.Errorf("expected relay preset by default, got %s", gen.presets[0])
	}
}

func TestTranslateFailures(t *testing.T) {
	tests := []struct {
		name      string
		gen       *fakeGenerator
		text      string
		source    domain.Language
		target    domain.Language
		wantCheck func(error) bool
		wantCalls int
	}{
		{
			name:      "upstream error",
			gen:       &fakeGenerator{err: stderrors.New("503 Service Unavailable")},
			text:      "hello",
			source:    domain.LanguageEnglish,
			target:    domain.LanguageVietnamese,
			wantCheck: errors.IsTranslation,
			wantCalls: 1,
		},
		{
			name:      "whitespace body",
			gen:       &fakeGenerator{output: " \n\t "},
			text:      "hello",
			source:    domain.LanguageEnglish,
			target:    domain.LanguageVietnamese,
			wantCheck: errors.IsTranslation,
			wantCalls: 1,
		},
		{
			name:      "blank input",
			gen:       &fakeGenerator{output: "unused"},
			text:      "   ",
			source:    domain.LanguageEnglish,
			target:    domain.LanguageVietnamese,
			wantCheck: errors.IsEmptyInput,
			wantCalls: 0,
		},
		{
			name:   "same language",
			gen:    &fakeGenerator{output: "unused"},
			text:   "hello",
			source: domain.LanguageEnglish,
			target: domain.LanguageEnglish,
			wantCheck: func(err error) bool {
				var v *errors.ValidationError
				return stderrors.As(err, &v)
			},
			wantCalls: 0,
		},
		{
			name:   "too long",
			gen:    &fakeGenerator{output: "unused"},
			text:   strings.Repeat("a", constants.AIInputLimits.MaxTextLength+1),
			source: domain.LanguageEnglish,
			target: domain.LanguageVietnamese,
			wantCheck: func(err error) bool {
				return errors.CodeOf(err) == errors.CodeValidation
			},
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			translator := NewTranslator(tt.gen, nil, PresetRelay, zap.NewNop())
			got, err := translator.Translate(context.Background(), tt.text, tt.source, tt.target)
			if err == nil {
				t.Fatalf("expected error, got translation %q", got)
			}
			if !tt.wantCheck(err) {
				t.Errorf("unexpected error type: %T %v", err, err)
			}
			if len(tt.gen.prompts) != tt.wantCalls {
				t.Errorf("expected %d model calls, got %d", tt.wantCalls, len(tt.gen.prompts))
			}
		})
	}
}

func TestTranslateUsesCache(t *testing.T) {
	gen := &fakeGenerator{output: "Xin chào"}
	cache := newMemoryCache()
	translator := NewTranslator(gen, cache, PresetInteractive, zap.NewNop())

	for i := 0; i < 2; i++ {
		got, err := translator.Translate(context.Background(), "hello", domain.LanguageEnglish, domain.LanguageVietnamese)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "Xin chào" {
			t.Fatalf("expected %q, got %q", "Xin chào", got)
		}
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("expected second call to be served from cache, got %d model calls", len(gen.prompts))
	}
	if cache.sets != 1 {
		t.Fatalf("expected one cache write, got %d", cache.sets)
	}
	if gen.presets[0] != PresetInteractive {
		t.Errorf("expected interactive preset, got %s", gen.presets[0])
	}
}

func TestTranslateDoesNotCacheFailures(t *testing.T) {
	gen := &fakeGenerator{output: ""}
	cache := newMemoryCache()
	translator := NewTranslator(gen, cache, PresetRelay, zap.NewNop())

	if _, err := translator.Translate(context.Background(), "hello", domain.LanguageEnglish, domain.LanguageVietnamese); err == nil {
		t.Fatal("expected error")
	}
	if cache.sets != 0 {
		t.Fatalf("expected no cache writes, got %d", cache.sets)
	}
}

func TestTranslateInteractivePinsSampling(t *testing.T) {
	gen := &fakeGenerator{output: "Xin chào"}
	translator := NewTranslator(gen, nil, PresetRelay, zap.NewNop())
	req := domain.SelectionRequest{
		Text:           "hello",
		SourceLanguage: domain.LanguageEnglish,
		TargetLanguage: domain.LanguageVietnamese,
	}

	if _, err := translator.TranslateRequest(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := translator.TranslateInteractive(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gen.presets) != 2 || gen.presets[0] != PresetRelay || gen.presets[1] != PresetInteractive {
		t.Fatalf("unexpected presets: %v", gen.presets)
	}
}
