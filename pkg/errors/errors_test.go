package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestTypedErrorsUnwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewTranslationError("model call failed", "vi", "en", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if err.Error() != "model call failed: connection reset" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if err.StatusCode != 502 || err.SourceLanguage != "vi" || err.TargetLanguage != "en" {
		t.Fatalf("unexpected fields: %+v", err)
	}
}

func TestKindHelpers(t *testing.T) {
	wrapped := fmt.Errorf("relay: %w", NewEmptyInputError("selection"))

	if !IsEmptyInput(wrapped) {
		t.Error("expected IsEmptyInput through wrapping")
	}
	if IsTranslation(wrapped) || IsConfiguration(wrapped) {
		t.Error("unexpected kind match")
	}
	if !IsConfiguration(NewConfigurationError("missing key", "GEMINI_API_KEY", nil)) {
		t.Error("expected IsConfiguration")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NewEmptyInputError("x"), CodeEmptyInput},
		{fmt.Errorf("wrapped: %w", NewTranslationError("x", "en", "vi", nil)), CodeTranslation},
		{NewValidationError("x", "field", 1), CodeValidation},
		{NewCacheError("x", "get", "key", nil), CodeCache},
		{NewAPIError("x", 500, nil), CodeAPIError},
		{stderrors.New("plain"), CodeAppError},
	}

	for _, tt := range tests {
		if got := CodeOf(tt.err); got != tt.want {
			t.Errorf("CodeOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
