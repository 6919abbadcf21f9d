package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	CodeAppError      = "APP_ERROR"
	CodeAPIError      = "API_ERROR"
	CodeValidation    = "VALIDATION_ERROR"
	CodeEmptyInput    = "EMPTY_INPUT"
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeTranslation   = "TRANSLATION_ERROR"
	CodeCache         = "CACHE_ERROR"
	CodeService       = "SERVICE_ERROR"
)

// UserFacingMessage is the only failure text ever shown to the end user.
const UserFacingMessage = "Translation failed. Please try again."

type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) ErrorCode() string {
	return e.Code
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

type APIError struct {
	*AppError
}

func NewAPIError(message string, statusCode int, context map[string]any) *APIError {
	return &APIError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeAPIError,
			StatusCode: statusCode,
			Context:    context,
		},
	}
}

type ValidationError struct {
	*AppError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

// EmptyInputError reports a translation request for blank text. It is raised
// locally and never reaches the relay.
type EmptyInputError struct {
	*AppError
}

func NewEmptyInputError(source string) *EmptyInputError {
	return &EmptyInputError{
		AppError: &AppError{
			Message:    "text to translate is empty",
			Code:       CodeEmptyInput,
			StatusCode: 400,
			Context: map[string]any{
				"source": source,
			},
		},
	}
}

// ConfigurationError reports that a client could not be constructed, usually
// because the API key is missing or invalid.
type ConfigurationError struct {
	*AppError
	Setting string
}

func NewConfigurationError(message, setting string, cause error) *ConfigurationError {
	return &ConfigurationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeConfiguration,
			StatusCode: 500,
			Context: map[string]any{
				"setting": setting,
			},
			Cause: cause,
		},
		Setting: setting,
	}
}

// TranslationError reports that the external call failed, timed out or came
// back empty.
type TranslationError struct {
	*AppError
	SourceLanguage string
	TargetLanguage string
}

func NewTranslationError(message, source, target string, cause error) *TranslationError {
	return &TranslationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeTranslation,
			StatusCode: 502,
			Context: map[string]any{
				"source_language": source,
				"target_language": target,
			},
			Cause: cause,
		},
		SourceLanguage: source,
		TargetLanguage: target,
	}
}

type CacheError struct {
	*AppError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type ServiceError struct {
	*AppError
	Service   string
	Operation string
}

func NewServiceError(message, service, operation string, cause error) *ServiceError {
	return &ServiceError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeService,
			StatusCode: 500,
			Context: map[string]any{
				"service":   service,
				"operation": operation,
			},
			Cause: cause,
		},
		Service:   service,
		Operation: operation,
	}
}

// IsEmptyInput reports whether err is, or wraps, an EmptyInputError.
func IsEmptyInput(err error) bool {
	var target *EmptyInputError
	return stderrors.As(err, &target)
}

// IsTranslation reports whether err is, or wraps, a TranslationError.
func IsTranslation(err error) bool {
	var target *TranslationError
	return stderrors.As(err, &target)
}

// IsConfiguration reports whether err is, or wraps, a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return stderrors.As(err, &target)
}

// CodeOf returns the code carried by err, or CodeAppError when err carries none.
func CodeOf(err error) string {
	var coded interface{ ErrorCode() string }
	if stderrors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return CodeAppError
}
