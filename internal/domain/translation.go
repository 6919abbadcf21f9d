package domain

import "strings"

// SelectionRequest carries the text to translate plus the detected direction.
// It lives for a single interaction.
type SelectionRequest struct {
	Text           string   `json:"text"`
	SourceLanguage Language `json:"sourceLanguage"`
	TargetLanguage Language `json:"targetLanguage"`
}

// IsSupportedPair reports whether the request asks for vi->en or en->vi.
func (r SelectionRequest) IsSupportedPair() bool {
	return r.SourceLanguage.IsValid() && r.TargetLanguage.IsValid() && r.SourceLanguage != r.TargetLanguage
}

// TranslationResult is either a translation or an error, never both.
type TranslationResult struct {
	Translation string `json:"translation,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Succeeded reports whether the result carries a non-blank translation.
func (r TranslationResult) Succeeded() bool {
	return r.Error == "" && strings.TrimSpace(r.Translation) != ""
}
