// Package detect decides the translation direction of a piece of text.
//
// The decision is a heuristic: text containing at least one Vietnamese
// diacritic letter is Vietnamese, everything else is English. Unaccented
// Vietnamese is therefore read as English, and other languages that share a
// letter with the set are read as Vietnamese.
package detect

import (
	"strings"
	"unicode"

	"github.com/kapu/vn-en-translate-go/internal/domain"
)

// VietnameseCharset lists the lowercase Vietnamese letters with acute, grave,
// hook, tilde or dot-below marks, plus đ. Uppercase forms match as well.
const VietnameseCharset = "àáạảãâầấậẩẫăằắặẳẵèéẹẻẽêềếệểễìíịỉĩòóọỏõôồốộổỗơờớợởỡùúụủũưừứựửữỳýỵỷỹđ"

// Detector classifies text against a fixed character set.
type Detector struct {
	set map[rune]struct{}
}

var defaultDetector = NewDetector(VietnameseCharset)

// NewDetector builds a detector matching any rune of charset, case-insensitively.
func NewDetector(charset string) *Detector {
	set := make(map[rune]struct{}, len(charset)*2)
	for _, r := range charset {
		set[r] = struct{}{}
		set[unicode.ToLower(r)] = struct{}{}
		set[unicode.ToUpper(r)] = struct{}{}
	}
	return &Detector{set: set}
}

// IsVietnamese reports whether text contains a rune of the set.
func (d *Detector) IsVietnamese(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool {
		_, ok := d.set[r]
		return ok
	}) >= 0
}

// Detect returns the source language of text.
func (d *Detector) Detect(text string) domain.Language {
	if d.IsVietnamese(text) {
		return domain.LanguageVietnamese
	}
	return domain.LanguageEnglish
}

// Request builds the SelectionRequest for text with the detected direction.
func (d *Detector) Request(text string) domain.SelectionRequest {
	source := d.Detect(text)
	return domain.SelectionRequest{
		Text:           text,
		SourceLanguage: source,
		TargetLanguage: source.Opposite(),
	}
}

// IsVietnamese reports whether text contains a Vietnamese diacritic letter.
func IsVietnamese(text string) bool {
	return defaultDetector.IsVietnamese(text)
}

// Detect returns vi when text contains a Vietnamese diacritic letter, en otherwise.
func Detect(text string) domain.Language {
	return defaultDetector.Detect(text)
}

// Direction returns the source and target languages for text.
func Direction(text string) (source, target domain.Language) {
	source = defaultDetector.Detect(text)
	return source, source.Opposite()
}

// Request builds a SelectionRequest for text using the default character set.
func Request(text string) domain.SelectionRequest {
	return defaultDetector.Request(text)
}
