package prompt

import (
	"fmt"

	"github.com/kapu/vn-en-translate-go/internal/domain"
)

type TranslateVars struct {
	Text string
}

// TemplateFor picks the instruction template for a translation direction.
func TemplateFor(source, target domain.Language) (TemplateName, error) {
	switch {
	case source == domain.LanguageVietnamese && target == domain.LanguageEnglish:
		return TemplateTranslateViEn, nil
	case source == domain.LanguageEnglish && target == domain.LanguageVietnamese:
		return TemplateTranslateEnVi, nil
	default:
		return "", fmt.Errorf("unsupported translation direction %s->%s", source, target)
	}
}

// BuildTranslate renders the direction-specific prompt with the input text
// embedded verbatim.
func (pb *PromptBuilder) BuildTranslate(req domain.SelectionRequest) (string, error) {
	name, err := TemplateFor(req.SourceLanguage, req.TargetLanguage)
	if err != nil {
		return "", err
	}
	return pb.Render(name, TranslateVars{Text: req.Text})
}

func BuildTranslate(req domain.SelectionRequest) (string, error) {
	return DefaultPromptBuilder().BuildTranslate(req)
}
