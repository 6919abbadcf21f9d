package domain

// Language identifies one side of a translation direction.
type Language string

const (
	LanguageVietnamese Language = "vi"
	LanguageEnglish    Language = "en"
)

func (l Language) String() string {
	return string(l)
}

func (l Language) IsValid() bool {
	switch l {
	case LanguageVietnamese, LanguageEnglish:
		return true
	default:
		return false
	}
}

// Opposite returns the other supported language. Anything that is not
// Vietnamese is treated as English, which translates to Vietnamese.
func (l Language) Opposite() Language {
	if l == LanguageVietnamese {
		return LanguageEnglish
	}
	return LanguageVietnamese
}

// DisplayName is the English name used inside prompts.
func (l Language) DisplayName() string {
	switch l {
	case LanguageVietnamese:
		return "Vietnamese"
	case LanguageEnglish:
		return "English"
	default:
		return string(l)
	}
}
