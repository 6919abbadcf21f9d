package domain

import "testing"

func TestLanguageOpposite(t *testing.T) {
	if LanguageVietnamese.Opposite() != LanguageEnglish {
		t.Error("vi must translate to en")
	}
	if LanguageEnglish.Opposite() != LanguageVietnamese {
		t.Error("en must translate to vi")
	}
	if Language("fr").IsValid() {
		t.Error("only vi and en are supported")
	}
}

func TestSelectionRequestPair(t *testing.T) {
	tests := []struct {
		req  SelectionRequest
		want bool
	}{
		{SelectionRequest{SourceLanguage: LanguageVietnamese, TargetLanguage: LanguageEnglish}, true},
		{SelectionRequest{SourceLanguage: LanguageEnglish, TargetLanguage: LanguageVietnamese}, true},
		{SelectionRequest{SourceLanguage: LanguageEnglish, TargetLanguage: LanguageEnglish}, false},
		{SelectionRequest{SourceLanguage: "fr", TargetLanguage: LanguageEnglish}, false},
		{SelectionRequest{}, false},
	}

	for _, tt := range tests {
		if got := tt.req.IsSupportedPair(); got != tt.want {
			t.Errorf("IsSupportedPair(%+v) = %v, want %v", tt.req, got, tt.want)
		}
	}
}

func TestTranslationResultSucceeded(t *testing.T) {
	tests := []struct {
		result TranslationResult
		want   bool
	}{
		{TranslationResult{Translation: "Hello"}, true},
		{TranslationResult{Translation: "  \n"}, false},
		{TranslationResult{Error: "Translation failed"}, false},
		{TranslationResult{}, false},
	}

	for _, tt := range tests {
		if got := tt.result.Succeeded(); got != tt.want {
			t.Errorf("Succeeded(%+v) = %v, want %v", tt.result, got, tt.want)
		}
	}
}

func TestMessageRoundTripsRequest(t *testing.T) {
	req := SelectionRequest{Text: "xin chào", SourceLanguage: LanguageVietnamese, TargetLanguage: LanguageEnglish}
	msg := NewMessage("id-1", ActionTranslate, req)

	if msg.Request() != req {
		t.Fatalf("unexpected request: %+v", msg.Request())
	}
	if got := (Response{ID: "id-1", Error: "Translation failed"}).Result(); got.Succeeded() {
		t.Fatal("error response must not succeed")
	}
}

func TestRectAnchor(t *testing.T) {
	x, y := Rect{Left: 10, Top: 20, Right: 110, Bottom: 40}.Anchor(250)
	if x != 110 || y != 290 {
		t.Fatalf("unexpected anchor: (%v, %v)", x, y)
	}
	if StateResultShown.String() != "RESULT_SHOWN" || OverlayState(99).String() != "UNKNOWN" {
		t.Fatal("unexpected state names")
	}
}
