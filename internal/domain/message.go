package domain

// Action names the kind of message travelling between page and relay.
type Action string

const (
	ActionTranslate            Action = "translate"
	ActionTranslateContextMenu Action = "translate-context-menu"
)

func (a Action) String() string {
	return string(a)
}

// Message is the request shape on the messaging channel. ID correlates a
// response with its request when several share one connection. Interactive
// marks requests from the interactive popup, which get pinned sampling.
type Message struct {
	ID             string   `json:"id,omitempty"`
	Action         Action   `json:"action"`
	Text           string   `json:"text"`
	SourceLanguage Language `json:"sourceLanguage"`
	TargetLanguage Language `json:"targetLanguage"`
	Interactive    bool     `json:"interactive,omitempty"`
}

// Request extracts the SelectionRequest carried by the message.
func (m Message) Request() SelectionRequest {
	return SelectionRequest{
		Text:           m.Text,
		SourceLanguage: m.SourceLanguage,
		TargetLanguage: m.TargetLanguage,
	}
}

// NewMessage wraps a request for the given action.
func NewMessage(id string, action Action, req SelectionRequest) Message {
	return Message{
		ID:             id,
		Action:         action,
		Text:           req.Text,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
	}
}

// Response is the reply shape: {translation} or {error}.
type Response struct {
	ID          string `json:"id,omitempty"`
	Translation string `json:"translation,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (r Response) Result() TranslationResult {
	return TranslationResult{Translation: r.Translation, Error: r.Error}
}
