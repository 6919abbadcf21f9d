package constants

import "time"

var CacheTTL = struct {
	Translation time.Duration
}{
	Translation: 24 * time.Hour, // 번역 결과
}

var OverlayIDs = struct {
	Button string
	Loader string
	Result string
	Error  string
}{
	Button: "vn-en-translate-button",
	Loader: "vn-en-translate-loader",
	Result: "vn-en-translate-result",
	Error:  "vn-en-translate-error",
}

var OverlayTiming = struct {
	ErrorDismiss   time.Duration
	GuardReset     time.Duration
	CopiedFeedback time.Duration
	RequestTimeout time.Duration
}{
	ErrorDismiss:   3 * time.Second,       // error overlay auto-removal
	GuardReset:     10 * time.Millisecond, // inside-overlay guard reset after close
	CopiedFeedback: 2 * time.Second,       // "Copied!" label lifetime
	RequestTimeout: 30 * time.Second,      // relay deadline so Loading always ends
}

var OverlayText = struct {
	Affordance   string
	Loading      string
	EmptyInput   string
	Copy         string
	Copied       string
	Close        string
	RelayFailure string
}{
	Affordance:   "🔄 Translate",
	Loading:      "Translating...",
	EmptyInput:   "Please select some text to translate.",
	Copy:         "📋 Copy",
	Copied:       "Copied!",
	Close:        "✕",
	RelayFailure: "Translation failed",
}

var ContextMenu = struct {
	ID    string
	Title string
}{
	ID:    "translate-selection",
	Title: "Translate Selection",
}

var WebSocketConfig = struct {
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	HandshakeTimeout     time.Duration
	WriteWait            time.Duration
	PongWait             time.Duration
	PingPeriod           time.Duration
	MaxMessageSize       int64
}{
	MaxReconnectAttempts: 5,
	ReconnectDelay:       5 * time.Second,
	HandshakeTimeout:     10 * time.Second,
	WriteWait:            10 * time.Second,
	PongWait:             60 * time.Second,
	PingPeriod:           54 * time.Second,
	MaxMessageSize:       64 * 1024,
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
}{
	ReadyTimeout: 5 * time.Second,
}

var AIInputLimits = struct {
	MaxTextLength int
}{
	MaxTextLength: 5000,
}

var ModelDefaults = struct {
	GeminiModel string
	OpenAIModel string
	Seed        int32
}{
	GeminiModel: "gemini-2.0-flash",
	OpenAIModel: "gpt-4.1-mini",
	Seed:        42,
}

var CircuitBreakerConfig = struct {
	FailureThreshold uint32
	ResetTimeout     time.Duration
	HalfOpenRequests uint32
	CountInterval    time.Duration
}{
	FailureThreshold: 3,                // 3회 연속 실패 시 Circuit OPEN
	ResetTimeout:     30 * time.Second, // OPEN 유지 시간
	HalfOpenRequests: 1,                // HALF_OPEN 상태에서 허용할 요청 수
	CountInterval:    0,                // CLOSED 상태에서 카운터를 초기화하지 않음
}
