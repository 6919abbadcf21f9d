package relay

import "github.com/kapu/vn-en-translate-go/internal/util"

type WebSocketState string

const (
	WSStateConnecting   WebSocketState = "CONNECTING"
	WSStateConnected    WebSocketState = "CONNECTED"
	WSStateDisconnected WebSocketState = "DISCONNECTED"
	WSStateReconnecting WebSocketState = "RECONNECTING"
	WSStateFailed       WebSocketState = "FAILED"
)

func (s WebSocketState) String() string {
	return string(s)
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status              string            `json:"status"`
	Circuit             util.CircuitState `json:"circuit"`
	ConsecutiveFailures uint32            `json:"consecutiveFailures"`
	Upstream            *bool             `json:"upstream,omitempty"`
}
