package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kapu/vn-en-translate-go/internal/constants"
	"github.com/kapu/vn-en-translate-go/internal/domain"
	"github.com/kapu/vn-en-translate-go/internal/util"
	"github.com/kapu/vn-en-translate-go/pkg/errors"
	"go.uber.org/zap"
)

type MessageCallback func(response *domain.Response)

type StateCallback func(state WebSocketState)

type callbackEntry struct {
	id       int
	callback MessageCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// WebSocket is the page side of the messaging channel. It reconnects on
// read failures up to maxReconnectAttempts times.
type WebSocket struct {
	wsURL                string
	conn                 *websocket.Conn
	connMu               sync.RWMutex
	writeMu              sync.Mutex
	state                WebSocketState
	stateMu              sync.RWMutex
	messageCallbacks     []callbackEntry
	stateCallbacks       []stateCallbackEntry
	nextCallbackID       int
	callbacksMu          sync.RWMutex
	reconnectAttempts    int
	maxReconnectAttempts int
	reconnectDelay       time.Duration
	logger               *zap.Logger
	stopCh               chan struct{}
	stopOnce             sync.Once
	listenerWg           sync.WaitGroup
}

func NewWebSocket(wsURL string, maxReconnectAttempts int, reconnectDelay time.Duration, logger *zap.Logger) *WebSocket {
	return &WebSocket{
		wsURL:                wsURL,
		state:                WSStateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		reconnectDelay:       reconnectDelay,
		logger:               logger,
		stopCh:               make(chan struct{}),
		messageCallbacks:     make([]callbackEntry, 0),
		stateCallbacks:       make([]stateCallbackEntry, 0),
		nextCallbackID:       1,
	}
}

func (ws *WebSocket) Connect(ctx context.Context) error {
	ws.stateMu.Lock()
	if ws.state == WSStateConnected || ws.state == WSStateConnecting {
		ws.stateMu.Unlock()
		ws.logger.Warn("WebSocket already connected or connecting")
		return nil
	}
	ws.stateMu.Unlock()

	ws.setState(WSStateConnecting)

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = constants.WebSocketConfig.HandshakeTimeout

	conn, _, err := dialer.DialContext(ctx, ws.wsURL, nil)
	if err != nil {
		ws.logger.Error("Failed to connect WebSocket", zap.Error(err))
		ws.setState(WSStateFailed)
		ws.scheduleReconnect(ctx)
		return errors.NewServiceError("relay channel unavailable", "relay", "connect", err)
	}

	conn.SetReadLimit(constants.WebSocketConfig.MaxMessageSize)

	ws.connMu.Lock()
	ws.conn = conn
	ws.reconnectAttempts = 0
	ws.connMu.Unlock()
	ws.setState(WSStateConnected)

	ws.logger.Info("WebSocket connected", zap.String("url", ws.wsURL))

	ws.listenerWg.Add(1)
	go ws.listen(ctx, conn)

	return nil
}

func (ws *WebSocket) listen(ctx context.Context, conn *websocket.Conn) {
	defer ws.listenerWg.Done()
	defer ws.logger.Debug("WebSocket listener stopped")

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			if ws.stopped() {
				return
			}
			ws.logger.Error("WebSocket read error", zap.Error(err))
			ws.dropConn(conn)
			ws.setState(WSStateDisconnected)
			ws.scheduleReconnect(ctx)
			return
		}

		ws.handleMessage(msgBytes)
	}
}

// dropConn closes a connection that failed on read and forgets it.
func (ws *WebSocket) dropConn(conn *websocket.Conn) {
	ws.connMu.Lock()
	if ws.conn == conn {
		ws.conn = nil
	}
	ws.connMu.Unlock()

	if err := conn.Close(); err != nil {
		ws.logger.Debug("Closing failed WebSocket", zap.Error(err))
	}
}

func (ws *WebSocket) handleMessage(data []byte) {
	var response domain.Response
	if err := json.Unmarshal(data, &response); err != nil {
		ws.logger.Error("Failed to parse message",
			zap.Error(err),
			zap.String("data", util.TruncateString(string(data), 200)),
		)
		return
	}

	ws.callbacksMu.RLock()
	callbacks := make([]callbackEntry, len(ws.messageCallbacks))
	copy(callbacks, ws.messageCallbacks)
	ws.callbacksMu.RUnlock()

	for _, entry := range callbacks {
		entry.callback(&response)
	}
}

// Send writes one request message. Writes are serialised; gorilla allows a
// single concurrent writer.
func (ws *WebSocket) Send(msg domain.Message) error {
	ws.connMu.RLock()
	conn := ws.conn
	ws.connMu.RUnlock()

	if conn == nil || !ws.IsConnected() {
		return errors.NewServiceError("relay channel not connected", "relay", "send", nil)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return errors.NewServiceError("failed to encode message", "relay", "send", err)
	}

	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(constants.WebSocketConfig.WriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.NewServiceError("failed to send message", "relay", "send", err)
	}
	return nil
}

func (ws *WebSocket) scheduleReconnect(ctx context.Context) {
	ws.connMu.Lock()
	ws.reconnectAttempts++
	attempts := ws.reconnectAttempts
	ws.connMu.Unlock()

	if attempts > ws.maxReconnectAttempts {
		ws.logger.Error("Max reconnect attempts reached",
			zap.Int("attempts", attempts),
		)
		ws.setState(WSStateFailed)
		return
	}

	ws.setState(WSStateReconnecting)

	ws.logger.Info("Scheduling reconnect",
		zap.Int("attempt", attempts),
		zap.Int("max", ws.maxReconnectAttempts),
		zap.Duration("delay", ws.reconnectDelay),
	)

	go func() {
		select {
		case <-time.After(ws.reconnectDelay):
			if err := ws.Connect(ctx); err != nil {
				ws.logger.Error("Reconnect failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		case <-ws.stopCh:
			return
		}
	}()
}

func (ws *WebSocket) OnMessage(callback MessageCallback) func() {
	ws.callbacksMu.Lock()
	id := ws.nextCallbackID
	ws.nextCallbackID++
	ws.messageCallbacks = append(ws.messageCallbacks, callbackEntry{
		id:       id,
		callback: callback,
	})
	ws.callbacksMu.Unlock()

	return func() {
		ws.callbacksMu.Lock()
		defer ws.callbacksMu.Unlock()
		for i, entry := range ws.messageCallbacks {
			if entry.id == id {
				ws.messageCallbacks = append(ws.messageCallbacks[:i], ws.messageCallbacks[i+1:]...)
				break
			}
		}
	}
}

func (ws *WebSocket) OnStateChange(callback StateCallback) func() {
	ws.callbacksMu.Lock()
	id := ws.nextCallbackID
	ws.nextCallbackID++
	ws.stateCallbacks = append(ws.stateCallbacks, stateCallbackEntry{
		id:       id,
		callback: callback,
	})
	ws.callbacksMu.Unlock()

	return func() {
		ws.callbacksMu.Lock()
		defer ws.callbacksMu.Unlock()
		for i, entry := range ws.stateCallbacks {
			if entry.id == id {
				ws.stateCallbacks = append(ws.stateCallbacks[:i], ws.stateCallbacks[i+1:]...)
				break
			}
		}
	}
}

func (ws *WebSocket) setState(newState WebSocketState) {
	ws.stateMu.Lock()
	oldState := ws.state
	ws.state = newState
	ws.stateMu.Unlock()

	if oldState != newState {
		ws.logger.Info("WebSocket state changed",
			zap.String("from", oldState.String()),
			zap.String("to", newState.String()),
		)

		ws.callbacksMu.RLock()
		callbacks := make([]stateCallbackEntry, len(ws.stateCallbacks))
		copy(callbacks, ws.stateCallbacks)
		ws.callbacksMu.RUnlock()

		for _, entry := range callbacks {
			entry.callback(newState)
		}
	}
}

func (ws *WebSocket) GetState() WebSocketState {
	ws.stateMu.RLock()
	defer ws.stateMu.RUnlock()
	return ws.state
}

func (ws *WebSocket) IsConnected() bool {
	return ws.GetState() == WSStateConnected
}

func (ws *WebSocket) stopped() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) Disconnect() error {
	ws.stopOnce.Do(func() {
		close(ws.stopCh)
	})

	ws.connMu.Lock()
	conn := ws.conn
	ws.conn = nil
	ws.reconnectAttempts = 0
	ws.connMu.Unlock()

	if conn != nil {
		ws.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		ws.writeMu.Unlock()

		if err := conn.Close(); err != nil {
			ws.logger.Error("Failed to close WebSocket", zap.Error(err))
			return err
		}
	}

	ws.setState(WSStateDisconnected)
	ws.logger.Info("WebSocket disconnected")

	done := make(chan struct{})
	go func() {
		ws.listenerWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		ws.logger.Debug("Listener stopped cleanly")
	case <-time.After(5 * time.Second):
		ws.logger.Warn("Timeout waiting for listener to stop")
	}

	return nil
}
