package relay

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/kapu/vn-en-translate-go/internal/constants"
	"github.com/kapu/vn-en-translate-go/internal/domain"
	"github.com/kapu/vn-en-translate-go/pkg/errors"
	"go.uber.org/zap"
)

// Channel correlates requests and responses over a shared WebSocket.
// Interactive asks the relay for pinned sampling on every request.
type Channel struct {
	Interactive bool

	ws     *WebSocket
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]chan domain.Response

	unsubscribe []func()
}

func NewChannel(ws *WebSocket, logger *zap.Logger) *Channel {
	c := &Channel{
		ws:      ws,
		logger:  logger,
		pending: make(map[string]chan domain.Response),
	}
	c.unsubscribe = append(c.unsubscribe,
		ws.OnMessage(c.deliver),
		ws.OnStateChange(c.onStateChange),
	)
	return c
}

// Translate sends one request and waits for its response or ctx.
func (c *Channel) Translate(ctx context.Context, req domain.SelectionRequest) (domain.TranslationResult, error) {
	id := uuid.NewString()
	replyCh := make(chan domain.Response, 1)

	c.mu.Lock()
	c.pending[id] = replyCh
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	msg := domain.NewMessage(id, domain.ActionTranslate, req)
	msg.Interactive = c.Interactive
	if err := c.ws.Send(msg); err != nil {
		return domain.TranslationResult{}, err
	}

	select {
	case resp := <-replyCh:
		return resp.Result(), nil
	case <-ctx.Done():
		return domain.TranslationResult{}, errors.NewTranslationError("relay request abandoned",
			req.SourceLanguage.String(), req.TargetLanguage.String(), ctx.Err())
	}
}

// Pending reports the number of requests awaiting a response.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Channel) deliver(resp *domain.Response) {
	c.mu.Lock()
	replyCh, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("Dropping response without a pending request", zap.String("id", resp.ID))
		return
	}
	replyCh <- *resp
}

// onStateChange fails every pending request once the connection drops; a
// reconnect cannot recover answers sent on the old connection.
func (c *Channel) onStateChange(state WebSocketState) {
	if state != WSStateDisconnected && state != WSStateFailed {
		return
	}

	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]chan domain.Response)
	c.mu.Unlock()

	for id, replyCh := range pending {
		replyCh <- domain.Response{ID: id, Error: constants.OverlayText.RelayFailure}
	}
}

func (c *Channel) Close() error {
	for _, unsubscribe := range c.unsubscribe {
		unsubscribe()
	}
	return c.ws.Disconnect()
}
