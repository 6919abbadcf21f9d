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
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// connection is one page's channel to the relay. Requests are read in order
// and answered as they complete; ids tie answers back to requests.
type connection struct {
	server    *Server
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

func newConnection(s *Server, conn *websocket.Conn) *connection {
	return &connection{
		server: s,
		conn:   conn,
		send:   make(chan []byte, s.options.SendBufferSize),
		done:   make(chan struct{}),
		logger: s.logger.With(zap.String("remote", conn.RemoteAddr().String())),
	}
}

func (c *connection) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	p := pool.New().WithMaxGoroutines(c.server.options.MaxConcurrency)

	defer func() {
		cancel()
		p.Wait()
		close(c.send)
		c.close()
		c.logger.Debug("Relay connection closed")
	}()

	c.conn.SetReadLimit(c.server.options.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.server.options.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.server.options.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Relay read error", zap.Error(err))
			}
			return
		}

		var msg domain.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Error("Failed to parse relay message",
				zap.Error(err),
				zap.String("data", util.TruncateString(string(data), 200)),
			)
			c.reply(domain.Response{Error: constants.OverlayText.RelayFailure})
			continue
		}

		// Blocks while MaxConcurrency requests are in flight.
		p.Go(func() {
			c.reply(c.server.Handle(ctx, msg))
		})
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(c.server.options.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.server.options.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("Relay write error", zap.Error(err))
				return
			}
		case <-c.done:
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.server.options.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) reply(resp domain.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("Failed to encode relay response", zap.Error(err))
		return
	}

	select {
	case c.send <- data:
	case <-c.done:
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
