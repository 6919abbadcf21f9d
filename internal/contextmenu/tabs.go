package contextmenu

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kapu/vn-en-translate-go/internal/domain"
)

// ErrNoReceiver is returned when no observer is listening in the target tab.
var ErrNoReceiver = errors.New("no receiver in tab")

// MessageHandler is the receiving end inside a tab.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg domain.Message) error
}

// Tabs routes messages to observers registered per tab in this process.
type Tabs struct {
	mu       sync.RWMutex
	handlers map[int]*registration
}

type registration struct {
	handler MessageHandler
}

func NewTabs() *Tabs {
	return &Tabs{handlers: make(map[int]*registration)}
}

// Register attaches handler to tabID and returns a func that detaches it.
func (t *Tabs) Register(tabID int, handler MessageHandler) func() {
	reg := &registration{handler: handler}

	t.mu.Lock()
	t.handlers[tabID] = reg
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.handlers[tabID] == reg {
			delete(t.handlers, tabID)
		}
	}
}

func (t *Tabs) SendMessage(ctx context.Context, tabID int, msg domain.Message) error {
	t.mu.RLock()
	reg, ok := t.handlers[tabID]
	t.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrNoReceiver, tabID)
	}
	return reg.handler.HandleMessage(ctx, msg)
}
