package contextmenu

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownMenuItem is returned when a click arrives for an unregistered id.
var ErrUnknownMenuItem = errors.New("unknown menu item")

// MenuItem is one entry of the page context menu.
type MenuItem interface {
	ID() string
	Title() string
	Contexts() []string
	OnClicked(ctx context.Context, info ClickInfo, tab *Tab) error
}

// Registry stores menu items keyed by their lowercase ids.
type Registry struct {
	mu    sync.RWMutex
	items map[string]MenuItem
}

func NewRegistry() *Registry {
	return &Registry{
		items: make(map[string]MenuItem),
	}
}

// Register adds an item. Registering the same id again replaces it.
func (r *Registry) Register(item MenuItem) {
	if item == nil {
		return
	}

	id := strings.ToLower(item.ID())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id] = item
}

// Dispatch routes a click to the item registered for info.MenuItemID.
func (r *Registry) Dispatch(ctx context.Context, info ClickInfo, tab *Tab) error {
	if r == nil {
		return fmt.Errorf("menu registry is nil")
	}

	item := r.getItem(info.MenuItemID)
	if item == nil {
		return fmt.Errorf("%w: %s", ErrUnknownMenuItem, info.MenuItemID)
	}

	return item.OnClicked(ctx, info, tab)
}

// Items lists the registered entries ordered by id.
func (r *Registry) Items() []MenuItem {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]MenuItem, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID() < items[j].ID()
	})
	return items
}

func (r *Registry) Count() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Registry) getItem(id string) MenuItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == "" {
		return nil
	}
	if item, ok := r.items[strings.ToLower(id)]; ok {
		return item
	}
	return nil
}
