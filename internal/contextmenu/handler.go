package contextmenu

import (
	"context"
	"strings"

	"github.com/kapu/vn-en-translate-go/internal/constants"
	"github.com/kapu/vn-en-translate-go/internal/detect"
	"github.com/kapu/vn-en-translate-go/internal/domain"
	"go.uber.org/zap"
)

// ClickInfo describes a context menu click.
type ClickInfo struct {
	MenuItemID    string
	SelectionText string
}

// Tab identifies the page the click happened on. A zero ID means the click
// did not come from a page.
type Tab struct {
	ID int
}

// TabMessenger delivers a message to the observer of one tab.
type TabMessenger interface {
	SendMessage(ctx context.Context, tabID int, msg domain.Message) error
}

// Handler owns the context menu and routes clicks to its items.
type Handler struct {
	registry  *Registry
	messenger TabMessenger
	detector  *detect.Detector
	logger    *zap.Logger
}

func NewHandler(messenger TabMessenger, detector *detect.Detector, logger *zap.Logger) *Handler {
	if detector == nil {
		detector = detect.NewDetector(detect.VietnameseCharset)
	}
	return &Handler{
		registry:  NewRegistry(),
		messenger: messenger,
		detector:  detector,
		logger:    logger,
	}
}

// Install registers the menu entries.
func (h *Handler) Install() {
	h.registry.Register(&translateSelection{handler: h})
	h.logger.Info("Context menu installed", zap.Int("items", h.registry.Count()))
}

func (h *Handler) OnClicked(ctx context.Context, info ClickInfo, tab *Tab) error {
	return h.registry.Dispatch(ctx, info, tab)
}

func (h *Handler) Items() []MenuItem {
	return h.registry.Items()
}

type translateSelection struct {
	handler *Handler
}

func (t *translateSelection) ID() string {
	return constants.ContextMenu.ID
}

func (t *translateSelection) Title() string {
	return constants.ContextMenu.Title
}

func (t *translateSelection) Contexts() []string {
	return []string{"selection"}
}

// OnClicked forwards the selection to the tab with its detected direction.
// Clicks without selection text or without a tab are ignored.
func (t *translateSelection) OnClicked(ctx context.Context, info ClickInfo, tab *Tab) error {
	if strings.TrimSpace(info.SelectionText) == "" || tab == nil || tab.ID == 0 {
		t.handler.logger.Debug("Ignoring context menu click",
			zap.Bool("has_text", info.SelectionText != ""),
			zap.Bool("has_tab", tab != nil && tab.ID != 0),
		)
		return nil
	}

	req := t.handler.detector.Request(info.SelectionText)
	msg := domain.NewMessage("", domain.ActionTranslateContextMenu, req)
	if err := t.handler.messenger.SendMessage(ctx, tab.ID, msg); err != nil {
		t.handler.logger.Warn("Failed to deliver context menu request",
			zap.Int("tab_id", tab.ID),
			zap.Error(err),
		)
		return err
	}
	return nil
}
