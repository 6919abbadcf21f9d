package observer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kapu/vn-en-translate-go/internal/constants"
	"github.com/kapu/vn-en-translate-go/internal/detect"
	"github.com/kapu/vn-en-translate-go/internal/domain"
	"github.com/kapu/vn-en-translate-go/internal/util"
	"github.com/kapu/vn-en-translate-go/pkg/errors"
	"go.uber.org/zap"
)

// Relay forwards a request over the messaging channel.
type Relay interface {
	Translate(ctx context.Context, req domain.SelectionRequest) (domain.TranslationResult, error)
}

// Surface draws the overlays. Every Render call replaces whatever overlay
// was shown before.
type Surface interface {
	RenderAffordance(x, y float64)
	RenderLoading()
	RenderResult(translation string)
	RenderError(message string)
	RenderCopied()
	ResetCopied()
	Clear()
	Contains(target string) bool
}

type Clipboard interface {
	WriteText(text string) error
}

// Notifier shows local validation messages, such as an empty selection.
type Notifier interface {
	Notify(message string)
}

// Selection is what the page reports on mouse-up.
type Selection struct {
	Text    string
	Rect    domain.Rect
	ScrollY float64
}

type Options struct {
	RequestTimeout      time.Duration
	ErrorDismissDelay   time.Duration
	GuardResetDelay     time.Duration
	CopiedFeedbackDelay time.Duration
	Detector            *detect.Detector
	Notifier            Notifier
	Logger              *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		RequestTimeout:      constants.OverlayTiming.RequestTimeout,
		ErrorDismissDelay:   constants.OverlayTiming.ErrorDismiss,
		GuardResetDelay:     constants.OverlayTiming.GuardReset,
		CopiedFeedbackDelay: constants.OverlayTiming.CopiedFeedback,
	}
}

// Session is the selection observer of one page. At most one overlay is
// shown at a time and every transition tears the previous one down first.
type Session struct {
	relay     Relay
	surface   Surface
	clipboard Clipboard
	options   Options
	detector  *detect.Detector
	logger    *zap.Logger

	mu            sync.Mutex
	state         domain.OverlayState
	selectedText  string
	translation   string
	insideOverlay bool
	generation    uint64
	copySeq       uint64
	cancel        context.CancelFunc
	errorTimer    *time.Timer
	copiedTimer   *time.Timer
	guardTimer    *time.Timer

	wg sync.WaitGroup
}

func NewSession(relay Relay, surface Surface, clipboard Clipboard, options Options) *Session {
	defaults := DefaultOptions()
	if options.RequestTimeout <= 0 {
		options.RequestTimeout = defaults.RequestTimeout
	}
	if options.ErrorDismissDelay <= 0 {
		options.ErrorDismissDelay = defaults.ErrorDismissDelay
	}
	if options.GuardResetDelay <= 0 {
		options.GuardResetDelay = defaults.GuardResetDelay
	}
	if options.CopiedFeedbackDelay <= 0 {
		options.CopiedFeedbackDelay = defaults.CopiedFeedbackDelay
	}

	detector := options.Detector
	if detector == nil {
		detector = detect.NewDetector(detect.VietnameseCharset)
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Session{
		relay:     relay,
		surface:   surface,
		clipboard: clipboard,
		options:   options,
		detector:  detector,
		logger:    logger,
		state:     domain.StateIdle,
	}
}

// OnMouseUp offers the translate affordance for a fresh selection.
func (s *Session) OnMouseUp(target string, sel Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insideOverlay || s.surface.Contains(target) {
		return
	}

	text := strings.TrimSpace(sel.Text)
	if text == "" {
		return
	}

	s.teardownLocked()
	s.selectedText = text

	x, y := sel.Rect.Anchor(sel.ScrollY)
	s.surface.RenderAffordance(x, y)
	s.state = domain.StateAffordanceShown
}

// OnMouseDown handles a press anywhere on the page. Presses inside the
// result overlay mark the guard so selecting its text does not re-trigger
// the affordance; presses elsewhere close the affordance or the result.
func (s *Session) OnMouseDown(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.surface.Contains(target) {
		if s.state == domain.StateResultShown {
			s.insideOverlay = true
		}
		return
	}

	switch s.state {
	case domain.StateAffordanceShown:
		if target != constants.OverlayIDs.Button {
			s.teardownLocked()
		}
	case domain.StateResultShown:
		s.teardownLocked()
	}
}

// ActivateAffordance translates the captured selection.
func (s *Session) ActivateAffordance(ctx context.Context) error {
	s.mu.Lock()
	if s.state != domain.StateAffordanceShown {
		s.mu.Unlock()
		return nil
	}
	text := s.selectedText
	s.mu.Unlock()

	return s.Translate(ctx, text)
}

// Translate detects the direction of text and asks the relay for it. The
// call runs in the background; ctx bounds it together with RequestTimeout.
func (s *Session) Translate(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		s.notifyEmpty()
		return errors.NewEmptyInputError("selection")
	}
	return s.start(ctx, s.detector.Request(text))
}

// HandleMessage is the context menu entry. The message carries its own
// direction; a missing or invalid one is detected again.
func (s *Session) HandleMessage(ctx context.Context, msg domain.Message) error {
	if msg.Action != domain.ActionTranslateContextMenu {
		return errors.NewValidationError("unsupported action", "action", msg.Action.String())
	}

	req := msg.Request()
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		s.notifyEmpty()
		return errors.NewEmptyInputError("context-menu")
	}
	if !req.IsSupportedPair() {
		req = s.detector.Request(req.Text)
	}
	return s.start(ctx, req)
}

func (s *Session) start(ctx context.Context, req domain.SelectionRequest) error {
	s.mu.Lock()
	s.teardownLocked()
	s.generation++
	gen := s.generation

	reqCtx, cancel := context.WithTimeout(ctx, s.options.RequestTimeout)
	s.cancel = cancel
	s.selectedText = req.Text
	s.surface.RenderLoading()
	s.state = domain.StateLoading
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Debug("Translation requested",
		zap.String("source", req.SourceLanguage.String()),
		zap.String("target", req.TargetLanguage.String()),
		zap.String("text", util.TruncateString(req.Text, 50)),
	)

	go func() {
		defer s.wg.Done()
		defer cancel()

		result, err := s.relay.Translate(reqCtx, req)
		s.complete(gen, result, err)
	}()

	return nil
}

func (s *Session) complete(gen uint64, result domain.TranslationResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.state != domain.StateLoading {
		s.logger.Debug("Dropping stale translation response", zap.Uint64("generation", gen))
		return
	}
	s.cancel = nil

	if err == nil && result.Succeeded() {
		s.translation = result.Translation
		s.surface.RenderResult(result.Translation)
		s.state = domain.StateResultShown
		return
	}

	if err != nil {
		s.logger.Warn("Translation request failed", zap.Error(err))
	} else {
		s.logger.Warn("Relay returned no translation", zap.String("error", result.Error))
	}
	s.showErrorLocked(errors.UserFacingMessage)
}

func (s *Session) showErrorLocked(message string) {
	s.surface.RenderError(message)
	s.state = domain.StateErrorShown

	gen := s.generation
	s.errorTimer = time.AfterFunc(s.options.ErrorDismissDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.generation || s.state != domain.StateErrorShown {
			return
		}
		s.surface.Clear()
		s.state = domain.StateIdle
	})
}

// Copy writes the shown translation to the clipboard and flashes a single
// "Copied!" label. Clipboard failures are only logged.
func (s *Session) Copy() {
	s.mu.Lock()
	if s.state != domain.StateResultShown {
		s.mu.Unlock()
		return
	}
	text := s.translation
	gen := s.generation
	s.mu.Unlock()

	if err := s.clipboard.WriteText(text); err != nil {
		s.logger.Warn("Failed to copy translation", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.state != domain.StateResultShown {
		return
	}

	if s.copiedTimer != nil {
		s.copiedTimer.Stop()
	}
	// A timer that already fired may still be waiting on mu; seq makes it
	// a no-op once a newer copy took over the label.
	s.copySeq++
	seq := s.copySeq
	s.surface.RenderCopied()
	s.copiedTimer = time.AfterFunc(s.options.CopiedFeedbackDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.resetCopiedLocked(gen, seq)
	})
}

func (s *Session) resetCopiedLocked(gen, seq uint64) {
	if gen != s.generation || seq != s.copySeq || s.state != domain.StateResultShown {
		return
	}
	s.surface.ResetCopied()
}

// CloseResult is the result overlay's close control.
func (s *Session) CloseResult() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.StateResultShown {
		s.teardownLocked()
	}
}

// Close removes any overlay and abandons the in-flight request.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

// Wait blocks until outstanding relay calls have returned.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) State() domain.OverlayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Translation returns the translation on display, or "".
func (s *Session) Translation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateResultShown {
		return ""
	}
	return s.translation
}

// InsideOverlay reports the mouse guard.
func (s *Session) InsideOverlay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insideOverlay
}

func (s *Session) teardownLocked() {
	s.generation++

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.errorTimer != nil {
		s.errorTimer.Stop()
		s.errorTimer = nil
	}
	if s.copiedTimer != nil {
		s.copiedTimer.Stop()
		s.copiedTimer = nil
	}

	if s.state != domain.StateIdle {
		s.surface.Clear()
	}
	s.state = domain.StateIdle
	s.translation = ""
	s.scheduleGuardResetLocked()
}

func (s *Session) scheduleGuardResetLocked() {
	if !s.insideOverlay {
		return
	}
	if s.guardTimer != nil {
		s.guardTimer.Stop()
	}
	s.guardTimer = time.AfterFunc(s.options.GuardResetDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.insideOverlay = false
	})
}

func (s *Session) notifyEmpty() {
	s.logger.Debug("Ignoring empty translation request")
	if s.options.Notifier != nil {
		s.options.Notifier.Notify(constants.OverlayText.EmptyInput)
	}
}
