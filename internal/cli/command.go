package cli

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/kapu/vn-en-translate-go/internal/config"
	"github.com/kapu/vn-en-translate-go/internal/constants"
	"github.com/kapu/vn-en-translate-go/internal/contextmenu"
	"github.com/kapu/vn-en-translate-go/internal/domain"
	"github.com/kapu/vn-en-translate-go/internal/observer"
	"github.com/kapu/vn-en-translate-go/internal/overlay"
	"github.com/kapu/vn-en-translate-go/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrTranslationFailed is returned when the popup ends on the error overlay.
var ErrTranslationFailed = stderrors.New(errors.UserFacingMessage)

// Flags holds the popup command line options.
type Flags struct {
	Copy        bool
	ContextMenu bool
	UseHTTP     bool
	WSURL       string
	HTTPURL     string
	Timeout     time.Duration
	LogLevel    string
	LogFile     string
}

// NewFlags seeds the flag defaults from the environment configuration.
func NewFlags(cfg *config.Config) *Flags {
	return &Flags{
		WSURL:    cfg.Relay.WSURL,
		HTTPURL:  cfg.Relay.HTTPURL,
		Timeout:  cfg.Relay.RequestTimeout,
		LogLevel: "warn",
		LogFile:  "stderr",
	}
}

// CreateRootCommand creates the popup command. RunE is set by the caller.
func CreateRootCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vn-en-popup [text]",
		Short: "Translate between Vietnamese and English",
		Long: `vn-en-popup translates text between Vietnamese and English through
the translation relay. The direction is detected from the text itself.

Examples:
  vn-en-popup "xin chào"            # Vietnamese to English
  vn-en-popup "good morning"        # English to Vietnamese
  echo "cảm ơn" | vn-en-popup --copy`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
	}

	cmd.Flags().BoolVarP(&flags.Copy, "copy", "c", false, "Copy the translation to the clipboard")
	cmd.Flags().BoolVar(&flags.ContextMenu, "context-menu", false, "Send the text through the context menu entry")
	cmd.Flags().BoolVar(&flags.UseHTTP, "http", false, "Use the relay's HTTP endpoint instead of the websocket channel")
	cmd.Flags().StringVar(&flags.WSURL, "ws-url", flags.WSURL, "Relay websocket URL")
	cmd.Flags().StringVar(&flags.HTTPURL, "http-url", flags.HTTPURL, "Relay HTTP base URL")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", flags.Timeout, "Request timeout")
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&flags.LogFile, "log-file", flags.LogFile, "Log destination: stderr or a file path")

	return cmd
}

// ReadInput joins the arguments, or reads all of in when there are none.
func ReadInput(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if in == nil {
		return "", nil
	}

	var lines []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.Join(lines, "\n"), nil
}

// Popup runs one translation through an observer session rendered on the
// terminal.
type Popup struct {
	Relay       observer.Relay
	Clipboard   observer.Clipboard
	Out         io.Writer
	ErrOut      io.Writer
	Timeout     time.Duration
	ContextMenu bool
	Logger      *zap.Logger
}

const popupTabID = 1

func (p *Popup) Run(ctx context.Context, text string, copyResult bool) error {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}

	session := observer.NewSession(p.Relay, overlay.NewTerminal(p.Out), p.Clipboard, observer.Options{
		RequestTimeout: p.Timeout,
		Notifier:       writerNotifier{out: p.ErrOut},
		Logger:         p.Logger,
	})
	defer func() {
		session.Close()
		session.Wait()
	}()

	var err error
	if p.ContextMenu && strings.TrimSpace(text) != "" {
		err = p.clickContextMenu(ctx, session, text)
	} else {
		err = session.Translate(ctx, text)
	}
	if err != nil {
		return err
	}
	session.Wait()

	if session.State() != domain.StateResultShown {
		return ErrTranslationFailed
	}
	if copyResult {
		session.Copy()
	}
	return nil
}

// clickContextMenu routes text the way a menu click on a page would: menu
// handler, tab messenger, then the tab's session.
func (p *Popup) clickContextMenu(ctx context.Context, session *observer.Session, text string) error {
	tabs := contextmenu.NewTabs()
	unregister := tabs.Register(popupTabID, session)
	defer unregister()

	menu := contextmenu.NewHandler(tabs, nil, p.Logger)
	menu.Install()

	return menu.OnClicked(ctx, contextmenu.ClickInfo{
		MenuItemID:    constants.ContextMenu.ID,
		SelectionText: text,
	}, &contextmenu.Tab{ID: popupTabID})
}

// SystemClipboard writes to the desktop clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

type writerNotifier struct {
	out io.Writer
}

func (n writerNotifier) Notify(message string) {
	if n.out != nil {
		fmt.Fprintln(n.out, message)
	}
}
