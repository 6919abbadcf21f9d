package overlay

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/kapu/vn-en-translate-go/internal/constants"
)

var (
	affordanceBox = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4285F4")).
			Padding(0, 1)
	loaderBox = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#333333")).
			Padding(0, 2)
	resultBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#34A853")).
			Padding(0, 1)
	errorBox = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#F44336")).
			Padding(0, 2)
	hintText = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// Terminal renders overlays as styled blocks on a terminal. It has no pointer
// so nothing is ever inside it.
type Terminal struct {
	mu      sync.Mutex
	out     io.Writer
	current string
}

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

func (t *Terminal) RenderAffordance(x, y float64) {
	t.show(constants.OverlayIDs.Button, affordanceBox.Render(constants.OverlayText.Affordance))
}

func (t *Terminal) RenderLoading() {
	t.show(constants.OverlayIDs.Loader, loaderBox.Render(constants.OverlayText.Loading))
}

// RenderResult keeps the translation's own line breaks.
func (t *Terminal) RenderResult(translation string) {
	controls := hintText.Render(fmt.Sprintf("[%s] [%s]", constants.OverlayText.Copy, constants.OverlayText.Close))
	t.show(constants.OverlayIDs.Result, lipgloss.JoinVertical(lipgloss.Left, resultBox.Render(translation), controls))
}

func (t *Terminal) RenderError(message string) {
	t.show(constants.OverlayIDs.Error, errorBox.Render(message))
}

func (t *Terminal) RenderCopied() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == constants.OverlayIDs.Result {
		fmt.Fprintln(t.out, hintText.Render(constants.OverlayText.Copied))
	}
}

func (t *Terminal) ResetCopied() {}

func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = ""
}

func (t *Terminal) Contains(target string) bool {
	return false
}

// Current returns the id of the overlay last rendered, or "" when cleared.
func (t *Terminal) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Terminal) show(id, block string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = id
	fmt.Fprintln(t.out, block)
}
