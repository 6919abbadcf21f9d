package overlay

import (
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/kapu/vn-en-translate-go/internal/constants"
)

// Element IDs inside the result overlay.
const (
	ContentID = "vn-en-translate-content"
	CopyID    = "vn-en-translate-copy"
	CloseID   = "vn-en-translate-close"
)

const (
	affordanceStyle = "position: absolute; left: %.0fpx; top: %.0fpx; background-color: #4285f4; color: white; padding: 5px 10px; border-radius: 4px; cursor: pointer; font-size: 14px; z-index: 10000; box-shadow: 0 2px 4px rgba(0,0,0,0.2);"
	centeredStyle   = "position: fixed; left: 50%; top: 50%; transform: translate(-50%, -50%); z-index: 10000;"
	loaderStyle     = centeredStyle + " background-color: rgba(0, 0, 0, 0.7); color: white; padding: 10px 20px; border-radius: 4px;"
	errorStyle      = centeredStyle + " background-color: #f44336; color: white; padding: 10px 20px; border-radius: 4px;"
	resultStyle     = centeredStyle + " background-color: white; color: black; padding: 15px; border-radius: 8px; max-width: 80%; max-height: 60%; overflow: auto; box-shadow: 0 4px 8px rgba(0,0,0,0.2);"
	closeStyle      = "position: absolute; top: 5px; right: 10px; cursor: pointer; font-weight: bold;"
	copyStyle       = "position: absolute; top: 5px; right: 30px; background-color: #34a853; color: white; border: none; border-radius: 4px; padding: 4px 8px; font-size: 12px; cursor: pointer; margin-right: 15px;"
	containerStyle  = "margin-top: 30px; padding: 5px; border: 1px solid #e0e0e0; border-radius: 4px; background-color: #f8f9fa; max-height: 200px; overflow-y: auto;"
	contentStyle    = "white-space: pre-line; line-height: 1.6; padding: 5px; user-select: text; cursor: text;"
)

// Document renders overlays into a host page held as a goquery document.
type Document struct {
	mu  sync.Mutex
	doc *goquery.Document
}

// NewDocument parses pageHTML as the host page.
func NewDocument(pageHTML string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return &Document{doc: doc}, nil
}

func (d *Document) RenderAffordance(x, y float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.removeOverlays()
	d.append(fmt.Sprintf(`<div id="%s" style="%s">%s</div>`,
		constants.OverlayIDs.Button,
		fmt.Sprintf(affordanceStyle, x, y),
		html.EscapeString(constants.OverlayText.Affordance),
	))
}

func (d *Document) RenderLoading() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.removeOverlays()
	d.append(fmt.Sprintf(`<div id="%s" style="%s">%s</div>`,
		constants.OverlayIDs.Loader, loaderStyle, html.EscapeString(constants.OverlayText.Loading)))
}

// RenderResult shows the translation. Line breaks survive through pre-line.
func (d *Document) RenderResult(translation string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.removeOverlays()

	var b strings.Builder
	fmt.Fprintf(&b, `<div id="%s" style="%s">`, constants.OverlayIDs.Result, resultStyle)
	fmt.Fprintf(&b, `<div id="%s" style="%s">%s</div>`, CloseID, closeStyle, html.EscapeString(constants.OverlayText.Close))
	fmt.Fprintf(&b, `<button id="%s" style="%s">%s</button>`, CopyID, copyStyle, html.EscapeString(constants.OverlayText.Copy))
	fmt.Fprintf(&b, `<div style="%s"><div id="%s" style="%s">%s</div></div>`,
		containerStyle, ContentID, contentStyle, html.EscapeString(translation))
	b.WriteString(`</div>`)

	d.append(b.String())
}

func (d *Document) RenderError(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.removeOverlays()
	d.append(fmt.Sprintf(`<div id="%s" style="%s">%s</div>`,
		constants.OverlayIDs.Error, errorStyle, html.EscapeString(message)))
}

func (d *Document) RenderCopied() {
	d.setCopyLabel(constants.OverlayText.Copied)
}

func (d *Document) ResetCopied() {
	d.setCopyLabel(constants.OverlayText.Copy)
}

func (d *Document) setCopyLabel(label string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc.Find("#" + CopyID).SetText(label)
}

func (d *Document) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeOverlays()
}

// Contains reports whether the element with id target is, or sits inside,
// the loader, result or error overlay.
func (d *Document) Contains(target string) bool {
	if target == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	roots := fmt.Sprintf("#%s, #%s, #%s",
		constants.OverlayIDs.Result, constants.OverlayIDs.Loader, constants.OverlayIDs.Error)

	return d.findByID(target).Closest(roots).Length() > 0
}

// Count returns how many overlay elements are attached to the page.
func (d *Document) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.overlays().Length()
}

// Text returns the text of the element with the given id.
func (d *Document) Text(id string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.findByID(id).Text()
}

// Has reports whether an element with the given id is attached.
func (d *Document) Has(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.findByID(id).Length() > 0
}

// Attr returns an attribute of the element with the given id.
func (d *Document) Attr(id, name string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.findByID(id).Attr(name)
}

func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return goquery.OuterHtml(d.doc.Selection)
}

func (d *Document) append(markup string) {
	d.doc.Find("body").AppendHtml(markup)
}

func (d *Document) overlays() *goquery.Selection {
	return d.doc.Find(fmt.Sprintf("#%s, #%s, #%s, #%s",
		constants.OverlayIDs.Button,
		constants.OverlayIDs.Loader,
		constants.OverlayIDs.Result,
		constants.OverlayIDs.Error,
	))
}

func (d *Document) removeOverlays() {
	d.overlays().Remove()
}

// findByID avoids building a selector from page-supplied ids.
func (d *Document) findByID(id string) *goquery.Selection {
	return d.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		value, _ := s.Attr("id")
		return value == id
	}).First()
}
