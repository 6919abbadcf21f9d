package domain

// OverlayState is the per-page interaction state. Exactly one overlay exists
// for every state except Idle.
type OverlayState int

const (
	StateIdle OverlayState = iota
	StateAffordanceShown
	StateLoading
	StateResultShown
	StateErrorShown
)

func (s OverlayState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAffordanceShown:
		return "AFFORDANCE_SHOWN"
	case StateLoading:
		return "LOADING"
	case StateResultShown:
		return "RESULT_SHOWN"
	case StateErrorShown:
		return "ERROR_SHOWN"
	default:
		return "UNKNOWN"
	}
}

// Rect is the bounding rectangle of a selection in page coordinates.
type Rect struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Anchor is where the translate affordance is placed: the selection's
// bottom-right corner, shifted by the page scroll offset.
func (r Rect) Anchor(scrollY float64) (left, top float64) {
	return r.Right, r.Bottom + scrollY
}
