package tooltip

// Rect is a bounding box in viewport pixels, as reported by the layout
// engine for an element.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width returns the horizontal extent
func (r Rect) Width() float64 {
	return r.Right - r.Left
}

// Height returns the vertical extent
func (r Rect) Height() float64 {
	return r.Bottom - r.Top
}

// Shift returns r moved by dx, dy
func (r Rect) Shift(dx, dy float64) Rect {
	return Rect{
		Left:   r.Left + dx,
		Top:    r.Top + dy,
		Right:  r.Right + dx,
		Bottom: r.Bottom + dy,
	}
}

// valid reports whether the edges are ordered
func (r Rect) valid() bool {
	return r.Right >= r.Left && r.Bottom >= r.Top
}

// Geometry is the live layout measured after a reset has been applied
type Geometry struct {
	Tooltip   Rect  `json:"tooltip"`         // Natural box in the default centered, below position
	Chip      Rect  `json:"chip"`            // Citation chip the tooltip belongs to
	Container Rect  `json:"container"`       // Scrollable results container
	Modal     *Rect `json:"modal,omitempty"` // Outer modal; nil when the widget is inline
}

// modal returns the modal box, falling back to the container
func (g Geometry) modal() Rect {
	if g.Modal != nil {
		return *g.Modal
	}
	return g.Container
}
