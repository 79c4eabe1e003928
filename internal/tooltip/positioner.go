package tooltip

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/ppiankov/lumify/internal/model"
)

// Default allowances in pixels
const (
	DefaultPadding       = 12
	DefaultFooterReserve = 60
	DefaultGap           = 8
)

// AboveClass is added to the tooltip when it flips above the chip
const AboveClass = "tooltip-above"

var (
	// ErrNotReset is returned when measuring without a prior Reset
	ErrNotReset = errors.New("tooltip: measure called without reset")

	// ErrInvalidGeometry is returned for boxes with inverted edges
	ErrInvalidGeometry = errors.New("tooltip: invalid geometry")
)

// Orientation is the vertical side of the chip the tooltip sits on
type Orientation string

const (
	Below Orientation = "below"
	Above Orientation = "above"
)

// Style is the set of inline declarations applied to the tooltip element.
// Empty fields mean the declaration is cleared.
type Style struct {
	Left      string `json:"left"`
	Right     string `json:"right"`
	Top       string `json:"top"`
	Bottom    string `json:"bottom"`
	Transform string `json:"transform"`
	Class     string `json:"class,omitempty"` // Extra class, AboveClass or ""
}

// Pending is the result of a reset. The caller applies Style, waits for one
// layout frame, measures the elements and passes both to MeasureAndPlace.
type Pending struct {
	Style Style `json:"style"`
	reset bool
}

// Placement is the corrected tooltip position for one hover
type Placement struct {
	Orientation Orientation `json:"orientation"`
	OffsetX     float64     `json:"offset_x"` // Signed correction added to the centering transform
	Box         Rect        `json:"box"`      // Resulting on-screen tooltip box
	Style       Style       `json:"style"`
}

// Transform renders the horizontal transform expression
func (p Placement) Transform() string {
	return transform(p.OffsetX)
}

// Positioner keeps citation tooltips inside the visible results area.
// It holds no per-hover state and is safe for concurrent use.
type Positioner struct {
	padding       float64
	footerReserve float64
	gap           float64
}

// NewPositioner creates a Positioner with explicit allowances
func NewPositioner(padding, footerReserve, gap float64) *Positioner {
	return &Positioner{
		padding:       padding,
		footerReserve: footerReserve,
		gap:           gap,
	}
}

// NewPositionerFromConfig creates a Positioner from tooltip settings
func NewPositionerFromConfig(cfg model.TooltipConfig) *Positioner {
	return NewPositioner(cfg.Padding, cfg.FooterReserve, cfg.Gap)
}

// DefaultPositioner uses the default allowances
func DefaultPositioner() *Positioner {
	return NewPositioner(DefaultPadding, DefaultFooterReserve, DefaultGap)
}

// Reset returns the default style: centered under the chip with no
// orientation override.
func (p *Positioner) Reset() Pending {
	return Pending{
		Style: Style{
			Left:      "50%",
			Transform: transform(0),
		},
		reset: true,
	}
}

// MeasureAndPlace computes orientation and horizontal correction from
// geometry measured after the pending reset was applied.
func (p *Positioner) MeasureAndPlace(pending Pending, g Geometry) (Placement, error) {
	if !pending.reset {
		return Placement{}, ErrNotReset
	}
	modal := g.modal()
	boxes := []struct {
		name string
		rect Rect
	}{{"tooltip", g.Tooltip}, {"chip", g.Chip}, {"container", g.Container}, {"modal", modal}}
	for _, b := range boxes {
		if !b.rect.valid() {
			return Placement{}, fmt.Errorf("%w: %s box %+v", ErrInvalidGeometry, b.name, b.rect)
		}
	}

	placement := Placement{
		Orientation: Below,
		Style:       pending.Style,
	}
	box := g.Tooltip

	effectiveBottom := math.Min(g.Container.Bottom, modal.Bottom-p.footerReserve)
	if g.Tooltip.Bottom > effectiveBottom {
		placement.Orientation = Above
		placement.Style.Top = "auto"
		placement.Style.Bottom = "calc(100% + " + px(p.gap) + ")"
		placement.Style.Class = AboveClass

		bottom := g.Chip.Top - p.gap
		box = Rect{Left: box.Left, Top: bottom - box.Height(), Right: box.Right, Bottom: bottom}
	}

	minLeft := modal.Left + p.padding
	maxRight := modal.Right - p.padding
	switch {
	case g.Tooltip.Left < minLeft:
		placement.OffsetX = minLeft - g.Tooltip.Left
	case g.Tooltip.Right > maxRight:
		placement.OffsetX = -(g.Tooltip.Right - maxRight)
	}

	placement.Box = box.Shift(placement.OffsetX, 0)
	placement.Style.Transform = transform(placement.OffsetX)

	return placement, nil
}

func transform(offset float64) string {
	switch {
	case offset > 0:
		return "translateX(calc(-50% + " + px(offset) + "))"
	case offset < 0:
		return "translateX(calc(-50% - " + px(-offset) + "))"
	default:
		return "translateX(-50%)"
	}
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
