// Package avatar computes where each equipped item is drawn on an avatar
// canvas. Everything here is pure: no I/O, no shared state.
package avatar

import (
	"math"

	"github.com/vbonduro/wardrobe/internal/domain"
)

// DefaultCanvasSize is used for any canvas dimension that is missing or
// non-positive.
const DefaultCanvasSize = 170

// paintOrder is bottom-most first. The shirt is drawn last so it overlaps the
// bottom's waistband and the base's torso.
var paintOrder = [...]domain.Slot{domain.SlotBase, domain.SlotHat, domain.SlotBottom, domain.SlotShirt}

// PaintOrder returns the slots in the order they are drawn.
func PaintOrder() []domain.Slot {
	out := make([]domain.Slot, len(paintOrder))
	copy(out, paintOrder[:])
	return out
}

type Canvas struct {
	Width  int
	Height int
}

// Normalize fills non-positive dimensions with DefaultCanvasSize.
func (c Canvas) Normalize() Canvas {
	if c.Width <= 0 {
		c.Width = DefaultCanvasSize
	}
	if c.Height <= 0 {
		c.Height = DefaultCanvasSize
	}
	return c
}

// Rect is a pixel rectangle relative to the canvas origin. Top may be
// negative: the hat pokes above the canvas.
type Rect struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// proportions are fractions of the canvas width (w, left) and height (h, top).
type proportions struct {
	w, h, top, left float64
}

var slotProportions = map[domain.Slot]proportions{
	domain.SlotBase:   {w: 1, h: 1, top: 0, left: 0},
	domain.SlotHat:    {w: 0.53, h: 0.53, top: -0.029, left: 0.224},
	domain.SlotBottom: {w: 0.94, h: 0.59, top: 0.676, left: 0.029},
	domain.SlotShirt:  {w: 0.62, h: 0.54, top: 0.447, left: 0.188},
}

// round is half away from zero, so -4.5 becomes -5 and 4.5 becomes 5.
func round(v float64) int {
	return int(math.Round(v))
}

// Resolve returns the default rectangle for slot on canvas. Unknown slots
// resolve to the zero Rect.
func Resolve(slot domain.Slot, canvas Canvas) Rect {
	canvas = canvas.Normalize()
	p, ok := slotProportions[slot]
	if !ok {
		return Rect{}
	}
	w, h := float64(canvas.Width), float64(canvas.Height)
	return Rect{
		Top:    round(p.top * h),
		Left:   round(p.left * w),
		Width:  round(p.w * w),
		Height: round(p.h * h),
	}
}
