package avatar

import (
	"errors"
	"fmt"
	"math"

	"github.com/vbonduro/wardrobe/internal/domain"
)

// Bounds offered by the placement editor. The resolver accepts any positive
// scale; these only constrain user input at the API edge.
const (
	MinScale  = 0.5
	MaxScale  = 2.0
	MaxOffset = 75
)

var ErrInvalidScale = errors.New("scale must be a positive finite number")

// Override adjusts a slot's default rectangle for custom artwork.
type Override struct {
	Scale   float64 `json:"scale"`
	XOffset int     `json:"x_offset"`
	YOffset int     `json:"y_offset"`
}

// IdentityOverride leaves the default rectangle untouched.
var IdentityOverride = Override{Scale: 1}

func (o Override) Validate() error {
	if o.Scale <= 0 || math.IsNaN(o.Scale) || math.IsInf(o.Scale, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidScale, o.Scale)
	}
	return nil
}

// OverrideFor builds the override carried by item. Unset fields fall back to
// scale 1 and zero offsets. It returns nil when item carries no adjustment.
func OverrideFor(item *domain.Item) *Override {
	if item == nil || !item.HasOverride() {
		return nil
	}
	o := IdentityOverride
	if item.Scale != nil {
		o.Scale = *item.Scale
	}
	if item.XOffset != nil {
		o.XOffset = *item.XOffset
	}
	if item.YOffset != nil {
		o.YOffset = *item.YOffset
	}
	return &o
}

// ResolveWithOverride applies o on top of Resolve. Width and height are
// scaled, but the offsets are added to the unscaled default position: a
// scaled item grows right and down from its default top-left corner rather
// than around its centre.
func ResolveWithOverride(slot domain.Slot, canvas Canvas, o *Override) (Rect, error) {
	r := Resolve(slot, canvas)
	if o == nil {
		return r, nil
	}
	if err := o.Validate(); err != nil {
		return Rect{}, err
	}
	return Rect{
		Top:    r.Top + o.YOffset,
		Left:   r.Left + o.XOffset,
		Width:  round(float64(r.Width) * o.Scale),
		Height: round(float64(r.Height) * o.Scale),
	}, nil
}
