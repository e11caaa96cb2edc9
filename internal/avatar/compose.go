package avatar

import (
	"fmt"

	"github.com/vbonduro/wardrobe/internal/domain"
)

// Layer is one entry of the draw list.
type Layer struct {
	Slot domain.Slot
	Item *domain.Item
	Rect Rect
}

// Compose returns the draw list for c in paint order, skipping empty slots.
// The same inputs always produce the same output.
func Compose(c domain.Customization, canvas Canvas) ([]Layer, error) {
	canvas = canvas.Normalize()
	layers := make([]Layer, 0, len(paintOrder))
	for _, slot := range paintOrder {
		item := c.Get(slot)
		if item == nil {
			continue
		}
		rect, err := ResolveWithOverride(slot, canvas, OverrideFor(item))
		if err != nil {
			return nil, fmt.Errorf("item %d in slot %s: %w", item.ID, slot, err)
		}
		layers = append(layers, Layer{Slot: slot, Item: item, Rect: rect})
	}
	return layers, nil
}
