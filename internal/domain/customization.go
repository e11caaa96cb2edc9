package domain

import (
	"errors"
	"fmt"
)

var ErrNilItem = errors.New("nil item")

// Customization holds at most one item per slot. Items are placed into the
// slot named by their Type, so a slot can never hold an item of another type.
type Customization struct {
	base   *Item
	hat    *Item
	shirt  *Item
	bottom *Item
}

// NewCustomization equips every non-nil item. It fails if an item has an
// unknown type or two items claim the same slot.
func NewCustomization(items ...*Item) (Customization, error) {
	var c Customization
	for _, item := range items {
		if item == nil {
			continue
		}
		if c.Get(item.Type) != nil {
			return Customization{}, fmt.Errorf("slot %s assigned twice", item.Type)
		}
		if err := c.Equip(item); err != nil {
			return Customization{}, err
		}
	}
	return c, nil
}

func (c *Customization) ptr(slot Slot) **Item {
	switch slot {
	case SlotBase:
		return &c.base
	case SlotHat:
		return &c.hat
	case SlotShirt:
		return &c.shirt
	case SlotBottom:
		return &c.bottom
	}
	return nil
}

// Get returns the item in slot, or nil if the slot is empty or unknown.
func (c Customization) Get(slot Slot) *Item {
	if p := c.ptr(slot); p != nil {
		return *p
	}
	return nil
}

// Equip puts item into its own slot, replacing whatever was there.
func (c *Customization) Equip(item *Item) error {
	if item == nil {
		return ErrNilItem
	}
	p := c.ptr(item.Type)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, item.Type)
	}
	*p = item
	return nil
}

// Unequip clears slot and returns the item that was removed, if any.
func (c *Customization) Unequip(slot Slot) *Item {
	p := c.ptr(slot)
	if p == nil {
		return nil
	}
	prev := *p
	*p = nil
	return prev
}

// IsEmpty reports whether no slot is occupied.
func (c Customization) IsEmpty() bool {
	return c.base == nil && c.hat == nil && c.shirt == nil && c.bottom == nil
}

// IDs returns the id-only persistence payload. Empty slots are nil.
func (c Customization) IDs() SlotIDs {
	var ids SlotIDs
	for _, slot := range Slots() {
		if item := c.Get(slot); item != nil {
			id := item.ID
			ids.Set(slot, &id)
		}
	}
	return ids
}
