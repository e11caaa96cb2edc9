package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Slot is one of the fixed avatar attachment points.
type Slot string

const (
	SlotBase   Slot = "BASE"
	SlotHat    Slot = "HAT"
	SlotShirt  Slot = "SHIRT"
	SlotBottom Slot = "BOTTOM"
)

var ErrUnknownSlot = errors.New("unknown slot")

// Slots lists every slot in declaration order (not paint order).
func Slots() []Slot {
	return []Slot{SlotBase, SlotHat, SlotShirt, SlotBottom}
}

func ParseSlot(s string) (Slot, error) {
	switch Slot(strings.ToUpper(strings.TrimSpace(s))) {
	case SlotBase:
		return SlotBase, nil
	case SlotHat:
		return SlotHat, nil
	case SlotShirt:
		return SlotShirt, nil
	case SlotBottom:
		return SlotBottom, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSlot, s)
}

// OwnerType names the entity an avatar or custom item belongs to.
type OwnerType string

const (
	OwnerRegistration OwnerType = "registration"
	OwnerOutlet       OwnerType = "outlet"
)

var ErrUnknownOwnerType = errors.New("unknown owner type")

func ParseOwnerType(s string) (OwnerType, error) {
	switch OwnerType(strings.ToLower(strings.TrimSpace(s))) {
	case OwnerRegistration:
		return OwnerRegistration, nil
	case OwnerOutlet:
		return OwnerOutlet, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOwnerType, s)
}

// Owner identifies a business registration or an outlet.
type Owner struct {
	Type OwnerType
	ID   int64
}

type Item struct {
	ID       int64
	Name     string
	Type     Slot
	Filepath string
	MimeType string
	Approved bool
	// Placement adjustments set on merchant-uploaded artwork.
	Scale   *float64
	XOffset *int
	YOffset *int
	// Owner is nil for shared catalog items.
	Owner     *Owner
	CreatedAt time.Time
}

// HasOverride reports whether any placement adjustment is set.
func (i *Item) HasOverride() bool {
	return i.Scale != nil || i.XOffset != nil || i.YOffset != nil
}

type Avatar struct {
	ID        int64
	Owner     Owner
	Slots     Customization
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SlotIDs is the id-only payload used to create or partially update an
// avatar. A nil field means "leave unchanged" on update and "empty" on create.
type SlotIDs struct {
	Base   *int64
	Hat    *int64
	Shirt  *int64
	Bottom *int64
}

// Get returns the id pointer stored for slot.
func (s SlotIDs) Get(slot Slot) *int64 {
	switch slot {
	case SlotBase:
		return s.Base
	case SlotHat:
		return s.Hat
	case SlotShirt:
		return s.Shirt
	case SlotBottom:
		return s.Bottom
	}
	return nil
}

// Set stores id for slot. Unknown slots are ignored.
func (s *SlotIDs) Set(slot Slot, id *int64) {
	switch slot {
	case SlotBase:
		s.Base = id
	case SlotHat:
		s.Hat = id
	case SlotShirt:
		s.Shirt = id
	case SlotBottom:
		s.Bottom = id
	}
}

// AvatarRecord is an avatar as persisted: slot item ids only.
type AvatarRecord struct {
	ID        int64
	Owner     Owner
	Slots     SlotIDs
	CreatedAt time.Time
	UpdatedAt time.Time
}
