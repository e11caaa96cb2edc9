package web

import (
	"fmt"
	"time"

	"github.com/vbonduro/wardrobe/internal/avatar"
	"github.com/vbonduro/wardrobe/internal/domain"
	"github.com/vbonduro/wardrobe/internal/review"
)

type ownerJSON struct {
	Type domain.OwnerType `json:"type"`
	ID   int64            `json:"id"`
}

type itemResponse struct {
	ID         int64            `json:"id"`
	Name       string           `json:"name"`
	Slot       domain.Slot      `json:"slot"`
	MimeType   string           `json:"mime_type"`
	Approved   bool             `json:"approved"`
	Owner      *ownerJSON       `json:"owner"`
	Placement  *avatar.Override `json:"placement"`
	ArtworkURL string           `json:"artwork_url"`
	CreatedAt  time.Time        `json:"created_at"`
}

func artworkURL(id int64) string {
	return fmt.Sprintf("/items/%d/artwork", id)
}

func toItemResponse(i *domain.Item) *itemResponse {
	if i == nil {
		return nil
	}
	out := &itemResponse{
		ID:         i.ID,
		Name:       i.Name,
		Slot:       i.Type,
		MimeType:   i.MimeType,
		Approved:   i.Approved,
		Placement:  avatar.OverrideFor(i),
		ArtworkURL: artworkURL(i.ID),
		CreatedAt:  i.CreatedAt,
	}
	if i.Owner != nil {
		out.Owner = &ownerJSON{Type: i.Owner.Type, ID: i.Owner.ID}
	}
	return out
}

func toItemList(items []*domain.Item) []*itemResponse {
	out := make([]*itemResponse, 0, len(items))
	for _, i := range items {
		out = append(out, toItemResponse(i))
	}
	return out
}

// reviewResponse is null when no review ran.
type reviewResponse struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

func toReviewResponse(v *review.Verdict) *reviewResponse {
	if v == nil {
		return nil
	}
	return &reviewResponse{Approved: v.Approved, Reason: v.Reason}
}

type avatarResponse struct {
	ID        int64                         `json:"id"`
	Owner     ownerJSON                     `json:"owner"`
	Slots     map[domain.Slot]*itemResponse `json:"slots"`
	CreatedAt time.Time                     `json:"created_at"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

// toAvatarResponse lists every slot; empty slots are null.
func toAvatarResponse(a *domain.Avatar) *avatarResponse {
	out := &avatarResponse{
		ID:        a.ID,
		Owner:     ownerJSON{Type: a.Owner.Type, ID: a.Owner.ID},
		Slots:     make(map[domain.Slot]*itemResponse, len(domain.Slots())),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	for _, slot := range domain.Slots() {
		out.Slots[slot] = toItemResponse(a.Slots.Get(slot))
	}
	return out
}

type layerResponse struct {
	Slot       domain.Slot `json:"slot"`
	ItemID     int64       `json:"item_id"`
	ArtworkURL string      `json:"artwork_url"`
	Rect       avatar.Rect `json:"rect"`
}

type layersResponse struct {
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Layers []layerResponse `json:"layers"`
}

func toLayersResponse(layers []avatar.Layer, canvas avatar.Canvas) layersResponse {
	canvas = canvas.Normalize()
	out := layersResponse{Width: canvas.Width, Height: canvas.Height, Layers: make([]layerResponse, 0, len(layers))}
	for _, l := range layers {
		out.Layers = append(out.Layers, layerResponse{
			Slot:       l.Slot,
			ItemID:     l.Item.ID,
			ArtworkURL: artworkURL(l.Item.ID),
			Rect:       l.Rect,
		})
	}
	return out
}

// Request fragments shared by several handlers.

type ownerRequest struct {
	OwnerType string `json:"owner_type" validate:"required,owner_type"`
	OwnerID   int64  `json:"owner_id" validate:"required,gt=0"`
}

// owner must only be called after validation.
func (o ownerRequest) owner() domain.Owner {
	t, _ := domain.ParseOwnerType(o.OwnerType)
	return domain.Owner{Type: t, ID: o.OwnerID}
}

type slotsRequest struct {
	Base   *int64 `json:"base" validate:"omitempty,gt=0"`
	Hat    *int64 `json:"hat" validate:"omitempty,gt=0"`
	Shirt  *int64 `json:"shirt" validate:"omitempty,gt=0"`
	Bottom *int64 `json:"bottom" validate:"omitempty,gt=0"`
}

func (s slotsRequest) ids() domain.SlotIDs {
	return domain.SlotIDs{Base: s.Base, Hat: s.Hat, Shirt: s.Shirt, Bottom: s.Bottom}
}

// placementRequest carries the editor bounds; the resolver itself accepts
// any positive scale.
type placementRequest struct {
	Scale   float64 `json:"scale" validate:"gte=0.5,lte=2"`
	XOffset int     `json:"x_offset" validate:"gte=-75,lte=75"`
	YOffset int     `json:"y_offset" validate:"gte=-75,lte=75"`
}

func (p placementRequest) override() avatar.Override {
	return avatar.Override{Scale: p.Scale, XOffset: p.XOffset, YOffset: p.YOffset}
}
