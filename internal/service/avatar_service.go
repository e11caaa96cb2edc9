package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/vbonduro/wardrobe/internal/artstore"
	"github.com/vbonduro/wardrobe/internal/avatar"
	"github.com/vbonduro/wardrobe/internal/domain"
	"github.com/vbonduro/wardrobe/internal/metrics"
	"github.com/vbonduro/wardrobe/internal/render"
	"github.com/vbonduro/wardrobe/internal/review"
	"github.com/vbonduro/wardrobe/internal/store"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid request")
	ErrConflict = errors.New("conflict")
)

// itemRepository is the subset of store.ItemStore that AvatarService requires.
type itemRepository interface {
	Create(ctx context.Context, n store.NewItem) (*domain.Item, error)
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
	List(ctx context.Context, f store.ItemFilter) ([]*domain.Item, error)
	SetApproved(ctx context.Context, id int64, approved bool) error
	UpdatePlacement(ctx context.Context, id int64, scale *float64, xOffset, yOffset *int) error
	Delete(ctx context.Context, id int64) error
}

// avatarRepository is the subset of store.AvatarStore that AvatarService requires.
type avatarRepository interface {
	Create(ctx context.Context, owner domain.Owner, ids domain.SlotIDs) (*domain.AvatarRecord, error)
	GetByID(ctx context.Context, id int64) (*domain.AvatarRecord, error)
	GetByOwner(ctx context.Context, owner domain.Owner) (*domain.AvatarRecord, error)
	UpdateSlots(ctx context.Context, id int64, set domain.SlotIDs, clear []domain.Slot) error
	Delete(ctx context.Context, id int64) error
}

type rasterizer interface {
	Render(ctx context.Context, layers []avatar.Layer, canvas avatar.Canvas) (*image.NRGBA, error)
	Forget(key string)
}

type AvatarService struct {
	itemStore   itemRepository
	avatarStore avatarRepository
	reviewer    review.Reviewer
	artStg      artstore.ArtworkStore
	renderer    rasterizer
	logger      *slog.Logger
}

// NewAvatarService wires the service. reviewer may be nil, in which case
// every custom item waits for manual approval.
func NewAvatarService(
	itemStore itemRepository,
	avatarStore avatarRepository,
	reviewer review.Reviewer,
	artStg artstore.ArtworkStore,
	renderer rasterizer,
	logger *slog.Logger,
) *AvatarService {
	return &AvatarService{
		itemStore:   itemStore,
		avatarStore: avatarStore,
		reviewer:    reviewer,
		artStg:      artStg,
		renderer:    renderer,
		logger:      logger,
	}
}

// ItemQuery selects items visible to an owner.
type ItemQuery struct {
	Owner        *domain.Owner
	Slot         *domain.Slot
	ApprovedOnly bool
}

func (s *AvatarService) ListItems(ctx context.Context, q ItemQuery) ([]*domain.Item, error) {
	return s.itemStore.List(ctx, store.ItemFilter{Slot: q.Slot, Owner: q.Owner, ApprovedOnly: q.ApprovedOnly})
}

func (s *AvatarService) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	item, err := s.itemStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %d %w", id, ErrNotFound)
	}
	return item, nil
}

// CustomItem is a merchant upload.
type CustomItem struct {
	Name      string
	Type      domain.Slot
	Owner     domain.Owner
	Image     []byte
	MimeType  string
	Placement *avatar.Override
}

// CreateCustomItem stores the artwork, asks the reviewer for a verdict, and
// records the item. A reviewer failure leaves the item pending rather than
// failing the upload. The returned verdict is nil when no review ran.
func (s *AvatarService) CreateCustomItem(ctx context.Context, in CustomItem) (*domain.Item, *review.Verdict, error) {
	s.logger.Info("create custom item started", "owner_type", in.Owner.Type, "owner_id", in.Owner.ID,
		"slot", in.Type, "mime_type", in.MimeType, "bytes", len(in.Image))

	if strings.TrimSpace(in.Name) == "" {
		return nil, nil, fmt.Errorf("%w: item name required", ErrInvalid)
	}
	if in.Placement != nil {
		if err := in.Placement.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}

	verdict := s.reviewArtwork(ctx, in.Image, in.MimeType, in.Type)

	storageKey, err := s.artStg.Save(ctx, "item_"+strings.ToLower(string(in.Type)), in.MimeType, bytes.NewReader(in.Image))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to save artwork: %w", err)
	}
	s.logger.Debug("artwork saved", "storage_key", storageKey)

	n := store.NewItem{
		Name:     strings.TrimSpace(in.Name),
		Type:     in.Type,
		Filepath: storageKey,
		MimeType: in.MimeType,
		Approved: verdict != nil && verdict.Approved,
		Owner:    &in.Owner,
	}
	if p := in.Placement; p != nil {
		n.Scale, n.XOffset, n.YOffset = &p.Scale, &p.XOffset, &p.YOffset
	}

	item, err := s.itemStore.Create(ctx, n)
	if err != nil {
		if stgErr := s.artStg.Delete(ctx, storageKey); stgErr != nil {
			s.logger.Error("failed to roll back artwork after item create error", "storage_key", storageKey, "error", stgErr)
		}
		return nil, nil, fmt.Errorf("failed to create item: %w", err)
	}

	s.logger.Info("create custom item complete", "item_id", item.ID, "approved", item.Approved)
	return item, verdict, nil
}

func (s *AvatarService) reviewArtwork(ctx context.Context, data []byte, mimeType string, slot domain.Slot) *review.Verdict {
	if s.reviewer == nil || mimeType == "image/x-tga" {
		metrics.ReviewsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	s.logger.Info("artwork review started", "mime_type", mimeType, "slot", slot)
	v, err := s.reviewer.Review(ctx, bytes.NewReader(data), mimeType, slot)
	if err != nil {
		metrics.ReviewsTotal.WithLabelValues("error").Inc()
		s.logger.Error("artwork review failed, leaving item pending", "error", err)
		return nil
	}

	result := "rejected"
	if v.Approved {
		result = "approved"
	}
	metrics.ReviewsTotal.WithLabelValues(result).Inc()
	s.logger.Info("artwork review complete", "approved", v.Approved, "reason", v.Reason)
	return v
}

func (s *AvatarService) SetApproval(ctx context.Context, id int64, approved bool) (*domain.Item, error) {
	if err := s.itemStore.SetApproved(ctx, id, approved); err != nil {
		return nil, mapStoreErr(err)
	}
	return s.GetItem(ctx, id)
}

// UpdatePlacement replaces an item's override. A nil override clears it.
func (s *AvatarService) UpdatePlacement(ctx context.Context, id int64, o *avatar.Override) (*domain.Item, error) {
	var (
		scale      *float64
		xOff, yOff *int
	)
	if o != nil {
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		scale, xOff, yOff = &o.Scale, &o.XOffset, &o.YOffset
	}
	if err := s.itemStore.UpdatePlacement(ctx, id, scale, xOff, yOff); err != nil {
		return nil, mapStoreErr(err)
	}
	return s.GetItem(ctx, id)
}

// DeleteItem removes the item and its artwork. Avatars wearing it lose the
// slot through the foreign key.
func (s *AvatarService) DeleteItem(ctx context.Context, id int64) error {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.itemStore.Delete(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	s.renderer.Forget(item.Filepath)
	if err := s.artStg.Delete(ctx, item.Filepath); err != nil {
		s.logger.Error("failed to delete artwork file", "storage_key", item.Filepath, "error", err)
	}
	return nil
}

func (s *AvatarService) CreateAvatar(ctx context.Context, owner domain.Owner, ids domain.SlotIDs) (*domain.Avatar, error) {
	if _, err := s.resolveSlots(ctx, owner, ids); err != nil {
		return nil, err
	}
	rec, err := s.avatarStore.Create(ctx, owner, ids)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	s.logger.Info("avatar created", "avatar_id", rec.ID, "owner_type", owner.Type, "owner_id", owner.ID)
	return s.hydrate(ctx, rec)
}

func (s *AvatarService) GetAvatar(ctx context.Context, id int64) (*domain.Avatar, error) {
	rec, err := s.avatarStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("avatar %d %w", id, ErrNotFound)
	}
	return s.hydrate(ctx, rec)
}

func (s *AvatarService) GetAvatarByOwner(ctx context.Context, owner domain.Owner) (*domain.Avatar, error) {
	rec, err := s.avatarStore.GetByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("avatar for %s %d %w", owner.Type, owner.ID, ErrNotFound)
	}
	return s.hydrate(ctx, rec)
}

// AvatarUpdate sets the slots whose id is non-nil and empties those in Clear.
type AvatarUpdate struct {
	Set   domain.SlotIDs
	Clear []domain.Slot
}

func (s *AvatarService) UpdateAvatar(ctx context.Context, id int64, u AvatarUpdate) (*domain.Avatar, error) {
	rec, err := s.avatarStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("avatar %d %w", id, ErrNotFound)
	}
	for _, slot := range u.Clear {
		if u.Set.Get(slot) != nil {
			return nil, fmt.Errorf("%w: slot %s both set and cleared", ErrInvalid, slot)
		}
	}
	if _, err := s.resolveSlots(ctx, rec.Owner, u.Set); err != nil {
		return nil, err
	}
	if err := s.avatarStore.UpdateSlots(ctx, id, u.Set, u.Clear); err != nil {
		return nil, mapStoreErr(err)
	}
	return s.GetAvatar(ctx, id)
}

func (s *AvatarService) DeleteAvatar(ctx context.Context, id int64) error {
	return mapStoreErr(s.avatarStore.Delete(ctx, id))
}

// Layers returns the draw list of a saved avatar.
func (s *AvatarService) Layers(ctx context.Context, id int64, canvas avatar.Canvas) ([]avatar.Layer, error) {
	a, err := s.GetAvatar(ctx, id)
	if err != nil {
		return nil, err
	}
	return compose(a.Slots, canvas)
}

// Preview composes an unsaved selection. overrides replace the placement of
// the item in that slot, so the placement editor can show a change before it
// is saved.
func (s *AvatarService) Preview(ctx context.Context, owner domain.Owner, ids domain.SlotIDs, overrides map[domain.Slot]avatar.Override, canvas avatar.Canvas) ([]avatar.Layer, error) {
	c, err := s.resolveSlots(ctx, owner, ids)
	if err != nil {
		return nil, err
	}
	for slot, o := range overrides {
		item := c.Get(slot)
		if item == nil {
			return nil, fmt.Errorf("%w: override for empty slot %s", ErrInvalid, slot)
		}
		adjusted := *item
		adjusted.Scale, adjusted.XOffset, adjusted.YOffset = &o.Scale, &o.XOffset, &o.YOffset
		if err := c.Equip(&adjusted); err != nil {
			return nil, err
		}
	}
	return compose(c, canvas)
}

// Render rasterizes a saved avatar and encodes it in format.
func (s *AvatarService) Render(ctx context.Context, id int64, canvas avatar.Canvas, format render.Format) ([]byte, error) {
	layers, err := s.Layers(ctx, id, canvas)
	if err != nil {
		return nil, err
	}
	return s.RenderLayers(ctx, layers, canvas, format)
}

func (s *AvatarService) RenderLayers(ctx context.Context, layers []avatar.Layer, canvas avatar.Canvas, format render.Format) ([]byte, error) {
	start := time.Now()
	img, err := s.renderer.Render(ctx, layers, canvas)
	if err != nil {
		return nil, fmt.Errorf("failed to render avatar: %w", err)
	}
	var buf bytes.Buffer
	if err := render.Encode(&buf, img, format); err != nil {
		return nil, fmt.Errorf("failed to encode avatar: %w", err)
	}
	metrics.RenderDuration.WithLabelValues(string(format)).Observe(time.Since(start).Seconds())
	s.logger.Debug("avatar rendered", "layers", len(layers), "format", format, "bytes", buf.Len())
	return buf.Bytes(), nil
}

func compose(c domain.Customization, canvas avatar.Canvas) ([]avatar.Layer, error) {
	layers, err := avatar.Compose(c, canvas)
	if err != nil {
		metrics.ComposeTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	metrics.ComposeTotal.WithLabelValues("ok").Inc()
	for _, l := range layers {
		metrics.LayersComposed.WithLabelValues(string(l.Slot)).Inc()
	}
	return layers, nil
}

// resolveSlots loads every non-nil id and checks it can be worn by owner in
// that slot.
func (s *AvatarService) resolveSlots(ctx context.Context, owner domain.Owner, ids domain.SlotIDs) (domain.Customization, error) {
	var c domain.Customization
	for _, slot := range domain.Slots() {
		id := ids.Get(slot)
		if id == nil {
			continue
		}
		item, err := s.itemStore.GetByID(ctx, *id)
		if err != nil {
			return domain.Customization{}, err
		}
		if item == nil {
			return domain.Customization{}, fmt.Errorf("%w: item %d does not exist", ErrInvalid, *id)
		}
		if item.Type != slot {
			return domain.Customization{}, fmt.Errorf("%w: item %d is a %s, not a %s", ErrInvalid, item.ID, item.Type, slot)
		}
		if !item.Approved {
			return domain.Customization{}, fmt.Errorf("%w: item %d is not approved", ErrInvalid, item.ID)
		}
		if item.Owner != nil && *item.Owner != owner {
			return domain.Customization{}, fmt.Errorf("%w: item %d belongs to another owner", ErrInvalid, item.ID)
		}
		if err := c.Equip(item); err != nil {
			return domain.Customization{}, err
		}
	}
	return c, nil
}

// hydrate loads the items a record points at. An item deleted between the
// two reads leaves its slot empty.
func (s *AvatarService) hydrate(ctx context.Context, rec *domain.AvatarRecord) (*domain.Avatar, error) {
	a := &domain.Avatar{ID: rec.ID, Owner: rec.Owner, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt}
	for _, slot := range domain.Slots() {
		id := rec.Slots.Get(slot)
		if id == nil {
			continue
		}
		item, err := s.itemStore.GetByID(ctx, *id)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s item: %w", slot, err)
		}
		if item == nil {
			continue
		}
		if err := a.Slots.Equip(item); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, store.ErrAvatarExists):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
