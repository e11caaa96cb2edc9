package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"

	"github.com/vbonduro/wardrobe/internal/avatar"
	"github.com/vbonduro/wardrobe/internal/db"
	"github.com/vbonduro/wardrobe/internal/domain"
	"github.com/vbonduro/wardrobe/internal/render"
	"github.com/vbonduro/wardrobe/internal/review"
	"github.com/vbonduro/wardrobe/internal/store"
)

// stubReviewer is a minimal review.Reviewer for tests.
type stubReviewer struct {
	verdict *review.Verdict
	err     error
	calls   int
	slot    domain.Slot
}

func (s *stubReviewer) Review(_ context.Context, _ io.Reader, _ string, slot domain.Slot) (*review.Verdict, error) {
	s.calls++
	s.slot = slot
	return s.verdict, s.err
}

// memArtwork is a minimal in-memory artstore.ArtworkStore for tests.
type memArtwork struct {
	mu      sync.Mutex
	data    map[string][]byte
	mimes   map[string]string
	counter int
	saveErr error
}

func newMemArtwork() *memArtwork {
	return &memArtwork{data: make(map[string][]byte), mimes: make(map[string]string)}
}

func (m *memArtwork) Save(_ context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	key := fmt.Sprintf("%s_%d", prefix, m.counter)
	m.data[key] = data
	m.mimes[key] = mimeType
	return key, nil
}

func (m *memArtwork) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, "", errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), m.mimes[key], nil
}

func (m *memArtwork) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memArtwork) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

type fixture struct {
	svc      *AvatarService
	items    *store.ItemStore
	art      *memArtwork
	reviewer *stubReviewer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })

	art := newMemArtwork()
	renderer, err := render.NewRenderer(art, 16, slog.Default())
	require.NoError(t, err)

	reviewer := &stubReviewer{verdict: &review.Verdict{Approved: true, Reason: "ok"}}
	items := store.NewItemStore(d)
	svc := NewAvatarService(items, store.NewAvatarStore(d), reviewer, art, renderer, slog.Default())
	return &fixture{svc: svc, items: items, art: art, reviewer: reviewer}
}

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// catalog adds an approved shared item whose artwork is a solid square.
func (f *fixture) catalog(t *testing.T, name string, slot domain.Slot) *domain.Item {
	t.Helper()
	ctx := context.Background()
	key, err := f.art.Save(ctx, "catalog", "image/png", bytes.NewReader(solidPNG(t, color.NRGBA{R: 200, A: 255})))
	require.NoError(t, err)
	item, err := f.items.Create(ctx, store.NewItem{
		Name: name, Type: slot, Filepath: key, MimeType: "image/png", Approved: true,
	})
	require.NoError(t, err)
	return item
}

func ptr[T any](v T) *T { return &v }

var outlet = domain.Owner{Type: domain.OwnerOutlet, ID: 11}

func TestCreateCustomItem_Approved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, verdict, err := f.svc.CreateCustomItem(ctx, CustomItem{
		Name: " Logo Tee ", Type: domain.SlotShirt, Owner: outlet,
		Image: solidPNG(t, color.White), MimeType: "image/png",
		Placement: &avatar.Override{Scale: 1.2, XOffset: 5, YOffset: -3},
	})
	require.NoError(t, err)
	require.NotNil(t, verdict)
	assert.True(t, verdict.Approved)
	assert.Equal(t, "Logo Tee", item.Name)
	assert.True(t, item.Approved)
	require.NotNil(t, item.Owner)
	assert.Equal(t, outlet, *item.Owner)
	assert.Equal(t, 1.2, *item.Scale)
	assert.Equal(t, 5, *item.XOffset)
	assert.Equal(t, -3, *item.YOffset)
	assert.True(t, f.art.has(item.Filepath))
	assert.Equal(t, domain.SlotShirt, f.reviewer.slot)
}

func TestCreateCustomItem_RejectedStaysPending(t *testing.T) {
	f := newFixture(t)
	f.reviewer.verdict = &review.Verdict{Approved: false, Reason: "logo"}

	item, verdict, err := f.svc.CreateCustomItem(context.Background(), CustomItem{
		Name: "Cap", Type: domain.SlotHat, Owner: outlet, Image: solidPNG(t, color.White), MimeType: "image/png",
	})
	require.NoError(t, err)
	assert.False(t, verdict.Approved)
	assert.False(t, item.Approved)
	assert.False(t, item.HasOverride())
	assert.Equal(t, domain.SlotHat, f.reviewer.slot)
}

func TestCreateCustomItem_ReviewErrorStaysPending(t *testing.T) {
	f := newFixture(t)
	f.reviewer.err = errors.New("backend down")

	item, verdict, err := f.svc.CreateCustomItem(context.Background(), CustomItem{
		Name: "Cap", Type: domain.SlotHat, Owner: outlet, Image: solidPNG(t, color.White), MimeType: "image/png",
	})
	require.NoError(t, err)
	assert.Nil(t, verdict)
	assert.False(t, item.Approved)
}

func TestCreateCustomItem_TGASkipsReview(t *testing.T) {
	f := newFixture(t)

	item, verdict, err := f.svc.CreateCustomItem(context.Background(), CustomItem{
		Name: "Cap", Type: domain.SlotHat, Owner: outlet, Image: []byte{0, 0, 2}, MimeType: "image/x-tga",
	})
	require.NoError(t, err)
	assert.Nil(t, verdict)
	assert.False(t, item.Approved)
	assert.Equal(t, 0, f.reviewer.calls)
}

func TestCreateCustomItem_NoReviewer(t *testing.T) {
	f := newFixture(t)
	f.svc.reviewer = nil

	item, verdict, err := f.svc.CreateCustomItem(context.Background(), CustomItem{
		Name: "Cap", Type: domain.SlotHat, Owner: outlet, Image: solidPNG(t, color.White), MimeType: "image/png",
	})
	require.NoError(t, err)
	assert.Nil(t, verdict)
	assert.False(t, item.Approved)
}

func TestCreateCustomItem_Invalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.CreateCustomItem(ctx, CustomItem{Name: "  ", Type: domain.SlotHat, Owner: outlet})
	assert.ErrorIs(t, err, ErrInvalid)

	_, _, err = f.svc.CreateCustomItem(ctx, CustomItem{
		Name: "Cap", Type: domain.SlotHat, Owner: outlet, Placement: &avatar.Override{Scale: 0},
	})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, avatar.ErrInvalidScale)
	assert.Equal(t, 0, f.reviewer.calls)
}

func TestCreateCustomItem_SaveError(t *testing.T) {
	f := newFixture(t)
	f.art.saveErr = errors.New("disk full")

	_, _, err := f.svc.CreateCustomItem(context.Background(), CustomItem{
		Name: "Cap", Type: domain.SlotHat, Owner: outlet, Image: solidPNG(t, color.White), MimeType: "image/png",
	})
	assert.Error(t, err)
}

func TestListItems_OwnerSeesCatalogAndOwn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.catalog(t, "Body", domain.SlotBase)
	_, _, err := f.svc.CreateCustomItem(ctx, CustomItem{
		Name: "Cap", Type: domain.SlotHat, Owner: outlet, Image: solidPNG(t, color.White), MimeType: "image/png",
	})
	require.NoError(t, err)

	all, err := f.svc.ListItems(ctx, ItemQuery{Owner: &outlet})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	other := domain.Owner{Type: domain.OwnerOutlet, ID: 99}
	theirs, err := f.svc.ListItems(ctx, ItemQuery{Owner: &other})
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestSetApproval(t *testing.T) {
	f := newFixture(t)
	f.reviewer.verdict = &review.Verdict{Approved: false}
	ctx := context.Background()

	item, _, err := f.svc.CreateCustomItem(ctx, CustomItem{
		Name: "Cap", Type: domain.SlotHat, Owner: outlet, Image: solidPNG(t, color.White), MimeType: "image/png",
	})
	require.NoError(t, err)

	approved, err := f.svc.SetApproval(ctx, item.ID, true)
	require.NoError(t, err)
	assert.True(t, approved.Approved)

	_, err = f.svc.SetApproval(ctx, 99999, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePlacement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hat := f.catalog(t, "Cap", domain.SlotHat)

	item, err := f.svc.UpdatePlacement(ctx, hat.ID, &avatar.Override{Scale: 1.5, XOffset: 10, YOffset: -5})
	require.NoError(t, err)
	assert.Equal(t, 1.5, *item.Scale)

	item, err = f.svc.UpdatePlacement(ctx, hat.ID, nil)
	require.NoError(t, err)
	assert.False(t, item.HasOverride())

	_, err = f.svc.UpdatePlacement(ctx, hat.ID, &avatar.Override{Scale: -1})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.svc.UpdatePlacement(ctx, 99999, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteItem_RemovesArtworkAndUnequips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hat := f.catalog(t, "Cap", domain.SlotHat)

	a, err := f.svc.CreateAvatar(ctx, outlet, domain.SlotIDs{Hat: &hat.ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteItem(ctx, hat.ID))
	assert.False(t, f.art.has(hat.Filepath))

	_, err = f.svc.GetItem(ctx, hat.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.svc.GetAvatar(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Slots.Get(domain.SlotHat))

	assert.ErrorIs(t, f.svc.DeleteItem(ctx, hat.ID), ErrNotFound)
}

func TestCreateAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := f.catalog(t, "Body", domain.SlotBase)
	shirt := f.catalog(t, "Tee", domain.SlotShirt)

	a, err := f.svc.CreateAvatar(ctx, outlet, domain.SlotIDs{Base: &base.ID, Shirt: &shirt.ID})
	require.NoError(t, err)
	assert.NotZero(t, a.ID)
	assert.Equal(t, outlet, a.Owner)
	assert.Equal(t, base.ID, a.Slots.Get(domain.SlotBase).ID)
	assert.Equal(t, shirt.ID, a.Slots.Get(domain.SlotShirt).ID)
	assert.Nil(t, a.Slots.Get(domain.SlotHat))

	byOwner, err := f.svc.GetAvatarByOwner(ctx, outlet)
	require.NoError(t, err)
	assert.Equal(t, a.ID, byOwner.ID)

	_, err = f.svc.CreateAvatar(ctx, outlet, domain.SlotIDs{})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateAvatar_RejectsBadSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hat := f.catalog(t, "Cap", domain.SlotHat)
	f.reviewer.verdict = &review.Verdict{Approved: false}
	pending, _, err := f.svc.CreateCustomItem(ctx, CustomItem{
		Name: "Pending", Type: domain.SlotShirt, Owner: outlet, Image: solidPNG(t, color.White), MimeType: "image/png",
	})
	require.NoError(t, err)
	f.reviewer.verdict = &review.Verdict{Approved: true}
	foreign, _, err := f.svc.CreateCustomItem(ctx, CustomItem{
		Name: "Foreign", Type: domain.SlotBottom, Owner: domain.Owner{Type: domain.OwnerOutlet, ID: 12},
		Image: solidPNG(t, color.White), MimeType: "image/png",
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		ids  domain.SlotIDs
	}{
		{name: "missing item", ids: domain.SlotIDs{Hat: ptr(int64(99999))}},
		{name: "wrong slot", ids: domain.SlotIDs{Base: &hat.ID}},
		{name: "unapproved", ids: domain.SlotIDs{Shirt: &pending.ID}},
		{name: "other owner", ids: domain.SlotIDs{Bottom: &foreign.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateAvatar(ctx, outlet, tt.ids)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	_, err = f.svc.GetAvatarByOwner(ctx, outlet)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := f.catalog(t, "Body", domain.SlotBase)
	hat := f.catalog(t, "Cap", domain.SlotHat)
	bottom := f.catalog(t, "Jeans", domain.SlotBottom)

	a, err := f.svc.CreateAvatar(ctx, outlet, domain.SlotIDs{Base: &base.ID, Hat: &hat.ID})
	require.NoError(t, err)

	updated, err := f.svc.UpdateAvatar(ctx, a.ID, AvatarUpdate{
		Set:   domain.SlotIDs{Bottom: &bottom.ID},
		Clear: []domain.Slot{domain.SlotHat},
	})
	require.NoError(t, err)
	assert.Equal(t, base.ID, updated.Slots.Get(domain.SlotBase).ID)
	assert.Nil(t, updated.Slots.Get(domain.SlotHat))
	assert.Equal(t, bottom.ID, updated.Slots.Get(domain.SlotBottom).ID)

	_, err = f.svc.UpdateAvatar(ctx, a.ID, AvatarUpdate{Set: domain.SlotIDs{Hat: &bottom.ID}})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.svc.UpdateAvatar(ctx, a.ID, AvatarUpdate{
		Set: domain.SlotIDs{Hat: &hat.ID}, Clear: []domain.Slot{domain.SlotHat},
	})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.svc.UpdateAvatar(ctx, 99999, AvatarUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.CreateAvatar(ctx, outlet, domain.SlotIDs{})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAvatar(ctx, a.ID))
	_, err = f.svc.GetAvatar(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteAvatar(ctx, a.ID), ErrNotFound)
}

func TestLayers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := f.catalog(t, "Body", domain.SlotBase)
	shirt := f.catalog(t, "Tee", domain.SlotShirt)

	a, err := f.svc.CreateAvatar(ctx, outlet, domain.SlotIDs{Base: &base.ID, Shirt: &shirt.ID})
	require.NoError(t, err)

	layers, err := f.svc.Layers(ctx, a.ID, avatar.Canvas{})
	require.NoError(t, err)
	require.Len(t, layers, 2)
	assert.Equal(t, domain.SlotBase, layers[0].Slot)
	assert.Equal(t, avatar.Rect{Width: 170, Height: 170}, layers[0].Rect)
	assert.Equal(t, domain.SlotShirt, layers[1].Slot)
	assert.Equal(t, avatar.Resolve(domain.SlotShirt, avatar.Canvas{}), layers[1].Rect)

	_, err = f.svc.Layers(ctx, 99999, avatar.Canvas{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPreviewAppliesOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hat := f.catalog(t, "Cap", domain.SlotHat)

	layers, err := f.svc.Preview(ctx, outlet, domain.SlotIDs{Hat: &hat.ID},
		map[domain.Slot]avatar.Override{domain.SlotHat: {Scale: 1.5, XOffset: 10, YOffset: -5}},
		avatar.Canvas{Width: 170, Height: 170})
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, avatar.Rect{Top: -10, Left: 48, Width: 135, Height: 135}, layers[0].Rect)

	// The stored item is untouched.
	stored, err := f.svc.GetItem(ctx, hat.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasOverride())

	_, err = f.svc.Preview(ctx, outlet, domain.SlotIDs{},
		map[domain.Slot]avatar.Override{domain.SlotHat: {Scale: 1}}, avatar.Canvas{})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.svc.Preview(ctx, outlet, domain.SlotIDs{Hat: &hat.ID},
		map[domain.Slot]avatar.Override{domain.SlotHat: {Scale: 0}}, avatar.Canvas{})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestRender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := f.catalog(t, "Body", domain.SlotBase)

	a, err := f.svc.CreateAvatar(ctx, outlet, domain.SlotIDs{Base: &base.ID})
	require.NoError(t, err)

	data, err := f.svc.Render(ctx, a.ID, avatar.Canvas{Width: 80, Height: 60}, render.FormatWebP)
	require.NoError(t, err)
	img, err := webp.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 80, 60), img.Bounds())

	data, err = f.svc.Render(ctx, a.ID, avatar.Canvas{}, render.FormatPNG)
	require.NoError(t, err)
	img, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 170, 170), img.Bounds())
}
