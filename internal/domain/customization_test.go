package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlot(t *testing.T) {
	tests := []struct {
		in      string
		want    Slot
		wantErr bool
	}{
		{in: "BASE", want: SlotBase},
		{in: "hat", want: SlotHat},
		{in: " Shirt ", want: SlotShirt},
		{in: "bottom", want: SlotBottom},
		{in: "shoes", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSlot(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownSlot)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOwnerType(t *testing.T) {
	got, err := ParseOwnerType("Outlet")
	require.NoError(t, err)
	assert.Equal(t, OwnerOutlet, got)

	_, err = ParseOwnerType("franchise")
	assert.ErrorIs(t, err, ErrUnknownOwnerType)
}

func TestCustomizationEquipUsesItemType(t *testing.T) {
	var c Customization
	hat := &Item{ID: 7, Type: SlotHat}

	require.NoError(t, c.Equip(hat))
	assert.Same(t, hat, c.Get(SlotHat))
	assert.Nil(t, c.Get(SlotBase))
	assert.Nil(t, c.Get(SlotShirt))
	assert.Nil(t, c.Get(SlotBottom))
}

func TestCustomizationEquipReplaces(t *testing.T) {
	var c Customization
	require.NoError(t, c.Equip(&Item{ID: 1, Type: SlotShirt}))
	require.NoError(t, c.Equip(&Item{ID: 2, Type: SlotShirt}))

	assert.Equal(t, int64(2), c.Get(SlotShirt).ID)
}

func TestCustomizationEquipRejectsBadItems(t *testing.T) {
	var c Customization
	assert.ErrorIs(t, c.Equip(nil), ErrNilItem)
	assert.ErrorIs(t, c.Equip(&Item{ID: 1, Type: "SHOES"}), ErrUnknownSlot)
	assert.True(t, c.IsEmpty())
}

func TestCustomizationUnequip(t *testing.T) {
	c, err := NewCustomization(&Item{ID: 1, Type: SlotBase}, &Item{ID: 2, Type: SlotBottom})
	require.NoError(t, err)

	removed := c.Unequip(SlotBottom)
	require.NotNil(t, removed)
	assert.Equal(t, int64(2), removed.ID)
	assert.Nil(t, c.Get(SlotBottom))
	assert.Nil(t, c.Unequip(SlotBottom))
	assert.Nil(t, c.Unequip("SHOES"))
}

func TestNewCustomizationRejectsDuplicateSlot(t *testing.T) {
	_, err := NewCustomization(&Item{ID: 1, Type: SlotHat}, nil, &Item{ID: 2, Type: SlotHat})
	assert.Error(t, err)
}

func TestCustomizationIDs(t *testing.T) {
	c, err := NewCustomization(&Item{ID: 10, Type: SlotBase}, &Item{ID: 30, Type: SlotShirt})
	require.NoError(t, err)

	ids := c.IDs()
	require.NotNil(t, ids.Base)
	require.NotNil(t, ids.Shirt)
	assert.Equal(t, int64(10), *ids.Base)
	assert.Equal(t, int64(30), *ids.Shirt)
	assert.Nil(t, ids.Hat)
	assert.Nil(t, ids.Bottom)
}

func TestItemHasOverride(t *testing.T) {
	scale := 1.5
	assert.False(t, (&Item{}).HasOverride())
	assert.True(t, (&Item{Scale: &scale}).HasOverride())

	zero := 0
	assert.True(t, (&Item{YOffset: &zero}).HasOverride())
}
