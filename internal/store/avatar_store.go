package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vbonduro/wardrobe/internal/domain"
)

var ErrAvatarExists = errors.New("avatar already exists for owner")

type AvatarStore struct {
	db *sql.DB
}

func NewAvatarStore(db *sql.DB) *AvatarStore {
	return &AvatarStore{db: db}
}

var slotColumns = map[domain.Slot]string{
	domain.SlotBase:   "base_id",
	domain.SlotHat:    "hat_id",
	domain.SlotShirt:  "shirt_id",
	domain.SlotBottom: "bottom_id",
}

const avatarColumns = `id, owner_type, owner_id, base_id, hat_id, shirt_id, bottom_id, created_at, updated_at`

func nullID(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func scanAvatar(row rowScanner) (*domain.AvatarRecord, error) {
	var (
		rec                      domain.AvatarRecord
		ownerType                string
		base, hat, shirt, bottom sql.NullInt64
	)
	if err := row.Scan(&rec.ID, &ownerType, &rec.Owner.ID, &base, &hat, &shirt, &bottom,
		&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Owner.Type = domain.OwnerType(ownerType)
	rec.Slots = domain.SlotIDs{Base: nullID(base), Hat: nullID(hat), Shirt: nullID(shirt), Bottom: nullID(bottom)}
	return &rec, nil
}

func (s *AvatarStore) Create(ctx context.Context, owner domain.Owner, ids domain.SlotIDs) (*domain.AvatarRecord, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO avatars (owner_type, owner_id, base_id, hat_id, shirt_id, bottom_id) VALUES (?, ?, ?, ?, ?, ?)
	`, string(owner.Type), owner.ID, ids.Base, ids.Hat, ids.Shirt, ids.Bottom)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: %s %d", ErrAvatarExists, owner.Type, owner.ID)
		}
		return nil, fmt.Errorf("failed to create avatar: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID returns nil, nil when no avatar has id.
func (s *AvatarStore) GetByID(ctx context.Context, id int64) (*domain.AvatarRecord, error) {
	return s.getOne(ctx, `SELECT `+avatarColumns+` FROM avatars WHERE id = ?`, id)
}

// GetByOwner returns nil, nil when owner has no avatar yet.
func (s *AvatarStore) GetByOwner(ctx context.Context, owner domain.Owner) (*domain.AvatarRecord, error) {
	return s.getOne(ctx, `SELECT `+avatarColumns+` FROM avatars WHERE owner_type = ? AND owner_id = ?`,
		string(owner.Type), owner.ID)
}

func (s *AvatarStore) getOne(ctx context.Context, query string, args ...any) (*domain.AvatarRecord, error) {
	rec, err := scanAvatar(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get avatar: %w", err)
	}
	return rec, nil
}

// UpdateSlots sets every non-nil id in set and nulls every slot in clear.
// Slots in neither are left as they are.
func (s *AvatarStore) UpdateSlots(ctx context.Context, id int64, set domain.SlotIDs, clear []domain.Slot) error {
	assignments := []string{"updated_at = datetime('now')"}
	var args []any
	for _, slot := range domain.Slots() {
		if v := set.Get(slot); v != nil {
			assignments = append(assignments, slotColumns[slot]+" = ?")
			args = append(args, *v)
		}
	}
	for _, slot := range clear {
		col, ok := slotColumns[slot]
		if !ok {
			return fmt.Errorf("%w: %q", domain.ErrUnknownSlot, slot)
		}
		assignments = append(assignments, col+" = NULL")
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		`UPDATE avatars SET `+strings.Join(assignments, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	return expectOneRow(result, "avatar")
}

func (s *AvatarStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM avatars WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete avatar: %w", err)
	}
	return expectOneRow(result, "avatar")
}
