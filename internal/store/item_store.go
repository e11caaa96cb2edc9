package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vbonduro/wardrobe/internal/domain"
)

var ErrNotFound = errors.New("not found")

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

// NewItem holds the columns supplied when an item is created.
type NewItem struct {
	Name     string
	Type     domain.Slot
	Filepath string
	MimeType string
	Approved bool
	Scale    *float64
	XOffset  *int
	YOffset  *int
	Owner    *domain.Owner
}

// ItemFilter narrows List. With Owner set, the owner's items and the shared
// catalog are returned; without it only the catalog is.
type ItemFilter struct {
	Slot         *domain.Slot
	Owner        *domain.Owner
	ApprovedOnly bool
}

const itemColumns = `id, name, slot, filepath, mime_type, approved, scale, x_offset, y_offset, owner_type, owner_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var (
		item      domain.Item
		slot      string
		scale     sql.NullFloat64
		xOff      sql.NullInt64
		yOff      sql.NullInt64
		ownerType sql.NullString
		ownerID   sql.NullInt64
	)
	if err := row.Scan(&item.ID, &item.Name, &slot, &item.Filepath, &item.MimeType, &item.Approved,
		&scale, &xOff, &yOff, &ownerType, &ownerID, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.Type = domain.Slot(slot)
	if scale.Valid {
		item.Scale = &scale.Float64
	}
	if xOff.Valid {
		v := int(xOff.Int64)
		item.XOffset = &v
	}
	if yOff.Valid {
		v := int(yOff.Int64)
		item.YOffset = &v
	}
	if ownerType.Valid && ownerID.Valid {
		item.Owner = &domain.Owner{Type: domain.OwnerType(ownerType.String), ID: ownerID.Int64}
	}
	return &item, nil
}

func ownerArgs(o *domain.Owner) (any, any) {
	if o == nil {
		return nil, nil
	}
	return string(o.Type), o.ID
}

func (s *ItemStore) Create(ctx context.Context, n NewItem) (*domain.Item, error) {
	ownerType, ownerID := ownerArgs(n.Owner)
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO items (name, slot, filepath, mime_type, approved, scale, x_offset, y_offset, owner_type, owner_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.Name, string(n.Type), n.Filepath, n.MimeType, n.Approved, n.Scale, n.XOffset, n.YOffset, ownerType, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID returns nil, nil when no item has id.
func (s *ItemStore) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (s *ItemStore) List(ctx context.Context, f ItemFilter) ([]*domain.Item, error) {
	var (
		where []string
		args  []any
	)
	if f.Slot != nil {
		where = append(where, "slot = ?")
		args = append(args, string(*f.Slot))
	}
	if f.Owner != nil {
		where = append(where, "(owner_type IS NULL OR (owner_type = ? AND owner_id = ?))")
		args = append(args, string(f.Owner.Type), f.Owner.ID)
	} else {
		where = append(where, "owner_type IS NULL")
	}
	if f.ApprovedOnly {
		where = append(where, "approved = 1")
	}

	query := `SELECT ` + itemColumns + ` FROM items WHERE ` + strings.Join(where, " AND ") + ` ORDER BY slot ASC, name ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var items []*domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

func (s *ItemStore) SetApproved(ctx context.Context, id int64, approved bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE items SET approved = ? WHERE id = ?`, approved, id)
	if err != nil {
		return fmt.Errorf("failed to update item approval: %w", err)
	}
	return expectOneRow(result, "item")
}

// UpdatePlacement replaces all three placement columns; nil clears one.
func (s *ItemStore) UpdatePlacement(ctx context.Context, id int64, scale *float64, xOffset, yOffset *int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE items SET scale = ?, x_offset = ?, y_offset = ? WHERE id = ?
	`, scale, xOffset, yOffset, id)
	if err != nil {
		return fmt.Errorf("failed to update item placement: %w", err)
	}
	return expectOneRow(result, "item")
}

func (s *ItemStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return expectOneRow(result, "item")
}

func expectOneRow(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return nil
}
