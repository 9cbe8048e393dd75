package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/virtustage/creditcore/internal/models"
)

// PackRepository defines the interface for credit pack lookups
type PackRepository interface {
	FindByID(ctx context.Context, id string) (*models.CreditPack, error)
}

type packRepository struct {
	db DBTX
}

// NewPackRepository creates a new PackRepository
func NewPackRepository(db DBTX) PackRepository {
	return &packRepository{db: db}
}

func (r *packRepository) FindByID(ctx context.Context, id string) (*models.CreditPack, error) {
	query := `SELECT id, name, credits, price_cents FROM credit_packs WHERE id = $1`

	var pack models.CreditPack
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&pack.ID,
		&pack.Name,
		&pack.Credits,
		&pack.PriceCents,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("credit pack %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credit pack: %w", err)
	}

	return &pack, nil
}
