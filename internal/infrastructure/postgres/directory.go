package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gallery-live/internal/domain"
)

// Directory resolves notification audiences from the users and artworks tables.
type Directory struct {
	db *sqlx.DB
}

// NewDirectory creates a new Directory.
func NewDirectory(db *sqlx.DB) *Directory {
	return &Directory{db: db}
}

// UserIDsByRole returns the ids of users holding role.
func (d *Directory) UserIDsByRole(ctx context.Context, role string) ([]string, error) {
	ids := []string{}
	if err := d.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM users WHERE role = $1 ORDER BY user_id`, role); err != nil {
		return nil, fmt.Errorf("users by role %s: %w", role, err)
	}
	return ids, nil
}

// ArtworkOwner returns the owner of an artwork.
func (d *Directory) ArtworkOwner(ctx context.Context, artworkID string) (string, error) {
	var owner string
	err := d.db.GetContext(ctx, &owner,
		`SELECT owner_id FROM artworks WHERE artwork_id = $1`, artworkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("artwork %s: %w", artworkID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("find artwork owner %s: %w", artworkID, err)
	}
	return owner, nil
}

// RecordArtwork creates or replaces an artwork ownership row.
func (d *Directory) RecordArtwork(ctx context.Context, a domain.Artwork) error {
	_, err := d.db.NamedExecContext(ctx,
		`INSERT INTO artworks (artwork_id, owner_id, title)
		 VALUES (:artwork_id, :owner_id, :title)
		 ON CONFLICT (artwork_id)
		 DO UPDATE SET owner_id = EXCLUDED.owner_id, title = EXCLUDED.title`, a)
	if err != nil {
		return fmt.Errorf("record artwork %s: %w", a.ArtworkID, err)
	}
	return nil
}
