package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/plcover/internal/models"
	"github.com/desertthunder/plcover/internal/shared"
)

// SelectionRepository persists the ordered album [models.Selection].
type SelectionRepository struct {
	db *sql.DB
}

// NewSelectionRepository creates a new [SelectionRepository] with the given database connection
func NewSelectionRepository(db *sql.DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

// Load returns the saved selection ordered by grid position.
func (r *SelectionRepository) Load(ctx context.Context) (models.Selection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT album_id, name, artist, image_url
		FROM selection
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query selection: %w", err)
	}
	defer rows.Close()

	sel := models.Selection{}
	for rows.Next() {
		var a models.Album
		if err := rows.Scan(&a.ID, &a.Name, &a.Artist, &a.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan selection row: %w", err)
		}
		sel = append(sel, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate selection rows: %w", err)
	}
	return sel, nil
}

// Save replaces the stored selection with sel in one transaction.
func (r *SelectionRepository) Save(ctx context.Context, sel models.Selection) error {
	if err := sel.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM selection"); err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}

	for i, a := range sel {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO selection (id, position, album_id, name, artist, image_url) VALUES (?, ?, ?, ?, ?, ?)
		`, shared.GenerateID(), i, a.ID, a.Name, a.Artist, a.ImageURL)
		if err != nil {
			return fmt.Errorf("failed to insert album %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit selection: %w", err)
	}
	return nil
}

// Clear removes every selected album.
func (r *SelectionRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM selection"); err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}
	return nil
}
