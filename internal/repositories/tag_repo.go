package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ttakada/mistakesync/internal/models"
)

type PostgresTagRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTagRepository(pool *pgxpool.Pool) *PostgresTagRepository {
	return &PostgresTagRepository{pool: pool}
}

func (r *PostgresTagRepository) List(ctx context.Context) ([]*models.Tag, error) {
	query := `SELECT id, name FROM tags ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []*models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, &tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}

func (r *PostgresTagRepository) GetForMistake(ctx context.Context, mistakeID int64) ([]*models.Tag, error) {
	query := `SELECT t.id, t.name FROM tags t
	          JOIN mistake_tags mt ON mt.tag_id = t.id
	          WHERE mt.mistake_id = $1
	          ORDER BY t.name ASC`

	rows, err := r.pool.Query(ctx, query, mistakeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mistake tags: %w", err)
	}
	defer rows.Close()

	var tags []*models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, &tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}

// Replace swaps the full tag set for a mistake in one transaction.
func (r *PostgresTagRepository) Replace(ctx context.Context, mistakeID int64, tagIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tag tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM mistake_tags WHERE mistake_id = $1`, mistakeID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}

	for _, tagID := range tagIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO mistake_tags (mistake_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			mistakeID, tagID)
		if err != nil {
			return fmt.Errorf("failed to attach tag %d: %w", tagID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tag tx: %w", err)
	}
	return nil
}
