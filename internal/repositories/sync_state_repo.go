package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ttakada/mistakesync/internal/models"
)

var ErrNotFound = errors.New("not found")

type PostgresSyncStateRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresSyncStateRepository(pool *pgxpool.Pool) *PostgresSyncStateRepository {
	return &PostgresSyncStateRepository{pool: pool}
}

func (r *PostgresSyncStateRepository) GetOrCreate(ctx context.Context, calendarID string) (*models.SyncState, error) {
	insert := `INSERT INTO calendar_sync_states (calendar_id, sync_token, last_synced_at)
	           VALUES ($1, NULL, NULL)
	           ON CONFLICT (calendar_id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, insert, calendarID); err != nil {
		return nil, fmt.Errorf("failed to ensure sync state: %w", err)
	}

	query := `SELECT calendar_id, sync_token, last_synced_at
	          FROM calendar_sync_states
	          WHERE calendar_id = $1`

	var state models.SyncState
	var token *string
	err := r.pool.QueryRow(ctx, query, calendarID).Scan(
		&state.CalendarID,
		&token,
		&state.LastSyncedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}
	if token != nil {
		state.SyncToken = *token
	}
	return &state, nil
}

// Save is the single writer for the cursor. One UPDATE keeps the write
// atomic: a concurrent reader sees either the old or the new row, never a
// half-written one.
func (r *PostgresSyncStateRepository) Save(ctx context.Context, state *models.SyncState) error {
	query := `UPDATE calendar_sync_states
	          SET sync_token = NULLIF($2, ''),
	              last_synced_at = $3,
	              updated_at = NOW()
	          WHERE calendar_id = $1`

	result, err := r.pool.Exec(ctx, query, state.CalendarID, state.SyncToken, state.LastSyncedAt)
	if err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresSyncStateRepository) Reset(ctx context.Context, calendarID string) error {
	query := `UPDATE calendar_sync_states
	          SET sync_token = NULL,
	              updated_at = NOW()
	          WHERE calendar_id = $1`

	result, err := r.pool.Exec(ctx, query, calendarID)
	if err != nil {
		return fmt.Errorf("failed to reset sync state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
