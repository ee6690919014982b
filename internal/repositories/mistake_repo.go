package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ttakada/mistakesync/internal/models"
)

const mistakeColumns = `id, title, happened_at, situation, cause, my_solution,
	ai_notes, reminder_date, gcal_event_id, created_at, updated_at`

type PostgresMistakeRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresMistakeRepository(pool *pgxpool.Pool) *PostgresMistakeRepository {
	return &PostgresMistakeRepository{pool: pool}
}

func (r *PostgresMistakeRepository) Create(ctx context.Context, mistake *models.Mistake) error {
	query := `INSERT INTO mistakes (title, happened_at, situation, cause, my_solution, ai_notes, reminder_date, gcal_event_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		mistake.Title,
		mistake.HappenedAt,
		mistake.Situation,
		mistake.Cause,
		mistake.MySolution,
		mistake.AiNotes,
		mistake.ReminderDate,
		mistake.ExternalEventID,
	).Scan(&mistake.ID, &mistake.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create mistake: %w", err)
	}
	return nil
}

func (r *PostgresMistakeRepository) GetByID(ctx context.Context, id int64) (*models.Mistake, error) {
	query := `SELECT ` + mistakeColumns + ` FROM mistakes WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresMistakeRepository) GetByEventID(ctx context.Context, eventID string) (*models.Mistake, error) {
	query := `SELECT ` + mistakeColumns + ` FROM mistakes WHERE gcal_event_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, eventID))
}

func (r *PostgresMistakeRepository) List(ctx context.Context, filter MistakeFilter) ([]*models.Mistake, error) {
	query := `SELECT ` + mistakeColumns + ` FROM mistakes m`
	args := []any{}

	if filter.TagID != 0 {
		args = append(args, filter.TagID)
		query = `SELECT ` + mistakeColumns + ` FROM mistakes m
		         JOIN mistake_tags mt ON mt.mistake_id = m.id AND mt.tag_id = $1`
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		query += fmt.Sprintf(` WHERE (m.title ILIKE $%d OR m.situation ILIKE $%d)`, len(args), len(args))
	}
	query += ` ORDER BY m.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mistakes: %w", err)
	}
	defer rows.Close()

	var mistakes []*models.Mistake
	for rows.Next() {
		var m models.Mistake
		if err := scanMistake(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan mistake: %w", err)
		}
		mistakes = append(mistakes, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mistakes: %w", err)
	}
	return mistakes, nil
}

func (r *PostgresMistakeRepository) Update(ctx context.Context, mistake *models.Mistake) error {
	query := `UPDATE mistakes
	          SET title = $1,
	              happened_at = $2,
	              situation = $3,
	              cause = $4,
	              my_solution = $5,
	              ai_notes = $6,
	              reminder_date = $7,
	              updated_at = NOW()
	          WHERE id = $8
	          RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		mistake.Title,
		mistake.HappenedAt,
		mistake.Situation,
		mistake.Cause,
		mistake.MySolution,
		mistake.AiNotes,
		mistake.ReminderDate,
		mistake.ID,
	).Scan(&mistake.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update mistake: %w", err)
	}
	return nil
}

func (r *PostgresMistakeRepository) SetEventID(ctx context.Context, id int64, eventID *string) error {
	query := `UPDATE mistakes SET gcal_event_id = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, eventID, id)
	if err != nil {
		return fmt.Errorf("failed to set event id: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresMistakeRepository) SetAiNotes(ctx context.Context, id int64, notes string) error {
	query := `UPDATE mistakes SET ai_notes = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, notes, id)
	if err != nil {
		return fmt.Errorf("failed to set ai notes: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWithTags removes the tag links and the row in one transaction so
// other readers never observe a partially deleted record. If the detach
// step fails the whole transaction is retried without it; the FK cascade
// on mistake_tags is the safety net then.
func (r *PostgresMistakeRepository) DeleteWithTags(ctx context.Context, id int64) error {
	err := r.deleteInTx(ctx, id, true)
	if err != nil {
		slog.Warn("tag detach failed, retrying delete relying on cascade", "mistake_id", id, "err", err)
		return r.deleteInTx(ctx, id, false)
	}
	return nil
}

func (r *PostgresMistakeRepository) deleteInTx(ctx context.Context, id int64, detach bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin delete tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if detach {
		if _, err := tx.Exec(ctx, `DELETE FROM mistake_tags WHERE mistake_id = $1`, id); err != nil {
			return fmt.Errorf("failed to detach tags: %w", err)
		}
	}

	// Zero rows deleted is fine: the record may already be gone and the
	// delete path has to stay idempotent.
	if _, err := tx.Exec(ctx, `DELETE FROM mistakes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete mistake: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit delete tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresMistakeRepository) scanOne(row pgx.Row) (*models.Mistake, error) {
	var m models.Mistake
	err := scanMistake(row, &m)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mistake: %w", err)
	}
	return &m, nil
}

func scanMistake(row rowScanner, m *models.Mistake) error {
	return row.Scan(
		&m.ID,
		&m.Title,
		&m.HappenedAt,
		&m.Situation,
		&m.Cause,
		&m.MySolution,
		&m.AiNotes,
		&m.ReminderDate,
		&m.ExternalEventID,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
}
