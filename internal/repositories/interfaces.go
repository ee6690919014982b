package repositories

import (
	"context"

	"github.com/ttakada/mistakesync/internal/models"
)

type SyncStateRepository interface {
	// GetOrCreate returns the state row for calendarID, inserting an empty
	// row first if none exists ("first or create" semantics).
	GetOrCreate(ctx context.Context, calendarID string) (*models.SyncState, error)
	// Save overwrites token and timestamp in one statement.
	Save(ctx context.Context, state *models.SyncState) error
	// Reset clears the stored token so the next pass bootstraps.
	Reset(ctx context.Context, calendarID string) error
}

// MistakeFilter narrows List results. Zero values mean "no filter".
type MistakeFilter struct {
	TagID int64
	Query string
}

type MistakeRepository interface {
	Create(ctx context.Context, mistake *models.Mistake) error
	GetByID(ctx context.Context, id int64) (*models.Mistake, error)
	GetByEventID(ctx context.Context, eventID string) (*models.Mistake, error)
	List(ctx context.Context, filter MistakeFilter) ([]*models.Mistake, error)
	Update(ctx context.Context, mistake *models.Mistake) error
	SetEventID(ctx context.Context, id int64, eventID *string) error
	SetAiNotes(ctx context.Context, id int64, notes string) error
	// DeleteWithTags detaches tag links and removes the row in one
	// transaction. Deleting a row that is already gone is a no-op.
	DeleteWithTags(ctx context.Context, id int64) error
}

type TagRepository interface {
	List(ctx context.Context) ([]*models.Tag, error)
	GetForMistake(ctx context.Context, mistakeID int64) ([]*models.Tag, error)
	Replace(ctx context.Context, mistakeID int64, tagIDs []int64) error
}
