package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ttakada/mistakesync/internal/gcal"
	"github.com/ttakada/mistakesync/internal/repositories"
)

const DefaultLookbackDays = 365

// Calendar is the slice of the calendar client the engine needs. With a
// sync token the call is incremental; otherwise timeMin opens the
// bootstrap window.
type Calendar interface {
	ListChanges(ctx context.Context, syncToken string, timeMin time.Time) (*gcal.ChangeSet, error)
}

type Options struct {
	// Reset discards the stored cursor before the pass, forcing bootstrap.
	Reset bool
	// LookbackDays overrides the bootstrap window; 0 uses the engine default.
	LookbackDays int
}

type Result struct {
	Mode    string
	Deleted int
}

// Engine runs one reconciliation pass: pull remote changes, apply observed
// deletions to local records, persist the new cursor. Sync is
// one-directional: remote-delete to local-delete only. The engine never
// creates or edits local content from remote changes.
type Engine struct {
	calendar     Calendar
	states       repositories.SyncStateRepository
	mistakes     repositories.MistakeRepository
	calendarID   string
	lookbackDays int
	now          func() time.Time
	logger       *slog.Logger
}

func NewEngine(
	calendar Calendar,
	states repositories.SyncStateRepository,
	mistakes repositories.MistakeRepository,
	calendarID string,
	lookbackDays int,
) *Engine {
	if lookbackDays < 1 {
		lookbackDays = DefaultLookbackDays
	}
	return &Engine{
		calendar:     calendar,
		states:       states,
		mistakes:     mistakes,
		calendarID:   calendarID,
		lookbackDays: lookbackDays,
		now:          time.Now,
		logger:       slog.Default().With("calendar_id", calendarID),
	}
}

// Run executes a single pass. Callers must hold the per-calendar lease;
// the engine itself is a plain sequential pipeline.
//
// The cursor is written last so a crash mid-pass leaves the previous one
// intact. Reprocessing a page after such a crash is safe because the
// delete path is idempotent.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	state, err := e.states.GetOrCreate(ctx, e.calendarID)
	if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}

	if opts.Reset && state.HasToken() {
		state.SyncToken = ""
		if err := e.states.Save(ctx, state); err != nil {
			return nil, fmt.Errorf("reset sync state: %w", err)
		}
		e.logger.Info("sync token discarded, next pull bootstraps")
	}

	lookbackDays := opts.LookbackDays
	if lookbackDays < 1 {
		lookbackDays = e.lookbackDays
	}

	var timeMin time.Time
	mode := "incremental"
	if !state.HasToken() {
		timeMin = e.now().AddDate(0, 0, -lookbackDays)
		mode = fmt.Sprintf("bootstrap(%dd)", lookbackDays)
	}

	e.logger.Info("pulling calendar changes", "mode", mode)

	changes, err := e.calendar.ListChanges(ctx, state.SyncToken, timeMin)
	if errors.Is(err, gcal.ErrCursorExpired) {
		// Defined recovery path, not a failure: drop the cursor and let
		// the next scheduled run bootstrap.
		state.SyncToken = ""
		if saveErr := e.states.Save(ctx, state); saveErr != nil {
			return nil, fmt.Errorf("clear expired sync token: %w", saveErr)
		}
		e.logger.Warn("sync token expired (410 Gone), cleared for next bootstrap")
		return &Result{Mode: mode}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list calendar changes: %w", err)
	}

	deleted := 0
	for _, event := range changes.Events {
		// Deletions arrive as cancelled tombstones; everything else is
		// out of scope for this direction of sync.
		if event.Status != gcal.StatusCancelled {
			continue
		}
		if event.ID == "" {
			continue
		}

		mistake, err := e.mistakes.GetByEventID(ctx, event.ID)
		if errors.Is(err, repositories.ErrNotFound) {
			// Cancelled event this system never mirrored. Expected.
			e.logger.Debug("cancelled event has no matching mistake", "event_id", event.ID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup mistake for event %s: %w", event.ID, err)
		}

		if err := e.mistakes.DeleteWithTags(ctx, mistake.ID); err != nil {
			return nil, fmt.Errorf("delete mistake %d: %w", mistake.ID, err)
		}
		deleted++
		e.logger.Info("deleted mistake after remote deletion",
			"mistake_id", mistake.ID, "event_id", event.ID)
	}

	if changes.NextSyncToken != "" {
		state.SyncToken = changes.NextSyncToken
		now := e.now()
		state.LastSyncedAt = &now
		if err := e.states.Save(ctx, state); err != nil {
			return nil, fmt.Errorf("save sync state: %w", err)
		}
	}

	e.logger.Info("reconciliation pass complete", "mode", mode, "deleted", deleted)
	return &Result{Mode: mode, Deleted: deleted}, nil
}
