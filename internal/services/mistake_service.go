package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ttakada/mistakesync/internal/models"
	"github.com/ttakada/mistakesync/internal/repositories"
)

var ErrTitleRequired = errors.New("title is required")

// CalendarMirror is the slice of the calendar client the CRUD layer uses.
// The reconciler never goes through this path; it only reacts to remote
// deletions.
type CalendarMirror interface {
	CreateEvent(ctx context.Context, m *models.Mistake) (string, error)
	UpdateEvent(ctx context.Context, eventID string, m *models.Mistake) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

type NotesGenerator interface {
	Enabled() bool
	Generate(ctx context.Context, m *models.Mistake) (string, error)
}

type MistakeInput struct {
	Title        string     `json:"title"`
	HappenedAt   *time.Time `json:"happened_at"`
	Situation    string     `json:"situation"`
	Cause        string     `json:"cause"`
	MySolution   string     `json:"my_solution"`
	ReminderDate *time.Time `json:"reminder_date"`
	TagIDs       []int64    `json:"tag_ids"`
}

// SaveOutcome reports a save plus any non-fatal follow-up failures. The
// local row is always persisted: SyncWarning is set when the calendar
// mirror failed, TagWarning when attaching tag links failed. Local data
// is never lost because of either.
type SaveOutcome struct {
	Mistake     *models.Mistake
	Tags        []*models.Tag
	SyncWarning string
	TagWarning  string
}

type MistakeService struct {
	mistakes repositories.MistakeRepository
	tags     repositories.TagRepository
	calendar CalendarMirror
	notes    NotesGenerator
	logger   *slog.Logger
}

func NewMistakeService(
	mistakes repositories.MistakeRepository,
	tags repositories.TagRepository,
	calendar CalendarMirror,
	notes NotesGenerator,
) *MistakeService {
	return &MistakeService{
		mistakes: mistakes,
		tags:     tags,
		calendar: calendar,
		notes:    notes,
		logger:   slog.Default(),
	}
}

func (s *MistakeService) Create(ctx context.Context, input MistakeInput) (*SaveOutcome, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}

	mistake := &models.Mistake{
		Title:        input.Title,
		HappenedAt:   input.HappenedAt,
		Situation:    input.Situation,
		Cause:        input.Cause,
		MySolution:   input.MySolution,
		ReminderDate: input.ReminderDate,
	}

	// AI notes are best-effort; a generation failure never blocks the save.
	if s.notes != nil && s.notes.Enabled() {
		notes, err := s.notes.Generate(ctx, mistake)
		if err != nil {
			s.logger.Warn("ai notes generation failed", "err", err)
		} else {
			mistake.AiNotes = notes
		}
	}

	if err := s.mistakes.Create(ctx, mistake); err != nil {
		return nil, fmt.Errorf("failed to create mistake: %w", err)
	}

	outcome := &SaveOutcome{Mistake: mistake}
	s.attachTags(ctx, mistake.ID, input.TagIDs, outcome)
	s.mirror(ctx, mistake, outcome)

	tags, err := s.tags.GetForMistake(ctx, mistake.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	outcome.Tags = tags
	return outcome, nil
}

func (s *MistakeService) Update(ctx context.Context, id int64, input MistakeInput) (*SaveOutcome, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}

	mistake, err := s.mistakes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	mistake.Title = input.Title
	mistake.HappenedAt = input.HappenedAt
	mistake.Situation = input.Situation
	mistake.Cause = input.Cause
	mistake.MySolution = input.MySolution
	mistake.ReminderDate = input.ReminderDate

	if err := s.mistakes.Update(ctx, mistake); err != nil {
		return nil, fmt.Errorf("failed to update mistake: %w", err)
	}

	outcome := &SaveOutcome{Mistake: mistake}
	s.attachTags(ctx, mistake.ID, input.TagIDs, outcome)
	s.mirror(ctx, mistake, outcome)

	tags, err := s.tags.GetForMistake(ctx, mistake.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	outcome.Tags = tags
	return outcome, nil
}

func (s *MistakeService) Get(ctx context.Context, id int64) (*models.Mistake, []*models.Tag, error) {
	mistake, err := s.mistakes.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	tags, err := s.tags.GetForMistake(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tags: %w", err)
	}
	return mistake, tags, nil
}

func (s *MistakeService) List(ctx context.Context, filter repositories.MistakeFilter) ([]*models.Mistake, error) {
	return s.mistakes.List(ctx, filter)
}

// Delete removes the local record and, best-effort, its mirrored event.
func (s *MistakeService) Delete(ctx context.Context, id int64) error {
	mistake, err := s.mistakes.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if mistake.ExternalEventID != nil {
		if err := s.calendar.DeleteEvent(ctx, *mistake.ExternalEventID); err != nil {
			s.logger.Warn("failed to delete mirrored event",
				"mistake_id", id, "event_id", *mistake.ExternalEventID, "err", err)
		}
	}

	return s.mistakes.DeleteWithTags(ctx, id)
}

// RegenerateNotes re-runs the AI suggestion for an existing entry.
func (s *MistakeService) RegenerateNotes(ctx context.Context, id int64) (string, error) {
	mistake, err := s.mistakes.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if s.notes == nil || !s.notes.Enabled() {
		return "", errors.New("ai notes are not configured")
	}

	notes, err := s.notes.Generate(ctx, mistake)
	if err != nil {
		return "", err
	}
	if err := s.mistakes.SetAiNotes(ctx, id, notes); err != nil {
		return "", err
	}
	return notes, nil
}

// attachTags links the tag set. Non-fatal like the mirror: the row is
// already saved, so a link failure is reported as a warning instead of
// failing the whole save as half-applied.
func (s *MistakeService) attachTags(ctx context.Context, id int64, tagIDs []int64, outcome *SaveOutcome) {
	if err := s.tags.Replace(ctx, id, tagIDs); err != nil {
		s.logger.Warn("failed to attach tags", "mistake_id", id, "err", err)
		outcome.TagWarning = err.Error()
	}
}

// mirror pushes the entry to the calendar. The local row is already saved;
// a mirror failure only sets SyncWarning so the caller can report it
// separately.
func (s *MistakeService) mirror(ctx context.Context, mistake *models.Mistake, outcome *SaveOutcome) {
	switch {
	case mistake.HasReminder() && mistake.ExternalEventID != nil:
		eventID, err := s.calendar.UpdateEvent(ctx, *mistake.ExternalEventID, mistake)
		if err != nil {
			s.recordWarning(outcome, mistake.ID, err)
			return
		}
		s.storeEventID(ctx, mistake, outcome, eventID)

	case mistake.HasReminder():
		eventID, err := s.calendar.CreateEvent(ctx, mistake)
		if err != nil {
			s.recordWarning(outcome, mistake.ID, err)
			return
		}
		s.storeEventID(ctx, mistake, outcome, eventID)

	case mistake.ExternalEventID != nil:
		// Reminder cleared: drop the remote event and the correlation key.
		if err := s.calendar.DeleteEvent(ctx, *mistake.ExternalEventID); err != nil {
			s.recordWarning(outcome, mistake.ID, err)
			return
		}
		if err := s.mistakes.SetEventID(ctx, mistake.ID, nil); err != nil {
			s.recordWarning(outcome, mistake.ID, err)
			return
		}
		mistake.ExternalEventID = nil
	}
}

func (s *MistakeService) storeEventID(ctx context.Context, mistake *models.Mistake, outcome *SaveOutcome, eventID string) {
	if err := s.mistakes.SetEventID(ctx, mistake.ID, &eventID); err != nil {
		s.recordWarning(outcome, mistake.ID, err)
		return
	}
	mistake.ExternalEventID = &eventID
}

func (s *MistakeService) recordWarning(outcome *SaveOutcome, id int64, err error) {
	s.logger.Warn("calendar mirror failed", "mistake_id", id, "err", err)
	outcome.SyncWarning = err.Error()
}
