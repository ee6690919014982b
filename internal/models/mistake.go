package models

import (
	"time"
)

// Mistake is a journal entry the user wants to learn from. The reconciler
// only ever reads ExternalEventID and deletes rows; content fields are
// owned by the CRUD layer.
type Mistake struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	HappenedAt      *time.Time `json:"happened_at,omitempty"`
	Situation       string     `json:"situation"`
	Cause           string     `json:"cause"`
	MySolution      string     `json:"my_solution"`
	AiNotes         string     `json:"ai_notes"`
	ReminderDate    *time.Time `json:"reminder_date,omitempty"`
	ExternalEventID *string    `json:"gcal_event_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// HasReminder reports whether the entry should be mirrored to the calendar.
func (m *Mistake) HasReminder() bool {
	return m.ReminderDate != nil && !m.ReminderDate.IsZero()
}
