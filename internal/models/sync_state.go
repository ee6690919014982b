package models

import (
	"time"
)

// SyncState is the persisted incremental-sync cursor for one calendar.
// SyncToken is opaque: stored, compared and cleared, never parsed.
// An empty token means the next pass must bootstrap from a time window.
type SyncState struct {
	CalendarID   string     `json:"calendar_id"`
	SyncToken    string     `json:"sync_token,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

func (s *SyncState) HasToken() bool {
	return s.SyncToken != ""
}
