package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ttakada/mistakesync/internal/gcal"
	"github.com/ttakada/mistakesync/internal/repositories"
	"github.com/ttakada/mistakesync/internal/syncer"
)

type syncRunRequest struct {
	Reset        bool `json:"reset"`
	LookbackDays int  `json:"lookback_days"`
}

type syncRunResponse struct {
	Mode    string `json:"mode"`
	Deleted int    `json:"deleted"`
}

// handleSyncRun triggers one reconciliation pass on demand. The same lease
// the scheduler uses keeps manual and scheduled runs from overlapping.
func (s *Server) handleSyncRun(w http.ResponseWriter, r *http.Request) {
	var req syncRunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.LookbackDays < 0 {
		writeError(w, http.StatusBadRequest, "lookback_days must not be negative")
		return
	}

	release, ok, err := s.lease.Acquire(r.Context(), s.calendarID, leaseTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to acquire sync lease")
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "a sync pass is already running")
		return
	}
	defer release()

	result, err := s.engine.Run(r.Context(), syncer.Options{
		Reset:        req.Reset,
		LookbackDays: req.LookbackDays,
	})
	if err != nil {
		slog.Error("manual sync pass failed", "calendar_id", s.calendarID, "err", err)
		status := http.StatusInternalServerError
		if errors.Is(err, gcal.ErrTransient) || errors.Is(err, gcal.ErrRateLimited) {
			status = http.StatusBadGateway
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, syncRunResponse{Mode: result.Mode, Deleted: result.Deleted})
}

// handleSyncReset clears the stored cursor without running a pass; the
// next pass bootstraps. A calendar without a state row yet resets to the
// same place, so that case is a success, not an error.
func (s *Server) handleSyncReset(w http.ResponseWriter, r *http.Request) {
	err := s.states.Reset(r.Context(), s.calendarID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to reset sync state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
