package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ttakada/mistakesync/internal/models"
	"github.com/ttakada/mistakesync/internal/repositories"
	"github.com/ttakada/mistakesync/internal/services"
)

type mistakeResponse struct {
	Mistake     *models.Mistake `json:"mistake"`
	Tags        []*models.Tag   `json:"tags"`
	SyncWarning string          `json:"sync_warning,omitempty"`
	TagWarning  string          `json:"tag_warning,omitempty"`
}

func (s *Server) handleCreateMistake(w http.ResponseWriter, r *http.Request) {
	var input services.MistakeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := s.mistakes.Create(r.Context(), input)
	if errors.Is(err, services.ErrTitleRequired) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create mistake")
		return
	}

	writeJSON(w, http.StatusCreated, mistakeResponse{
		Mistake:     outcome.Mistake,
		Tags:        outcome.Tags,
		SyncWarning: outcome.SyncWarning,
		TagWarning:  outcome.TagWarning,
	})
}

func (s *Server) handleListMistakes(w http.ResponseWriter, r *http.Request) {
	filter := repositories.MistakeFilter{
		Query: r.URL.Query().Get("q"),
	}
	if tag := r.URL.Query().Get("tag"); tag != "" {
		tagID, err := strconv.ParseInt(tag, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid tag id")
			return
		}
		filter.TagID = tagID
	}

	mistakes, err := s.mistakes.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list mistakes")
		return
	}
	if mistakes == nil {
		mistakes = []*models.Mistake{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"mistakes": mistakes})
}

func (s *Server) handleGetMistake(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	mistake, tags, err := s.mistakes.Get(r.Context(), id)
	if errors.Is(err, repositories.ErrNotFound) {
		writeError(w, http.StatusNotFound, "mistake not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get mistake")
		return
	}
	writeJSON(w, http.StatusOK, mistakeResponse{Mistake: mistake, Tags: tags})
}

func (s *Server) handleUpdateMistake(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var input services.MistakeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := s.mistakes.Update(r.Context(), id, input)
	if errors.Is(err, repositories.ErrNotFound) {
		writeError(w, http.StatusNotFound, "mistake not found")
		return
	}
	if errors.Is(err, services.ErrTitleRequired) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update mistake")
		return
	}

	writeJSON(w, http.StatusOK, mistakeResponse{
		Mistake:     outcome.Mistake,
		Tags:        outcome.Tags,
		SyncWarning: outcome.SyncWarning,
		TagWarning:  outcome.TagWarning,
	})
}

func (s *Server) handleDeleteMistake(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	err := s.mistakes.Delete(r.Context(), id)
	if errors.Is(err, repositories.ErrNotFound) {
		writeError(w, http.StatusNotFound, "mistake not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete mistake")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegenerateNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	notes, err := s.mistakes.RegenerateNotes(r.Context(), id)
	if errors.Is(err, repositories.ErrNotFound) {
		writeError(w, http.StatusNotFound, "mistake not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate notes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ai_notes": notes})
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tags.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tags")
		return
	}
	if tags == nil {
		tags = []*models.Tag{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid mistake id")
		return 0, false
	}
	return id, true
}
