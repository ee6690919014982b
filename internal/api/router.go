package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ttakada/mistakesync/internal/lock"
	"github.com/ttakada/mistakesync/internal/repositories"
	"github.com/ttakada/mistakesync/internal/services"
	"github.com/ttakada/mistakesync/internal/syncer"
)

// leaseTTL bounds how long a crashed pass can block the next one.
const leaseTTL = 10 * time.Minute

type Server struct {
	engine     *syncer.Engine
	lease      *lock.Lease
	mistakes   *services.MistakeService
	tags       repositories.TagRepository
	states     repositories.SyncStateRepository
	calendarID string
	jwtSecret  string
}

func NewServer(
	engine *syncer.Engine,
	lease *lock.Lease,
	mistakes *services.MistakeService,
	tags repositories.TagRepository,
	states repositories.SyncStateRepository,
	calendarID string,
	jwtSecret string,
) *Server {
	return &Server{
		engine:     engine,
		lease:      lease,
		mistakes:   mistakes,
		tags:       tags,
		states:     states,
		calendarID: calendarID,
		jwtSecret:  jwtSecret,
	}
}

func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(s.requireToken)

		r.Post("/sync/run", s.handleSyncRun)
		r.Post("/sync/reset", s.handleSyncReset)

		r.Route("/mistakes", func(r chi.Router) {
			r.Post("/", s.handleCreateMistake)
			r.Get("/", s.handleListMistakes)
			r.Get("/{id}", s.handleGetMistake)
			r.Put("/{id}", s.handleUpdateMistake)
			r.Delete("/{id}", s.handleDeleteMistake)
			r.Post("/{id}/ai-notes", s.handleRegenerateNotes)
		})

		r.Get("/tags", s.handleListTags)
	})

	return router
}
