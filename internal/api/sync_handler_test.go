package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ttakada/mistakesync/internal/models"
	"github.com/ttakada/mistakesync/internal/repositories"
)

type fakeStateRepo struct {
	resetErr   error
	resetCalls int
}

func (f *fakeStateRepo) GetOrCreate(ctx context.Context, calendarID string) (*models.SyncState, error) {
	return &models.SyncState{CalendarID: calendarID}, nil
}

func (f *fakeStateRepo) Save(ctx context.Context, state *models.SyncState) error {
	return nil
}

func (f *fakeStateRepo) Reset(ctx context.Context, calendarID string) error {
	f.resetCalls++
	return f.resetErr
}

func callSyncReset(t *testing.T, states repositories.SyncStateRepository) *httptest.ResponseRecorder {
	t.Helper()
	s := &Server{states: states, calendarID: "primary@example.com"}
	req := httptest.NewRequest(http.MethodPost, "/api/sync/reset", nil)
	rec := httptest.NewRecorder()
	s.handleSyncReset(rec, req)
	return rec
}

func TestHandleSyncReset_Success(t *testing.T) {
	states := &fakeStateRepo{}
	rec := callSyncReset(t, states)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, states.resetCalls)
}

func TestHandleSyncReset_NoStateRowYetIsIdempotent(t *testing.T) {
	// Fresh deployment: no pass has run, so no row exists. Clearing an
	// already-absent token must succeed; absent is a valid token state.
	states := &fakeStateRepo{resetErr: repositories.ErrNotFound}
	rec := callSyncReset(t, states)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleSyncReset_StoreFailure(t *testing.T) {
	states := &fakeStateRepo{resetErr: errors.New("connection refused")}
	rec := callSyncReset(t, states)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
