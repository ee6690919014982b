package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttakada/mistakesync/internal/models"
)

// getTestPool connects to the database named by TEST_DATABASE_URL. Tests
// are skipped when it is unset so the suite runs without infrastructure.
func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(pool.Close)
	return pool
}

func testCalendarID() string {
	return "test-" + uuid.NewString() + "@example.com"
}

func TestSyncStateRepository_GetOrCreate(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresSyncStateRepository(pool)
	ctx := context.Background()
	calendarID := testCalendarID()
	defer pool.Exec(ctx, `DELETE FROM calendar_sync_states WHERE calendar_id = $1`, calendarID)

	// First call creates an empty row.
	state, err := repo.GetOrCreate(ctx, calendarID)
	require.NoError(t, err)
	assert.Equal(t, calendarID, state.CalendarID)
	assert.Empty(t, state.SyncToken)
	assert.Nil(t, state.LastSyncedAt)

	// Second call returns the same row, not a duplicate.
	again, err := repo.GetOrCreate(ctx, calendarID)
	require.NoError(t, err)
	assert.Equal(t, state.CalendarID, again.CalendarID)

	var count int
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM calendar_sync_states WHERE calendar_id = $1`, calendarID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "at most one row per calendar identity")
}

func TestSyncStateRepository_SaveAndReset(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresSyncStateRepository(pool)
	ctx := context.Background()
	calendarID := testCalendarID()
	defer pool.Exec(ctx, `DELETE FROM calendar_sync_states WHERE calendar_id = $1`, calendarID)

	state, err := repo.GetOrCreate(ctx, calendarID)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	state.SyncToken = "CPDAlvWDx70CEPDAlvWDx70CGAU="
	state.LastSyncedAt = &now
	require.NoError(t, repo.Save(ctx, state))

	loaded, err := repo.GetOrCreate(ctx, calendarID)
	require.NoError(t, err)
	assert.Equal(t, state.SyncToken, loaded.SyncToken)
	require.NotNil(t, loaded.LastSyncedAt)
	assert.WithinDuration(t, now, *loaded.LastSyncedAt, time.Second)

	require.NoError(t, repo.Reset(ctx, calendarID))

	cleared, err := repo.GetOrCreate(ctx, calendarID)
	require.NoError(t, err)
	assert.Empty(t, cleared.SyncToken, "reset must clear the token")
}

func TestSyncStateRepository_SaveEmptyTokenStoresNull(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresSyncStateRepository(pool)
	ctx := context.Background()
	calendarID := testCalendarID()
	defer pool.Exec(ctx, `DELETE FROM calendar_sync_states WHERE calendar_id = $1`, calendarID)

	state, err := repo.GetOrCreate(ctx, calendarID)
	require.NoError(t, err)
	state.SyncToken = ""
	require.NoError(t, repo.Save(ctx, state))

	var token *string
	err = pool.QueryRow(ctx, `SELECT sync_token FROM calendar_sync_states WHERE calendar_id = $1`, calendarID).Scan(&token)
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestSyncStateRepository_SaveUnknownCalendar(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresSyncStateRepository(pool)

	err := repo.Save(context.Background(), &models.SyncState{CalendarID: testCalendarID()})
	assert.ErrorIs(t, err, ErrNotFound)
}
