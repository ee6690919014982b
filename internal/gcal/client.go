package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ttakada/mistakesync/internal/models"
)

const (
	defaultCallTimeout = 30 * time.Second
	maxResultsPerPage  = 2500
)

// RemoteEvent is the transient view of one calendar change. It is consumed
// once per reconciliation pass and never persisted.
type RemoteEvent struct {
	ID     string
	Status string
}

const StatusCancelled = "cancelled"

// ChangeSet is the accumulated result of one ListChanges call.
// NextSyncToken is empty when the remote did not issue a new cursor.
type ChangeSet struct {
	Events        []RemoteEvent
	NextSyncToken string
}

// Client wraps the Google Calendar API for a single configured calendar.
type Client struct {
	svc           *calendar.Service
	calendarID    string
	location      *time.Location
	eventDuration time.Duration
	callTimeout   time.Duration
}

type ClientConfig struct {
	ServiceAccountJSON   string
	CalendarID           string
	Timezone             string
	EventDurationMinutes int
}

func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar timezone %q: %w", cfg.Timezone, err)
	}

	svc, err := calendar.NewService(ctx,
		option.WithCredentialsFile(cfg.ServiceAccountJSON),
		option.WithScopes(calendar.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	duration := time.Duration(cfg.EventDurationMinutes) * time.Minute
	if duration <= 0 {
		duration = 30 * time.Minute
	}

	return &Client{
		svc:           svc,
		calendarID:    cfg.CalendarID,
		location:      location,
		eventDuration: duration,
		callTimeout:   defaultCallTimeout,
	}, nil
}

// ListChanges pulls changed events for the calendar. With a sync token the
// query is incremental; otherwise it is a full window scan from timeMin.
// Deletion tombstones are requested explicitly, and all pages are walked
// before returning. The new sync token comes from the final page only.
func (c *Client) ListChanges(ctx context.Context, syncToken string, timeMin time.Time) (*ChangeSet, error) {
	changes := &ChangeSet{}
	pageToken := ""

	for {
		call := c.svc.Events.List(c.calendarID).
			ShowDeleted(true).
			MaxResults(maxResultsPerPage)

		// Aside from the cursor/window switch both modes must issue
		// identical parameters: the token is replayed under the same
		// query it was minted with.
		if syncToken != "" {
			call = call.SyncToken(syncToken)
		} else {
			call = call.TimeMin(timeMin.In(c.location).Format(time.RFC3339))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		resp, err := call.Context(callCtx).Do()
		cancel()
		if err != nil {
			return nil, mapError(err)
		}

		for _, item := range resp.Items {
			changes.Events = append(changes.Events, RemoteEvent{
				ID:     item.Id,
				Status: item.Status,
			})
		}

		// Only the last page carries it; intermediate pages leave it empty.
		changes.NextSyncToken = resp.NextSyncToken

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return changes, nil
}

// CreateEvent mirrors a mistake to the calendar and returns the event id.
// sendUpdates=none keeps the service account from mailing attendees.
func (c *Client) CreateEvent(ctx context.Context, m *models.Mistake) (string, error) {
	event, err := c.buildEvent(m)
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	created, err := c.svc.Events.Insert(c.calendarID, event).
		SendUpdates("none").
		Context(callCtx).
		Do()
	if err != nil {
		return "", mapError(err)
	}
	return created.Id, nil
}

func (c *Client) UpdateEvent(ctx context.Context, eventID string, m *models.Mistake) (string, error) {
	event, err := c.buildEvent(m)
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	updated, err := c.svc.Events.Update(c.calendarID, eventID, event).
		SendUpdates("none").
		Context(callCtx).
		Do()
	if err != nil {
		return "", mapError(err)
	}
	return updated.Id, nil
}

// DeleteEvent removes the remote event. A target that is already gone
// (404, or 410 for previously cancelled events) is not an error.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	err := c.svc.Events.Delete(c.calendarID, eventID).
		SendUpdates("none").
		Context(callCtx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) &&
			(apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return nil
		}
		return mapError(err)
	}
	return nil
}
