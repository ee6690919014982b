package gcal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/ttakada/mistakesync/internal/models"
)

// descriptionExcerptLimit caps the situation/cause/solution excerpts so the
// event description stays readable in the calendar UI.
const descriptionExcerptLimit = 300

func (c *Client) buildEvent(m *models.Mistake) (*calendar.Event, error) {
	if !m.HasReminder() {
		return nil, fmt.Errorf("%w: reminder date is required", ErrValidation)
	}

	start := m.ReminderDate.In(c.location)
	end := start.Add(c.eventDuration)

	event := &calendar.Event{
		Summary:     m.Title,
		Description: buildDescription(m),
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: c.location.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: c.location.String(),
		},
		// Correlation metadata for reconciling remote changes back to the
		// journal entry.
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				"mistake_id": strconv.FormatInt(m.ID, 10),
			},
		},
	}
	return event, nil
}

func buildDescription(m *models.Mistake) string {
	lines := []string{}
	if m.AiNotes != "" {
		lines = append(lines, "【AI改善案】", m.AiNotes, "")
	}
	lines = append(lines, "---", "Mistake ID: "+strconv.FormatInt(m.ID, 10))
	if m.HappenedAt != nil {
		lines = append(lines, "発生日時: "+m.HappenedAt.Format("2006-01-02 15:04"))
	}
	if m.Situation != "" {
		lines = append(lines, "状況: "+excerpt(m.Situation))
	}
	if m.Cause != "" {
		lines = append(lines, "原因: "+excerpt(m.Cause))
	}
	if m.MySolution != "" {
		lines = append(lines, "解決策: "+excerpt(m.MySolution))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// excerpt truncates on rune boundaries so multibyte text is never split.
func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= descriptionExcerptLimit {
		return s
	}
	return string(runes[:descriptionExcerptLimit]) + "…"
}
