package feeds

import (
	"context"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarEvent is one upcoming event.
type CalendarEvent struct {
	Title    string `json:"title"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Location string `json:"location,omitempty"`
}

// Item renders the event as a context item.
func (e CalendarEvent) Item() Item {
	fields := map[string]any{
		"title": e.Title,
		"start": e.Start,
		"end":   e.End,
	}
	if e.Location != "" {
		fields["location"] = e.Location
	}
	return NewItem(CategoryCalendar, fields)
}

// CalendarClient lists primary-calendar events through the Calendar API.
type CalendarClient struct {
	httpClient func(ctx context.Context) (*http.Client, error)
	// Endpoint overrides the API base URL.
	Endpoint string
}

// NewCalendarClient uses httpClient (normally googleauth.Authorizer.Client)
// to authorize requests.
func NewCalendarClient(httpClient func(ctx context.Context) (*http.Client, error)) *CalendarClient {
	return &CalendarClient{httpClient: httpClient}
}

// Events returns single events starting between from and from+days, ordered
// by start time.
func (c *CalendarClient) Events(ctx context.Context, from time.Time, days int) ([]CalendarEvent, error) {
	if days <= 0 {
		days = 1
	}
	client, err := c.httpClient(ctx)
	if err != nil {
		return nil, &FetchError{Source: CategoryCalendar, Err: err}
	}
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, &FetchError{Source: CategoryCalendar, Err: err}
	}

	call := svc.Events.List("primary").
		TimeMin(from.UTC().Format(time.RFC3339)).
		TimeMax(from.Add(time.Duration(days) * 24 * time.Hour).UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	var events []CalendarEvent
	err = call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			events = append(events, CalendarEvent{
				Title:    titleOr(item.Summary),
				Start:    eventTime(item.Start),
				End:      eventTime(item.End),
				Location: item.Location,
			})
		}
		return nil
	})
	if err != nil {
		return nil, &FetchError{Source: CategoryCalendar, Err: err}
	}
	return events, nil
}

func titleOr(summary string) string {
	if summary == "" {
		return "(no title)"
	}
	return summary
}

func eventTime(t *calendar.EventDateTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}
