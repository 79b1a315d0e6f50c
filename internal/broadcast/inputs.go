package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"morningcast/internal/config"
	"morningcast/internal/feeds"
	"morningcast/internal/googleauth"
	"morningcast/internal/logging"
)

// Inputs is the gathered context for one run.
type Inputs struct {
	Emails   []feeds.Item
	Weather  feeds.Weather
	Calendar []feeds.CalendarEvent
}

// Items returns the context items in refinement order: emails, weather,
// then calendar events.
func (in Inputs) Items() []feeds.Item {
	items := make([]feeds.Item, 0, len(in.Emails)+1+len(in.Calendar))
	items = append(items, in.Emails...)
	items = append(items, in.Weather.Item())
	for _, event := range in.Calendar {
		items = append(items, event.Item())
	}
	return items
}

// WeatherSource fetches a forecast.
type WeatherSource interface {
	Forecast(ctx context.Context, req feeds.WeatherRequest) (feeds.Weather, error)
}

// CalendarSource lists upcoming events.
type CalendarSource interface {
	Events(ctx context.Context, from time.Time, days int) ([]feeds.CalendarEvent, error)
}

// Sources configures Gather. A nil Weather or Calendar source is skipped.
type Sources struct {
	EmailsPath   string
	Weather      WeatherSource
	Location     feeds.WeatherRequest
	Calendar     CalendarSource
	CalendarDays int
	Now          func() time.Time
}

// SourcesFromConfig wires the Open-Meteo client and, when the Google
// credentials file exists, the Calendar client.
func SourcesFromConfig(cfg *config.Config, logger *slog.Logger) Sources {
	weather := feeds.NewWeatherClient()
	if cfg.Broadcast.WeatherURL != "" {
		weather.BaseURL = cfg.Broadcast.WeatherURL
	}
	src := Sources{
		EmailsPath: cfg.Paths.EmailsJSON,
		Weather:    weather,
		Location: feeds.WeatherRequest{
			City:      cfg.Broadcast.City,
			Latitude:  cfg.Broadcast.Latitude,
			Longitude: cfg.Broadcast.Longitude,
			Timezone:  cfg.Broadcast.Timezone,
		},
		CalendarDays: cfg.Broadcast.CalendarDays,
	}
	if _, err := os.Stat(cfg.Google.CredentialsFile); err != nil {
		logging.NewComponentLogger(logger, "gather").Info("calendar disabled",
			logging.Args(logging.DecisionAttrs("calendar", "skipped", "google credentials file not found")...)...)
		return src
	}
	auth, err := googleauth.New(cfg.Google.CredentialsFile, cfg.Google.CalendarToken, googleauth.CalendarScopes...)
	if err != nil {
		logging.WarnWithContext(logging.NewComponentLogger(logger, "gather"), "calendar client unavailable",
			"calendar_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check google.credentials_file"),
			logging.String(logging.FieldImpact, "broadcast runs without calendar events"),
		)
		return src
	}
	src.Calendar = feeds.NewCalendarClient(auth.Client)
	return src
}

// Gather fetches the email digest, weather and calendar concurrently. Every
// failure degrades: a missing digest yields no emails, a failed forecast
// yields NaN readings and a failed calendar yields no events.
func Gather(ctx context.Context, src Sources, logger *slog.Logger) Inputs {
	logger = logging.NewComponentLogger(logger, "gather")
	now := time.Now
	if src.Now != nil {
		now = src.Now
	}

	in := Inputs{Weather: feeds.UnavailableWeather(src.Location.City)}
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if src.EmailsPath == "" {
			return
		}
		emails, err := feeds.LoadEmails(src.EmailsPath)
		if err != nil {
			warnFetch(logger, err, "run 'morningcast emails fetch' or fix paths.emails_json", "broadcast runs without email items")
			return
		}
		in.Emails = emails
	}()

	if src.Weather != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			weather, err := src.Weather.Forecast(ctx, src.Location)
			if err != nil {
				warnFetch(logger, err, "check network access to the forecast API", "weather readings are unknown")
				if weather.City == "" {
					return
				}
			}
			in.Weather = weather
		}()
	}

	if src.Calendar != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			events, err := src.Calendar.Events(ctx, now(), src.CalendarDays)
			if err != nil {
				warnFetch(logger, &feeds.FetchError{Source: feeds.CategoryCalendar, Err: err},
					"run 'morningcast calendar auth'", "broadcast runs without calendar events")
				return
			}
			in.Calendar = events
		}()
	}

	wg.Wait()

	logger.Info("context gathered",
		logging.String(logging.FieldEventType, "context_gathered"),
		logging.Int("emails", len(in.Emails)),
		logging.String("city", in.Weather.City),
		logging.String("temperature", temperatureRange(in.Weather)),
		logging.Int("calendar_events", len(in.Calendar)),
	)
	return in
}

func warnFetch(logger *slog.Logger, err error, hint, impact string) {
	source := "context"
	var fetchErr *feeds.FetchError
	if errors.As(err, &fetchErr) {
		source = fetchErr.Source
	}
	logging.WarnWithContext(logger, "context fetch failed; continuing without it",
		"context_fetch_failed",
		logging.String("source", source),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, impact),
	)
}
