package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultWeatherURL is the Open-Meteo forecast endpoint.
const DefaultWeatherURL = "https://api.open-meteo.com/v1/forecast"

// WeatherRequest locates the forecast.
type WeatherRequest struct {
	City      string
	Latitude  float64
	Longitude float64
	Timezone  string
}

// Weather is today's forecast. Missing readings are NaN.
type Weather struct {
	City                string
	Date                string
	TemperatureLow      float64
	TemperatureHigh     float64
	PrecipitationChance float64
}

// UnavailableWeather is the placeholder used when the forecast cannot be
// fetched.
func UnavailableWeather(city string) Weather {
	return Weather{
		City:                city,
		TemperatureLow:      math.NaN(),
		TemperatureHigh:     math.NaN(),
		PrecipitationChance: math.NaN(),
	}
}

// Item renders the forecast as a context item.
func (w Weather) Item() Item {
	return NewItem(CategoryWeather, map[string]any{
		"city":                 w.City,
		"temperature_low":      w.TemperatureLow,
		"temperature_high":     w.TemperatureHigh,
		"precipitation_chance": w.PrecipitationChance,
	})
}

// WeatherClient queries Open-Meteo.
type WeatherClient struct {
	HTTP    *http.Client
	BaseURL string
}

// NewWeatherClient returns a client with a 10 second timeout.
func NewWeatherClient() *WeatherClient {
	return &WeatherClient{HTTP: &http.Client{Timeout: 10 * time.Second}, BaseURL: DefaultWeatherURL}
}

type forecastResponse struct {
	Daily struct {
		Time          []string   `json:"time"`
		TempMax       []*float64 `json:"temperature_2m_max"`
		TempMin       []*float64 `json:"temperature_2m_min"`
		Precipitation []*float64 `json:"precipitation_probability_mean"`
	} `json:"daily"`
}

// Forecast returns the first daily forecast for req.
func (c *WeatherClient) Forecast(ctx context.Context, req WeatherRequest) (Weather, error) {
	result := UnavailableWeather(req.City)
	base := c.BaseURL
	if strings.TrimSpace(base) == "" {
		base = DefaultWeatherURL
	}
	timezone := req.Timezone
	if timezone == "" {
		timezone = "Asia/Taipei"
	}
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(req.Latitude, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(req.Longitude, 'f', -1, 64))
	query.Set("timezone", timezone)
	query.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_probability_mean")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+query.Encode(), nil)
	if err != nil {
		return result, &FetchError{Source: CategoryWeather, Err: err}
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return result, &FetchError{Source: CategoryWeather, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return result, &FetchError{Source: CategoryWeather, Err: fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}
	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return result, &FetchError{Source: CategoryWeather, Err: fmt.Errorf("decode forecast: %w", err)}
	}
	if len(payload.Daily.Time) > 0 {
		result.Date = payload.Daily.Time[0]
	}
	result.TemperatureHigh = first(payload.Daily.TempMax)
	result.TemperatureLow = first(payload.Daily.TempMin)
	result.PrecipitationChance = first(payload.Daily.Precipitation)
	return result, nil
}

func first(values []*float64) float64 {
	if len(values) == 0 || values[0] == nil {
		return math.NaN()
	}
	return *values[0]
}
