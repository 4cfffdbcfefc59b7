package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/backend/internal/domain"
)

func newTestWeatherService(t *testing.T, handler http.HandlerFunc) *WeatherService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc := NewWeatherService("test-key", 43.2, 76.9, nil)
	svc.baseURL = srv.URL
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC) }
	return svc
}

func TestGetForecastWithoutKeyUsesMock(t *testing.T) {
	svc := NewWeatherService("", 0, 0, nil)
	svc.now = func() time.Time { return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC) }

	days, err := svc.GetForecast(context.Background())
	require.NoError(t, err)
	require.Len(t, days, forecastDays)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), days[0].Date)
	assert.Equal(t, domain.ConditionSnow, days[0].Conditions)
	for _, d := range days {
		assert.True(t, d.IsMock)
	}
}

func TestGetForecastAggregatesThreeHourlyEntries(t *testing.T) {
	ts := func(day, hour int) int64 { return time.Date(2026, 6, day, hour, 0, 0, 0, time.UTC).Unix() }
	body := map[string]any{
		"list": []map[string]any{
			{
				"dt": ts(1, 9), "main": map[string]any{"temp": 20, "humidity": 50},
				"weather": []map[string]any{{"main": "Clouds"}}, "wind": map[string]any{"speed": 5},
				"visibility": 10000, "rain": map[string]any{"3h": 1.2},
			},
			{
				"dt": ts(1, 12), "main": map[string]any{"temp": 24, "humidity": 60},
				"weather": []map[string]any{{"main": "Rain"}}, "wind": map[string]any{"speed": 10},
				"visibility": 4000, "rain": map[string]any{"3h": 0.8},
			},
			{
				"dt": ts(2, 12), "main": map[string]any{"temp": 40, "humidity": 20},
				"weather": []map[string]any{{"main": "Clear"}}, "wind": map[string]any{"speed": 2},
			},
		},
	}

	var gotQuery string
	svc := newTestWeatherService(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(body)
	})

	days, err := svc.GetForecast(context.Background())
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Contains(t, gotQuery, "appid=test-key")

	first := days[0]
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, 22.0, first.Temperature)
	assert.Equal(t, 55, first.Humidity)
	assert.Equal(t, 36.0, first.WindSpeed)
	assert.Equal(t, 2.0, first.Precipitation)
	assert.Equal(t, 4.0, first.Visibility)
	assert.Equal(t, domain.ConditionRain, first.Conditions)
	assert.False(t, first.IsMock)

	assert.Equal(t, domain.ConditionExtremeHeat, days[1].Conditions)
	assert.Equal(t, 10.0, days[1].Visibility)
}

func TestGetForecastIgnoresMissingVisibility(t *testing.T) {
	ts := time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC).Unix()
	body := map[string]any{
		"list": []map[string]any{
			{"dt": ts + 3*3600, "main": map[string]any{"temp": 15}, "visibility": 6000},
			{"dt": ts + 6*3600, "main": map[string]any{"temp": 17}},
		},
	}
	svc := newTestWeatherService(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(body)
	})

	days, err := svc.GetForecast(context.Background())
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 6.0, days[0].Visibility)
}

func TestGetForecastFallsBackOnServerError(t *testing.T) {
	svc := newTestWeatherService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	days, err := svc.GetForecast(context.Background())
	require.NoError(t, err)
	require.Len(t, days, forecastDays)
	assert.True(t, days[0].IsMock)
	assert.Equal(t, domain.ConditionClear, days[0].Conditions)
}

func TestGetForecastRejectsGarbage(t *testing.T) {
	svc := newTestWeatherService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})

	_, err := svc.GetForecast(context.Background())
	assert.ErrorContains(t, err, "weather: failed to decode response")
}

func TestConditionFromOpenWeather(t *testing.T) {
	assert.Equal(t, domain.ConditionStorm, conditionFromOpenWeather("Thunderstorm"))
	assert.Equal(t, domain.ConditionRain, conditionFromOpenWeather("Drizzle"))
	assert.Equal(t, domain.ConditionFog, conditionFromOpenWeather("Mist"))
	assert.Equal(t, domain.ConditionClear, conditionFromOpenWeather("Unknown"))
}
