package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fleetops/backend/internal/domain"
	"github.com/fleetops/backend/internal/metrics"
)

const openWeatherBaseURL = "https://api.openweathermap.org"

// forecastDays is the horizon served by the 5 day / 3 hour forecast API
const forecastDays = 5

// WeatherService fetches the site weather forecast
type WeatherService struct {
	apiKey     string
	baseURL    string
	lat, lon   float64
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// NewWeatherService creates a new weather service for the given location
func NewWeatherService(apiKey string, lat, lon float64, logger *zap.Logger) *WeatherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherService{
		apiKey:  apiKey,
		baseURL: openWeatherBaseURL,
		lat:     lat,
		lon:     lon,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
		now:    time.Now,
	}
}

// WithClock sets the clock used to date the mock forecast
func (s *WeatherService) WithClock(now func() time.Time) *WeatherService {
	s.now = now
	return s
}

// OpenWeatherForecast represents the OpenWeatherMap 5 day forecast response
type OpenWeatherForecast struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"` // m/s
		} `json:"wind"`
		Visibility int `json:"visibility"` // metres
		Rain       struct {
			ThreeHour float64 `json:"3h"`
		} `json:"rain"`
		Snow struct {
			ThreeHour float64 `json:"3h"`
		} `json:"snow"`
	} `json:"list"`
}

// GetForecast returns one WeatherData per day. Without an API key, or when
// the API cannot be reached, a seasonal mock forecast is returned instead.
func (s *WeatherService) GetForecast(ctx context.Context) ([]domain.WeatherData, error) {
	if s.apiKey == "" {
		return s.mockForecast(), nil
	}

	url := fmt.Sprintf(
		"%s/data/2.5/forecast?lat=%f&lon=%f&appid=%s&units=metric",
		s.baseURL, s.lat, s.lon, s.apiKey,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("weather: failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("weather feed unreachable, using mock forecast", zap.Error(err))
		return s.mockForecast(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("weather feed returned an error, using mock forecast", zap.Int("status", resp.StatusCode))
		return s.mockForecast(), nil
	}

	var owResp OpenWeatherForecast
	if err := json.NewDecoder(resp.Body).Decode(&owResp); err != nil {
		return nil, fmt.Errorf("weather: failed to decode response: %w", err)
	}
	return dailyForecast(owResp), nil
}

// dailyForecast folds 3-hourly entries into days: mean temperature and
// humidity, peak wind, summed precipitation, lowest visibility and the most
// severe condition seen
func dailyForecast(resp OpenWeatherForecast) []domain.WeatherData {
	type acc struct {
		day                    time.Time
		temp, humidity, precip float64
		wind, visibility       float64
		n                      int
		condition              domain.WeatherCondition
	}
	byDay := map[string]*acc{}
	var order []string

	for _, item := range resp.List {
		t := time.Unix(item.Dt, 0).UTC()
		key := t.Format("2006-01-02")
		a, ok := byDay[key]
		if !ok {
			a = &acc{
				day:        time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
				visibility: math.Inf(1),
				condition:  domain.ConditionClear,
			}
			byDay[key] = a
			order = append(order, key)
		}
		a.n++
		a.temp += item.Main.Temp
		a.humidity += float64(item.Main.Humidity)
		a.precip += item.Rain.ThreeHour + item.Snow.ThreeHour
		a.wind = math.Max(a.wind, item.Wind.Speed*3.6)
		if item.Visibility > 0 {
			a.visibility = math.Min(a.visibility, float64(item.Visibility)/1000)
		}
		if len(item.Weather) > 0 {
			c := conditionFromOpenWeather(item.Weather[0].Main)
			if conditionSeverity(c) > conditionSeverity(a.condition) {
				a.condition = c
			}
		}
	}

	sort.Strings(order)
	out := make([]domain.WeatherData, 0, len(order))
	for _, key := range order {
		a := byDay[key]
		temp := a.temp / float64(a.n)
		condition := a.condition
		switch {
		case temp > 35:
			condition = domain.ConditionExtremeHeat
		case temp < -20:
			condition = domain.ConditionExtremeCold
		}
		visibility := a.visibility
		if math.IsInf(visibility, 1) {
			visibility = 10
		}
		out = append(out, domain.WeatherData{
			Date:          a.day,
			Temperature:   math.Round(temp*10) / 10,
			Humidity:      int(math.Round(a.humidity / float64(a.n))),
			Precipitation: math.Round(a.precip*10) / 10,
			WindSpeed:     math.Round(a.wind*10) / 10,
			Visibility:    visibility,
			Conditions:    condition,
		})
	}
	return out
}

func conditionFromOpenWeather(main string) domain.WeatherCondition {
	switch strings.ToLower(main) {
	case "thunderstorm", "tornado", "squall":
		return domain.ConditionStorm
	case "rain", "drizzle":
		return domain.ConditionRain
	case "snow":
		return domain.ConditionSnow
	case "fog", "mist", "haze", "smoke", "dust", "sand", "ash":
		return domain.ConditionFog
	case "clouds":
		return domain.ConditionCloudy
	default:
		return domain.ConditionClear
	}
}

func conditionSeverity(c domain.WeatherCondition) int {
	switch c {
	case domain.ConditionStorm:
		return 5
	case domain.ConditionSnow:
		return 4
	case domain.ConditionRain:
		return 3
	case domain.ConditionFog:
		return 2
	case domain.ConditionCloudy:
		return 1
	}
	return 0
}

// mockForecast returns a simulated forecast typical for the season
func (s *WeatherService) mockForecast() []domain.WeatherData {
	metrics.WeatherFallbacks.Inc()

	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var temp float64
	var pattern []domain.WeatherCondition
	switch month := now.Month(); {
	case month >= 12 || month <= 2: // Winter
		temp = -8
		pattern = []domain.WeatherCondition{domain.ConditionSnow, domain.ConditionCloudy, domain.ConditionClear, domain.ConditionSnow, domain.ConditionFog}
	case month >= 3 && month <= 5: // Spring
		temp = 12
		pattern = []domain.WeatherCondition{domain.ConditionRain, domain.ConditionCloudy, domain.ConditionClear, domain.ConditionClear, domain.ConditionRain}
	case month >= 6 && month <= 8: // Summer
		temp = 29
		pattern = []domain.WeatherCondition{domain.ConditionClear, domain.ConditionClear, domain.ConditionStorm, domain.ConditionClear, domain.ConditionCloudy}
	default: // Autumn
		temp = 8
		pattern = []domain.WeatherCondition{domain.ConditionCloudy, domain.ConditionRain, domain.ConditionFog, domain.ConditionClear, domain.ConditionCloudy}
	}

	out := make([]domain.WeatherData, 0, forecastDays)
	for i := 0; i < forecastDays; i++ {
		w := domain.WeatherData{
			Date:        start.AddDate(0, 0, i),
			Temperature: temp + float64(i%3) - 1,
			Humidity:    65,
			WindSpeed:   12,
			Visibility:  10,
			Conditions:  pattern[i],
			IsMock:      true,
		}
		switch pattern[i] {
		case domain.ConditionRain:
			w.Precipitation = 8
		case domain.ConditionSnow:
			w.Precipitation = 6
			w.Visibility = 3
		case domain.ConditionStorm:
			w.Precipitation = 22
			w.WindSpeed = 45
		case domain.ConditionFog:
			w.Visibility = 0.8
		}
		out = append(out, w)
	}
	return out
}
