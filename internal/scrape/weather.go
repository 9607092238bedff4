package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	httpclient "acu-chatbot/internal/common/http"
	"acu-chatbot/internal/common/logger"
)

// SourceWeather is the live source name for current weather.
const SourceWeather = "weather"

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

var weatherIcons = map[string]string{
	"Clear": "☀️", "Clouds": "☁️", "Rain": "🌧️", "Drizzle": "🌦️",
	"Thunderstorm": "⛈️", "Snow": "❄️", "Mist": "🌫️", "Fog": "🌫️",
	"Haze": "🌫️", "Smoke": "🌫️", "Dust": "🌪️", "Sand": "🌪️",
	"Ash": "🌋", "Squall": "🌬️", "Tornado": "🌪️",
}

// WeatherScraper answers from the OpenWeatherMap current-weather API.
// Without an API key it degrades to a pointer at the national forecast
// site, which still counts as a successful answer.
type WeatherScraper struct {
	client *httpclient.Client
	apiKey string
	city   string
	apiURL string
	logger logger.Logger
}

func NewWeatherScraper(client *httpclient.Client, apiKey, city string, log logger.Logger) *WeatherScraper {
	if city == "" {
		city = "Artvin,TR"
	}
	return &WeatherScraper{
		client: client,
		apiKey: apiKey,
		city:   city,
		apiURL: openWeatherURL,
		logger: log,
	}
}

func (s *WeatherScraper) Name() string { return SourceWeather }

type weatherResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
}

func (s *WeatherScraper) Fetch(ctx context.Context) (string, error) {
	if s.apiKey == "" {
		return "🌤️ Hava durumu servisi şu an aktif değil.\nArtvin hava durumu için: https://www.mgm.gov.tr", nil
	}

	params := url.Values{}
	params.Set("q", s.city)
	params.Set("appid", s.apiKey)
	params.Set("units", "metric")
	params.Set("lang", "tr")

	resp, err := s.client.Get(ctx, s.apiURL+"?"+params.Encode())
	if err != nil {
		return "", fmt.Errorf("weather fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("weather api returned status %d", resp.StatusCode)
	}

	var data weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("weather response decode failed: %w", err)
	}
	if len(data.Weather) == 0 {
		return "", fmt.Errorf("weather response missing conditions")
	}

	icon, ok := weatherIcons[data.Weather[0].Main]
	if !ok {
		icon = "🌡️"
	}
	condition := data.Weather[0].Description
	if runes := []rune(condition); len(runes) > 0 {
		condition = strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
	windKMH := int(math.Round(data.Wind.Speed * 3.6))

	city := strings.SplitN(s.city, ",", 2)[0]
	return fmt.Sprintf(
		"%s **%s Hava Durumu**\n\n"+
			"🌡️ Sıcaklık: **%d°C** (Hissedilen: %d°C)\n"+
			"🌤️ Durum: %s\n"+
			"💧 Nem: %%%d\n"+
			"💨 Rüzgar: %d km/s\n"+
			"☁️ Bulutluluk: %%%d\n\n"+
			"📊 Detaylı tahmin: https://www.mgm.gov.tr",
		icon, city,
		int(math.Round(data.Main.Temp)), int(math.Round(data.Main.FeelsLike)),
		condition, data.Main.Humidity, windKMH, data.Clouds.All,
	), nil
}
