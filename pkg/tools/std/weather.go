package std

import (
	"context"
	"fmt"
	"net/url"

	"github.com/AyuTriphasari/zlk-ai/pkg/config"
	"github.com/AyuTriphasari/zlk-ai/pkg/tools"
)

// defaultWeatherBaseURL — open-meteo не требует API ключа.
const defaultWeatherBaseURL = "https://api.open-meteo.com"

// WeatherTool возвращает текущую погоду по координатам через open-meteo.
type WeatherTool struct {
	client  *apiClient
	baseURL string
}

// NewWeatherTool создает инструмент погоды.
func NewWeatherTool(cfg config.ToolsConfig) *WeatherTool {
	return &WeatherTool{
		client:  newAPIClient(cfg),
		baseURL: defaultWeatherBaseURL,
	}
}

// Definition возвращает описание инструмента для LLM.
func (t *WeatherTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "get_current_weather",
		Description: "Get the current weather for a location by its latitude and longitude",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"latitude": map[string]any{
					"type":        "number",
					"description": "Latitude of the location",
				},
				"longitude": map[string]any{
					"type":        "number",
					"description": "Longitude of the location",
				},
			},
			"required": []string{"latitude", "longitude"},
		},
	}
}

// StatusLabel возвращает подпись для UI.
func (t *WeatherTool) StatusLabel() string {
	return "Getting weather data..."
}

// Execute запрашивает current_weather у open-meteo.
func (t *WeatherTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	lat, err := floatArg(args, "latitude")
	if err != nil {
		return nil, err
	}
	lon, err := floatArg(args, "longitude")
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%g", lat))
	q.Set("longitude", fmt.Sprintf("%g", lon))
	q.Set("current_weather", "true")

	var resp struct {
		CurrentWeather map[string]any `json:"current_weather"`
	}
	reqURL := fmt.Sprintf("%s/v1/forecast?%s", t.baseURL, q.Encode())
	if err := t.client.getJSON(ctx, reqURL, nil, &resp); err != nil {
		return nil, err
	}

	if resp.CurrentWeather == nil {
		return nil, fmt.Errorf("no current_weather in response")
	}

	return resp.CurrentWeather, nil
}
