package std

import (
	"context"
	"fmt"
	"net/url"

	"github.com/AyuTriphasari/zlk-ai/pkg/config"
	"github.com/AyuTriphasari/zlk-ai/pkg/tools"
)

const defaultTimeBaseURL = "https://timeapi.io"

// TimeTool возвращает текущее время в заданной таймзоне через timeapi.io.
type TimeTool struct {
	client  *apiClient
	baseURL string
}

// NewTimeTool создает инструмент времени.
func NewTimeTool(cfg config.ToolsConfig) *TimeTool {
	return &TimeTool{
		client:  newAPIClient(cfg),
		baseURL: defaultTimeBaseURL,
	}
}

// Definition возвращает описание инструмента для LLM.
func (t *TimeTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "get_current_time",
		Description: "Get the current date and time for an IANA timezone, e.g. Asia/Jakarta",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"timezone": map[string]any{
					"type":        "string",
					"description": "IANA timezone name, e.g. Europe/Amsterdam",
				},
			},
			"required": []string{"timezone"},
		},
	}
}

// StatusLabel возвращает подпись для UI.
func (t *TimeTool) StatusLabel() string {
	return "Checking current time..."
}

// Execute запрашивает время у timeapi.io.
//
// Отдаём модели только полезные поля, без технического мусора upstream.
func (t *TimeTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	timezone, err := stringArg(args, "timezone")
	if err != nil {
		return nil, err
	}

	var resp struct {
		TimeZone  string `json:"timeZone"`
		DateTime  string `json:"dateTime"`
		Date      string `json:"date"`
		Time      string `json:"time"`
		DayOfWeek string `json:"dayOfWeek"`
	}

	reqURL := fmt.Sprintf("%s/api/time/current/zone?timeZone=%s", t.baseURL, url.QueryEscape(timezone))
	if err := t.client.getJSON(ctx, reqURL, nil, &resp); err != nil {
		return nil, err
	}

	return map[string]any{
		"timezone":  resp.TimeZone,
		"datetime":  resp.DateTime,
		"date":      resp.Date,
		"time":      resp.Time,
		"dayOfWeek": resp.DayOfWeek,
	}, nil
}
