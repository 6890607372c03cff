package std

import (
	"context"
	"fmt"
	"net/url"

	"github.com/AyuTriphasari/zlk-ai/pkg/config"
	"github.com/AyuTriphasari/zlk-ai/pkg/tools"
)

const defaultBraveBaseURL = "https://api.search.brave.com"

// webSearchLimit — сколько результатов отдаём модели.
// Больше трёх раздувает контекст без пользы.
const webSearchLimit = 3

// WebSearchTool выполняет веб-поиск через Brave Search API.
type WebSearchTool struct {
	client  *apiClient
	baseURL string
	apiKey  string
}

// NewWebSearchTool создает инструмент веб-поиска.
//
// Требует tools.brave_api_key в конфигурации.
func NewWebSearchTool(cfg config.ToolsConfig) *WebSearchTool {
	return &WebSearchTool{
		client:  newAPIClient(cfg),
		baseURL: defaultBraveBaseURL,
		apiKey:  cfg.BraveAPIKey,
	}
}

// Definition возвращает описание инструмента для LLM.
func (t *WebSearchTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "web_search",
		Description: "Search the web for up-to-date information and return the top results",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query",
				},
			},
			"required": []string{"query"},
		},
	}
}

// StatusLabel возвращает подпись для UI.
func (t *WebSearchTool) StatusLabel() string {
	return "Searching the web..."
}

// Execute выполняет поиск через Brave.
func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}

	if t.apiKey == "" {
		return nil, fmt.Errorf("web search is not configured (tools.brave_api_key missing)")
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("count", fmt.Sprintf("%d", webSearchLimit))
	q.Set("safesearch", "off")

	var resp struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}

	headers := map[string]string{"X-Subscription-Token": t.apiKey}
	reqURL := fmt.Sprintf("%s/res/v1/web/search?%s", t.baseURL, q.Encode())
	if err := t.client.getJSON(ctx, reqURL, headers, &resp); err != nil {
		return nil, err
	}

	results := make([]map[string]string, 0, len(resp.Web.Results))
	for i, r := range resp.Web.Results {
		if i >= webSearchLimit {
			break
		}
		results = append(results, map[string]string{
			"title":       r.Title,
			"url":         r.URL,
			"description": r.Description,
		})
	}

	return results, nil
}
