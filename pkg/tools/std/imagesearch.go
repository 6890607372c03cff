package std

import (
	"context"
	"fmt"
	"net/url"

	"github.com/AyuTriphasari/zlk-ai/pkg/config"
	"github.com/AyuTriphasari/zlk-ai/pkg/tools"
)

const defaultSerpBaseURL = "https://serpapi.com"

// imageSearchLimit — сколько URL картинок отдаём модели.
const imageSearchLimit = 10

// ImageSearchTool ищет картинки через SerpAPI (google_images engine).
type ImageSearchTool struct {
	client  *apiClient
	baseURL string
	apiKey  string
}

// NewImageSearchTool создает инструмент поиска картинок.
//
// Требует tools.serp_api_key в конфигурации.
func NewImageSearchTool(cfg config.ToolsConfig) *ImageSearchTool {
	return &ImageSearchTool{
		client:  newAPIClient(cfg),
		baseURL: defaultSerpBaseURL,
		apiKey:  cfg.SerpAPIKey,
	}
}

// Definition возвращает описание инструмента для LLM.
func (t *ImageSearchTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "image_search",
		Description: "Search for images on the web and return direct image URLs",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Image search query",
				},
			},
			"required": []string{"query"},
		},
	}
}

// StatusLabel возвращает подпись для UI.
func (t *ImageSearchTool) StatusLabel() string {
	return "Searching images..."
}

// Execute выполняет поиск через SerpAPI.
func (t *ImageSearchTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}

	if t.apiKey == "" {
		return nil, fmt.Errorf("image search is not configured (tools.serp_api_key missing)")
	}

	q := url.Values{}
	q.Set("engine", "google_images")
	q.Set("q", query)
	q.Set("hl", "en")
	q.Set("safe", "off")
	q.Set("api_key", t.apiKey)

	var resp struct {
		ImagesResults []struct {
			Original string `json:"original"`
		} `json:"images_results"`
	}

	reqURL := fmt.Sprintf("%s/search.json?%s", t.baseURL, q.Encode())
	if err := t.client.getJSON(ctx, reqURL, nil, &resp); err != nil {
		return nil, err
	}

	urls := make([]string, 0, imageSearchLimit)
	for i, r := range resp.ImagesResults {
		if i >= imageSearchLimit {
			break
		}
		if r.Original != "" {
			urls = append(urls, r.Original)
		}
	}

	return urls, nil
}
