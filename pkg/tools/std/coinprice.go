package std

import (
	"context"
	"fmt"
	"net/url"

	"github.com/AyuTriphasari/zlk-ai/pkg/config"
	"github.com/AyuTriphasari/zlk-ai/pkg/tools"
)

const defaultCoinGeckoBaseURL = "https://api.coingecko.com"

// CoinPriceTool возвращает цену криптовалюты через CoinGecko simple/price.
type CoinPriceTool struct {
	client  *apiClient
	baseURL string
}

// NewCoinPriceTool создает инструмент курсов монет.
func NewCoinPriceTool(cfg config.ToolsConfig) *CoinPriceTool {
	return &CoinPriceTool{
		client:  newAPIClient(cfg),
		baseURL: defaultCoinGeckoBaseURL,
	}
}

// Definition возвращает описание инструмента для LLM.
func (t *CoinPriceTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "get_coin_price",
		Description: "Get the current price of a cryptocurrency by its CoinGecko id (e.g. bitcoin, ethereum) in a fiat currency",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"coin": map[string]any{
					"type":        "string",
					"description": "CoinGecko coin id, e.g. bitcoin",
				},
				"currency": map[string]any{
					"type":        "string",
					"description": "Fiat currency code, e.g. usd, eur. Defaults to usd",
				},
			},
			"required": []string{"coin"},
		},
	}
}

// StatusLabel возвращает подпись для UI.
func (t *CoinPriceTool) StatusLabel() string {
	return "Fetching coin price..."
}

// Execute запрашивает цену у CoinGecko.
func (t *CoinPriceTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	coin, err := stringArg(args, "coin")
	if err != nil {
		return nil, err
	}

	// currency опционален
	currency := "usd"
	if c, err := stringArg(args, "currency"); err == nil {
		currency = c
	}

	q := url.Values{}
	q.Set("ids", coin)
	q.Set("vs_currencies", currency)

	// Ответ CoinGecko: {"bitcoin": {"usd": 64000}}
	var resp map[string]map[string]float64
	reqURL := fmt.Sprintf("%s/api/v3/simple/price?%s", t.baseURL, q.Encode())
	if err := t.client.getJSON(ctx, reqURL, nil, &resp); err != nil {
		return nil, err
	}

	if len(resp) == 0 {
		return nil, fmt.Errorf("unknown coin id '%s'", coin)
	}

	return resp, nil
}
