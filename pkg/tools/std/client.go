// Package std содержит стандартные инструменты агента: погода, время,
// курсы монет, веб-поиск и поиск картинок.
//
// Каждый инструмент — тонкая обёртка над внешним HTTP API. Общий
// транспорт (rate limiting, retry, классификация ошибок) вынесен
// в apiClient.
package std

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/AyuTriphasari/zlk-ai/pkg/config"
	"github.com/AyuTriphasari/zlk-ai/pkg/utils"
	"golang.org/x/time/rate"
)

// HTTPClient интерфейс для выполнения HTTP запросов.
//
// Позволяет мокировать HTTP клиент в тестах.
// Стандартный *http.Client реализует этот интерфейс.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// apiClient — общий транспорт для инструментов.
//
// Один limiter на инструмент: внешние API (open-meteo, coingecko)
// банят за частые запросы, а модель может запрашивать инструмент
// несколько раундов подряд.
type apiClient struct {
	httpClient    HTTPClient
	limiter       *rate.Limiter
	retryAttempts int
}

// newAPIClient создает транспорт из конфигурации инструментов.
func newAPIClient(cfg config.ToolsConfig) *apiClient {
	cfg = cfg.GetDefaults()

	// rate_limit в запросах/минуту → rate.Limit в запросах/секунду
	perSecond := rate.Limit(float64(cfg.RateLimit) / 60.0)

	return &apiClient{
		httpClient: &http.Client{
			Timeout: cfg.ParseTimeout(),
		},
		limiter:       rate.NewLimiter(perSecond, cfg.BurstLimit),
		retryAttempts: cfg.RetryAttempts,
	}
}

// getJSON выполняет GET запрос с retry логикой и rate limiting,
// декодируя JSON ответ в dest.
func (c *apiClient) getJSON(ctx context.Context, url string, headers map[string]string, dest any) error {
	var lastErr error

	// Retry loop
	for i := 0; i < c.retryAttempts; i++ {
		// 1. Ждем разрешения от лимитера (блокирует горутину, если превысили лимит)
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue // Сетевая ошибка, пробуем еще
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		// 429 — ждём следующего слота лимитера и повторяем
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("429 Too Many Requests")
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// Non-2xx не ретраим: это ошибка запроса, не транспорта
			detail := strings.TrimSpace(string(body))
			if len(detail) > 200 {
				detail = detail[:200]
			}
			return fmt.Errorf("api returned status %d: %s", resp.StatusCode, detail)
		}

		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		return nil
	}

	utils.Warn("tool api request exhausted retries", "url", url, "error", lastErr)
	return fmt.Errorf("request failed after %d attempts: %w", c.retryAttempts, lastErr)
}

// stringArg достает строковый аргумент из распарсенных args.
func stringArg(args map[string]any, key string) (string, error) {
	val, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument '%s'", key)
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("argument '%s' must be a string, got %T", key, val)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("argument '%s' cannot be empty", key)
	}
	return s, nil
}

// floatArg достает числовой аргумент из распарсенных args.
//
// JSON числа декодируются в float64; строки с числами тоже принимаем —
// модели регулярно присылают "10" вместо 10.
func floatArg(args map[string]any, key string) (float64, error) {
	val, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing required argument '%s'", key)
	}
	switch v := val.(type) {
	case float64:
		return v, nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &f); err != nil {
			return 0, fmt.Errorf("argument '%s' is not a number: %q", key, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("argument '%s' must be a number, got %T", key, val)
	}
}
