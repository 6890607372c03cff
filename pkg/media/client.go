// Package media — клиент upstream генерации изображений и видео.
//
// Upstream один и тот же для картинок, видео и редактирования:
// GET <base>/<prompt> с параметрами модели. Клиент возвращает сырые
// байты с content type, кэширование и выдача — забота вызывающего.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/AyuTriphasari/zlk-ai/pkg/config"
	"github.com/AyuTriphasari/zlk-ai/pkg/utils"
)

// HTTPClient — интерфейс для мокания HTTP клиента в тестах.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultImageModel используется когда модель не указана.
const DefaultImageModel = "flux"

// DefaultVideoModel используется для видео-генерации без модели.
const DefaultVideoModel = "seedance-pro"

// maxResponseBytes ограничивает размер буферизуемого ответа.
// Видео бывает большим, но весь результат живёт в памяти кэша.
const maxResponseBytes = 50 << 20

// GenerateRequest — параметры одной генерации.
type GenerateRequest struct {
	Prompt string
	Model  string
	Width  int
	Height int
	Seed   int64

	// Видео-опции, пропускаются если пустые
	Duration    string
	AspectRatio string

	// SourceImageURL — исходная картинка для редактирования
	SourceImageURL string

	// APIKey перекрывает серверный ключ для этого запроса
	APIKey string
}

// Result — байты сгенерированного медиа.
type Result struct {
	Data        []byte
	ContentType string
}

// Client ходит в upstream генерации.
type Client struct {
	httpClient HTTPClient
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter

	// now подменяется в тестах: от него зависит антикэш параметр t
	now func() time.Time
}

// NewClient создает клиент из конфига upstream.
//
// Генерация дорогая, upstream банит бурсты: не больше одного
// запроса в секунду с небольшим запасом.
func NewClient(cfg config.UpstreamConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.ParseTimeout()},
		baseURL:    cfg.ImageBaseURL,
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(rate.Limit(1), 3),
		now:        time.Now,
	}
}

// Generate запрашивает генерацию изображения или видео.
//
// Ключ обязателен (серверный или из запроса) — upstream без
// авторизации отвечает ошибкой на больших моделях.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (Result, error) {
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = c.apiKey
	}
	if apiKey == "" {
		return Result{}, fmt.Errorf("api key not configured")
	}

	params := url.Values{}
	params.Set("model", req.Model)
	params.Set("width", strconv.Itoa(req.Width))
	params.Set("height", strconv.Itoa(req.Height))
	params.Set("seed", strconv.FormatInt(req.Seed, 10))
	params.Set("nologo", "true")
	params.Set("nofeed", "true")
	// Антикэш: батч-генерация с одинаковым промптом должна давать
	// разные картинки
	params.Set("t", strconv.FormatInt(c.now().UnixMilli(), 10))
	if req.Duration != "" {
		params.Set("duration", req.Duration)
	}
	if req.AspectRatio != "" {
		params.Set("aspectRatio", req.AspectRatio)
	}

	return c.fetch(ctx, req.Prompt, params, apiKey, "")
}

// Edit запрашивает редактирование исходной картинки по промпту.
//
// В отличие от Generate ключ здесь опционален: часть edit-моделей
// доступна без авторизации.
func (c *Client) Edit(ctx context.Context, req GenerateRequest) (Result, error) {
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = c.apiKey
	}

	params := url.Values{}
	params.Set("model", req.Model)
	params.Set("image", req.SourceImageURL)
	params.Set("width", strconv.Itoa(req.Width))
	params.Set("height", strconv.Itoa(req.Height))
	params.Set("seed", strconv.FormatInt(req.Seed, 10))

	return c.fetch(ctx, req.Prompt, params, apiKey, "image/*")
}

func (c *Client) fetch(ctx context.Context, prompt string, params url.Values, apiKey, accept string) (Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("rate limiter: %w", err)
		}
	}

	requestURL := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(prompt), params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build media request: %w", err)
	}
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}
	if accept != "" {
		httpReq.Header.Set("Accept", accept)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("media request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("media generation failed with status %d: %s",
			resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, fmt.Errorf("read media response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	utils.Debug("media generated",
		"bytes", len(data),
		"content_type", contentType,
		"duration_ms", time.Since(startTime).Milliseconds())

	return Result{Data: data, ContentType: contentType}, nil
}
