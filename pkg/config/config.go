package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig — корневая структура конфигурации.
// Она зеркалит структуру config.yaml.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Agent    AgentConfig    `yaml:"agent"`
	Cache    CacheConfig    `yaml:"cache"`
	S3       S3Config       `yaml:"s3"`
	Tools    ToolsConfig    `yaml:"tools"`
	Upload   UploadConfig   `yaml:"upload"`
}

// ServerConfig — настройки HTTP сервера.
type ServerConfig struct {
	Addr            string `yaml:"addr"`             // Адрес прослушивания, например ":8080"
	ShutdownTimeout string `yaml:"shutdown_timeout"` // Время на graceful shutdown ("10s")
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *ServerConfig) GetDefaults() ServerConfig {
	result := *c

	if result.Addr == "" {
		result.Addr = ":8080"
	}
	if result.ShutdownTimeout == "" {
		result.ShutdownTimeout = "10s"
	}

	return result
}

// ParseShutdownTimeout возвращает время на graceful shutdown.
func (c *ServerConfig) ParseShutdownTimeout() time.Duration {
	if c.ShutdownTimeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// UpstreamConfig — настройки upstream провайдера (Pollinations).
type UpstreamConfig struct {
	BaseURL      string  `yaml:"base_url"`      // Базовый URL chat-completion API
	ImageBaseURL string  `yaml:"image_base_url"` // Базовый URL генерации медиа
	APIKey       string  `yaml:"api_key"`       // Поддерживает ${VAR}
	DefaultModel string  `yaml:"default_model"` // Модель по умолчанию
	Timeout      string  `yaml:"timeout"`       // Timeout для HTTP запросов ("120s")
	Temperature  float64 `yaml:"temperature"`
	TopP         float64 `yaml:"top_p"`
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *UpstreamConfig) GetDefaults() UpstreamConfig {
	result := *c

	if result.BaseURL == "" {
		result.BaseURL = "https://gen.pollinations.ai/v1"
	}
	if result.ImageBaseURL == "" {
		result.ImageBaseURL = "https://gen.pollinations.ai/image"
	}
	if result.DefaultModel == "" {
		result.DefaultModel = "openai"
	}
	if result.Timeout == "" {
		result.Timeout = "120s" // upstream генерация бывает очень медленной
	}
	if result.Temperature == 0 {
		result.Temperature = 0.8
	}
	if result.TopP == 0 {
		result.TopP = 1
	}

	return result
}

// ParseTimeout возвращает timeout как time.Duration.
func (c *UpstreamConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// AgentConfig — бюджеты цикла оркестрации.
type AgentConfig struct {
	MaxToolRounds   int `yaml:"max_tool_rounds"`    // Макс. число раундов с upstream
	MaxCallsPerTool int `yaml:"max_calls_per_tool"` // Макс. вызовов одного инструмента за запрос
	HistoryWindow   int `yaml:"history_window"`     // Сколько последних сообщений уходит в upstream
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *AgentConfig) GetDefaults() AgentConfig {
	result := *c

	if result.MaxToolRounds == 0 {
		result.MaxToolRounds = 5
	}
	if result.MaxCallsPerTool == 0 {
		result.MaxCallsPerTool = 3
	}
	if result.HistoryWindow == 0 {
		result.HistoryWindow = 10
	}

	return result
}

// CacheConfig — настройки in-memory кэша сгенерированных медиа.
type CacheConfig struct {
	TTL string `yaml:"ttl"` // Время жизни записи ("1h")
}

// ParseTTL возвращает TTL как time.Duration.
func (c *CacheConfig) ParseTTL() time.Duration {
	if c.TTL == "" {
		return time.Hour
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return time.Hour
	}
	return d
}

// S3Config — настройки объектного хранилища (Cloudflare R2).
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"` // Поддерживает ${VAR}
	SecretKey string `yaml:"secret_key"` // Поддерживает ${VAR}
	PublicURL string `yaml:"public_url"` // Публичный базовый URL бакета
	UseSSL    bool   `yaml:"use_ssl"`
}

// ToolsConfig — настройки инструментов агента.
type ToolsConfig struct {
	BraveAPIKey   string `yaml:"brave_api_key"`   // Поддерживает ${VAR}
	SerpAPIKey    string `yaml:"serp_api_key"`    // Поддерживает ${VAR}
	RateLimit     int    `yaml:"rate_limit"`      // Запросов в минуту на инструмент
	BurstLimit    int    `yaml:"burst_limit"`     // Burst для rate limiter
	Timeout       string `yaml:"timeout"`         // Timeout для HTTP запросов ("30s")
	RetryAttempts int    `yaml:"retry_attempts"`  // Количество retry попыток
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *ToolsConfig) GetDefaults() ToolsConfig {
	result := *c

	if result.RateLimit == 0 {
		result.RateLimit = 60 // запросов в минуту
	}
	if result.BurstLimit == 0 {
		result.BurstLimit = 5
	}
	if result.Timeout == "" {
		result.Timeout = "30s"
	}
	if result.RetryAttempts == 0 {
		result.RetryAttempts = 3
	}

	return result
}

// ParseTimeout возвращает timeout инструментов как time.Duration.
func (c *ToolsConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// UploadConfig — обработка пользовательских загрузок перед отправкой в R2.
type UploadConfig struct {
	MaxWidth int `yaml:"max_width"` // Ширина, до которой ужимаются изображения
	Quality  int `yaml:"quality"`   // Качество JPEG при пережатии
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *UploadConfig) GetDefaults() UploadConfig {
	result := *c

	if result.MaxWidth == 0 {
		result.MaxWidth = 2048
	}
	if result.Quality == 0 {
		result.Quality = 85
	}

	return result
}

// Load читает YAML файл, подставляет ENV переменные и возвращает готовую структуру.
func Load(path string) (*AppConfig, error) {
	// 1. Проверяем существование файла
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	// 2. Читаем файл целиком
	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 3. Подставляем переменные окружения.
	// os.ExpandEnv заменяет ${VAR} или $VAR на значение из системы.
	contentWithEnv := os.ExpandEnv(string(rawBytes))

	// 4. Парсим YAML в структуру
	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(contentWithEnv), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	// 5. Применяем дефолты по секциям
	cfg.Server = cfg.Server.GetDefaults()
	cfg.Upstream = cfg.Upstream.GetDefaults()
	cfg.Agent = cfg.Agent.GetDefaults()
	cfg.Tools = cfg.Tools.GetDefaults()
	cfg.Upload = cfg.Upload.GetDefaults()

	// 6. Валидируем критические настройки
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate проверяет обязательные поля.
//
// S3 секция опциональна: без неё сервис работает, но /api/upload
// вернёт configuration error.
func (c *AppConfig) validate() error {
	if c.S3.Endpoint != "" && c.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when s3.endpoint is set")
	}
	if c.S3.Endpoint != "" && c.S3.PublicURL == "" {
		return fmt.Errorf("s3.public_url is required when s3.endpoint is set")
	}
	return nil
}
