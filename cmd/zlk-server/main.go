// ZLK AI Server
// Основная точка входа HTTP бэкенда
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/AyuTriphasari/zlk-ai/internal/server"
	"github.com/AyuTriphasari/zlk-ai/pkg/agent"
	"github.com/AyuTriphasari/zlk-ai/pkg/config"
	"github.com/AyuTriphasari/zlk-ai/pkg/llm/pollinations"
	"github.com/AyuTriphasari/zlk-ai/pkg/media"
	"github.com/AyuTriphasari/zlk-ai/pkg/mediacache"
	"github.com/AyuTriphasari/zlk-ai/pkg/r2storage"
	"github.com/AyuTriphasari/zlk-ai/pkg/tools"
	"github.com/AyuTriphasari/zlk-ai/pkg/tools/std"
	"github.com/AyuTriphasari/zlk-ai/pkg/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "путь к конфигурационному файлу")
	flag.Parse()

	// 0. Инициализируем логгер
	if err := utils.InitLogger(); err != nil {
		log.Printf("Warning: failed to init logger: %v", err)
	}
	defer utils.Close()

	// 1. Загружаем конфигурацию
	cfg, err := config.Load(*configPath)
	if err != nil {
		utils.Error("Failed to load config", "error", err, "path", *configPath)
		return err
	}
	utils.Info("Config loaded", "path", *configPath, "default_model", cfg.Upstream.DefaultModel)
	logKeysInfo(cfg)

	// 2. Собираем реестр инструментов
	registry := buildRegistry(cfg.Tools)

	// 3. Провайдер upstream и цикл оркестрации
	provider := pollinations.NewClient(cfg.Upstream)
	loop := agent.NewLoop(provider, registry, agent.Config{
		MaxToolRounds:   cfg.Agent.MaxToolRounds,
		MaxCallsPerTool: cfg.Agent.MaxCallsPerTool,
	})

	// 4. Медиа: клиент генерации и кэш выдачи
	mediaClient := media.NewClient(cfg.Upstream)
	cache := mediacache.New(cfg.Cache.ParseTTL())

	// 5. Объектное хранилище опционально
	var uploader r2storage.Uploader
	if cfg.S3.Endpoint != "" {
		client, err := r2storage.New(cfg.S3)
		if err != nil {
			utils.Error("Storage client creation failed", "error", err)
			return fmt.Errorf("storage client: %w", err)
		}
		uploader = client
	} else {
		utils.Warn("Storage not configured, /api/upload disabled")
	}

	// 6. HTTP сервер с graceful shutdown
	srv := server.New(*cfg, loop, mediaClient, cache, uploader)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cleanup := utils.SetupGracefulShutdown(cancel)
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		utils.Info("Server listening", "addr", cfg.Server.Addr)
		log.Printf("Listening on %s", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Error("Server failed", "error", err)
			return err
		}
	case <-ctx.Done():
		utils.Info("Shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(
			context.Background(), cfg.Server.ParseShutdownTimeout())
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			utils.Error("Shutdown failed", "error", err)
			return err
		}
	}

	utils.Info("Server exited normally")
	return nil
}

// buildRegistry регистрирует инструменты, для которых есть ключи.
// Инструменты без внешних ключей включены всегда.
func buildRegistry(cfg config.ToolsConfig) *tools.Registry {
	registry := tools.NewRegistry()

	register := func(tool tools.Tool) {
		if err := registry.Register(tool); err != nil {
			utils.Error("Tool registration failed", "error", err)
		}
	}

	register(std.NewWeatherTool(cfg))
	register(std.NewTimeTool(cfg))
	register(std.NewCoinPriceTool(cfg))

	if cfg.BraveAPIKey != "" {
		register(std.NewWebSearchTool(cfg))
	} else {
		utils.Warn("BRAVE_API_KEY not set, web_search disabled")
	}
	if cfg.SerpAPIKey != "" {
		register(std.NewImageSearchTool(cfg))
	} else {
		utils.Warn("SERP_API_KEY not set, image_search disabled")
	}

	return registry
}

// maskKey показывает первые 8 символов ключа для идентификации.
func maskKey(key string) string {
	if key == "" {
		return "NOT SET"
	}
	if len(key) <= 8 {
		return key + "..."
	}
	return key[:8] + "..."
}

// logKeysInfo логирует статус загруженных API ключей.
func logKeysInfo(cfg *config.AppConfig) {
	log.Println("=== API Keys Status ===")
	log.Printf("  UPSTREAM_API_KEY: %s", maskKey(cfg.Upstream.APIKey))
	log.Printf("  BRAVE_API_KEY: %s", maskKey(cfg.Tools.BraveAPIKey))
	log.Printf("  SERP_API_KEY: %s", maskKey(cfg.Tools.SerpAPIKey))
	log.Printf("  S3_ACCESS_KEY: %s", maskKey(cfg.S3.AccessKey))
	log.Println("======================")
}
