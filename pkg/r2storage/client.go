// "Тупой" клиент хранилища: только загрузка, без листинга и удаления.

package r2storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/AyuTriphasari/zlk-ai/pkg/config"
)

// Uploader определяет интерфейс загрузки файла в хранилище.
// Используется для мокания в тестах и внедрения зависимостей.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename, contentType string) (string, error)
}

// Client — клиент R2-совместимого объектного хранилища поверх minio.
type Client struct {
	api       *minio.Client
	bucket    string
	publicURL string
}

var _ Uploader = (*Client)(nil)

// New создает клиент из конфига хранилища.
func New(cfg config.S3Config) (*Client, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &Client{
		api:       minioClient,
		bucket:    cfg.Bucket,
		publicURL: cfg.PublicURL,
	}, nil
}

// Upload кладет файл в uploads/ и возвращает публичный URL.
//
// Ключ уникален на каждую загрузку: unix-время + uuid + исходное имя.
// Одноимённые файлы не перетирают друг друга.
func (c *Client) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	key := fmt.Sprintf("uploads/%d-%s-%s", time.Now().Unix(), uuid.NewString(), filename)

	_, err := c.api.PutObject(ctx, c.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload '%s' to bucket '%s': %w", key, c.bucket, err)
	}

	return fmt.Sprintf("%s/%s", c.publicURL, key), nil
}
