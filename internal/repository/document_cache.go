package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"tush00nka/topovault/internal/model"

	"github.com/redis/go-redis/v9"
)

const documentListKey = "documents:list"

// DocumentCacheRepository интерфейс кеша документов
type DocumentCacheRepository interface {
	SaveDownloadURL(ctx context.Context, fileKey, url string, ttl time.Duration) error
	GetDownloadURL(ctx context.Context, fileKey string) (string, error)
	DeleteDownloadURL(ctx context.Context, fileKey string) error

	SaveDocumentList(ctx context.Context, docs []model.Document, ttl time.Duration) error
	GetDocumentList(ctx context.Context) ([]model.Document, bool, error)
	InvalidateDocumentList(ctx context.Context) error
}

type documentCacheRepository struct {
	rdb *redis.Client
}

func NewDocumentCacheRepository(rdb *redis.Client) DocumentCacheRepository {
	return &documentCacheRepository{rdb: rdb}
}

func (r *documentCacheRepository) downloadURLKey(fileKey string) string {
	return fmt.Sprintf("document:%s:download_url", fileKey)
}

func (r *documentCacheRepository) SaveDownloadURL(ctx context.Context, fileKey, url string, ttl time.Duration) error {
	if fileKey == "" {
		return fmt.Errorf("fileKey cannot be empty")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	return r.rdb.Set(ctx, r.downloadURLKey(fileKey), url, ttl).Err()
}

// GetDownloadURL возвращает "" при промахе кеша
func (r *documentCacheRepository) GetDownloadURL(ctx context.Context, fileKey string) (string, error) {
	url, err := r.rdb.Get(ctx, r.downloadURLKey(fileKey)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("failed to get download url from redis: %w", err)
	}
	return url, nil
}

func (r *documentCacheRepository) DeleteDownloadURL(ctx context.Context, fileKey string) error {
	return r.rdb.Del(ctx, r.downloadURLKey(fileKey)).Err()
}

func (r *documentCacheRepository) SaveDocumentList(ctx context.Context, docs []model.Document, ttl time.Duration) error {
	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to marshal document list: %w", err)
	}
	return r.rdb.Set(ctx, documentListKey, data, ttl).Err()
}

func (r *documentCacheRepository) GetDocumentList(ctx context.Context) ([]model.Document, bool, error) {
	data, err := r.rdb.Get(ctx, documentListKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get document list from redis: %w", err)
	}

	var docs []model.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		// Битый кеш не должен ломать листинг
		return nil, false, nil
	}
	return docs, true, nil
}

func (r *documentCacheRepository) InvalidateDocumentList(ctx context.Context) error {
	return r.rdb.Del(ctx, documentListKey).Err()
}
