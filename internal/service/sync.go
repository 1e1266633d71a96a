package service

import (
	"context"
	"fmt"
	"log"
	"path"
	"strconv"
	"strings"
	"time"
	"tush00nka/topovault/internal/model"
	"tush00nka/topovault/internal/pkg/metadata"
	"tush00nka/topovault/internal/repository"
	"tush00nka/topovault/internal/ws"

	"github.com/google/uuid"
)

// headTimeout ограничивает head-запрос по одному объекту, чтобы один
// зависший объект не останавливал весь синк
const headTimeout = 10 * time.Second

type SyncResult struct {
	SyncedCount int              `json:"syncedCount"`
	Documents   []model.Document `json:"documents"`
}

type syncService struct {
	repo    repository.DocumentRepository
	storage ObjectStorage
	cache   repository.DocumentCacheRepository
	events  EventPublisher
}

func NewSyncService(
	repo repository.DocumentRepository,
	storage ObjectStorage,
	cache repository.DocumentCacheRepository,
	events EventPublisher,
) SyncService {
	return &syncService{
		repo:    repo,
		storage: storage,
		cache:   cache,
		events:  events,
	}
}

// SyncFromStore walks the bucket and creates records for objects the
// database does not know yet. Additive only: known keys are never touched.
// Per-object failures are skipped; only a failed listing or an unreachable
// database fail the whole run.
func (s *syncService) SyncFromStore(ctx context.Context) (*SyncResult, error) {
	keys, err := s.repo.FileKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to load known file keys: %w", err)
	}
	known := make(map[string]bool, len(keys))
	for _, key := range keys {
		known[key] = true
	}

	objects, err := s.storage.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket: %w", err)
	}

	result := &SyncResult{Documents: []model.Document{}}

	for _, obj := range objects {
		if known[obj.Key] {
			continue
		}

		doc, err := s.recordFromObject(ctx, obj)
		if err != nil {
			log.Printf("sync: skipping object %s: %v", obj.Key, err)
			continue
		}

		created, err := s.repo.CreateIfAbsent(doc)
		if err != nil {
			log.Printf("sync: failed to insert record for %s: %v", obj.Key, err)
			continue
		}
		if !created {
			// Параллельная загрузка успела раньше нас — это не ошибка
			continue
		}

		result.SyncedCount++
		result.Documents = append(result.Documents, *doc)
	}

	if result.SyncedCount > 0 {
		if err := s.cache.InvalidateDocumentList(ctx); err != nil {
			log.Printf("sync: failed to invalidate document list cache: %v", err)
		}
		s.events.PublishDocumentEvent(ws.EventTypeSyncCompleted, result)
	}

	log.Printf("🔄 Sync finished: %d new document(s)", result.SyncedCount)
	return result, nil
}

// recordFromObject re-derives a document record from the object's headers.
func (s *syncService) recordFromObject(ctx context.Context, obj model.ObjectInfo) (*model.Document, error) {
	hctx, cancel := context.WithTimeout(ctx, headTimeout)
	defer cancel()

	head, err := s.storage.Head(hctx, obj.Key)
	if err != nil {
		return nil, err
	}

	fileName := head.Metadata[metadata.KeyOriginalFilename]
	if fileName == "" {
		fileName = stripKeyPrefix(obj.Key)
	}

	name := head.Metadata[metadata.KeyTopology]
	if name == "" {
		name = strings.TrimSuffix(fileName, path.Ext(fileName))
	}

	// Доступ по умолчанию закрытый: незнакомый объект не должен внезапно
	// стать публичным
	accessLevel := head.Metadata[metadata.HeaderAccessLevel]
	if accessLevel != model.AccessPublic {
		accessLevel = model.AccessPrivate
	}

	meta := model.MetadataMap{}
	for key, value := range head.Metadata {
		if key == metadata.HeaderAccessLevel || key == "content-type" {
			continue
		}
		meta[key] = value
	}

	return &model.Document{
		FileName:    fileName,
		FileKey:     obj.Key,
		FileSize:    obj.Size,
		FileType:    head.ContentType,
		Name:        name,
		Metadata:    meta,
		AccessLevel: accessLevel,
	}, nil
}

// stripKeyPrefix drops the presumed "<uuid>-" or "<timestamp>-" prefix the
// upload path puts in front of the original filename.
func stripKeyPrefix(key string) string {
	base := path.Base(key)

	if len(base) > 37 && base[36] == '-' {
		if _, err := uuid.Parse(base[:36]); err == nil {
			return base[37:]
		}
	}

	if i := strings.IndexByte(base, '-'); i > 0 && i+1 < len(base) {
		if _, err := strconv.ParseInt(base[:i], 10, 64); err == nil {
			return base[i+1:]
		}
	}

	return base
}
