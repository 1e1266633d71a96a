package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"tush00nka/topovault/internal/model"
	"tush00nka/topovault/internal/pkg/metadata"
	"tush00nka/topovault/internal/repository"
	"tush00nka/topovault/internal/ws"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrDocumentNotFound = errors.New("document not found")

// ReservedKeyError: обновление целиком отклонено из-за попытки изменить
// системные ключи метаданных
type ReservedKeyError struct {
	Keys []string
}

func (e *ReservedKeyError) Error() string {
	return fmt.Sprintf("reserved metadata keys cannot be changed: %s", strings.Join(e.Keys, ", "))
}

// presignCacheMargin keeps the cached URL from outliving the URL itself.
const presignCacheMargin = 30 * time.Second

const documentListCacheTTL = 5 * time.Minute

type documentService struct {
	repo       repository.DocumentRepository
	storage    ObjectStorage
	cache      repository.DocumentCacheRepository
	events     EventPublisher
	presignTTL time.Duration
}

func NewDocumentService(
	repo repository.DocumentRepository,
	storage ObjectStorage,
	cache repository.DocumentCacheRepository,
	events EventPublisher,
	presignTTL time.Duration,
) DocumentService {
	return &documentService{
		repo:       repo,
		storage:    storage,
		cache:      cache,
		events:     events,
		presignTTL: presignTTL,
	}
}

// CreateDocument registers a record for an already-known file key without
// uploading a blob. Funnels through the same create merger as the upload
// path, but without year/month (those belong to direct uploads only).
func (s *documentService) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*model.Document, error) {
	if strings.TrimSpace(req.FileKey) == "" {
		return nil, errors.New("fileKey is required")
	}
	if strings.TrimSpace(req.FileName) == "" {
		return nil, errors.New("fileName is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.New("name is required")
	}
	accessLevel, err := normalizeAccessLevel(req.AccessLevel)
	if err != nil {
		return nil, err
	}

	meta, dropped := metadata.BuildCreateMetadata(metadata.SystemFields{
		OriginalFilename: req.FileName,
		LogicalName:      name,
	}, req.Metadata)
	if len(dropped) > 0 {
		log.Printf("create: dropped reserved metadata keys: %s", strings.Join(dropped, ", "))
	}

	doc := &model.Document{
		FileName:    req.FileName,
		FileKey:     req.FileKey,
		FileSize:    req.FileSize,
		FileType:    req.FileType,
		Name:        name,
		Metadata:    meta,
		AccessLevel: accessLevel,
	}

	if err := s.repo.Create(doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	s.invalidateListCache(ctx)
	s.events.PublishDocumentEvent(ws.EventTypeDocumentCreated, doc)

	return doc, nil
}

// UploadDocument stores the file in S3 with mirrored headers and then
// persists the record. The blob write is the primary effect here: if it
// fails, nothing is created.
func (s *documentService) UploadDocument(ctx context.Context, req UploadDocumentRequest) (*model.Document, error) {
	if req.File == nil {
		return nil, errors.New("file is required")
	}
	if strings.TrimSpace(req.FileName) == "" {
		return nil, errors.New("fileName is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		// Логическое имя по умолчанию — имя файла без расширения
		name = strings.TrimSuffix(req.FileName, filepath.Ext(req.FileName))
	}
	accessLevel, err := normalizeAccessLevel(req.AccessLevel)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	meta, dropped := metadata.BuildCreateMetadata(metadata.SystemFields{
		OriginalFilename: req.FileName,
		LogicalName:      name,
		Year:             strconv.Itoa(now.Year()),
		Month:            now.Format("Jan"),
	}, req.Metadata)
	if len(dropped) > 0 {
		log.Printf("upload: dropped reserved metadata keys: %s", strings.Join(dropped, ", "))
	}

	fileKey := uuid.New().String() + "-" + req.FileName

	headers := blobHeaders(meta, accessLevel)
	if err := s.storage.Upload(ctx, fileKey, req.File, req.ContentType, headers); err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	doc := &model.Document{
		FileName:    req.FileName,
		FileKey:     fileKey,
		FileSize:    req.FileSize,
		FileType:    req.ContentType,
		Name:        name,
		Metadata:    meta,
		AccessLevel: accessLevel,
	}

	if err := s.repo.Create(doc); err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	s.invalidateListCache(ctx)
	s.events.PublishDocumentEvent(ws.EventTypeDocumentCreated, doc)

	return doc, nil
}

// UpdateDocument applies name/access-level/metadata changes all-or-nothing.
// A reserved-key conflict rejects the whole update. The blob header mirror
// afterwards is best-effort: the record is the source of truth, so a mirror
// failure is logged and never fails the call.
func (s *documentService) UpdateDocument(ctx context.Context, id uint, req UpdateDocumentRequest) (*model.Document, error) {
	doc, err := s.findByID(id)
	if err != nil {
		return nil, err
	}

	newMeta, rejected := metadata.BuildUpdateMetadata(doc.Metadata, req.Metadata)
	if len(rejected) > 0 {
		return nil, &ReservedKeyError{Keys: rejected}
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		doc.Name = name
		newMeta[metadata.KeyTopology] = name
	}
	if req.AccessLevel != "" {
		accessLevel, err := normalizeAccessLevel(req.AccessLevel)
		if err != nil {
			return nil, err
		}
		doc.AccessLevel = accessLevel
	}
	doc.Metadata = newMeta

	if err := s.repo.Save(doc); err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	s.mirrorToBlob(ctx, doc)
	s.invalidateListCache(ctx)
	s.events.PublishDocumentEvent(ws.EventTypeDocumentUpdated, doc)

	return doc, nil
}

func (s *documentService) GetDocument(ctx context.Context, id uint) (*model.Document, error) {
	return s.findByID(id)
}

func (s *documentService) ListDocuments(ctx context.Context) ([]model.Document, error) {
	if docs, ok, err := s.cache.GetDocumentList(ctx); err == nil && ok {
		return docs, nil
	} else if err != nil {
		log.Printf("failed to read document list cache: %v", err)
	}

	docs, err := s.repo.FindAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	if err := s.cache.SaveDocumentList(ctx, docs, documentListCacheTTL); err != nil {
		log.Printf("failed to cache document list: %v", err)
	}

	return docs, nil
}

// DeleteDocument removes the blob first: a record pointing at a missing blob
// is worse than a blob without a record (the sync would just re-discover the
// latter).
func (s *documentService) DeleteDocument(ctx context.Context, id uint) error {
	doc, err := s.findByID(id)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, doc.FileKey); err != nil {
		return fmt.Errorf("failed to delete file from storage: %w", err)
	}

	if err := s.repo.Delete(doc.ID); err != nil {
		return fmt.Errorf("failed to delete document record: %w", err)
	}

	if err := s.cache.DeleteDownloadURL(ctx, doc.FileKey); err != nil {
		log.Printf("failed to drop cached download url: %v", err)
	}
	s.invalidateListCache(ctx)
	s.events.PublishDocumentEvent(ws.EventTypeDocumentDeleted, doc)

	return nil
}

func (s *documentService) DownloadURL(ctx context.Context, id uint) (string, error) {
	doc, err := s.findByID(id)
	if err != nil {
		return "", err
	}

	if url, err := s.cache.GetDownloadURL(ctx, doc.FileKey); err == nil && url != "" {
		return url, nil
	} else if err != nil {
		log.Printf("failed to read download url cache: %v", err)
	}

	url, err := s.storage.PresignedURL(ctx, doc.FileKey, s.presignTTL)
	if err != nil {
		return "", err
	}

	if ttl := s.presignTTL - presignCacheMargin; ttl > 0 {
		if err := s.cache.SaveDownloadURL(ctx, doc.FileKey, url, ttl); err != nil {
			log.Printf("failed to cache download url: %v", err)
		}
	}

	return url, nil
}

func (s *documentService) findByID(id uint) (*model.Document, error) {
	if id == 0 {
		return nil, ErrDocumentNotFound
	}
	doc, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return doc, nil
}

// mirrorToBlob pushes the record's metadata onto the blob headers. Best
// effort only: failures are logged, the caller never sees them.
func (s *documentService) mirrorToBlob(ctx context.Context, doc *model.Document) {
	headers := blobHeaders(doc.Metadata, doc.AccessLevel)
	headers[metadata.KeyTopology] = doc.Name

	if headers[metadata.KeyOriginalFilename] == "" {
		// В записи может не быть original-filename (старые записи) —
		// сохраняем его из текущих заголовков объекта
		head, err := s.storage.Head(ctx, doc.FileKey)
		if err != nil {
			log.Printf("⚠️ metadata mirror skipped for %s: %v", doc.FileKey, err)
			return
		}
		if v := head.Metadata[metadata.KeyOriginalFilename]; v != "" {
			headers[metadata.KeyOriginalFilename] = v
		}
	}

	if err := s.storage.ReplaceMetadata(ctx, doc.FileKey, headers); err != nil {
		log.Printf("⚠️ failed to mirror metadata to %s: %v", doc.FileKey, err)
	}
}

// blobHeaders builds the full replacement header set for the object.
func blobHeaders(meta model.MetadataMap, accessLevel string) map[string]string {
	headers := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		headers[k] = v
	}
	headers[metadata.HeaderAccessLevel] = accessLevel
	return headers
}

func normalizeAccessLevel(level string) (string, error) {
	switch level {
	case "":
		return model.AccessPrivate, nil
	case model.AccessPrivate, model.AccessPublic:
		return level, nil
	default:
		return "", fmt.Errorf("invalid access level %q", level)
	}
}

func (s *documentService) invalidateListCache(ctx context.Context) {
	if err := s.cache.InvalidateDocumentList(ctx); err != nil {
		log.Printf("failed to invalidate document list cache: %v", err)
	}
}
