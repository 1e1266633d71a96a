package service

import (
	"context"
	"io"
	"time"
	"tush00nka/topovault/internal/model"
	"tush00nka/topovault/internal/pkg/metadata"
)

// ObjectStorage is the blob store contract the services depend on. The real
// implementation is S3Service; tests plug in fakes.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string, meta map[string]string) error
	Head(ctx context.Context, key string) (*model.ObjectHead, error)
	ListAll(ctx context.Context) ([]model.ObjectInfo, error)
	// ReplaceMetadata swaps the object's whole header set. S3 has no partial
	// header patch: this is a copy of the object onto itself.
	ReplaceMetadata(ctx context.Context, key string, meta map[string]string) error
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// EventPublisher пушит события жизненного цикла документов в UI
type EventPublisher interface {
	PublishDocumentEvent(eventType string, payload any)
}

type DocumentService interface {
	CreateDocument(ctx context.Context, req CreateDocumentRequest) (*model.Document, error)
	UploadDocument(ctx context.Context, req UploadDocumentRequest) (*model.Document, error)
	UpdateDocument(ctx context.Context, id uint, req UpdateDocumentRequest) (*model.Document, error)
	GetDocument(ctx context.Context, id uint) (*model.Document, error)
	ListDocuments(ctx context.Context) ([]model.Document, error)
	DeleteDocument(ctx context.Context, id uint) error
	DownloadURL(ctx context.Context, id uint) (string, error)
}

type SyncService interface {
	SyncFromStore(ctx context.Context) (*SyncResult, error)
}

type CreateDocumentRequest struct {
	FileName    string
	FileKey     string
	FileSize    int64
	FileType    string
	Name        string
	AccessLevel string
	Metadata    []metadata.Pair
}

type UploadDocumentRequest struct {
	File        io.Reader
	FileName    string
	FileSize    int64
	ContentType string
	Name        string
	AccessLevel string
	Metadata    []metadata.Pair
}

// UpdateDocumentRequest: пустые Name/AccessLevel означают "не менять",
// Metadata всегда присылается целиком
type UpdateDocumentRequest struct {
	Name        string
	AccessLevel string
	Metadata    []metadata.Pair
}
