package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"
	"tush00nka/topovault/internal/model"

	"gorm.io/gorm"
)

// In-memory реализации зависимостей сервисов

type fakeDocumentRepo struct {
	nextID  uint
	docs    map[uint]*model.Document
	byKey   map[string]uint
	listErr error
	saveErr error
	saves   int
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{
		nextID: 1,
		docs:   make(map[uint]*model.Document),
		byKey:  make(map[string]uint),
	}
}

func (r *fakeDocumentRepo) Create(doc *model.Document) error {
	if _, exists := r.byKey[doc.FileKey]; exists {
		return fmt.Errorf("duplicate file key %s", doc.FileKey)
	}
	doc.ID = r.nextID
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	r.nextID++
	copied := *doc
	r.docs[doc.ID] = &copied
	r.byKey[doc.FileKey] = doc.ID
	return nil
}

func (r *fakeDocumentRepo) CreateIfAbsent(doc *model.Document) (bool, error) {
	if _, exists := r.byKey[doc.FileKey]; exists {
		return false, nil
	}
	return true, r.Create(doc)
}

func (r *fakeDocumentRepo) FindByID(id uint) (*model.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *doc
	copied.Metadata = doc.Metadata.Clone()
	return &copied, nil
}

func (r *fakeDocumentRepo) FindAll() ([]model.Document, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	ids := make([]int, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	docs := make([]model.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, *r.docs[uint(id)])
	}
	return docs, nil
}

func (r *fakeDocumentRepo) Save(doc *model.Document) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	if _, ok := r.docs[doc.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.saves++
	doc.UpdatedAt = time.Now()
	copied := *doc
	r.docs[doc.ID] = &copied
	return nil
}

func (r *fakeDocumentRepo) Delete(id uint) error {
	doc, ok := r.docs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.byKey, doc.FileKey)
	delete(r.docs, id)
	return nil
}

func (r *fakeDocumentRepo) FileKeys() ([]string, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	keys := make([]string, 0, len(r.byKey))
	for key := range r.byKey {
		keys = append(keys, key)
	}
	return keys, nil
}

func (r *fakeDocumentRepo) FileKeyExists(key string) (bool, error) {
	_, ok := r.byKey[key]
	return ok, nil
}

type fakeObject struct {
	head model.ObjectHead
	size int64
}

type fakeObjectStorage struct {
	objects      map[string]fakeObject
	order        []string
	headErr      map[string]error
	listErr      error
	uploadErr    error
	deleteErr    error
	replaceErr   error
	replaceCalls map[string]map[string]string
	deleted      []string
	presignURL   string
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{
		objects:      make(map[string]fakeObject),
		headErr:      make(map[string]error),
		replaceCalls: make(map[string]map[string]string),
		presignURL:   "https://example.com/presigned",
	}
}

func (s *fakeObjectStorage) addObject(key string, size int64, meta map[string]string, contentType string) {
	s.objects[key] = fakeObject{
		head: model.ObjectHead{Metadata: meta, ContentType: contentType, ContentLength: size},
		size: size,
	}
	s.order = append(s.order, key)
}

func (s *fakeObjectStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string, meta map[string]string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	s.addObject(key, 0, meta, contentType)
	return nil
}

func (s *fakeObjectStorage) Head(ctx context.Context, key string) (*model.ObjectHead, error) {
	if err := s.headErr[key]; err != nil {
		return nil, err
	}
	obj, ok := s.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	head := obj.head
	return &head, nil
}

func (s *fakeObjectStorage) ListAll(ctx context.Context) ([]model.ObjectInfo, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	infos := make([]model.ObjectInfo, 0, len(s.order))
	for _, key := range s.order {
		infos = append(infos, model.ObjectInfo{Key: key, Size: s.objects[key].size})
	}
	return infos, nil
}

func (s *fakeObjectStorage) ReplaceMetadata(ctx context.Context, key string, meta map[string]string) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.replaceCalls[key] = meta
	return nil
}

func (s *fakeObjectStorage) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeObjectStorage) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return s.presignURL, nil
}

type fakeCache struct {
	urls map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{urls: make(map[string]string)}
}

func (c *fakeCache) SaveDownloadURL(ctx context.Context, fileKey, url string, ttl time.Duration) error {
	c.urls[fileKey] = url
	return nil
}

func (c *fakeCache) GetDownloadURL(ctx context.Context, fileKey string) (string, error) {
	return c.urls[fileKey], nil
}

func (c *fakeCache) DeleteDownloadURL(ctx context.Context, fileKey string) error {
	delete(c.urls, fileKey)
	return nil
}

func (c *fakeCache) SaveDocumentList(ctx context.Context, docs []model.Document, ttl time.Duration) error {
	return nil
}

func (c *fakeCache) GetDocumentList(ctx context.Context) ([]model.Document, bool, error) {
	return nil, false, nil
}

func (c *fakeCache) InvalidateDocumentList(ctx context.Context) error {
	return nil
}

type fakeEvents struct {
	events []string
}

func (e *fakeEvents) PublishDocumentEvent(eventType string, payload any) {
	e.events = append(e.events, eventType)
}
