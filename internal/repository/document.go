package repository

import (
	"tush00nka/topovault/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DocumentRepository interface {
	Create(doc *model.Document) error
	// CreateIfAbsent inserts the document unless a record with the same
	// file key already exists. Reports whether a row was actually created.
	CreateIfAbsent(doc *model.Document) (bool, error)
	FindByID(id uint) (*model.Document, error)
	FindAll() ([]model.Document, error)
	Save(doc *model.Document) error
	Delete(id uint) error
	FileKeys() ([]string, error)
	FileKeyExists(key string) (bool, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

func (r *documentRepository) CreateIfAbsent(doc *model.Document) (bool, error) {
	// ON CONFLICT (file_key) DO NOTHING: гонка между загрузкой и синком
	// даёт no-op, а не дубликат
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_key"}},
		DoNothing: true,
	}).Create(doc)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *documentRepository) FindByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindAll() ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.Order("id").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepository) Save(doc *model.Document) error {
	return r.db.Save(doc).Error
}

func (r *documentRepository) Delete(id uint) error {
	return r.db.Delete(&model.Document{}, id).Error
}

func (r *documentRepository) FileKeys() ([]string, error) {
	var keys []string
	err := r.db.Model(&model.Document{}).Pluck("file_key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *documentRepository) FileKeyExists(key string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Document{}).Where("file_key = ?", key).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
