package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Уровни доступа к документу
const (
	AccessPublic  = "public"
	AccessPrivate = "private"
)

// MetadataMap хранится в Postgres как jsonb
type MetadataMap map[string]string

func (m MetadataMap) Value() (driver.Value, error) {
	if m == nil {
		m = MetadataMap{}
	}
	return json.Marshal(m)
}

func (m *MetadataMap) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = MetadataMap{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata column type %T", value)
	}
}

// Clone returns a copy safe to mutate.
func (m MetadataMap) Clone() MetadataMap {
	out := make(MetadataMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Document is one uploaded file plus its searchable attributes. The blob
// itself lives in S3 under FileKey; this record is the source of truth for
// everything else.
type Document struct {
	ID          uint        `gorm:"primarykey" json:"id"`
	FileName    string      `gorm:"not null" json:"fileName"`
	FileKey     string      `gorm:"uniqueIndex;not null" json:"fileKey"`
	FileSize    int64       `json:"fileSize"`
	FileType    string      `json:"fileType"`
	Name        string      `json:"name"`
	Metadata    MetadataMap `gorm:"type:jsonb" json:"metadata"`
	AccessLevel string      `gorm:"default:private" json:"accessLevel"`
	CreatedAt   time.Time   `json:"uploadedAt"`
	UpdatedAt   time.Time   `json:"lastUpdated"`
}
