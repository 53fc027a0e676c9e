package model

import (
	"fmt"
	"time"
)

type ContentType string

const (
	ContentArticle ContentType = "article"
	ContentVideo   ContentType = "video"
)

var ContentTypes = []ContentType{ContentArticle, ContentVideo}

func ParseContentType(s string) (ContentType, error) {
	switch ContentType(s) {
	case ContentArticle, ContentVideo:
		return ContentType(s), nil
	}
	return "", fmt.Errorf("%w: content type %q", ErrInvalidRecord, s)
}

// ProgressRecord 用户对某个内容的完成记录，(user_id, content_type, content_id) 唯一
// swagger:model ProgressRecord
type ProgressRecord struct {
	ID           uint        `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID       string      `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_content,priority:1" json:"userId" validate:"required"`
	ContentType  ContentType `gorm:"type:varchar(16);not null;uniqueIndex:idx_user_content,priority:2" json:"contentType" validate:"required,oneof=article video"`
	ContentID    string      `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_content,priority:3" json:"contentId" validate:"required,max=64"`
	Completed    bool        `gorm:"not null;default:false" json:"completed"`
	LastAccessed time.Time   `gorm:"not null" json:"lastAccessed" validate:"required"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func (ProgressRecord) TableName() string {
	return "user_progress"
}

func (r *ProgressRecord) Validate() error {
	return validateStruct(r)
}
