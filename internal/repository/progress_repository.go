package repository

import (
	"context"
	"english_virtual_lab/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// ListCompletedContentIDs 查询用户在某类内容下已完成的内容ID
func (r *ProgressRepository) ListCompletedContentIDs(ctx context.Context, userID string, contentType model.ContentType) ([]string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).
		Model(&model.ProgressRecord{}).
		Where("user_id = ? AND content_type = ? AND completed = ?", userID, contentType, true).
		Order("content_id").
		Pluck("content_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Upsert 按 (user_id, content_type, content_id) 插入或覆盖
func (r *ProgressRepository) Upsert(ctx context.Context, rec *model.ProgressRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "content_type"},
			{Name: "content_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"completed", "last_accessed", "updated_at"}),
	}).Create(rec).Error
}

func (r *ProgressRepository) Find(ctx context.Context, userID string, contentType model.ContentType, contentID string) (*model.ProgressRecord, error) {
	var rec model.ProgressRecord
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND content_type = ? AND content_id = ?", userID, contentType, contentID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountCompleted 按内容类型统计已完成数量
func (r *ProgressRepository) CountCompleted(ctx context.Context, userID string) (map[model.ContentType]int64, error) {
	var rows []struct {
		ContentType model.ContentType
		Total       int64
	}
	err := r.DB.WithContext(ctx).
		Model(&model.ProgressRecord{}).
		Select("content_type, COUNT(*) AS total").
		Where("user_id = ? AND completed = ?", userID, true).
		Group("content_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.ContentType]int64, len(model.ContentTypes))
	for _, ct := range model.ContentTypes {
		counts[ct] = 0
	}
	for _, row := range rows {
		counts[row.ContentType] = row.Total
	}
	return counts, nil
}
