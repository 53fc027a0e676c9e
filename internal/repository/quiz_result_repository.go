package repository

import (
	"context"
	"english_virtual_lab/internal/model"
	"time"

	"gorm.io/gorm"
)

type QuizResultRepository struct {
	DB *gorm.DB
}

func NewQuizResultRepository(db *gorm.DB) *QuizResultRepository {
	return &QuizResultRepository{DB: db}
}

// Insert 追加一条测验结果，completed_at 为空时在插入时赋值
func (r *QuizResultRepository) Insert(ctx context.Context, result *model.QuizResult) (*model.QuizResult, error) {
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now()
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Create(result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// ListRecent 按完成时间倒序返回最近的结果
func (r *QuizResultRepository) ListRecent(ctx context.Context, userID string, limit int) ([]model.QuizResult, error) {
	var results []model.QuizResult
	q := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type QuizStats struct {
	Count   int64
	Average float64
}

// Stats 测验次数与平均得分率（百分比）
func (r *QuizResultRepository) Stats(ctx context.Context, userID string) (*QuizStats, error) {
	var stats QuizStats
	err := r.DB.WithContext(ctx).
		Model(&model.QuizResult{}).
		Select("COUNT(*) AS count, COALESCE(AVG(score * 100.0 / total_questions), 0) AS average").
		Where("user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
