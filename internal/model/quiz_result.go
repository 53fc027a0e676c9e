package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// QuizResult 一次测验提交的结果，只追加不修改
// swagger:model QuizResult
type QuizResult struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	AttemptID      string         `gorm:"type:varchar(32);index" json:"attemptId"`
	UserID         string         `gorm:"type:varchar(36);index;not null" json:"userId" validate:"required"`
	QuizTitle      string         `gorm:"size:255;not null" json:"quizTitle" validate:"required"`
	Score          int            `gorm:"not null" json:"score" validate:"gte=0"`
	TotalQuestions int            `gorm:"not null" json:"totalQuestions" validate:"gt=0"`
	Answers        datatypes.JSON `json:"answers,omitempty"`
	CompletedAt    time.Time      `gorm:"index;not null" json:"completedAt"`
}

func (QuizResult) TableName() string {
	return "quiz_results"
}

func (r *QuizResult) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	if r.Score > r.TotalQuestions {
		return fmt.Errorf("%w: score %d exceeds total %d", ErrInvalidRecord, r.Score, r.TotalQuestions)
	}
	return nil
}

// Percentage 100*score/total，四舍五入
func (r *QuizResult) Percentage() int {
	if r.TotalQuestions <= 0 {
		return 0
	}
	return (200*r.Score + r.TotalQuestions) / (2 * r.TotalQuestions)
}
