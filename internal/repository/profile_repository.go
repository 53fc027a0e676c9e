package repository

import (
	"context"
	"english_virtual_lab/internal/model"

	"gorm.io/gorm"
)

type ProfileRepository struct {
	DB *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{DB: db}
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) UpdateFullName(ctx context.Context, id, fullName string) error {
	res := r.DB.WithContext(ctx).
		Model(&model.Profile{}).
		Where("id = ?", id).
		Update("full_name", fullName)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
