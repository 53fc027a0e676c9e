package model

import "time"

// Profile 用户资料，主键与 users.id 一致
// swagger:model Profile
type Profile struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id" validate:"required"`
	FullName  string    `gorm:"size:255" json:"fullName" validate:"max=255"`
	Email     string    `gorm:"size:255" json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Profile) TableName() string {
	return "profiles"
}

// DisplayName 未填写姓名时回退为 "Student"
func (p *Profile) DisplayName() string {
	if p == nil || p.FullName == "" {
		return "Student"
	}
	return p.FullName
}
