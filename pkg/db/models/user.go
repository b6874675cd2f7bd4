package models

import (
	"time"

	"github.com/cartacocktail/carta-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an operator account allowed to manage the bar.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email        string     `gorm:"column:email;type:text;not null;uniqueIndex:idx_users_email"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	DisplayName  string     `gorm:"column:display_name;not null"`
	Role         string     `gorm:"column:role;not null"`
	IsActive     bool       `gorm:"column:is_active;not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	if u.Role == "" {
		u.Role = string(enums.UserRoleAdmin)
	}
	return nil
}
