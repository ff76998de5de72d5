package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a wallet that has completed sign-in at least once.
type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Wallet      string     `gorm:"column:wallet;type:text;not null;uniqueIndex"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
