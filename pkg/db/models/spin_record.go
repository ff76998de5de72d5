package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crispyspin/crispyspin-backend/pkg/enums"
)

// SpinRecord is the append-only journal row written for every committed spin.
type SpinRecord struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Wallet         string           `gorm:"column:wallet;type:text;not null;index"`
	RewardKind     enums.RewardKind `gorm:"column:reward_kind;type:text;not null"`
	RewardValue    string           `gorm:"column:reward_value;type:text;not null"`
	Path           enums.SpinPath   `gorm:"column:path;type:text;not null"`
	PointsAwarded  int64            `gorm:"column:points_awarded;not null"`
	AttestationRef *string          `gorm:"column:attestation_ref"`
	CreatedAt      time.Time        `gorm:"column:created_at;not null"`
}

func (SpinRecord) TableName() string { return "spin_records" }

func (r *SpinRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
