package models

import "time"

// LedgerEntry is the per-wallet balance row and the unit of mutual exclusion
// for spins and settlements.
type LedgerEntry struct {
	Wallet      string     `gorm:"column:wallet;type:text;primaryKey"`
	PointsTotal int64      `gorm:"column:points_total;not null;default:0"`
	LastSpinAt  *time.Time `gorm:"column:last_spin_at"`
	SpinCredits int64      `gorm:"column:spin_credits;not null;default:0"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }
