package ledger

import (
	"fmt"
	"time"

	"github.com/crispyspin/crispyspin-backend/pkg/db/models"
	"github.com/crispyspin/crispyspin-backend/pkg/enums"
)

// ApplySpin charges one spin to entry along path and credits points. A free
// spin moves the cooldown; a credit spin consumes one credit. Never both.
func ApplySpin(entry *models.LedgerEntry, path enums.SpinPath, points int64, now time.Time) error {
	if entry == nil {
		return fmt.Errorf("ledger entry required")
	}
	if points < 0 {
		return fmt.Errorf("negative points %d", points)
	}
	switch path {
	case enums.SpinPathFree:
		at := now.UTC()
		entry.LastSpinAt = &at
	case enums.SpinPathCredit:
		if entry.SpinCredits <= 0 {
			return fmt.Errorf("wallet %s has no spin credits", entry.Wallet)
		}
		entry.SpinCredits--
	default:
		return fmt.Errorf("unknown spin path %q", path)
	}
	entry.PointsTotal += points
	return nil
}

// ApplyCredits adds purchased credits and bonus points to entry.
func ApplyCredits(entry *models.LedgerEntry, credits, bonusPoints int64) error {
	if entry == nil {
		return fmt.Errorf("ledger entry required")
	}
	if credits < 0 || bonusPoints < 0 {
		return fmt.Errorf("negative credit adjustment")
	}
	entry.SpinCredits += credits
	entry.PointsTotal += bonusPoints
	return nil
}
