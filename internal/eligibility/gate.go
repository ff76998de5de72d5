package eligibility

import (
	"time"

	"github.com/crispyspin/crispyspin-backend/pkg/db/models"
	"github.com/crispyspin/crispyspin-backend/pkg/enums"
)

// Cooldown is the minimum spacing between free spins.
const Cooldown = 24 * time.Hour

// Decision is the gate outcome for one wallet at one instant.
type Decision struct {
	Allowed          bool                `json:"allowed"`
	Path             enums.SpinPath      `json:"path,omitempty"`
	RemainingSeconds int64               `json:"remainingSeconds"`
	SpinCredits      int64               `json:"spinCredits"`
	Reason           enums.FailureReason `json:"reason,omitempty"`
}

// Gate decides whether a wallet may spin and which balance pays for it.
// It is pure; callers must evaluate it against a row they hold locked.
type Gate struct {
	cooldown time.Duration
}

func NewGate(cooldown time.Duration) *Gate {
	if cooldown <= 0 {
		cooldown = Cooldown
	}
	return &Gate{cooldown: cooldown}
}

// Evaluate applies the cooldown/credit rules. A nil entry is a wallet that
// has never interacted with the ledger.
func (g *Gate) Evaluate(entry *models.LedgerEntry, now time.Time, pref enums.SpinPreference) Decision {
	var (
		credits    int64
		lastSpinAt *time.Time
	)
	if entry != nil {
		credits = entry.SpinCredits
		lastSpinAt = entry.LastSpinAt
	}

	remaining := g.remaining(lastSpinAt, now)

	if pref == enums.SpinPreferenceCredit {
		if credits > 0 {
			return Decision{Allowed: true, Path: enums.SpinPathCredit, SpinCredits: credits}
		}
		return Decision{RemainingSeconds: ceilSeconds(remaining), SpinCredits: credits, Reason: enums.ReasonNoCredits}
	}

	if remaining <= 0 {
		return Decision{Allowed: true, Path: enums.SpinPathFree, SpinCredits: credits}
	}
	if credits > 0 {
		return Decision{Allowed: true, Path: enums.SpinPathCredit, RemainingSeconds: ceilSeconds(remaining), SpinCredits: credits}
	}
	return Decision{
		RemainingSeconds: ceilSeconds(remaining),
		SpinCredits:      credits,
		Reason:           enums.ReasonInsufficientCooldown,
	}
}

func (g *Gate) remaining(lastSpinAt *time.Time, now time.Time) time.Duration {
	if lastSpinAt == nil {
		return 0
	}
	elapsed := now.Sub(*lastSpinAt)
	if elapsed < 0 {
		// clock skew between writers; never extend the window beyond one cooldown
		elapsed = 0
	}
	return g.cooldown - elapsed
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
